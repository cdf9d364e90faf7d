package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liteapi-travel/hscode-assistant/internal/assistant"
	"github.com/liteapi-travel/hscode-assistant/internal/line"
)

type stubParser struct {
	events []assistant.Event
	err    error
}

func (p stubParser) ParseRequest(*http.Request) ([]assistant.Event, error) {
	return p.events, p.err
}

type blockingDispatcher struct {
	mu      sync.Mutex
	release chan struct{}
	got     []assistant.Event
	ctxErr  error
}

func (d *blockingDispatcher) Dispatch(ctx context.Context, events []assistant.Event) []assistant.Outcome {
	if d.release != nil {
		<-d.release
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, events...)
	d.ctxErr = ctx.Err()
	return make([]assistant.Outcome, len(events))
}

func (d *blockingDispatcher) received() []assistant.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.got
}

func post(t *testing.T, h http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"events":[]}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_AcknowledgesBeforeProcessing(t *testing.T) {
	d := &blockingDispatcher{release: make(chan struct{})}
	events := []assistant.Event{{ID: "e1"}, {ID: "e2"}}
	s := New(stubParser{events: events}, d, Options{}, zerolog.Nop())

	rec := post(t, s.Router())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Empty(t, d.received())

	close(d.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))

	assert.Equal(t, events, d.received())
	assert.NoError(t, d.ctxErr)
}

func TestWebhook_Inline(t *testing.T) {
	d := &blockingDispatcher{}
	s := New(stubParser{events: []assistant.Event{{ID: "e1"}}}, d, Options{Inline: true}, zerolog.Nop())

	rec := post(t, s.Router())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, d.received(), 1)
}

func TestWebhook_RejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "invalid signature", err: line.ErrInvalidSignature},
		{name: "malformed body", err: errors.New("parse webhook: unexpected EOF")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &blockingDispatcher{}
			s := New(stubParser{err: tt.err}, d, Options{}, zerolog.Nop())

			rec := post(t, s.Router())
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			require.NoError(t, s.Wait(context.Background()))
			assert.Empty(t, d.received())
		})
	}
}

func TestWebhook_MethodNotAllowed(t *testing.T) {
	s := New(stubParser{}, &blockingDispatcher{}, Options{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	s := New(stubParser{}, &blockingDispatcher{}, Options{ServiceName: "hsbot"}, zerolog.Nop())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"hsbot"}`, rec.Body.String())
}

func TestWait_HonoursContext(t *testing.T) {
	d := &blockingDispatcher{release: make(chan struct{})}
	s := New(stubParser{events: []assistant.Event{{ID: "e1"}}}, d, Options{}, zerolog.Nop())
	post(t, s.Router())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	close(d.release)
	require.NoError(t, s.Wait(context.Background()))
}
