package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, _ []Message) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestAsk_Success(t *testing.T) {
	p := &fakeProvider{text: "  พิกัด 65050090  "}
	a := New(p, Options{}, zerolog.Nop())

	res := a.Ask(context.Background(), []Message{{Role: RoleUser, Content: "hat"}})

	require.True(t, res.OK())
	assert.Equal(t, "พิกัด 65050090", res.Text)
	assert.Equal(t, 1, p.calls)
}

func TestAsk_FailuresAreTaggedAndNotRetried(t *testing.T) {
	tests := []struct {
		name string
		p    *fakeProvider
		want FailureReason
	}{
		{name: "transport error", p: &fakeProvider{err: errors.New("connection refused")}, want: FailureUnavailable},
		{name: "rate limited", p: &fakeProvider{err: errRateLimited}, want: FailureRateLimited},
		{name: "deadline", p: &fakeProvider{err: context.DeadlineExceeded}, want: FailureTimeout},
		{name: "blank text", p: &fakeProvider{text: " \n"}, want: FailureEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.p, Options{}, zerolog.Nop())

			res := a.Ask(context.Background(), nil)

			assert.False(t, res.OK())
			assert.Equal(t, tt.want, res.Failure)
			assert.Empty(t, res.Text)
			assert.Equal(t, 1, tt.p.calls)
		})
	}
}

func TestAsk_LimiterRejectsWhenContextExpires(t *testing.T) {
	p := &fakeProvider{text: "ok"}
	a := New(p, Options{RequestsPerSecond: 0.001, Burst: 1, Timeout: 20 * time.Millisecond}, zerolog.Nop())

	require.True(t, a.Ask(context.Background(), nil).OK())

	res := a.Ask(context.Background(), nil)
	assert.Equal(t, FailureRateLimited, res.Failure)
	assert.Equal(t, 1, p.calls)
}

// chatServer emulates the chat completions endpoint.
func chatServer(t *testing.T, handler func(w http.ResponseWriter, body map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var body map[string]any
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider(t *testing.T) {
	t.Run("completion", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, body map[string]any) {
			assert.Equal(t, "gpt-4o-mini", body["model"])
			msgs, _ := body["messages"].([]any)
			if !assert.Len(t, msgs, 3) {
				return
			}
			assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
			assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
			assert.Equal(t, "user", msgs[2].(map[string]any)["role"])

			_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"HS 65050090"},"finish_reason":"stop"}]}`)
		})

		p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
		a := New(p, Options{Timeout: 5 * time.Second}, zerolog.Nop())

		res := a.Ask(context.Background(), []Message{
			{Role: RoleSystem, Content: "customs expert"},
			{Role: RoleAssistant, Content: "previous answer"},
			{Role: RoleUser, Content: "hat"},
		})
		require.True(t, res.OK(), res.Err)
		assert.Equal(t, "HS 65050090", res.Text)
	})

	t.Run("rate limited", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, _ map[string]any) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"requests"}}`)
		})

		p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
		res := New(p, Options{}, zerolog.Nop()).Ask(context.Background(), []Message{{Role: RoleUser, Content: "hat"}})
		assert.Equal(t, FailureRateLimited, res.Failure)
	})

	t.Run("server error", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, _ map[string]any) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
		})

		p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
		res := New(p, Options{}, zerolog.Nop()).Ask(context.Background(), []Message{{Role: RoleUser, Content: "hat"}})
		assert.Equal(t, FailureUnavailable, res.Failure)
		assert.Error(t, res.Err)
	})

	t.Run("no choices", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, _ map[string]any) {
			_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[]}`)
		})

		p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
		res := New(p, Options{}, zerolog.Nop()).Ask(context.Background(), []Message{{Role: RoleUser, Content: "hat"}})
		assert.Equal(t, FailureEmpty, res.Failure)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		t.Cleanup(srv.Close)

		p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
		res := New(p, Options{Timeout: 50 * time.Millisecond}, zerolog.Nop()).Ask(context.Background(), []Message{{Role: RoleUser, Content: "hat"}})
		assert.Equal(t, FailureTimeout, res.Failure)
	})
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "hat"},
		{Role: RoleAssistant, Content: "65050090"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleUser, Content: "123456"},
	})

	require.NotNil(t, system)
	assert.Equal(t, "a\n\nb", system.Parts[0].Text)

	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "65050090", contents[1].Parts[0].Text)
	assert.Equal(t, "user", contents[2].Role)

	system, _ = toGeminiContents([]Message{{Role: RoleUser, Content: "hat"}})
	assert.Nil(t, system)
}
