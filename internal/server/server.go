// Package server exposes the LINE webhook over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/liteapi-travel/hscode-assistant/internal/assistant"
	"github.com/liteapi-travel/hscode-assistant/internal/line"
)

// Parser verifies and decodes a webhook request.
type Parser interface {
	ParseRequest(r *http.Request) ([]assistant.Event, error)
}

// Dispatcher processes a batch of events.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []assistant.Event) []assistant.Outcome
}

// Options tunes the webhook handler.
type Options struct {
	// Inline processes events before acknowledging the request. Runtimes that
	// throttle CPU once the response is sent need this.
	Inline bool
	// ServiceName is reported by /health.
	ServiceName string
}

// Server acknowledges webhook requests and hands their events to a
// Dispatcher.
type Server struct {
	parser     Parser
	dispatcher Dispatcher
	opts       Options
	logger     zerolog.Logger

	inflight sync.WaitGroup
}

func New(parser Parser, dispatcher Dispatcher, opts Options, logger zerolog.Logger) *Server {
	if opts.ServiceName == "" {
		opts.ServiceName = "hscode-assistant"
	}
	return &Server{
		parser:     parser,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger.With().Str("component", "server").Logger(),
	}
}

// Router returns the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/webhook", s.HandleWebhook)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"healthy","service":"` + s.opts.ServiceName + `"}`))
}

// HandleWebhook verifies the request and acknowledges it. Event processing
// never changes the response status.
func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	events, err := s.parser.ParseRequest(r)
	if err != nil {
		if errors.Is(err, line.ErrInvalidSignature) {
			s.logger.Warn().Msg("Rejected webhook with invalid signature")
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}
		s.logger.Error().Err(err).Msg("Failed to parse webhook")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.logger.Info().Int("events", len(events)).Msg("Received webhook")

	if s.opts.Inline {
		s.dispatcher.Dispatch(r.Context(), events)
		writeOK(w)
		return
	}

	writeOK(w)

	ctx := context.WithoutCancel(r.Context())
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.dispatcher.Dispatch(ctx, events)
	}()
}

// Wait blocks until every acknowledged batch has been processed or ctx is
// done.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
