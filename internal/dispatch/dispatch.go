// Package dispatch runs a webhook batch as independent, bounded tasks and
// collects one outcome per event.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/liteapi-travel/hscode-assistant/internal/assistant"
	"github.com/liteapi-travel/hscode-assistant/internal/store"
)

// Handler processes a single event.
type Handler interface {
	Handle(ctx context.Context, ev assistant.Event) assistant.Outcome
}

// Config bounds a Dispatcher.
type Config struct {
	MaxConcurrent int
	// EventTimeout bounds each task. Zero means no per-event deadline.
	EventTimeout time.Duration
	// EventTTL is how long a processed event ID is remembered.
	EventTTL time.Duration
}

// Dispatcher fans a batch out to a Handler.
type Dispatcher struct {
	handler Handler
	deduper store.Deduper
	cfg     Config
	logger  zerolog.Logger
}

// New creates a dispatcher. deduper may be nil to process every event.
func New(handler Handler, deduper store.Deduper, cfg Config, logger zerolog.Logger) *Dispatcher {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &Dispatcher{
		handler: handler,
		deduper: deduper,
		cfg:     cfg,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch handles every event concurrently and returns their outcomes in
// the order of events. Events for the same user are not serialized.
func (d *Dispatcher) Dispatch(ctx context.Context, events []assistant.Event) []assistant.Outcome {
	outcomes := make([]assistant.Outcome, len(events))
	if len(events) == 0 {
		return outcomes
	}

	sem := make(chan struct{}, d.cfg.MaxConcurrent)
	var wg sync.WaitGroup

	for i, ev := range events {
		wg.Add(1)

		go func(idx int, ev assistant.Event) {
			defer wg.Done()

			// Acquire semaphore
			sem <- struct{}{}
			defer func() { <-sem }()

			outcomes[idx] = d.run(ctx, ev)
		}(i, ev)
	}

	wg.Wait()
	d.logSummary(outcomes)
	return outcomes
}

func (d *Dispatcher) run(ctx context.Context, ev assistant.Event) (out assistant.Outcome) {
	startTime := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = assistant.Outcome{
				EventID: ev.ID,
				UserID:  ev.UserID,
				Action:  assistant.ActionFailed,
				Err:     fmt.Errorf("panic handling event %s: %v", ev.ID, r),
			}
		}
		out.Duration = time.Since(startTime)
		d.logOutcome(out)
	}()

	if d.cfg.EventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.EventTimeout)
		defer cancel()
	}

	if d.deduper != nil && ev.ID != "" {
		first, err := d.deduper.FirstSeen(ctx, ev.ID, d.cfg.EventTTL)
		if err != nil {
			d.logger.Error().Err(err).Str("event_id", ev.ID).Msg("Error checking idempotency key")
		} else if !first {
			return assistant.Outcome{EventID: ev.ID, UserID: ev.UserID, Action: assistant.ActionDuplicate}
		}
	}

	return d.handler.Handle(ctx, ev)
}

func (d *Dispatcher) logOutcome(out assistant.Outcome) {
	evt := d.logger.Info()
	if out.Err != nil {
		evt = d.logger.Error().Err(out.Err)
	}
	evt.Str("event_id", out.EventID).
		Str("user_id", out.UserID).
		Str("action", string(out.Action)).
		Int("matches", out.Matches).
		Str("advisor_failure", string(out.AdvisorFailure)).
		Dur("duration", out.Duration).
		Msg("Handled event")
}

func (d *Dispatcher) logSummary(outcomes []assistant.Outcome) {
	var (
		failed    int
		totalTime time.Duration
	)
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
		totalTime += o.Duration
	}

	d.logger.Info().
		Int("events", len(outcomes)).
		Int("failed", failed).
		Dur("avg_duration", totalTime/time.Duration(len(outcomes))).
		Msg("Processed webhook batch")
}
