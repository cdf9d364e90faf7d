// Package advisor asks an AI completion service to explain a tariff
// classification.
package advisor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Role of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the prompt sent to the provider.
type Message struct {
	Role    Role
	Content string
}

// FailureReason tags why an Ask produced no text.
type FailureReason string

const (
	FailureNone        FailureReason = ""
	FailureUnavailable FailureReason = "unavailable"
	FailureTimeout     FailureReason = "timeout"
	FailureRateLimited FailureReason = "rate_limited"
	FailureEmpty       FailureReason = "empty"
)

// Result is the outcome of a single Ask. Exactly one of Text or Failure is set.
type Result struct {
	Text    string
	Failure FailureReason
	Err     error
}

// OK reports whether the provider returned usable text.
func (r Result) OK() bool {
	return r.Failure == FailureNone
}

// Provider is a chat completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// errRateLimited is returned by providers when the service answers 429.
var errRateLimited = errors.New("provider rate limited")

// Options tune an Advisor.
type Options struct {
	// Timeout bounds one Ask. Zero leaves the caller's context in charge.
	Timeout time.Duration
	// RequestsPerSecond and Burst configure the client side limiter.
	// Zero RequestsPerSecond disables it.
	RequestsPerSecond float64
	Burst             int
}

// Advisor sends prompts to a Provider, one attempt per call.
type Advisor struct {
	provider Provider
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   zerolog.Logger
}

func New(provider Provider, opts Options, logger zerolog.Logger) *Advisor {
	a := &Advisor{
		provider: provider,
		timeout:  opts.Timeout,
		logger:   logger.With().Str("component", "advisor").Str("provider", provider.Name()).Logger(),
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return a
}

// Ask sends messages and returns the completion text or a tagged failure.
// It never retries.
func (a *Advisor) Ask(ctx context.Context, messages []Message) Result {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Rate limiter rejected request")
			return Result{Failure: FailureRateLimited, Err: err}
		}
	}

	startTime := time.Now()
	text, err := a.provider.Complete(ctx, messages)
	elapsed := time.Since(startTime)

	if err != nil {
		reason := classify(ctx, err)
		a.logger.Error().Err(err).Str("reason", string(reason)).Dur("duration", elapsed).Msg("Completion request failed")
		return Result{Failure: reason, Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		a.logger.Warn().Dur("duration", elapsed).Msg("Completion returned no text")
		return Result{Failure: FailureEmpty}
	}

	a.logger.Debug().Dur("duration", elapsed).Int("messages", len(messages)).Msg("Received completion")
	return Result{Text: text}
}

func classify(ctx context.Context, err error) FailureReason {
	switch {
	case errors.Is(err, errRateLimited):
		return FailureRateLimited
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return FailureTimeout
	default:
		return FailureUnavailable
	}
}
