// Package store declares the persistence contracts of the assistant.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/liteapi-travel/hscode-assistant/internal/history"
	"github.com/liteapi-travel/hscode-assistant/internal/override"
)

// ErrUnknownDriver is returned by backend factories for an unsupported driver.
var ErrUnknownDriver = errors.New("unknown store driver")

// HistoryStore is the append-only conversation log.
type HistoryStore interface {
	AppendTurn(ctx context.Context, turn history.Turn) error
	// LoadHistory returns the user's turns in creation order. A positive
	// limit keeps only the newest limit turns.
	LoadHistory(ctx context.Context, userID string, limit int) ([]history.Turn, error)
}

// OverrideStore is the append-only correction table.
type OverrideStore interface {
	AddOverride(ctx context.Context, o override.Override) error
	// LatestOverride returns the newest override whose keyword equals
	// keyword exactly. found is false when there is none.
	LatestOverride(ctx context.Context, keyword string) (o override.Override, found bool, err error)
}

// Deduper remembers webhook event IDs so redelivered events are skipped.
type Deduper interface {
	// FirstSeen records id and reports whether it had not been seen within ttl.
	FirstSeen(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// Store bundles every persistence concern of one backend.
type Store interface {
	HistoryStore
	OverrideStore
	Deduper
	Close() error
}
