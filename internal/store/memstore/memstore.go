// Package memstore keeps history, overrides and seen event IDs in process
// memory. It backs local runs and tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/liteapi-travel/hscode-assistant/internal/history"
	"github.com/liteapi-travel/hscode-assistant/internal/override"
)

type Store struct {
	mu        sync.RWMutex
	turns     map[string][]history.Turn
	overrides []override.Override
	seen      map[string]time.Time

	now func() time.Time
}

func New() *Store {
	return &Store{
		turns: make(map[string][]history.Turn),
		seen:  make(map[string]time.Time),
		now:   time.Now,
	}
}

func (s *Store) AppendTurn(_ context.Context, turn history.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[turn.UserID] = append(s.turns[turn.UserID], turn)
	return nil
}

func (s *Store) LoadHistory(_ context.Context, userID string, limit int) ([]history.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := history.Window(s.turns[userID], limit)
	out := make([]history.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *Store) AddOverride(_ context.Context, o override.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = append(s.overrides, o)
	return nil
}

func (s *Store) LatestOverride(_ context.Context, keyword string) (override.Override, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := override.Latest(s.overrides, keyword)
	return o, ok, nil
}

func (s *Store) FirstSeen(_ context.Context, id string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if at, ok := s.seen[id]; ok && (ttl <= 0 || now.Sub(at) < ttl) {
		return false, nil
	}
	s.seen[id] = now
	return true, nil
}

func (s *Store) Close() error {
	return nil
}
