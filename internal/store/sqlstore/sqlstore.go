// Package sqlstore persists history, overrides and processed event IDs in
// Postgres or SQLite through database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/liteapi-travel/hscode-assistant/internal/history"
	"github.com/liteapi-travel/hscode-assistant/internal/override"
)

// Store implements the history, override and dedupe contracts on SQL tables.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects with the dialect's driver and applies the schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}

	if dialect.Name == SQLite.Name {
		// A single connection keeps ":memory:" databases alive and avoids
		// SQLITE_BUSY on concurrent writers.
		db.SetMaxOpenConns(1)
	}

	s, err := New(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and applies the schema.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) AppendTurn(ctx context.Context, turn history.Turn) error {
	query := s.dialect.rebind(`
		INSERT INTO conversation_turns (id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		turn.ID, turn.UserID, string(turn.Role), turn.Content, turn.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *Store) LoadHistory(ctx context.Context, userID string, limit int) ([]history.Turn, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		query := s.dialect.rebind(`
			SELECT id, user_id, role, content, created_at
			FROM conversation_turns WHERE user_id = ?
			ORDER BY seq DESC LIMIT ?
		`)
		rows, err = s.db.QueryContext(ctx, query, userID, limit)
	} else {
		query := s.dialect.rebind(`
			SELECT id, user_id, role, content, created_at
			FROM conversation_turns WHERE user_id = ?
			ORDER BY seq ASC
		`)
		rows, err = s.db.QueryContext(ctx, query, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("select turns: %w", err)
	}
	defer rows.Close()

	var turns []history.Turn
	for rows.Next() {
		var (
			t    history.Turn
			role string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = history.Role(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	if limit > 0 {
		for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
			turns[i], turns[j] = turns[j], turns[i]
		}
	}
	return turns, nil
}

func (s *Store) AddOverride(ctx context.Context, o override.Override) error {
	query := s.dialect.rebind(`
		INSERT INTO hs_overrides (id, user_id, keyword, correct_hs, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		o.ID, o.UserID, o.Keyword, o.CorrectCode, o.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert override: %w", err)
	}
	return nil
}

func (s *Store) LatestOverride(ctx context.Context, keyword string) (override.Override, bool, error) {
	query := s.dialect.rebind(`
		SELECT id, user_id, keyword, correct_hs, created_at
		FROM hs_overrides WHERE keyword = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`)

	var o override.Override
	err := s.db.QueryRowContext(ctx, query, keyword).Scan(
		&o.ID, &o.UserID, &o.Keyword, &o.CorrectCode, &o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return override.Override{}, false, nil
	}
	if err != nil {
		return override.Override{}, false, fmt.Errorf("select override: %w", err)
	}
	return o, true, nil
}

func (s *Store) FirstSeen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()

	if ttl > 0 {
		expire := s.dialect.rebind(`DELETE FROM webhook_events WHERE event_id = ? AND seen_at < ?`)
		if _, err := s.db.ExecContext(ctx, expire, id, now.Add(-ttl)); err != nil {
			return false, fmt.Errorf("expire event: %w", err)
		}
	}

	insert := s.dialect.rebind(`
		INSERT INTO webhook_events (event_id, seen_at) VALUES (?, ?)
		ON CONFLICT (event_id) DO NOTHING
	`)
	res, err := s.db.ExecContext(ctx, insert, id, now)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
