// Package redisstore persists history, overrides and processed event IDs in
// Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liteapi-travel/hscode-assistant/internal/history"
	"github.com/liteapi-travel/hscode-assistant/internal/override"
)

const defaultPrefix = "hs:"

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store keeps each user's turns in a list and each keyword's overrides in a
// sorted set scored by creation time.
type Store struct {
	client *redis.Client
	prefix string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) historyKey(userID string) string {
	return fmt.Sprintf("%shistory:%s", s.prefix, userID)
}

func (s *Store) overrideKey(keyword string) string {
	return fmt.Sprintf("%soverride:%s", s.prefix, keyword)
}

func (s *Store) eventKey(id string) string {
	return fmt.Sprintf("%sevent:%s:processed", s.prefix, id)
}

func (s *Store) AppendTurn(ctx context.Context, turn history.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	if err := s.client.RPush(ctx, s.historyKey(turn.UserID), data).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	return nil
}

func (s *Store) LoadHistory(ctx context.Context, userID string, limit int) ([]history.Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	items, err := s.client.LRange(ctx, s.historyKey(userID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	turns := make([]history.Turn, 0, len(items))
	for _, item := range items {
		var t history.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *Store) AddOverride(ctx context.Context, o override.Override) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal override: %w", err)
	}

	err = s.client.ZAdd(ctx, s.overrideKey(o.Keyword), redis.Z{
		Score:  float64(o.CreatedAt.UnixMicro()),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}
	return nil
}

func (s *Store) LatestOverride(ctx context.Context, keyword string) (override.Override, bool, error) {
	items, err := s.client.ZRevRange(ctx, s.overrideKey(keyword), 0, 0).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(items) == 0) {
		return override.Override{}, false, nil
	}
	if err != nil {
		return override.Override{}, false, fmt.Errorf("redis zrevrange: %w", err)
	}

	var o override.Override
	if err := json.Unmarshal([]byte(items[0]), &o); err != nil {
		return override.Override{}, false, fmt.Errorf("unmarshal override: %w", err)
	}
	return o, true, nil
}

func (s *Store) FirstSeen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.eventKey(id), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
