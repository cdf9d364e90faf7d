// Package app builds the assistant's components from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/liteapi-travel/hscode-assistant/internal/advisor"
	"github.com/liteapi-travel/hscode-assistant/internal/assistant"
	"github.com/liteapi-travel/hscode-assistant/internal/catalog"
	"github.com/liteapi-travel/hscode-assistant/internal/config"
	"github.com/liteapi-travel/hscode-assistant/internal/dispatch"
	"github.com/liteapi-travel/hscode-assistant/internal/line"
	"github.com/liteapi-travel/hscode-assistant/internal/server"
	"github.com/liteapi-travel/hscode-assistant/internal/store"
	"github.com/liteapi-travel/hscode-assistant/internal/store/memstore"
	"github.com/liteapi-travel/hscode-assistant/internal/store/redisstore"
	"github.com/liteapi-travel/hscode-assistant/internal/store/sqlstore"
)

// App holds the wired components of one running assistant.
type App struct {
	Catalog    *catalog.Catalog
	Store      store.Store
	Assistant  *assistant.Assistant
	Dispatcher *dispatch.Dispatcher
	Parser     *line.Parser
	Logger     zerolog.Logger
}

// Options adjusts how New wires the app.
type Options struct {
	// Replier replaces the LINE reply client.
	Replier assistant.Replier
	// Provider replaces the configured AI provider.
	Provider advisor.Provider
	// HTTPClient is used for the LINE API.
	HTTPClient *http.Client
}

// New builds every component. The caller must Close the app.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	cat, err := catalog.LoadDir(cfg.Catalog.Dir)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	logger.Info().Int("records", cat.Len()).Str("dir", cfg.Catalog.Dir).Msg("Loaded catalog")

	provider := opts.Provider
	if provider == nil {
		provider, err = NewProvider(ctx, cfg.AI)
		if err != nil {
			return nil, err
		}
	}

	replier := opts.Replier
	if replier == nil {
		replier, err = line.NewReplier(line.Config{
			ChannelSecret:      cfg.LINE.ChannelSecret,
			ChannelAccessToken: cfg.LINE.ChannelAccessToken,
			Endpoint:           cfg.LINE.APIEndpoint,
			HTTPClient:         opts.HTTPClient,
		})
		if err != nil {
			return nil, err
		}
	}

	st, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("driver", cfg.Store.Driver).Msg("Opened store")

	adv := advisor.New(provider, advisor.Options{
		Timeout:           cfg.AI.Timeout,
		RequestsPerSecond: cfg.AI.RateLimit,
		Burst:             cfg.AI.RateBurst,
	}, logger)

	asst := assistant.New(cat, st, adv, replier, assistant.Config{
		MentionPrefix:    cfg.Bot.MentionPrefix,
		HistoryWindow:    cfg.AI.HistoryWindow,
		MaxPromptRecords: cfg.AI.MaxPromptRecords,
		MaxListed:        cfg.Bot.MaxListed,
	}, logger)

	disp := dispatch.New(asst, st, dispatch.Config{
		MaxConcurrent: cfg.Dispatch.MaxConcurrent,
		EventTimeout:  cfg.Dispatch.EventTimeout,
		EventTTL:      cfg.Store.EventTTL,
	}, logger)

	return &App{
		Catalog:    cat,
		Store:      st,
		Assistant:  asst,
		Dispatcher: disp,
		Parser:     line.NewParser(cfg.LINE.ChannelSecret),
		Logger:     logger,
	}, nil
}

// Server returns the webhook HTTP server for the app.
func (a *App) Server(opts server.Options) *server.Server {
	return server.New(a.Parser, a.Dispatcher, opts, a.Logger)
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// NewProvider builds the configured AI provider.
func NewProvider(ctx context.Context, cfg config.AIConfig) (advisor.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return advisor.NewOpenAIProvider(advisor.OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			BaseURL:     cfg.OpenAI.BaseURL,
			Temperature: cfg.Temperature,
		}), nil
	case "gemini":
		p, err := advisor.NewGeminiProvider(ctx, advisor.GeminiConfig{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown ai provider: %s", cfg.Provider)
	}
}

// OpenStore opens the configured persistence backend.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return memstore.New(), nil
	case "redis":
		st, err := redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres", "sqlite":
		dialect, _ := sqlstore.DialectFor(cfg.Driver)
		dsn := cfg.Postgres.DSN
		if cfg.Driver == "sqlite" {
			dsn = cfg.SQLite.Path
		}
		st, err := sqlstore.Open(ctx, dialect, dsn)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownDriver, cfg.Driver)
	}
}
