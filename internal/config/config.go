// Package config loads the assistant's configuration from an optional YAML
// file and the environment.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the assistant.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LINE     LINEConfig     `yaml:"line"`
	Bot      BotConfig      `yaml:"bot"`
	AI       AIConfig       `yaml:"ai"`
	Store    StoreConfig    `yaml:"store"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// LINEConfig holds Messaging API credentials.
type LINEConfig struct {
	ChannelSecret      string `yaml:"channel_secret"`
	ChannelAccessToken string `yaml:"channel_access_token"`
	// APIEndpoint overrides the Messaging API base URL.
	APIEndpoint string `yaml:"api_endpoint"`
}

// BotConfig holds conversation behaviour.
type BotConfig struct {
	MentionPrefix string `yaml:"mention_prefix"`
	// MaxListed is how many catalog matches the reply lists.
	MaxListed int `yaml:"max_listed"`
}

// AIConfig holds advisory provider settings.
type AIConfig struct {
	Provider         string        `yaml:"provider"` // openai or gemini
	OpenAI           OpenAIConfig  `yaml:"openai"`
	Gemini           GeminiConfig  `yaml:"gemini"`
	Timeout          time.Duration `yaml:"timeout"`
	Temperature      float32       `yaml:"temperature"`
	RateLimit        float64       `yaml:"rate_limit"`
	RateBurst        int           `yaml:"rate_burst"`
	HistoryWindow    int           `yaml:"history_window"`
	MaxPromptRecords int           `yaml:"max_prompt_records"`
}

// OpenAIConfig holds OpenAI compatible endpoint settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// GeminiConfig holds Gemini settings.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver   string         `yaml:"driver"` // memory, redis, postgres or sqlite
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	EventTTL time.Duration  `yaml:"event_ttl"`
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// PostgresConfig holds Postgres settings.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// CatalogConfig locates the catalog partitions.
type CatalogConfig struct {
	// Dir holds *.json partitions. Empty uses the embedded catalog.
	Dir string `yaml:"dir"`
}

// DispatchConfig bounds webhook event processing.
type DispatchConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	EventTimeout  time.Duration `yaml:"event_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadFile is Load without validation, for tools that only need part of the
// configuration.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             3000,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     15 * time.Second,
			IdleTimeout:      60 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Bot: BotConfig{
			MentionPrefix: "@DOC BOT",
			MaxListed:     5,
		},
		AI: AIConfig{
			Provider: "openai",
			OpenAI: OpenAIConfig{
				Model: "gpt-4o-mini",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
			Timeout:          60 * time.Second,
			Temperature:      0.2,
			RateLimit:        3,
			RateBurst:        5,
			HistoryWindow:    20,
			MaxPromptRecords: 10,
		},
		Store: StoreConfig{
			Driver: "memory",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "hs:",
			},
			SQLite: SQLiteConfig{
				Path: "hs-assistant.db",
			},
			EventTTL: 24 * time.Hour,
		},
		Dispatch: DispatchConfig{
			MaxConcurrent: 10,
			EventTimeout:  90 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.AI.Provider {
	case "openai":
		if c.AI.OpenAI.APIKey == "" {
			return fmt.Errorf("ai.openai.api_key is required for provider openai")
		}
	case "gemini":
		if c.AI.Gemini.APIKey == "" {
			return fmt.Errorf("ai.gemini.api_key is required for provider gemini")
		}
	default:
		return fmt.Errorf("invalid ai provider: %s", c.AI.Provider)
	}

	switch c.Store.Driver {
	case "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for driver redis")
		}
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required for driver postgres")
		}
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path is required for driver sqlite")
		}
	default:
		return fmt.Errorf("invalid store driver: %s", c.Store.Driver)
	}

	if c.AI.HistoryWindow < 0 {
		return fmt.Errorf("ai.history_window must not be negative")
	}
	if c.AI.MaxPromptRecords < 1 {
		return fmt.Errorf("ai.max_prompt_records must be at least 1")
	}
	if c.Dispatch.MaxConcurrent < 1 {
		return fmt.Errorf("dispatch.max_concurrent must be at least 1")
	}

	return nil
}

// ValidateLINE checks the credentials needed to serve the webhook.
func (c *Config) ValidateLINE() error {
	if c.LINE.ChannelSecret == "" || c.LINE.ChannelAccessToken == "" {
		return fmt.Errorf("line.channel_secret and line.channel_access_token are required")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("CHANNEL_SECRET"); v != "" {
		cfg.LINE.ChannelSecret = v
	}
	if v := os.Getenv("CHANNEL_ACCESS_TOKEN"); v != "" {
		cfg.LINE.ChannelAccessToken = v
	}
	if v := os.Getenv("BOT_MENTION_PREFIX"); v != "" {
		cfg.Bot.MentionPrefix = v
	}

	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AI.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.AI.OpenAI.BaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.Gemini.APIKey = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		if cfg.AI.Provider == "gemini" {
			cfg.AI.Gemini.Model = v
		} else {
			cfg.AI.OpenAI.Model = v
		}
	}

	// REDIS_HOST/REDIS_PORT are what the functions runtime is deployed with.
	if host := os.Getenv("REDIS_HOST"); host != "" {
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		cfg.Store.Driver = "redis"
		cfg.Store.Redis.Addr = net.JoinHostPort(host, port)
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Store.Driver = "redis"
		cfg.Store.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Store.Driver = "sqlite"
			cfg.Store.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Store.Driver = "postgres"
			cfg.Store.Postgres.DSN = v
		}
	}

	if v := os.Getenv("CATALOG_DIR"); v != "" {
		cfg.Catalog.Dir = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
