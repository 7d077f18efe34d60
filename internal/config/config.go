// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/teemow/agendabot/internal/agent"
	"github.com/teemow/agendabot/internal/cache"
	"github.com/teemow/agendabot/internal/google"
	"github.com/teemow/agendabot/internal/session"
	"github.com/teemow/agendabot/internal/store"
)

// Config is the process configuration.
type Config struct {
	Store store.Config

	// Redis is optional. An empty address keeps sessions and slot locks in
	// process.
	Redis cache.Config

	OAuth google.OAuthSettings

	OpenAIAPIKey       string
	OpenAIBaseURL      string
	DefaultAssistantID string
	DefaultBusinessID  string

	SessionTTL   time.Duration
	RunTimeout   time.Duration
	PollInterval time.Duration
	MaxPolls     int

	// AllowSimulation books simulated appointments when a business has no
	// usable calendar credential.
	AllowSimulation bool

	LogLevel  string
	LogFormat string
}

// Load reads a .env file when present and then the environment. Values that
// cannot be parsed are reported together.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	e := env{get: getenv}

	cfg := Config{
		Store: store.Config{
			Driver:     e.str("DATABASE_DRIVER", store.DriverPostgres),
			URL:        e.str("DATABASE_URL", ""),
			Schema:     e.str("DATABASE_SCHEMA", ""),
			SQLitePath: e.str("SQLITE_PATH", "agendabot.db"),
		},
		Redis: cache.Config{
			Addr:     e.str("REDIS_ADDR", ""),
			Password: e.str("REDIS_PASSWORD", ""),
			DB:       e.integer("REDIS_DB", 0),
			UseTLS:   e.boolean("REDIS_TLS", false),
		},
		OAuth: google.OAuthSettings{
			ClientID:     e.str("GOOGLE_CLIENT_ID", ""),
			ClientSecret: e.str("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  e.str("GOOGLE_REDIRECT_URI", ""),
		},
		OpenAIAPIKey:       e.str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      e.str("OPENAI_BASE_URL", ""),
		DefaultAssistantID: e.str("ASSISTANT_ID", ""),
		DefaultBusinessID:  e.str("BUSINESS_ID", ""),
		SessionTTL:         e.duration("SESSION_TTL", session.DefaultTTL),
		RunTimeout:         e.duration("RUN_TIMEOUT", agent.DefaultRunTimeout),
		PollInterval:       e.duration("RUN_POLL_INTERVAL", agent.DefaultPollInterval),
		MaxPolls:           e.integer("RUN_MAX_POLLS", agent.DefaultMaxPolls),
		AllowSimulation:    e.boolean("ALLOW_SIMULATION", false),
		LogLevel:           e.str("LOG_LEVEL", "info"),
		LogFormat:          e.str("LOG_FORMAT", "text"),
	}

	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}
	return cfg, nil
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case store.DriverPostgres:
		if c.Store.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case store.DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	case store.DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q, must be one of: postgres, sqlite, memory", c.Store.Driver))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.RunTimeout <= 0 {
		errs = append(errs, errors.New("RUN_TIMEOUT must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("RUN_POLL_INTERVAL must be positive"))
	}
	if c.MaxPolls <= 0 {
		errs = append(errs, errors.New("RUN_MAX_POLLS must be positive"))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("REDIS_DB must not be negative"))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported LOG_FORMAT %q, must be text or json", c.LogFormat))
	}
	return errors.Join(errs...)
}

// ValidateAgent checks the settings needed to drive agent runs.
func (c Config) ValidateAgent() error {
	var errs []error
	if c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.DefaultAssistantID == "" {
		errs = append(errs, errors.New("ASSISTANT_ID is required"))
	}
	return errors.Join(errs...)
}

// env reads typed values and collects parse errors.
type env struct {
	get  func(string) string
	errs []error
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e *env) integer(key string, def int) int {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
		return def
	}
	return n
}

func (e *env) boolean(key string, def bool) bool {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
		return def
	}
	return d
}
