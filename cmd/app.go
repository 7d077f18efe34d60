package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teemow/agendabot/internal/agent"
	"github.com/teemow/agendabot/internal/booking"
	"github.com/teemow/agendabot/internal/cache"
	"github.com/teemow/agendabot/internal/calendar"
	"github.com/teemow/agendabot/internal/config"
	"github.com/teemow/agendabot/internal/instrumentation"
	"github.com/teemow/agendabot/internal/router"
	"github.com/teemow/agendabot/internal/server"
	"github.com/teemow/agendabot/internal/session"
	"github.com/teemow/agendabot/internal/store"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	telemetry *instrumentation.Provider
	store     store.Store
	// redis is nil when REDIS_ADDR is unset.
	redis  *cache.Redis
	engine *booking.Engine
	router *router.Router
}

// newApp validates cfg and wires the store, the booking engine and the
// router. Telemetry export is only enabled for long-running commands.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, telemetry bool) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Enabled = instrConfig.Enabled && telemetry
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize instrumentation: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, telemetry: provider}

	a.store, err = store.Open(ctx, cfg.Store, logger)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	var locker booking.SlotLocker
	if cfg.Redis.Addr != "" {
		a.redis = cache.New(cfg.Redis, logger)
		locker = booking.NewRedisSlotLocker(a.redis.Client(), 0)
	}

	metrics := provider.Metrics()
	a.engine, err = booking.New(booking.Config{
		Store:           a.store,
		Calendar:        &calendar.GoogleFactory{Location: booking.Location(), Metrics: metrics},
		OAuth:           cfg.OAuth,
		Locker:          locker,
		AllowSimulation: cfg.AllowSimulation,
		Metrics:         metrics,
		Logger:          logger,
	})
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create booking engine: %w", err)
	}

	a.router = router.New(a.engine,
		router.WithMetrics(metrics),
		router.WithAuditLogger(provider.AuditLogger()),
		router.WithLogger(logger),
	)
	return a, nil
}

// sessions returns the Redis session store when Redis is configured.
func (a *app) sessions() session.Store {
	if a.redis != nil {
		return session.NewRedisStore(a.redis, a.cfg.SessionTTL)
	}
	return session.NewMemoryStore(session.DefaultMemorySize, a.cfg.SessionTTL)
}

func (a *app) dispatcher() (*agent.Dispatcher, error) {
	if err := a.cfg.ValidateAgent(); err != nil {
		return nil, fmt.Errorf("invalid agent configuration: %w", err)
	}
	return agent.NewDispatcher(agent.Config{
		Service:            agent.NewOpenAIService(a.cfg.OpenAIAPIKey, a.cfg.OpenAIBaseURL),
		Tools:              a.router,
		Sessions:           a.sessions(),
		Businesses:         a.store,
		DefaultBusinessID:  a.cfg.DefaultBusinessID,
		DefaultAssistantID: a.cfg.DefaultAssistantID,
		RunTimeout:         a.cfg.RunTimeout,
		PollInterval:       a.cfg.PollInterval,
		MaxPolls:           a.cfg.MaxPolls,
		Metrics:            a.telemetry.Metrics(),
		Logger:             a.logger,
	})
}

func (a *app) healthChecks() map[string]server.Check {
	checks := map[string]server.Check{"store": a.store.Ping}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	return checks
}

// Close releases the store, Redis and telemetry.
func (a *app) Close(ctx context.Context) {
	if a.store != nil {
		a.store.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", "error", err)
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn("failed to shutdown instrumentation", "error", err)
	}
}
