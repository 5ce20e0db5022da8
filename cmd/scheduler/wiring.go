package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/meeting-finder/internal/application"
	"github.com/example/meeting-finder/internal/calendar"
	"github.com/example/meeting-finder/internal/config"
	"github.com/example/meeting-finder/internal/persistence"
	"github.com/example/meeting-finder/internal/persistence/memory"
	"github.com/example/meeting-finder/internal/persistence/redisstore"
	"github.com/example/meeting-finder/internal/persistence/sqlite"
	"github.com/example/meeting-finder/internal/scheduler"
)

// components holds the collaborators shared by the serve and reconcile commands.
type components struct {
	cases    *application.CaseService
	calendar application.CalendarGateway
	logger   *slog.Logger
	closers  []func() error
}

func (c *components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildComponents(ctx context.Context, cfg config.Config, logger *slog.Logger) (*components, error) {
	c := &components{logger: logger}

	repo, closer, err := openCaseRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closer)

	gateway, err := newCalendarGateway(cfg)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.calendar = gateway

	c.cases = application.NewCaseServiceWithConfig(
		newCaseStoreAdapter(repo),
		gateway,
		caseServiceConfig(cfg),
		nil,
		nil,
		logger,
	)
	return c, nil
}

func openCaseRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.CaseRepository, func() error, error) {
	switch cfg.Store {
	case config.StoreMemory:
		storage := memory.Open()
		return storage, storage.Close, nil
	case config.StoreSQLite:
		pool, err := sqlite.Open(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := pool.Migrate(ctx, logger); err != nil {
			_ = pool.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return sqlite.NewCaseRepository(pool), pool.Close, nil
	case config.StoreRedis:
		client, err := redisstore.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewCaseRepository(client, cfg.RedisKey), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func newCalendarGateway(cfg config.Config) (application.CalendarGateway, error) {
	switch cfg.Calendar {
	case config.CalendarMemory:
		return calendar.NewMemoryGateway(), nil
	case config.CalendarGoogle:
		if err := cfg.RequireGoogleCredentials(); err != nil {
			return nil, err
		}
		gcfg := calendar.GoogleConfig{
			CalendarID:   cfg.GoogleCalendarID,
			TimeZone:     cfg.TimeZone,
			RefreshToken: cfg.GoogleRefreshToken,
			Endpoint:     cfg.GoogleEndpoint,
		}
		if cfg.GoogleClientID != "" {
			gcfg.OAuth = calendar.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret)
		}
		return calendar.NewGoogleGateway(gcfg), nil
	default:
		return nil, fmt.Errorf("unknown calendar backend %q", cfg.Calendar)
	}
}

func caseServiceConfig(cfg config.Config) application.CaseServiceConfig {
	policy := scheduler.BufferAtBlockStart
	if cfg.BufferPolicy == config.BufferAroundBusy {
		policy = scheduler.BufferAroundBusy
	}
	return application.CaseServiceConfig{
		Location:          cfg.Location(),
		WorkingHourStart:  cfg.WorkingHourStart,
		WorkingHourEnd:    cfg.WorkingHourEnd,
		LunchStart:        cfg.LunchStart,
		LunchEnd:          cfg.LunchEnd,
		PerDayCap:         cfg.PerDayCap,
		DefaultSearchDays: cfg.DefaultSearchDays,
		MaxSearchDays:     cfg.MaxSearchDays,
		BufferPolicy:      policy,
		BusyCacheTTL:      cfg.FreeBusyCacheTTL,
	}
}
