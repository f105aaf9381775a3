package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iho/cardbank/internal/adapter/idgen"
	"github.com/iho/cardbank/internal/adapter/issuer"
	"github.com/iho/cardbank/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/cardbank/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/cardbank/internal/adapter/repository/redis"
	"github.com/iho/cardbank/internal/infrastructure/config"
	"github.com/iho/cardbank/internal/infrastructure/logger"
	"github.com/iho/cardbank/internal/infrastructure/metrics"
	"github.com/iho/cardbank/internal/infrastructure/postgres"
	"github.com/iho/cardbank/internal/infrastructure/redis"
	"github.com/iho/cardbank/internal/usecase"
)

// app holds what commands share: configuration, logger, metrics and the
// lazily opened service with the resources behind it.
type app struct {
	// interactive is set by commands that keep one process alive across
	// many operations.
	interactive bool
	errOut      io.Writer

	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
	service *usecase.AccountService
	closers []func()
}

func (a *app) init(logOut io.Writer, backend, logLevel string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if backend != "" {
		cfg.StorageBackend = backend
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.errOut = logOut
	a.logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, logOut)
	log.Logger = a.logger
	a.metrics = metrics.New()

	return nil
}

// accounts returns the account service, opening the configured store on first use.
func (a *app) accounts(ctx context.Context) (*usecase.AccountService, error) {
	if a.service != nil {
		return a.service, nil
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	cards, err := issuer.NewLuhnIssuer(a.cfg.CardIIN)
	if err != nil {
		return nil, err
	}

	a.service = usecase.NewAccountService(store, cards, idgen.NewULIDGenerator(),
		usecase.WithLogger(a.logger),
		usecase.WithMetrics(a.metrics),
		usecase.WithIssueAttempts(a.cfg.IssueMaxAttempts),
		usecase.WithTransferTimeout(a.cfg.TransferTimeout),
	)

	return a.service, nil
}

func (a *app) openStore(ctx context.Context) (usecase.LedgerStore, error) {
	switch a.cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    a.cfg.DatabaseURL,
			MaxConns:       a.cfg.DatabaseMaxConns,
			MinConns:       a.cfg.DatabaseMinConns,
			ConnectTimeout: a.cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.logger.Debug().Msg("connected to postgres")

		return postgresRepo.NewLedgerStore(pool), nil

	case config.BackendRedis:
		client, err := redis.NewClient(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })

		return redisRepo.NewLedgerStore(client,
			redisRepo.WithKeyPrefix(a.cfg.RedisKeyPrefix),
			redisRepo.WithLockTTL(a.cfg.RedisLockTTL),
		), nil

	default:
		if !a.interactive {
			fmt.Fprintln(a.errOut, msgMemoryBackend)
		}
		return memory.NewLedgerStore(), nil
	}
}

// finish writes metrics if configured and releases every opened resource.
func (a *app) finish() error {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil

	if a.cfg == nil || a.cfg.MetricsFile == "" {
		return nil
	}

	if err := a.metrics.WriteToTextfile(a.cfg.MetricsFile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	return nil
}
