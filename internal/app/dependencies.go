package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// Dependencies содержит хранилища и сервисы приложения.
type Dependencies struct {
	Store       domain.Store
	Products    domain.ProductRepository
	Users       domain.UserRepository
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	Idempotency domain.IdempotencyRepository

	Tokens *auth.TokenManager
	Auth   *auth.Service
	Health *health.Handler

	// PG не nil только при подключении к PostgreSQL; используется
	// для миграций, health-проверки и закрытия пула.
	PG *postgres.Store

	Logger *log.Entry
}

// NewDependencies собирает зависимости. Пустой DSN даёт in-memory
// хранилище, непустой — PostgreSQL с автоматическим применением миграций.
func NewDependencies(ctx context.Context, cfg Config, version string, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required (STOREFRONT_JWT_SECRET)")
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	deps := &Dependencies{
		Tokens: tokens,
		Health: health.NewHandler(version),
		Logger: logger,
	}

	if cfg.PostgresDSN == "" {
		logger.Info("postgres DSN не задан, используем in-memory хранилище")
		outbox := memory.NewOutboxRepository()
		store := memory.NewStore(outbox)

		deps.Store = store
		deps.Products = store
		deps.Users = memory.NewUserRepository()
		deps.Outbox = outbox
		deps.Timeline = memory.NewTimelineRepository()
		deps.Idempotency = memory.NewIdempotencyRepository()
	} else {
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pg.MigrateUp(ctx, 0); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("подключились к postgres, миграции применены")

		deps.PG = pg
		deps.Store = pg
		deps.Products = pg
		deps.Users = pg
		deps.Outbox = postgres.NewOutboxRepository(pg)
		deps.Timeline = postgres.NewTimelineRepository(pg)
		deps.Idempotency = postgres.NewIdempotencyRepository(pg)

		deps.Health.RegisterChecker("postgres", health.NewStorageChecker("postgres", 2*time.Second, pg.Ping))
	}

	deps.Auth = auth.NewService(deps.Users, tokens, logger.WithField("component", "auth"))
	return deps, nil
}

// Close освобождает ресурсы хранилищ.
func (d *Dependencies) Close() error {
	if d.PG != nil {
		return d.PG.Close()
	}
	return nil
}
