package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fieldops/fieldops/internal/materials"
	"github.com/fieldops/fieldops/internal/observability"
	"github.com/fieldops/fieldops/internal/platform/cache"
	"github.com/fieldops/fieldops/internal/platform/db"
	"github.com/fieldops/fieldops/internal/platform/fieldapi"
	"github.com/fieldops/fieldops/internal/shared"
)

// Materials bundles the material request components shared by the binaries.
type Materials struct {
	API         *fieldapi.Client
	Service     *materials.Service
	Catalog     *materials.Catalog
	Idempotency *shared.IdempotencyStore
	Redis       *redis.Client
	Pool        *pgxpool.Pool
}

// BuildMaterials wires the field API client, the Redis catalog cache and the
// optional Postgres journal. In test mode no backing store is dialled.
func BuildMaterials(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Materials, error) {
	if logger == nil {
		logger = slog.Default()
	}
	api := fieldapi.NewClient(cfg.FieldAPIBaseURL, cfg.FieldAPITimeout,
		fieldapi.WithTokenSource(fieldapi.StaticToken(cfg.FieldAPIToken)),
		fieldapi.WithLogger(logger),
	)
	out := &Materials{API: api}

	var store materials.CatalogStore
	if !InTestMode() {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("catalog cache disabled", slog.Any("error", err))
		} else {
			out.Redis = client
			out.Idempotency = shared.NewIdempotencyStore(client, cfg.IdempotencyTTL)
			store = materials.NewCatalogCache(client, cfg.CatalogCacheTTL)
		}
	}

	var journal materials.Journal
	if cfg.JournalEnabled() && !InTestMode() {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("app: journal: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool, shared.AuditSchema); err != nil {
			pool.Close()
			out.Close()
			return nil, fmt.Errorf("app: journal schema: %w", err)
		}
		out.Pool = pool
		journal = shared.NewAuditLogger(pool)
	}

	var observer materials.ActionObserver
	if metrics != nil {
		observer = metrics
	}
	out.Service = materials.NewService(api, journal, observer, logger)
	out.Catalog = materials.NewCatalog(api, store, logger)
	if metrics != nil {
		out.Catalog.ObserveLookups(metrics)
	}
	return out, nil
}

// Handler builds the gateway handler, enabling Idempotency-Key checks when
// Redis is available.
func (m *Materials) Handler(logger *slog.Logger) *materials.Handler {
	handler := materials.NewHandler(logger, m.Service, m.Catalog)
	if m.Idempotency != nil {
		handler.UseIdempotency(m.Idempotency)
	}
	return handler
}

// Readiness returns the pingers for the configured backing stores.
func (m *Materials) Readiness() map[string]Pinger {
	checks := map[string]Pinger{}
	if m == nil {
		return checks
	}
	if m.Redis != nil {
		checks["redis"] = PingFunc(func(ctx context.Context) error { return m.Redis.Ping(ctx).Err() })
	}
	if m.Pool != nil {
		checks["postgres"] = PingFunc(m.Pool.Ping)
	}
	return checks
}

// Close releases Redis and Postgres connections.
func (m *Materials) Close() {
	if m == nil {
		return
	}
	if m.Redis != nil {
		_ = m.Redis.Close()
	}
	if m.Pool != nil {
		m.Pool.Close()
	}
}
