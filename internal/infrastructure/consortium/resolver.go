package consortium

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/libhub/orders-storage/internal/domain/shared"
	"github.com/libhub/orders-storage/internal/infrastructure/persistence"
)

// noCentralOrdering marks a cached negative lookup so that tenants outside a
// centrally-ordering consortium do not hit the database on every event.
const noCentralOrdering = "-"

const cacheKeyPrefix = "consortium:central:"

// Resolver resolves the consortium central tenant for an origin tenant,
// caching lookups in Redis. A nil redis client disables caching.
type Resolver struct {
	configs *persistence.GormConsortiumConfigRepository
	cache   *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
}

// NewResolver creates a new Resolver
func NewResolver(configs *persistence.GormConsortiumConfigRepository, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		configs: configs,
		cache:   cache,
		ttl:     ttl,
		logger:  logger.Named("consortium"),
	}
}

// CentralTenantID returns the central tenant for the origin tenant. The second
// return value is false when the tenant is not part of a consortium with
// central ordering enabled.
func (r *Resolver) CentralTenantID(ctx context.Context, originTenant string) (string, bool, error) {
	if originTenant == "" {
		return "", false, shared.ErrTenantRequired
	}

	if central, ok := r.fromCache(ctx, originTenant); ok {
		if central == noCentralOrdering {
			return "", false, nil
		}
		return central, true, nil
	}

	cfg, err := r.configs.FindByTenant(ctx, originTenant)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			r.toCache(ctx, originTenant, noCentralOrdering)
			return "", false, nil
		}
		return "", false, err
	}
	if !cfg.CentralOrdering {
		r.toCache(ctx, originTenant, noCentralOrdering)
		return "", false, nil
	}

	r.toCache(ctx, originTenant, cfg.CentralTenantID)
	return cfg.CentralTenantID, true, nil
}

// fromCache reads a cached resolution. Cache failures fall through to the
// database.
func (r *Resolver) fromCache(ctx context.Context, originTenant string) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	val, err := r.cache.Get(ctx, cacheKeyPrefix+originTenant).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("consortium cache read failed",
				zap.String("tenant_id", originTenant),
				zap.Error(err),
			)
		}
		return "", false
	}
	return val, true
}

func (r *Resolver) toCache(ctx context.Context, originTenant, central string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKeyPrefix+originTenant, central, r.ttl).Err(); err != nil {
		r.logger.Warn("consortium cache write failed",
			zap.String("tenant_id", originTenant),
			zap.Error(err),
		)
	}
}
