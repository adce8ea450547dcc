package repository

import (
	"context"
	"errors"
	"time"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/pkg/logger"
	pkgredis "github.com/owya490/social-sports-sub003/pkg/redis"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	metadataCacheKeyPrefix  = "organiser:event_metadata:"
	defaultMetadataCacheTTL = 5 * time.Minute
)

// MetadataCache is the subset of pkg/redis.Client used for caching
type MetadataCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedEventMetadataRepository is a read-through Redis cache in front of
// another EventMetadataRepository. Writes go to the inner repository first
// and then drop the cached copy. Cache failures never fail a request.
type CachedEventMetadataRepository struct {
	inner EventMetadataRepository
	cache MetadataCache
	ttl   time.Duration
}

// NewCachedEventMetadataRepository creates a new CachedEventMetadataRepository
func NewCachedEventMetadataRepository(inner EventMetadataRepository, cache MetadataCache, ttl time.Duration) *CachedEventMetadataRepository {
	if ttl <= 0 {
		ttl = defaultMetadataCacheTTL
	}
	return &CachedEventMetadataRepository{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func metadataCacheKey(eventID string) string {
	return metadataCacheKeyPrefix + eventID
}

// GetByEventID serves metadata from Redis when present
func (r *CachedEventMetadataRepository) GetByEventID(ctx context.Context, eventID string) (*domain.EventMetadata, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.cache.event_metadata.get_by_event_id")
	defer span.End()

	key := metadataCacheKey(eventID)

	var cached domain.EventMetadata
	err := r.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return &cached, nil
	}
	if !errors.Is(err, pkgredis.ErrCacheMiss) {
		logger.Get().WarnContext(ctx, "event metadata cache read failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	meta, err := r.inner.GetByEventID(ctx, eventID)
	if err != nil || meta == nil {
		return meta, err
	}

	if err := r.cache.SetJSON(ctx, key, meta, r.ttl); err != nil {
		logger.Get().WarnContext(ctx, "event metadata cache write failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
	return meta, nil
}

// GetCapacity is not cached; vacancy changes with every purchase
func (r *CachedEventMetadataRepository) GetCapacity(ctx context.Context, eventID string) (*domain.EventCapacity, error) {
	return r.inner.GetCapacity(ctx, eventID)
}

// Save writes through and invalidates the cached copy
func (r *CachedEventMetadataRepository) Save(ctx context.Context, meta *domain.EventMetadata) error {
	if err := r.inner.Save(ctx, meta); err != nil {
		return err
	}
	r.invalidate(ctx, meta.EventID)
	return nil
}

// Mutate writes through and invalidates the cached copy
func (r *CachedEventMetadataRepository) Mutate(ctx context.Context, eventID string, fn MetadataMutation) (*domain.EventMetadata, *domain.EventCapacity, error) {
	meta, capacity, err := r.inner.Mutate(ctx, eventID, fn)
	if err != nil {
		return nil, nil, err
	}
	r.invalidate(ctx, eventID)
	return meta, capacity, nil
}

func (r *CachedEventMetadataRepository) invalidate(ctx context.Context, eventID string) {
	if err := r.cache.Del(ctx, metadataCacheKey(eventID)).Err(); err != nil {
		logger.Get().WarnContext(ctx, "event metadata cache invalidation failed",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}
