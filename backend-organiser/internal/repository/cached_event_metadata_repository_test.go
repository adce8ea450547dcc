package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	pkgredis "github.com/owya490/social-sports-sub003/pkg/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return pkgredis.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.ttls[key] = expiration
	return nil
}

func (m *memCache) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(m.data, k)
		m.deleted = append(m.deleted, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

// stubMetadataRepository counts reads so cache hits can be observed
type stubMetadataRepository struct {
	meta     *domain.EventMetadata
	capacity *domain.EventCapacity
	reads    int
	err      error
}

func (s *stubMetadataRepository) GetByEventID(ctx context.Context, eventID string) (*domain.EventMetadata, error) {
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	return s.meta, nil
}

func (s *stubMetadataRepository) GetCapacity(ctx context.Context, eventID string) (*domain.EventCapacity, error) {
	return s.capacity, nil
}

func (s *stubMetadataRepository) Save(ctx context.Context, meta *domain.EventMetadata) error {
	s.meta = meta
	return s.err
}

func (s *stubMetadataRepository) Mutate(ctx context.Context, eventID string, fn MetadataMutation) (*domain.EventMetadata, *domain.EventCapacity, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	updated, err := fn(s.meta, s.capacity)
	if err != nil {
		return nil, nil, err
	}
	s.meta = updated
	return updated, s.capacity, nil
}

func sampleMetadata() *domain.EventMetadata {
	meta := domain.NewEventMetadata("event-1")
	meta.PurchaserMap["h1"] = &domain.Purchaser{
		Email:            "a@example.com",
		Attendees:        map[string]*domain.Attendee{"Ann": {TicketCount: 2}},
		TotalTicketCount: 2,
	}
	meta.CompleteTicketCount = 2
	meta.OrderIDs = []string{"o1"}
	return meta
}

func TestCachedEventMetadataRepository_ReadThrough(t *testing.T) {
	inner := &stubMetadataRepository{meta: sampleMetadata()}
	cache := newMemCache()
	repo := NewCachedEventMetadataRepository(inner, cache, time.Minute)

	first, err := repo.GetByEventID(context.Background(), "event-1")
	require.NoError(t, err)
	second, err := repo.GetByEventID(context.Background(), "event-1")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.reads)
	assert.Equal(t, first, second)
	assert.Equal(t, time.Minute, cache.ttls["organiser:event_metadata:event-1"])
}

func TestCachedEventMetadataRepository_NotFoundIsNotCached(t *testing.T) {
	inner := &stubMetadataRepository{}
	cache := newMemCache()
	repo := NewCachedEventMetadataRepository(inner, cache, 0)

	meta, err := repo.GetByEventID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, meta)
	assert.Empty(t, cache.data)
}

func TestCachedEventMetadataRepository_CacheErrorFallsThrough(t *testing.T) {
	inner := &stubMetadataRepository{meta: sampleMetadata()}
	cache := newMemCache()
	cache.getErr = errors.New("connection refused")
	repo := NewCachedEventMetadataRepository(inner, cache, time.Minute)

	meta, err := repo.GetByEventID(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, 2, meta.CompleteTicketCount)
	assert.Equal(t, 1, inner.reads)
}

func TestCachedEventMetadataRepository_InnerErrorPropagates(t *testing.T) {
	wantErr := errors.New("db down")
	repo := NewCachedEventMetadataRepository(&stubMetadataRepository{err: wantErr}, newMemCache(), time.Minute)

	_, err := repo.GetByEventID(context.Background(), "event-1")
	assert.ErrorIs(t, err, wantErr)
}

func TestCachedEventMetadataRepository_WritesInvalidate(t *testing.T) {
	inner := &stubMetadataRepository{meta: sampleMetadata(), capacity: &domain.EventCapacity{EventID: "event-1", Capacity: 10}}
	cache := newMemCache()
	repo := NewCachedEventMetadataRepository(inner, cache, time.Minute)
	ctx := context.Background()

	_, err := repo.GetByEventID(ctx, "event-1")
	require.NoError(t, err)
	require.Len(t, cache.data, 1)

	_, _, err = repo.Mutate(ctx, "event-1", func(meta *domain.EventMetadata, _ *domain.EventCapacity) (*domain.EventMetadata, error) {
		out := meta.Clone()
		out.CompleteTicketCount = 5
		return out, nil
	})
	require.NoError(t, err)
	assert.Empty(t, cache.data)

	meta, err := repo.GetByEventID(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 5, meta.CompleteTicketCount)
	assert.Equal(t, 2, inner.reads)

	require.NoError(t, repo.Save(ctx, sampleMetadata()))
	assert.Empty(t, cache.data)
	assert.Equal(t, []string{"organiser:event_metadata:event-1", "organiser:event_metadata:event-1"}, cache.deleted)
}

func TestCachedEventMetadataRepository_FailedMutateKeepsCache(t *testing.T) {
	inner := &stubMetadataRepository{meta: sampleMetadata()}
	cache := newMemCache()
	repo := NewCachedEventMetadataRepository(inner, cache, time.Minute)
	ctx := context.Background()

	_, err := repo.GetByEventID(ctx, "event-1")
	require.NoError(t, err)

	_, _, err = repo.Mutate(ctx, "event-1", func(*domain.EventMetadata, *domain.EventCapacity) (*domain.EventMetadata, error) {
		return nil, errors.New("capacity exceeded")
	})
	assert.Error(t, err)
	assert.Len(t, cache.data, 1)
}
