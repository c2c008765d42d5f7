package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vbonduro/dreamspace/internal/domain"
)

const generationKeyPrefix = "dreamspace:generation:" // dreamspace:generation:{generation_id}

// GenerationCache keeps recent generation results in Redis so status lookups
// by id do not hit the database.
type GenerationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGenerationCache(client *redis.Client, ttl time.Duration) *GenerationCache {
	return &GenerationCache{client: client, ttl: ttl}
}

// Put stores r unless an entry for the same id already exists. Durations are
// cached at the millisecond precision the database keeps.
func (c *GenerationCache) Put(ctx context.Context, r *domain.GenerationResult) error {
	cached := *r
	cached.Duration = r.Duration.Truncate(time.Millisecond)
	data, err := json.Marshal(&cached)
	if err != nil {
		return fmt.Errorf("failed to marshal generation: %w", err)
	}
	if err := c.client.SetNX(ctx, generationKeyPrefix+r.GenerationID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache generation: %w", err)
	}
	return nil
}

// Get returns nil, nil on a cache miss.
func (c *GenerationCache) Get(ctx context.Context, id string) (*domain.GenerationResult, error) {
	data, err := c.client.Get(ctx, generationKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached generation: %w", err)
	}

	var r domain.GenerationResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached generation: %w", err)
	}
	return &r, nil
}

// CachedGenerationStore writes through to the database and serves id lookups
// from Redis when possible. Cache errors are logged and never fail a call.
type CachedGenerationStore struct {
	primary *GenerationStore
	cache   *GenerationCache
	logger  *slog.Logger
}

func NewCachedGenerationStore(primary *GenerationStore, cache *GenerationCache, logger *slog.Logger) *CachedGenerationStore {
	return &CachedGenerationStore{primary: primary, cache: cache, logger: logger}
}

func (s *CachedGenerationStore) Append(ctx context.Context, r *domain.GenerationResult) error {
	if err := s.primary.Append(ctx, r); err != nil {
		return err
	}
	if err := s.cache.Put(ctx, r); err != nil {
		s.logger.Warn("generation cache write failed", "generation_id", r.GenerationID, "error", err)
	}
	return nil
}

func (s *CachedGenerationStore) GetByID(ctx context.Context, id string) (*domain.GenerationResult, error) {
	r, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.Warn("generation cache read failed", "generation_id", id, "error", err)
	}
	if r != nil {
		return r, nil
	}

	r, err = s.primary.GetByID(ctx, id)
	if err != nil || r == nil {
		return r, err
	}
	if err := s.cache.Put(ctx, r); err != nil {
		s.logger.Warn("generation cache backfill failed", "generation_id", id, "error", err)
	}
	return r, nil
}

func (s *CachedGenerationStore) ListByProject(ctx context.Context, projectID string) ([]*domain.GenerationResult, error) {
	return s.primary.ListByProject(ctx, projectID)
}
