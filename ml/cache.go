package ml

import (
	"context"
	"fmt"
	"time"

	"argus/core"
	"argus/metrics"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// FeatureCache sits in front of feature extraction. Get reports presence
// through the boolean so a miss is not an error.
type FeatureCache interface {
	Get(ctx context.Context, eventID string) (*FeatureVector, bool, error)
	Set(ctx context.Context, features *FeatureVector, ttl time.Duration) error
	Delete(ctx context.Context, eventID string) error
}

// LRUFeatureCache is the default in-memory cache. Eviction is size-based;
// the ttl argument is ignored.
type LRUFeatureCache struct {
	cache *lru.Cache[string, *FeatureVector]
}

// NewLRUFeatureCache creates an in-memory feature cache holding at most
// size vectors.
func NewLRUFeatureCache(size int) (*LRUFeatureCache, error) {
	cache, err := lru.New[string, *FeatureVector](size)
	if err != nil {
		return nil, fmt.Errorf("creating feature cache: %w", err)
	}
	return &LRUFeatureCache{cache: cache}, nil
}

// Get implements FeatureCache.
func (c *LRUFeatureCache) Get(_ context.Context, eventID string) (*FeatureVector, bool, error) {
	features, ok := c.cache.Get(eventID)
	if !ok {
		metrics.CacheMisses.WithLabelValues("lru").Inc()
		return nil, false, nil
	}
	metrics.CacheHits.WithLabelValues("lru").Inc()
	return features, true, nil
}

// Set implements FeatureCache.
func (c *LRUFeatureCache) Set(_ context.Context, features *FeatureVector, _ time.Duration) error {
	if features == nil {
		return fmt.Errorf("features cannot be nil")
	}
	c.cache.Add(features.EventID, features)
	return nil
}

// Delete implements FeatureCache.
func (c *LRUFeatureCache) Delete(_ context.Context, eventID string) error {
	c.cache.Remove(eventID)
	return nil
}

// RedisFeatureCache backs the feature cache with Redis so vectors survive
// restarts and are shared between replicas.
type RedisFeatureCache struct {
	client    *core.RedisCache
	keyPrefix string
	logger    *zap.SugaredLogger
}

// NewRedisFeatureCache creates a Redis-backed feature cache.
func NewRedisFeatureCache(client *core.RedisCache, logger *zap.SugaredLogger) *RedisFeatureCache {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RedisFeatureCache{
		client:    client,
		keyPrefix: "ml:features:",
		logger:    logger,
	}
}

// Get implements FeatureCache.
func (c *RedisFeatureCache) Get(ctx context.Context, eventID string) (*FeatureVector, bool, error) {
	var features FeatureVector
	found, err := c.client.Get(ctx, c.keyPrefix+eventID, &features)
	if err != nil {
		return nil, false, fmt.Errorf("cache get failed: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return &features, true, nil
}

// Set implements FeatureCache.
func (c *RedisFeatureCache) Set(ctx context.Context, features *FeatureVector, ttl time.Duration) error {
	if features == nil {
		return fmt.Errorf("features cannot be nil")
	}
	if err := c.client.Set(ctx, c.keyPrefix+features.EventID, features, ttl); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Delete implements FeatureCache.
func (c *RedisFeatureCache) Delete(ctx context.Context, eventID string) error {
	if err := c.client.Delete(ctx, c.keyPrefix+eventID); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}
