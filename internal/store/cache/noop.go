package cache

import (
	"context"
	"time"
)

type noopCache struct{}

// NewNoopCache returns a cache that never hits. Used when redis is disabled.
func NewNoopCache() CacheService {
	return noopCache{}
}

func (noopCache) Get(ctx context.Context, key string, dest interface{}) error {
	return ErrMiss
}

func (noopCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (noopCache) Delete(ctx context.Context, key string) error {
	return nil
}
