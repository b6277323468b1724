package cache

import (
	"context"
	"fmt"

	"github.com/forkcast/backend/internal/domain"
)

// New builds the cache selected by cacheType. "none" returns a nil repository,
// which callers treat as caching disabled.
func New(ctx context.Context, cacheType, redisURL string) (domain.CacheRepository, func() error, error) {
	switch cacheType {
	case "", "none":
		return nil, func() error { return nil }, nil
	case "memory":
		c := NewMemoryCache()
		return c, c.Close, nil
	case "redis":
		c, err := NewRedisCache(ctx, redisURL)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache type %q", cacheType)
	}
}
