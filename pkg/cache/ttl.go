package cache

import (
	"context"
	"time"
)

// cappedCache shortens every entry's lifetime to at most max.
type cappedCache struct {
	Cache
	max time.Duration
}

// WithMaxTTL wraps c so that no entry outlives max. Entries written with
// no expiry get max. A max of zero returns c unchanged.
func WithMaxTTL(c Cache, max time.Duration) Cache {
	if max <= 0 {
		return c
	}
	return &cappedCache{Cache: c, max: max}
}

func (c *cappedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > c.max {
		ttl = c.max
	}
	return c.Cache.Set(ctx, key, data, ttl)
}
