// Package apikeycache caches API-key lookups so the per-request
// authentication middleware doesn't hit the row store on every call.
package apikeycache

import (
	"time"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/patrickmn/go-cache"
)

// Cache wraps an APIKeyRepository with a bounded-TTL in-memory cache keyed
// on the raw key string.
type Cache struct {
	inner repositories.APIKeyRepository
	cache *cache.Cache
}

func New(inner repositories.APIKeyRepository, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{inner: inner, cache: cache.New(ttl, 2*ttl)}
}

// Lookup returns the api key row for key, serving from cache when possible.
// A revoked/rotated key is still visible for up to ttl; callers requiring
// immediate revocation should call the repository directly.
func (c *Cache) Lookup(key string) (*models.APIKey, error) {
	if cached, ok := c.cache.Get(key); ok {
		row := cached.(models.APIKey)
		return &row, nil
	}
	row, err := c.inner.GetByKey(key)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, *row)
	return row, nil
}

// Invalidate drops key from the cache, e.g. after a revoke.
func (c *Cache) Invalidate(key string) {
	c.cache.Delete(key)
}
