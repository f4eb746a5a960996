package admission

import (
	"time"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/patrickmn/go-cache"
)

// cachedRateLimitRepository wraps a RateLimitRepository with a short-TTL
// cache for GetSettings, so the rate-limit gate's per-request lookup
// doesn't round-trip the row store on every send.
type cachedRateLimitRepository struct {
	inner repositories.RateLimitRepository
	cache *cache.Cache
}

// NewCachedRateLimitRepository wraps inner, caching per-user settings for
// ttl before re-reading the row store. CountInWindow always hits the row
// store, since it must reflect traffic sent moments ago.
func NewCachedRateLimitRepository(inner repositories.RateLimitRepository, ttl time.Duration) repositories.RateLimitRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &cachedRateLimitRepository{inner: inner, cache: cache.New(ttl, 2*ttl)}
}

func (c *cachedRateLimitRepository) GetSettings(userID string) (*models.RateLimitSettings, error) {
	if cached, ok := c.cache.Get(userID); ok {
		settings := cached.(models.RateLimitSettings)
		return &settings, nil
	}
	settings, err := c.inner.GetSettings(userID)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(userID, *settings)
	return settings, nil
}

func (c *cachedRateLimitRepository) CountInWindow(userID string, window models.RateLimitWindow) (int, error) {
	return c.inner.CountInWindow(userID, window)
}
