package admission

import (
	"testing"
	"time"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRateLimitRepo struct {
	settings    *models.RateLimitSettings
	getCalls    int
	windowCalls int
	counts      map[models.RateLimitWindow]int
}

func (f *fakeRateLimitRepo) GetSettings(userID string) (*models.RateLimitSettings, error) {
	f.getCalls++
	return f.settings, nil
}

func (f *fakeRateLimitRepo) CountInWindow(userID string, window models.RateLimitWindow) (int, error) {
	f.windowCalls++
	return f.counts[window], nil
}

func TestCachedRateLimitRepositoryServesSettingsFromCache(t *testing.T) {
	inner := &fakeRateLimitRepo{settings: &models.RateLimitSettings{PerMinute: 10, PerHour: 100, PerDay: 1000}}
	cached := NewCachedRateLimitRepository(inner, time.Minute)

	first, err := cached.GetSettings("user-1")
	require.NoError(t, err)
	second, err := cached.GetSettings("user-1")
	require.NoError(t, err)

	assert.Equal(t, first.PerMinute, second.PerMinute)
	assert.Equal(t, 1, inner.getCalls)
}

func TestCachedRateLimitRepositoryAlwaysHitsWindowCount(t *testing.T) {
	inner := &fakeRateLimitRepo{settings: &models.RateLimitSettings{PerMinute: 10}, counts: map[models.RateLimitWindow]int{models.WindowMinute: 3}}
	cached := NewCachedRateLimitRepository(inner, time.Minute)

	_, err := cached.CountInWindow("user-1", models.WindowMinute)
	require.NoError(t, err)
	_, err = cached.CountInWindow("user-1", models.WindowMinute)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.windowCalls)
}
