package apikeycache

import (
	"fmt"
	"testing"
	"time"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPIKeyRepo struct {
	rows    map[string]*models.APIKey
	lookups int
}

func newFakeAPIKeyRepo() *fakeAPIKeyRepo {
	return &fakeAPIKeyRepo{rows: make(map[string]*models.APIKey)}
}

func (f *fakeAPIKeyRepo) Create(key *models.APIKey) error { f.rows[key.Key] = key; return nil }
func (f *fakeAPIKeyRepo) GetByKey(key string) (*models.APIKey, error) {
	f.lookups++
	row, ok := f.rows[key]
	if !ok {
		return nil, fmt.Errorf("api key not found")
	}
	return row, nil
}
func (f *fakeAPIKeyRepo) GetBySessionID(sessionID string) (*models.APIKey, error) {
	for _, row := range f.rows {
		if row.SessionID == sessionID {
			return row, nil
		}
	}
	return nil, fmt.Errorf("api key not found")
}
func (f *fakeAPIKeyRepo) Revoke(sessionID string) error { return nil }
func (f *fakeAPIKeyRepo) TouchUsage(key string) error   { return nil }
func (f *fakeAPIKeyRepo) GenerateKey() (string, error)  { return "wass_test", nil }
func (f *fakeAPIKeyRepo) GenerateSecret() (string, error) { return "secret", nil }

func TestCacheLookupServesFromCacheOnSecondCall(t *testing.T) {
	repo := newFakeAPIKeyRepo()
	repo.rows["wass_abc"] = &models.APIKey{Key: "wass_abc", UserID: "user-1", SessionID: "session-1", IsActive: true}
	cache := New(repo, time.Minute)

	first, err := cache.Lookup("wass_abc")
	require.NoError(t, err)
	second, err := cache.Lookup("wass_abc")
	require.NoError(t, err)

	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, 1, repo.lookups)
}

func TestCacheInvalidateForcesRepositoryLookup(t *testing.T) {
	repo := newFakeAPIKeyRepo()
	repo.rows["wass_abc"] = &models.APIKey{Key: "wass_abc", UserID: "user-1", SessionID: "session-1", IsActive: true}
	cache := New(repo, time.Minute)

	_, err := cache.Lookup("wass_abc")
	require.NoError(t, err)
	cache.Invalidate("wass_abc")
	_, err = cache.Lookup("wass_abc")
	require.NoError(t, err)

	assert.Equal(t, 2, repo.lookups)
}

func TestCacheLookupPropagatesNotFound(t *testing.T) {
	repo := newFakeAPIKeyRepo()
	cache := New(repo, time.Minute)

	_, err := cache.Lookup("missing")

	assert.Error(t, err)
}
