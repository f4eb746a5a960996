package repositories

import (
	"testing"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebhookRepo(t *testing.T) WebhookRepository {
	t.Helper()
	db := testsupport.OpenSQLite(t)
	testsupport.SeedWebhookSchema(t, db)
	return NewWebhookRepository(db)
}

func TestWebhookRepositoryCreateAndGet(t *testing.T) {
	repo := newWebhookRepo(t)
	wh := &models.Webhook{
		UserID:         "user-1",
		SessionID:      "session-1",
		Type:           models.EventOTP,
		URL:            "https://example.com/hook",
		CustomPayload:  models.JSONMap{"tag": "otp"},
		Headers:        models.JSONMap{"X-Token": "secret"},
		MaxRetries:     3,
		RetryDelaySecs: 30,
		IsActive:       true,
	}

	require.NoError(t, repo.Create(wh))
	assert.NotEqual(t, [16]byte{}, wh.ID)

	fetched, err := repo.GetByID(wh.ID)
	require.NoError(t, err)
	assert.Equal(t, wh.URL, fetched.URL)
	assert.Equal(t, "otp", fetched.CustomPayload["tag"])
	assert.Equal(t, models.EventOTP, fetched.Type)
}

func TestWebhookRepositoryListSubscribedMatchesTypeOrAll(t *testing.T) {
	repo := newWebhookRepo(t)
	require.NoError(t, repo.Create(&models.Webhook{
		UserID: "user-1", SessionID: "session-1", Type: models.EventOTP,
		URL: "https://example.com/otp", IsActive: true,
	}))
	require.NoError(t, repo.Create(&models.Webhook{
		UserID: "user-1", SessionID: "session-1", Type: models.EventAll,
		URL: "https://example.com/all", IsActive: true,
	}))
	require.NoError(t, repo.Create(&models.Webhook{
		UserID: "user-1", SessionID: "session-1", Type: models.EventAnnouncement,
		URL: "https://example.com/announcement", IsActive: true,
	}))

	subscribed, err := repo.ListSubscribed("user-1", "session-1", models.EventOTP)

	require.NoError(t, err)
	assert.Len(t, subscribed, 2)
}

func TestWebhookRepositoryUpdateStatsTracksOutcome(t *testing.T) {
	repo := newWebhookRepo(t)
	wh := &models.Webhook{UserID: "user-1", SessionID: "session-1", Type: models.EventAll, URL: "https://example.com", IsActive: true}
	require.NoError(t, repo.Create(wh))

	require.NoError(t, repo.UpdateStats(wh.ID, true))
	require.NoError(t, repo.UpdateStats(wh.ID, false))

	fetched, err := repo.GetByID(wh.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fetched.TotalCalls)
	assert.EqualValues(t, 1, fetched.SuccessCalls)
	assert.EqualValues(t, 1, fetched.FailedCalls)
	require.NotNil(t, fetched.LastSuccessAt)
	require.NotNil(t, fetched.LastFailureAt)
}

func TestWebhookRepositoryDeleteNotFound(t *testing.T) {
	repo := newWebhookRepo(t)
	wh := &models.Webhook{UserID: "user-1", SessionID: "session-1", Type: models.EventAll, URL: "https://example.com", IsActive: true}
	require.NoError(t, repo.Create(wh))

	require.NoError(t, repo.Delete(wh.ID))
	err := repo.Delete(wh.ID)
	assert.Error(t, err)
}
