package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWebhookRepo struct {
	mu          sync.Mutex
	subscribed  []models.Webhook
	attempts    []*models.WebhookLog
	statsCalls  []bool
}

func (f *fakeWebhookRepo) Create(webhook *models.Webhook) error { return nil }
func (f *fakeWebhookRepo) GetByID(id uuid.UUID) (*models.Webhook, error) { return nil, nil }
func (f *fakeWebhookRepo) ListByUser(userID string) ([]models.Webhook, error) { return nil, nil }
func (f *fakeWebhookRepo) ListSubscribed(userID, sessionID string, eventType models.WebhookEventType) ([]models.Webhook, error) {
	return f.subscribed, nil
}
func (f *fakeWebhookRepo) Update(webhook *models.Webhook) error { return nil }
func (f *fakeWebhookRepo) Delete(id uuid.UUID) error            { return nil }
func (f *fakeWebhookRepo) RecordAttempt(log *models.WebhookLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, log)
	return nil
}
func (f *fakeWebhookRepo) ListLogs(webhookID uuid.UUID, page, perPage int) ([]models.WebhookLog, int, error) {
	return nil, 0, nil
}
func (f *fakeWebhookRepo) UpdateStats(webhookID uuid.UUID, success bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls = append(f.statsCalls, success)
	return nil
}

func (f *fakeWebhookRepo) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func TestEnginePublishDeliversToMatchingSubscription(t *testing.T) {
	var gotBody []byte
	var gotHeader string
	done := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = buf
		gotHeader = r.Header.Get("X-Webhook-Event")
		w.WriteHeader(http.StatusOK)
		done <- struct{}{}
	}))
	defer server.Close()

	repo := &fakeWebhookRepo{subscribed: []models.Webhook{{
		ID: uuid.New(), UserID: "user-1", SessionID: "session-1", Type: models.EventOTP,
		URL: server.URL, IsActive: true, CustomPayload: models.JSONMap{"source": "gateway"},
	}}}
	engine := New(repo, config.WebhookConfig{Timeout: 2 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx, 1)

	engine.Publish(session.WebhookEvent{
		UserID: "user-1", SessionID: "session-1", Type: string(models.EventOTP),
		At: time.Now(), Fields: map[string]interface{}{"to": "15551234567"},
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was never delivered")
	}
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, "otp", gotHeader)
	assert.Contains(t, string(gotBody), `"source":"gateway"`)
	assert.Equal(t, int64(1), engine.Stats().TotalSuccess)
	assert.Equal(t, 1, repo.attemptCount())
}

func TestEnginePublishSkipsWhenNoSubscriptionMatches(t *testing.T) {
	repo := &fakeWebhookRepo{subscribed: nil}
	engine := New(repo, config.WebhookConfig{})

	engine.Publish(session.WebhookEvent{UserID: "user-1", SessionID: "session-1", Type: string(models.EventOTP), At: time.Now()})

	assert.Equal(t, int64(0), engine.Stats().TotalSent)
}

func TestEngineRetriesFailedDeliveryThenSucceeds(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := &fakeWebhookRepo{subscribed: []models.Webhook{{
		ID: uuid.New(), UserID: "user-1", SessionID: "session-1", Type: models.EventAll,
		URL: server.URL, IsActive: true, MaxRetries: 2, RetryOnFailure: true, RetryDelaySecs: 1,
	}}}
	engine := New(repo, config.WebhookConfig{Timeout: 2 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx, 1)

	engine.Publish(session.WebhookEvent{UserID: "user-1", SessionID: "session-1", Type: string(models.EventOTP), At: time.Now()})

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) >= 2
	}, 3*time.Second, 50*time.Millisecond)

	assert.Equal(t, int64(1), engine.Stats().TotalRetries)
}
