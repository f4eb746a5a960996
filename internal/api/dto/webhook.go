package dto

import "time"

// CreateWebhookRequest subscribes a (user, session, event-type) tuple to a
// delivery URL.
type CreateWebhookRequest struct {
	SessionID      string            `json:"session_id" validate:"required"`
	EventType      string            `json:"event_type" validate:"required"`
	URL            string            `json:"url" validate:"required,url"`
	SuccessURL     string            `json:"success_url,omitempty" validate:"omitempty,url"`
	FailureURL     string            `json:"failure_url,omitempty" validate:"omitempty,url"`
	CustomPayload  map[string]string `json:"custom_payload,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	MaxRetries     int               `json:"max_retries,omitempty" validate:"omitempty,min=0,max=10"`
	RetryDelaySecs int               `json:"retry_delay_seconds,omitempty" validate:"omitempty,min=1,max=3600"`
	RetryOnFailure *bool             `json:"retry_on_failure,omitempty"`
}

// WebhookResponse is the dashboard's read shape for one subscription.
type WebhookResponse struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	EventType      string     `json:"event_type"`
	URL            string     `json:"url"`
	IsActive       bool       `json:"is_active"`
	TotalCalls     int64      `json:"total_calls"`
	SuccessCalls   int64      `json:"success_calls"`
	FailedCalls    int64      `json:"failed_calls"`
	LastCalledAt   *time.Time `json:"last_called_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TestWebhookRequest synthesizes one event through the real fan-out path
// without waiting for live traffic.
type TestWebhookRequest struct {
	EventType string `json:"event_type" validate:"required"`
}
