package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEventType is one of the subscribable event names
type WebhookEventType string

const (
	EventOTP WebhookEventType = "otp"
	EventAnnouncement WebhookEventType = "announcement"
	EventIncomingText WebhookEventType = "incoming_text"
	EventIncomingMedia WebhookEventType = "incoming_media"
	EventIncomingLocation WebhookEventType = "incoming_location"
	EventIncomingMessage WebhookEventType = "incoming_message"
	EventMessageDelivered WebhookEventType = "message_delivered"
	EventMessageRead WebhookEventType = "message_read"
	EventAll WebhookEventType = "all"
)

// Webhook is a subscription for a (user, session, type) tuple, unique
// on that triple.
type Webhook struct {
	ID uuid.UUID `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	SessionID string `json:"session_id" db:"session_id"`
	Type WebhookEventType `json:"webhook_type" db:"webhook_type"`
	URL string `json:"url" db:"url"`
	SuccessURL *string `json:"success_webhook_url,omitempty" db:"success_webhook_url"`
	FailureURL *string `json:"failure_webhook_url,omitempty" db:"failure_webhook_url"`
	CustomPayload JSONMap `json:"custom_payload" db:"custom_payload"`
	Headers JSONMap `json:"headers" db:"headers"`
	MaxRetries int `json:"max_retries" db:"max_retries"`
	RetryDelaySecs int `json:"retry_delay_seconds" db:"retry_delay_seconds"`
	RetryOnFailure bool `json:"retry_on_failure" db:"retry_on_failure"`
	IsActive bool `json:"is_active" db:"is_active"`
	TotalCalls int64 `json:"total_calls" db:"total_calls"`
	SuccessCalls int64 `json:"success_calls" db:"success_calls"`
	FailedCalls int64 `json:"failed_calls" db:"failed_calls"`
	LastCalledAt *time.Time `json:"last_called_at,omitempty" db:"last_called_at"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty" db:"last_success_at"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty" db:"last_failure_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Matches reports whether this webhook should receive an event of the given
// type: active, and either an exact type match or subscribed to "all".
func (w *Webhook) Matches(eventType WebhookEventType) bool {
	return w.IsActive && (w.Type == eventType || w.Type == EventAll)
}

// SelectURL applies the URL-selection rule: success/failure overrides
// win over the primary URL when present and the outcome carries that flag.
func (w *Webhook) SelectURL(success *bool) string {
	if success != nil {
		if *success && w.SuccessURL != nil && *w.SuccessURL != "" {
			return *w.SuccessURL
		}
		if !*success && w.FailureURL != nil && *w.FailureURL != "" {
			return *w.FailureURL
		}
	}
	return w.URL
}

// WebhookLog is a per-attempt delivery record.
type WebhookLog struct {
	ID uuid.UUID `json:"id" db:"id"`
	WebhookID uuid.UUID `json:"webhook_id" db:"webhook_id"`
	EventType WebhookEventType `json:"event_type" db:"event_type"`
	Payload string `json:"payload" db:"payload"`
	ResponseStatus int `json:"response_status" db:"response_status"`
	ResponseBody string `json:"response_body" db:"response_body"`
	Success bool `json:"success" db:"success"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`
	Attempt int `json:"attempt" db:"attempt"`
	IsRetry bool `json:"is_retry" db:"is_retry"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateWebhookRequest is the CRUD create/update body.
type CreateWebhookRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Type WebhookEventType `json:"webhook_type" validate:"required"`
	URL string `json:"url" validate:"required,url"`
	SuccessURL *string `json:"success_webhook_url,omitempty" validate:"omitempty,url"`
	FailureURL *string `json:"failure_webhook_url,omitempty" validate:"omitempty,url"`
	CustomPayload JSONMap `json:"custom_payload,omitempty"`
	Headers JSONMap `json:"headers,omitempty"`
	MaxRetries *int `json:"max_retries,omitempty"`
	RetryDelaySecs *int `json:"retry_delay_seconds,omitempty"`
	RetryOnFailure *bool `json:"retry_on_failure,omitempty"`
}
