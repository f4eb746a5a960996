package session

import "time"

// WebhookEvent is the normalized shape the Supervisor hands to the Webhook
// Fan-out Engine; the fan-out engine owns subscription lookup,
// payload composition, and delivery.
type WebhookEvent struct {
	UserID string
	SessionID string
	Type string
	Success *bool
	Fields map[string]interface{}
	At time.Time
}

// WebhookPublisher decouples the Supervisor from the Webhook Fan-out
// Engine's concrete implementation.
type WebhookPublisher interface {
	Publish(event WebhookEvent)
}
