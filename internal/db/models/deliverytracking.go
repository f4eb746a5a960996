package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the message_delivery_tracking lifecycle driven by the
// worker's ack channel: ack code 2 means delivered, 3 means read.
type DeliveryStatus string

const (
	DeliveryStatusSent DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusRead DeliveryStatus = "read"
)

// DeliveryTracking is one row per dispatched message, updated in place as
// acks arrive.
type DeliveryTracking struct {
	ID uuid.UUID `json:"id" db:"id"`
	SessionID string `json:"session_id" db:"session_id"`
	MessageID string `json:"message_id" db:"message_id"`
	Recipient string `json:"recipient" db:"recipient"`
	Status DeliveryStatus `json:"status" db:"status"`
	SentAt time.Time `json:"sent_at" db:"sent_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	ReadAt *time.Time `json:"read_at,omitempty" db:"read_at"`
}

// AckCode is the raw ack value whatsmeow-style receipts use to signal
// delivery vs read confirmation.
type AckCode int

const (
	AckCodeDelivered AckCode = 2
	AckCodeRead AckCode = 3
)
