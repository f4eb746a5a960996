package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionTier is one of the three fixed plans
type SubscriptionTier string

const (
	TierBasic SubscriptionTier = "basic"
	TierStandard SubscriptionTier = "standard"
	TierPremium SubscriptionTier = "premium"
)

// TierLimits describes one tier's quota. A zero limit with Unlimited=true
// means the gate must never enforce it.
type TierLimits struct {
	MessagesAllowed int
	NumbersAllowed int
	DurationDays int // 0 means never expires
	Unlimited bool
}

// TierCatalog is the fixed {basic, standard, premium} table
var TierCatalog = map[SubscriptionTier]TierLimits{
	TierBasic: {MessagesAllowed: 1200, NumbersAllowed: 1, DurationDays: 30},
	TierStandard: {MessagesAllowed: 3000, NumbersAllowed: 3, DurationDays: 30},
	TierPremium: {Unlimited: true},
}

// Subscription is a user's single active tier with usage counters.
type Subscription struct {
	ID uuid.UUID `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Tier SubscriptionTier `json:"tier" db:"tier"`
	MessagesUsed int `json:"messages_used" db:"messages_used"`
	NumbersUsed int `json:"numbers_used" db:"numbers_used"`
	IsActive bool `json:"is_active" db:"is_active"`
	StartedAt time.Time `json:"started_at" db:"started_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Limits resolves the TierLimits row for this subscription's tier.
func (s *Subscription) Limits() TierLimits {
	return TierCatalog[s.Tier]
}

// AdmissionResult is returned by the subscription admission check
type AdmissionResult struct {
	Allowed bool `json:"allowed"`
	Reason string `json:"reason,omitempty"`
}

// SubscriptionTierInfo is the read-only catalog entry served by
// `GET /api/subscriptions/tiers`.
type SubscriptionTierInfo struct {
	Tier SubscriptionTier `json:"tier"`
	MessagesAllowed int `json:"messages_allowed"`
	NumbersAllowed int `json:"numbers_allowed"`
	DurationDays int `json:"duration_days"`
	Unlimited bool `json:"unlimited"`
}
