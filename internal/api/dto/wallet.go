package dto

import "time"

// TopupRequest credits a user's wallet, applying the tiered bonus
// `calculate_topup_bonus` returns on top of the paid amount.
type TopupRequest struct {
	AmountIQD int64 `json:"amount_iqd" validate:"required,min=1"`
}

// WalletResponse is the current-balance read.
type WalletResponse struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// TopupResponse reports the paid amount, the bonus applied, and the
// resulting balance.
type TopupResponse struct {
	UserID      string `json:"user_id"`
	PaidIQD     int64  `json:"paid_iqd"`
	BonusIQD    int64  `json:"bonus_iqd"`
	NewBalance  int64  `json:"new_balance"`
}

// WalletTransactionResponse is one ledger row.
type WalletTransactionResponse struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}

// WalletTransactionListResponse is the paginated ledger read.
type WalletTransactionListResponse struct {
	Transactions []WalletTransactionResponse `json:"transactions"`
	Total        int                         `json:"total"`
	Page         int                         `json:"page"`
	PerPage      int                         `json:"per_page"`
}

// SubscribeRequest assigns or changes a user's subscription tier.
type SubscribeRequest struct {
	Tier string `json:"tier" validate:"required,oneof=basic standard premium"`
}

// SubscriptionResponse is the dashboard's read shape for a subscription.
type SubscriptionResponse struct {
	UserID       string     `json:"user_id"`
	Tier         string     `json:"tier"`
	MessagesUsed int        `json:"messages_used"`
	NumbersUsed  int        `json:"numbers_used"`
	IsActive     bool       `json:"is_active"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// TierInfoResponse is one catalog entry served by `GET /api/subscriptions/tiers`.
type TierInfoResponse struct {
	Tier            string `json:"tier"`
	MessagesAllowed int    `json:"messages_allowed"`
	NumbersAllowed  int    `json:"numbers_allowed"`
	DurationDays    int    `json:"duration_days"`
	Unlimited       bool   `json:"unlimited"`
}
