package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is a per-user prepaid balance in IQD. Mutated exclusively
// through the Row Store Adapter's debit/credit remote procedure.
type Wallet struct {
	ID uuid.UUID `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Balance int64 `json:"balance" db:"balance"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// WalletTransactionType classifies a WalletTransaction row.
type WalletTransactionType string

const (
	WalletTxnInitial WalletTransactionType = "initial"
	WalletTxnDebit WalletTransactionType = "debit"
	WalletTxnCredit WalletTransactionType = "credit"
)

// WalletTransaction is an append-only ledger row written alongside every
// balance mutation. balance_after must equal balance_before ± amount.
type WalletTransaction struct {
	ID uuid.UUID `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	SessionID *string `json:"session_id,omitempty" db:"session_id"`
	Type WalletTransactionType `json:"type" db:"type"`
	Amount int64 `json:"amount" db:"amount"`
	BalanceBefore int64 `json:"balance_before" db:"balance_before"`
	BalanceAfter int64 `json:"balance_after" db:"balance_after"`
	Description string `json:"description" db:"description"`
	ReferenceID string `json:"reference_id" db:"reference_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RefundReferenceID derives the compensating credit's reference id from the
// debit it reverses, per the ledger's "refund_…" convention.
func RefundReferenceID(debitReferenceID string) string {
	return "refund_" + debitReferenceID
}

// WalletBalanceResponse is the dashboard/API-key wallet read payload.
type WalletBalanceResponse struct {
	UserID string `json:"user_id"`
	Balance int64 `json:"balance"`
}

// WalletTransactionPage is a paginated transaction history read.
type WalletTransactionPage struct {
	Transactions []WalletTransaction `json:"transactions"`
	Total int `json:"total"`
	Page int `json:"page"`
	PerPage int `json:"per_page"`
}
