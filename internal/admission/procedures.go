// Package admission implements the Admission Pipeline: the ordered
// gate stack every send passes through before a message reaches the
// Browser Worker Interface, plus the four named remote procedures
// the gates call out to (check_subscription_limits, deduct_wallet_balance,
// increment_subscription_usage, calculate_topup_bonus).
package admission

import (
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/db/repositories"
)

// Procedures is the seam between the pipeline's gate order and where the
// four named remote procedures actually run. LocalProcedures runs them
// in-process against the row store; rpc.Client runs them against an external
// procedure host instead. Either satisfies this interface, so the pipeline
// itself never knows which mode is active.
type Procedures interface {
	CheckSubscriptionLimits(userID string, messagesNeeded, numbersNeeded int) (models.AdmissionResult, error)
	IncrementSubscriptionUsage(userID string, messagesSent, numbersSent int) error
	DeductWalletBalance(userID string, amount int64, sessionID *string, description, referenceID string) (*models.WalletTransaction, error)
	RefundWalletBalance(userID string, amount int64, sessionID *string, description, referenceID string) (*models.WalletTransaction, error)
	CalculateTopupBonus(amountIQD int64) int64
}

// LocalProcedures is the default Procedures implementation: the four named
// procedures as direct calls into the row store's repositories, each
// already a self-contained transaction.
type LocalProcedures struct {
	Subscriptions repositories.SubscriptionRepository
	Wallets repositories.WalletRepository
}

func NewLocalProcedures(subs repositories.SubscriptionRepository, wallets repositories.WalletRepository) *LocalProcedures {
	return &LocalProcedures{Subscriptions: subs, Wallets: wallets}
}

func (p *LocalProcedures) CheckSubscriptionLimits(userID string, messagesNeeded, numbersNeeded int) (models.AdmissionResult, error) {
	return p.Subscriptions.CheckLimits(userID, messagesNeeded, numbersNeeded)
}

func (p *LocalProcedures) IncrementSubscriptionUsage(userID string, messagesSent, numbersSent int) error {
	return p.Subscriptions.IncrementUsage(userID, messagesSent, numbersSent)
}

func (p *LocalProcedures) DeductWalletBalance(userID string, amount int64, sessionID *string, description, referenceID string) (*models.WalletTransaction, error) {
	return p.Wallets.Debit(userID, amount, sessionID, description, referenceID)
}

// RefundWalletBalance posts the compensating credit requires when a
// debited send never reaches the worker. The reference id carries the
// "refund_…" convention so a ledger reader can pair it back to the debit.
func (p *LocalProcedures) RefundWalletBalance(userID string, amount int64, sessionID *string, description, referenceID string) (*models.WalletTransaction, error) {
	return p.Wallets.Credit(userID, amount, sessionID, description, models.RefundReferenceID(referenceID))
}

// topupBonusTiers is the fixed schedule a top-up amount is checked against,
// largest threshold first: bonus percentage applied on top of the paid
// amount. Amounts below the smallest tier earn no bonus.
var topupBonusTiers = []struct {
	minAmountIQD int64
	bonusPercent int64
}{
	{minAmountIQD: 100000, bonusPercent: 20},
	{minAmountIQD: 50000, bonusPercent: 10},
	{minAmountIQD: 20000, bonusPercent: 5},
}

// CalculateTopupBonus implements `calculate_topup_bonus`: a pure
// function of the paid amount, no row store access needed, so it runs
// identically whether Procedures is local or remote.
func (p *LocalProcedures) CalculateTopupBonus(amountIQD int64) int64 {
	for _, tier := range topupBonusTiers {
		if amountIQD >= tier.minAmountIQD {
			return amountIQD * tier.bonusPercent / 100
		}
	}
	return 0
}
