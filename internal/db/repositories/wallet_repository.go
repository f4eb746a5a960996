package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/felipe/wagateway/internal/apierr"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// WalletRepository implements the `deduct_wallet_balance` remote procedure
// as a single transaction against the row store, serialized per wallet by
// a SELECT ... FOR UPDATE row lock.
type WalletRepository interface {
	GetOrCreate(userID string, initialBalance int64) (*models.Wallet, error)
	Debit(userID string, amount int64, sessionID *string, description, referenceID string) (*models.WalletTransaction, error)
	Credit(userID string, amount int64, sessionID *string, description, referenceID string) (*models.WalletTransaction, error)
	ListTransactions(userID string, page, perPage int) (*models.WalletTransactionPage, error)
}

type walletRepository struct {
	db *sqlx.DB
	logger logger.Logger
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &walletRepository{db: db, logger: logger.Get()}
}

func (r *walletRepository) GetOrCreate(userID string, initialBalance int64) (*models.Wallet, error) {
	wallet := &models.Wallet{}
	err := r.db.Get(wallet, "SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1", userID)
	if err == nil {
		return wallet, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	wallet = &models.Wallet{
		ID: uuid.New(),
		UserID: userID,
		Balance: initialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = tx.Exec(`
 INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
 VALUES ($1, $2, $3, $4, $5)
 ON CONFLICT (user_id) DO NOTHING
	`, wallet.ID, wallet.UserID, wallet.Balance, wallet.CreatedAt, wallet.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	_, err = tx.Exec(`
 INSERT INTO wallet_transactions (id, user_id, type, amount, balance_before, balance_after, description, reference_id, created_at)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.New(), userID, models.WalletTxnInitial, initialBalance, 0, initialBalance, "initial balance", "initial_"+userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to log initial balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit wallet creation: %w", err)
	}
	return r.GetOrCreate(userID, initialBalance)
}

// Debit atomically checks and deducts balance, failing before mutation if
// the balance would go negative. The row lock taken by SELECT... FOR UPDATE
// is the serialization point against concurrent debits on the same wallet.
func (r *walletRepository) Debit(userID string, amount int64, sessionID *string, description, referenceID string) (*models.WalletTransaction, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.Get(&balance, "SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE", userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierr.InsufficientFunds("wallet_not_found", "wallet not found")
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	if balance < amount {
		return nil, apierr.InsufficientFunds("wallet_insufficient_funds", "insufficient balance")
	}

	newBalance := balance - amount
	now := time.Now()
	if _, err := tx.Exec("UPDATE wallets SET balance = $1, updated_at = $2 WHERE user_id = $3", newBalance, now, userID); err != nil {
		return nil, fmt.Errorf("failed to debit wallet: %w", err)
	}

	txn := &models.WalletTransaction{
		ID: uuid.New(),
		UserID: userID,
		SessionID: sessionID,
		Type: models.WalletTxnDebit,
		Amount: amount,
		BalanceBefore: balance,
		BalanceAfter: newBalance,
		Description: description,
		ReferenceID: referenceID,
		CreatedAt: now,
	}
	_, err = tx.Exec(`
 INSERT INTO wallet_transactions (id, user_id, session_id, type, amount, balance_before, balance_after, description, reference_id, created_at)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, txn.ID, txn.UserID, txn.SessionID, txn.Type, txn.Amount, txn.BalanceBefore, txn.BalanceAfter, txn.Description, txn.ReferenceID, txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to log debit transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit debit: %w", err)
	}
	return txn, nil
}

// Credit posts a compensating or top-up credit. Used both for refunds
// and external top-ups.
func (r *walletRepository) Credit(userID string, amount int64, sessionID *string, description, referenceID string) (*models.WalletTransaction, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.Get(&balance, "SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	newBalance := balance + amount
	now := time.Now()
	if _, err := tx.Exec("UPDATE wallets SET balance = $1, updated_at = $2 WHERE user_id = $3", newBalance, now, userID); err != nil {
		return nil, fmt.Errorf("failed to credit wallet: %w", err)
	}

	txn := &models.WalletTransaction{
		ID: uuid.New(),
		UserID: userID,
		SessionID: sessionID,
		Type: models.WalletTxnCredit,
		Amount: amount,
		BalanceBefore: balance,
		BalanceAfter: newBalance,
		Description: description,
		ReferenceID: referenceID,
		CreatedAt: now,
	}
	_, err = tx.Exec(`
 INSERT INTO wallet_transactions (id, user_id, session_id, type, amount, balance_before, balance_after, description, reference_id, created_at)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, txn.ID, txn.UserID, txn.SessionID, txn.Type, txn.Amount, txn.BalanceBefore, txn.BalanceAfter, txn.Description, txn.ReferenceID, txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to log credit transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit credit: %w", err)
	}
	return txn, nil
}

func (r *walletRepository) ListTransactions(userID string, page, perPage int) (*models.WalletTransactionPage, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	var total int
	if err := r.db.Get(&total, "SELECT COUNT(*) FROM wallet_transactions WHERE user_id = $1", userID); err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	var txns []models.WalletTransaction
	offset := (page - 1) * perPage
	query := `
 SELECT id, user_id, session_id, type, amount, balance_before, balance_after, description, reference_id, created_at
 FROM wallet_transactions WHERE user_id = $1
 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	if err := r.db.Select(&txns, query, userID, perPage, offset); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return &models.WalletTransactionPage{Transactions: txns, Total: total, Page: page, PerPage: perPage}, nil
}
