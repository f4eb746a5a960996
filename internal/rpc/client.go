// Package rpc is the alternative Procedures transport: instead of running
// check_subscription_limits, deduct_wallet_balance, increment_subscription_
// usage and calculate_topup_bonus in-process, it calls them over HTTP
// against an external procedure host, selected by AdmissionConfig.RPCBaseURL.
package rpc

import (
	"fmt"
	"time"

	"github.com/felipe/wagateway/internal/apierr"
	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/go-resty/resty/v2"
)

// Client implements admission.Procedures by posting to named endpoints on
// an external procedure host. It satisfies the same interface as
// admission.LocalProcedures, so the pipeline is indifferent to which one
// is wired in.
type Client struct {
	http *resty.Client
	logger *logger.ComponentLogger
}

func NewClient(cfg config.AdmissionConfig) *Client {
	timeout := cfg.RPCTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	http := resty.New().
		SetBaseURL(cfg.RPCBaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2)
	return &Client{http: http, logger: logger.ForComponent("rpc_client")}
}

type checkLimitsRequest struct {
	UserID string `json:"user_id"`
	MessagesNeeded int `json:"messages_needed"`
	NumbersNeeded int `json:"numbers_needed"`
}

// CheckSubscriptionLimits calls the check_subscription_limits procedure.
func (c *Client) CheckSubscriptionLimits(userID string, messagesNeeded, numbersNeeded int) (models.AdmissionResult, error) {
	var result models.AdmissionResult
	resp, err := c.http.R().
		SetBody(checkLimitsRequest{UserID: userID, MessagesNeeded: messagesNeeded, NumbersNeeded: numbersNeeded}).
		SetResult(&result).
		Post("/procedures/check_subscription_limits")
	if err != nil {
		return models.AdmissionResult{}, apierr.Unexpected("rpc_check_limits_failed", "check_subscription_limits call failed", err)
	}
	if resp.IsError() {
		return models.AdmissionResult{}, apierr.Unexpected("rpc_check_limits_failed", fmt.Sprintf("check_subscription_limits returned %d", resp.StatusCode), nil)
	}
	return result, nil
}

type incrementUsageRequest struct {
	UserID string `json:"user_id"`
	MessagesSent int `json:"messages_sent"`
	NumbersSent int `json:"numbers_sent"`
}

// IncrementSubscriptionUsage calls the increment_subscription_usage procedure.
func (c *Client) IncrementSubscriptionUsage(userID string, messagesSent, numbersSent int) error {
	resp, err := c.http.R().
		SetBody(incrementUsageRequest{UserID: userID, MessagesSent: messagesSent, NumbersSent: numbersSent}).
		Post("/procedures/increment_subscription_usage")
	if err != nil {
		return apierr.Unexpected("rpc_increment_usage_failed", "increment_subscription_usage call failed", err)
	}
	if resp.IsError() {
		return apierr.Unexpected("rpc_increment_usage_failed", fmt.Sprintf("increment_subscription_usage returned %d", resp.StatusCode), nil)
	}
	return nil
}

type walletMutationRequest struct {
	UserID string `json:"user_id"`
	Amount int64 `json:"amount"`
	SessionID *string `json:"session_id,omitempty"`
	Description string `json:"description"`
	ReferenceID string `json:"reference_id"`
}

// DeductWalletBalance calls the deduct_wallet_balance procedure.
func (c *Client) DeductWalletBalance(userID string, amount int64, sessionID *string, description, referenceID string) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	resp, err := c.http.R().
		SetBody(walletMutationRequest{UserID: userID, Amount: amount, SessionID: sessionID, Description: description, ReferenceID: referenceID}).
		SetResult(&txn).
		Post("/procedures/deduct_wallet_balance")
	if err != nil {
		return nil, apierr.Unexpected("rpc_debit_failed", "deduct_wallet_balance call failed", err)
	}
	if resp.StatusCode == 402 {
		return nil, apierr.InsufficientFunds("wallet_insufficient_funds", "insufficient balance")
	}
	if resp.IsError() {
		return nil, apierr.Unexpected("rpc_debit_failed", fmt.Sprintf("deduct_wallet_balance returned %d", resp.StatusCode), nil)
	}
	return &txn, nil
}

// RefundWalletBalance posts a compensating credit through the same host,
// using the "refund_…" reference id convention requires.
func (c *Client) RefundWalletBalance(userID string, amount int64, sessionID *string, description, referenceID string) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	resp, err := c.http.R().
		SetBody(walletMutationRequest{UserID: userID, Amount: amount, SessionID: sessionID, Description: description, ReferenceID: models.RefundReferenceID(referenceID)}).
		SetResult(&txn).
		Post("/procedures/credit_wallet_balance")
	if err != nil {
		return nil, apierr.Unexpected("rpc_refund_failed", "wallet refund call failed", err)
	}
	if resp.IsError() {
		return nil, apierr.Unexpected("rpc_refund_failed", fmt.Sprintf("credit_wallet_balance returned %d", resp.StatusCode), nil)
	}
	return &txn, nil
}

type topupBonusRequest struct {
	AmountIQD int64 `json:"amount_iqd"`
}

type topupBonusResponse struct {
	BonusIQD int64 `json:"bonus_iqd"`
}

// CalculateTopupBonus calls the calculate_topup_bonus procedure. Unlike the
// other procedure calls, a failure here is non-fatal to the caller: a top-up should
// still apply at face value if the bonus host is unreachable.
func (c *Client) CalculateTopupBonus(amountIQD int64) int64 {
	var result topupBonusResponse
	resp, err := c.http.R().
		SetBody(topupBonusRequest{AmountIQD: amountIQD}).
		SetResult(&result).
		Post("/procedures/calculate_topup_bonus")
	if err != nil || resp.IsError() {
		c.logger.Warn().Err(err).Msg("calculate_topup_bonus call failed, applying no bonus")
		return 0
	}
	return result.BonusIQD
}
