package handlers

import (
	"strconv"

	"github.com/felipe/wagateway/internal/admission"
	"github.com/felipe/wagateway/internal/api/dto"
	"github.com/felipe/wagateway/internal/api/middleware"
	"github.com/felipe/wagateway/internal/apierr"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WalletHandler serves balance reads, top-ups (bonus applied via the
// `calculate_topup_bonus` procedure), and ledger history.
type WalletHandler struct {
	wallets    repositories.WalletRepository
	procedures admission.Procedures
}

func NewWalletHandler(wallets repositories.WalletRepository, procedures admission.Procedures) *WalletHandler {
	return &WalletHandler{wallets: wallets, procedures: procedures}
}

func (h *WalletHandler) Balance(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	userID := targetUserID(c, auth)
	wallet, err := h.wallets.GetOrCreate(userID, 0)
	if err != nil {
		return writeError(c, apierr.Unexpected("wallet_read_failed", "failed to read wallet", err))
	}
	return writeSuccess(c, fiber.StatusOK, "", dto.WalletResponse{UserID: wallet.UserID, Balance: wallet.Balance})
}

func (h *WalletHandler) Topup(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	userID := targetUserID(c, auth)
	var req dto.TopupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	if req.AmountIQD <= 0 {
		return writeError(c, apierr.BadInput("invalid_amount", "amount_iqd must be positive"))
	}

	bonus := h.procedures.CalculateTopupBonus(req.AmountIQD)
	total := req.AmountIQD + bonus
	txn, err := h.wallets.Credit(userID, total, nil, "wallet top-up", "topup_"+uuid.New().String())
	if err != nil {
		return writeError(c, apierr.Unexpected("topup_failed", "failed to credit wallet", err))
	}
	return writeSuccess(c, fiber.StatusOK, "top-up applied", dto.TopupResponse{
		UserID:     userID,
		PaidIQD:    req.AmountIQD,
		BonusIQD:   bonus,
		NewBalance: txn.BalanceAfter,
	})
}

func (h *WalletHandler) Transactions(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	userID := targetUserID(c, auth)
	page, _ := strconv.Atoi(c.Query("page", "1"))
	perPage, _ := strconv.Atoi(c.Query("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 20
	}

	result, err := h.wallets.ListTransactions(userID, page, perPage)
	if err != nil {
		return writeError(c, apierr.Unexpected("wallet_history_failed", "failed to list wallet transactions", err))
	}
	resp := dto.WalletTransactionListResponse{Total: result.Total, Page: result.Page, PerPage: result.PerPage}
	for _, t := range result.Transactions {
		resp.Transactions = append(resp.Transactions, dto.WalletTransactionResponse{
			ID:            t.ID.String(),
			Type:          string(t.Type),
			Amount:        t.Amount,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			Description:   t.Description,
			CreatedAt:     t.CreatedAt,
		})
	}
	return writeSuccess(c, fiber.StatusOK, "", resp)
}

// targetUserID lets an admin operate on behalf of any user via ?user_id=,
// while a non-admin caller is always pinned to its own auth context.
func targetUserID(c *fiber.Ctx, auth *middleware.AuthContext) string {
	if auth.IsAdmin {
		if q := c.Query("user_id"); q != "" {
			return q
		}
	}
	return auth.UserID
}
