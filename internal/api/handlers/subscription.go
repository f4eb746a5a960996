package handlers

import (
	"github.com/felipe/wagateway/internal/api/dto"
	"github.com/felipe/wagateway/internal/api/middleware"
	"github.com/felipe/wagateway/internal/apierr"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/gofiber/fiber/v2"
)

// SubscriptionHandler serves the fixed tier catalog and a user's current
// subscription, plus the dashboard action that assigns or changes a tier.
type SubscriptionHandler struct {
	subscriptions repositories.SubscriptionRepository
}

func NewSubscriptionHandler(subscriptions repositories.SubscriptionRepository) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

func (h *SubscriptionHandler) Tiers(c *fiber.Ctx) error {
	resp := make([]dto.TierInfoResponse, 0, len(models.TierCatalog))
	for tier, limits := range models.TierCatalog {
		resp = append(resp, dto.TierInfoResponse{
			Tier:            string(tier),
			MessagesAllowed: limits.MessagesAllowed,
			NumbersAllowed:  limits.NumbersAllowed,
			DurationDays:    limits.DurationDays,
			Unlimited:       limits.Unlimited,
		})
	}
	return writeSuccess(c, fiber.StatusOK, "", resp)
}

func (h *SubscriptionHandler) Get(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	userID := targetUserID(c, auth)
	sub, err := h.subscriptions.GetActiveByUser(userID)
	if err != nil {
		return writeError(c, apierr.NotFound("no_active_subscription", "no active subscription for this user"))
	}
	return writeSuccess(c, fiber.StatusOK, "", toSubscriptionResponse(sub))
}

func (h *SubscriptionHandler) Subscribe(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	userID := targetUserID(c, auth)
	var req dto.SubscribeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	sub, err := h.subscriptions.Subscribe(userID, models.SubscriptionTier(req.Tier))
	if err != nil {
		return writeError(c, apierr.BadInput("subscribe_failed", err.Error()))
	}
	return writeSuccess(c, fiber.StatusOK, "subscription updated", toSubscriptionResponse(sub))
}

func toSubscriptionResponse(s *models.Subscription) dto.SubscriptionResponse {
	return dto.SubscriptionResponse{
		UserID:       s.UserID,
		Tier:         string(s.Tier),
		MessagesUsed: s.MessagesUsed,
		NumbersUsed:  s.NumbersUsed,
		IsActive:     s.IsActive,
		ExpiresAt:    s.ExpiresAt,
	}
}
