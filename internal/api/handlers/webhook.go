package handlers

import (
	"github.com/felipe/wagateway/internal/api/dto"
	"github.com/felipe/wagateway/internal/api/middleware"
	"github.com/felipe/wagateway/internal/apierr"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/felipe/wagateway/internal/webhook"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WebhookHandler serves the dashboard's webhook subscription CRUD plus the
// test-trigger action, which pushes one synthetic event through the real
// fan-out engine instead of waiting on live traffic.
type WebhookHandler struct {
	webhooks repositories.WebhookRepository
	engine   *webhook.Engine
}

func NewWebhookHandler(webhooks repositories.WebhookRepository, engine *webhook.Engine) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, engine: engine}
}

func (h *WebhookHandler) Create(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	var req dto.CreateWebhookRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	wh := &models.Webhook{
		UserID:         auth.UserID,
		SessionID:      req.SessionID,
		Type:           models.WebhookEventType(req.EventType),
		URL:            req.URL,
		CustomPayload:  models.JSONMap(req.CustomPayload),
		Headers:        models.JSONMap(req.Headers),
		MaxRetries:     req.MaxRetries,
		RetryDelaySecs: req.RetryDelaySecs,
		IsActive:       true,
	}
	if req.SuccessURL != "" {
		wh.SuccessURL = &req.SuccessURL
	}
	if req.FailureURL != "" {
		wh.FailureURL = &req.FailureURL
	}
	if req.RetryOnFailure != nil {
		wh.RetryOnFailure = *req.RetryOnFailure
	}

	if err := h.webhooks.Create(wh); err != nil {
		return writeError(c, apierr.Unexpected("webhook_create_failed", "failed to create webhook", err))
	}
	return writeSuccess(c, fiber.StatusCreated, "webhook created", toWebhookResponse(wh))
}

func (h *WebhookHandler) List(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	list, err := h.webhooks.ListByUser(auth.UserID)
	if err != nil {
		return writeError(c, apierr.Unexpected("webhook_list_failed", "failed to list webhooks", err))
	}
	resp := make([]dto.WebhookResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toWebhookResponse(&list[i]))
	}
	return writeSuccess(c, fiber.StatusOK, "", resp)
}

func (h *WebhookHandler) Get(c *fiber.Ctx) error {
	wh, err := h.lookupOwned(c)
	if err != nil {
		return writeError(c, err)
	}
	return writeSuccess(c, fiber.StatusOK, "", toWebhookResponse(wh))
}

func (h *WebhookHandler) Update(c *fiber.Ctx) error {
	wh, err := h.lookupOwned(c)
	if err != nil {
		return writeError(c, err)
	}
	var req dto.CreateWebhookRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	wh.SessionID = req.SessionID
	wh.Type = models.WebhookEventType(req.EventType)
	wh.URL = req.URL
	wh.CustomPayload = models.JSONMap(req.CustomPayload)
	wh.Headers = models.JSONMap(req.Headers)
	wh.MaxRetries = req.MaxRetries
	wh.RetryDelaySecs = req.RetryDelaySecs
	if req.SuccessURL != "" {
		wh.SuccessURL = &req.SuccessURL
	}
	if req.FailureURL != "" {
		wh.FailureURL = &req.FailureURL
	}
	if req.RetryOnFailure != nil {
		wh.RetryOnFailure = *req.RetryOnFailure
	}

	if err := h.webhooks.Update(wh); err != nil {
		return writeError(c, apierr.Unexpected("webhook_update_failed", "failed to update webhook", err))
	}
	return writeSuccess(c, fiber.StatusOK, "webhook updated", toWebhookResponse(wh))
}

func (h *WebhookHandler) Delete(c *fiber.Ctx) error {
	wh, err := h.lookupOwned(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.webhooks.Delete(wh.ID); err != nil {
		return writeError(c, apierr.Unexpected("webhook_delete_failed", "failed to delete webhook", err))
	}
	return writeSuccess(c, fiber.StatusOK, "webhook deleted", nil)
}

// Test synthesizes one event of the caller-specified type through the real
// fan-out path: subscription lookup is skipped and delivery is forced to
// this webhook row, so an operator can verify a destination is reachable
// without waiting on live traffic.
func (h *WebhookHandler) Test(c *fiber.Ctx) error {
	wh, err := h.lookupOwned(c)
	if err != nil {
		return writeError(c, err)
	}
	var req dto.TestWebhookRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	h.engine.TestDispatch(*wh, models.WebhookEventType(req.EventType))
	return writeSuccess(c, fiber.StatusAccepted, "test event queued", nil)
}

func (h *WebhookHandler) lookupOwned(c *fiber.Ctx) (*models.Webhook, error) {
	auth := middleware.GetAuthContext(c)
	id, err := uuid.Parse(c.Params("webhookId"))
	if err != nil {
		return nil, apierr.BadInput("invalid_webhook_id", "webhook id must be a uuid")
	}
	wh, err := h.webhooks.GetByID(id)
	if err != nil || wh == nil {
		return nil, apierr.NotFound("webhook_not_found", "webhook not found")
	}
	if !auth.IsAdmin && wh.UserID != auth.UserID {
		return nil, apierr.NotFound("webhook_not_found", "webhook not found")
	}
	return wh, nil
}

func toWebhookResponse(wh *models.Webhook) dto.WebhookResponse {
	return dto.WebhookResponse{
		ID:           wh.ID.String(),
		SessionID:    wh.SessionID,
		EventType:    string(wh.Type),
		URL:          wh.URL,
		IsActive:     wh.IsActive,
		TotalCalls:   wh.TotalCalls,
		SuccessCalls: wh.SuccessCalls,
		FailedCalls:  wh.FailedCalls,
		LastCalledAt: wh.LastCalledAt,
		CreatedAt:    wh.CreatedAt,
	}
}
