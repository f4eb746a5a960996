package handlers

import (
	"github.com/felipe/wagateway/internal/api/dto"
	"github.com/felipe/wagateway/internal/api/middleware"
	"github.com/felipe/wagateway/internal/apierr"
	"github.com/felipe/wagateway/internal/apikeycache"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/gofiber/fiber/v2"
)

// APIKeyHandler issues and revokes the per-session API keys that
// middleware.AuthMiddleware.RequireAPIKey authenticates /api/v1 requests
// against.
type APIKeyHandler struct {
	keys repositories.APIKeyRepository
	cache *apikeycache.Cache
}

func NewAPIKeyHandler(keys repositories.APIKeyRepository, cache *apikeycache.Cache) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, cache: cache}
}

func (h *APIKeyHandler) Get(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	row, err := h.keys.GetBySessionID(sessionID)
	if err != nil || row == nil {
		return writeError(c, apierr.NotFound("api_key_not_found", "no api key for this session"))
	}
	return writeSuccess(c, fiber.StatusOK, "", toAPIKeyResponse(row, ""))
}

// Generate issues a fresh key/secret pair for a session. The secret is
// returned once here and never again.
func (h *APIKeyHandler) Generate(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	auth := middleware.GetAuthContext(c)

	key, err := h.keys.GenerateKey()
	if err != nil {
		return writeError(c, apierr.Unexpected("key_generation_failed", "failed to generate api key", err))
	}
	secret, err := h.keys.GenerateSecret()
	if err != nil {
		return writeError(c, apierr.Unexpected("key_generation_failed", "failed to generate api secret", err))
	}

	row := &models.APIKey{
		Key: key,
		Secret: secret,
		UserID: auth.UserID,
		SessionID: sessionID,
		IsActive: true,
	}
	if auth.IsAdmin {
		if q := c.Query("user_id"); q != "" {
			row.UserID = q
		}
	}
	if err := h.keys.Create(row); err != nil {
		return writeError(c, apierr.Unexpected("key_create_failed", "failed to store api key", err))
	}
	return writeSuccess(c, fiber.StatusCreated, "api key generated", toAPIKeyResponse(row, secret))
}

func (h *APIKeyHandler) Revoke(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	row, err := h.keys.GetBySessionID(sessionID)
	if err == nil && row != nil {
		h.cache.Invalidate(row.Key)
	}
	if err := h.keys.Revoke(sessionID); err != nil {
		return writeError(c, apierr.Unexpected("key_revoke_failed", "failed to revoke api key", err))
	}
	return writeSuccess(c, fiber.StatusOK, "api key revoked", nil)
}

func toAPIKeyResponse(k *models.APIKey, secret string) dto.APIKeyResponse {
	return dto.APIKeyResponse{
		SessionID: k.SessionID,
		Key: k.Key,
		Secret: secret,
		IsActive: k.IsActive,
		LastUsedAt: k.LastUsedAt,
		UsageCount: k.UsageCount,
		CreatedAt: k.CreatedAt,
	}
}
