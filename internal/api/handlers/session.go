package handlers

import (
	"context"
	"time"

	"github.com/felipe/wagateway/internal/api/dto"
	"github.com/felipe/wagateway/internal/apierr"
	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/felipe/wagateway/internal/send"
	"github.com/felipe/wagateway/internal/session"
	"github.com/felipe/wagateway/internal/worker"
	"github.com/gofiber/fiber/v2"
)

// SessionHandler serves the dashboard's session lifecycle endpoints: create
// (spins up a Session Supervisor), list/get, QR read, and delete (logout).
type SessionHandler struct {
	sessions   repositories.SessionRepository
	registry   *session.Registry
	factory    *worker.Factory
	supDeps    session.Deps
	workerCfg  config.WorkerConfig
}

func NewSessionHandler(sessions repositories.SessionRepository, registry *session.Registry, factory *worker.Factory, supDeps session.Deps, workerCfg config.WorkerConfig) *SessionHandler {
	return &SessionHandler{sessions: sessions, registry: registry, factory: factory, supDeps: supDeps, workerCfg: workerCfg}
}

func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	if exists, _ := h.sessions.Exists(req.SessionID); exists {
		return writeError(c, apierr.Conflict("session_exists", "a session with this id already exists"))
	}
	if connected, err := h.sessions.GetConnectedByUser(req.UserID); err == nil {
		for _, other := range connected {
			if other.SessionID != req.SessionID {
				return writeError(c, apierr.Conflict("session_already_connected", "this user already has a connected session: "+other.SessionID))
			}
		}
	}

	row := &models.Session{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Status:    models.SessionStatusInitializing,
	}
	if err := h.sessions.Create(row); err != nil {
		return writeError(c, apierr.Unexpected("session_create_failed", "failed to create session", err))
	}

	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()
	if _, err := session.Start(ctx, req.SessionID, req.UserID, h.factory, h.registry, h.supDeps, ""); err != nil {
		return writeError(c, apierr.Unexpected("session_start_failed", "failed to start session supervisor", err))
	}

	return writeSuccess(c, fiber.StatusCreated, "session created", toSessionResponse(row))
}

func (h *SessionHandler) List(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	filter := &models.SessionFilter{}
	if userID != "" {
		filter.UserID = &userID
	}
	result, err := h.sessions.GetAll(filter)
	if err != nil {
		return writeError(c, apierr.Unexpected("session_list_failed", "failed to list sessions", err))
	}
	resp := dto.SessionListResponse{Total: result.Total}
	for i := range result.Sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(&result.Sessions[i]))
	}
	return writeSuccess(c, fiber.StatusOK, "", resp)
}

func (h *SessionHandler) Get(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	row, err := h.sessions.GetBySessionID(sessionID)
	if err != nil {
		return writeError(c, apierr.NotFound("session_not_found", "session not found"))
	}
	return writeSuccess(c, fiber.StatusOK, "", toSessionResponse(row))
}

func (h *SessionHandler) QRCode(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	row, err := h.sessions.GetBySessionID(sessionID)
	if err != nil {
		return writeError(c, apierr.NotFound("session_not_found", "session not found"))
	}
	resp := dto.QRCodeResponse{SessionID: sessionID, Status: string(row.Status)}
	if row.QRCode != nil && *row.QRCode != "" {
		dataURL, err := send.RenderQRDataURL(*row.QRCode)
		if err != nil {
			return writeError(c, apierr.Unexpected("qr_render_failed", "failed to render qr code", err))
		}
		resp.QRDataURL = dataURL
	}
	return writeSuccess(c, fiber.StatusOK, "", resp)
}

func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	if sup, ok := h.registry.Get(sessionID); ok {
		sup.ForceDisconnect("deleted via api")
	}
	if err := h.sessions.Delete(sessionID); err != nil {
		return writeError(c, apierr.Unexpected("session_delete_failed", "failed to delete session", err))
	}
	return writeSuccess(c, fiber.StatusOK, "session deleted", nil)
}

func toSessionResponse(s *models.Session) dto.SessionResponse {
	resp := dto.SessionResponse{
		SessionID:       s.SessionID,
		UserID:          s.UserID,
		Status:          string(s.Status),
		LastConnectedAt: s.LastConnectedAt,
		CreatedAt:       s.CreatedAt,
	}
	if s.PhoneNumber != nil {
		resp.PhoneNumber = *s.PhoneNumber
	}
	if s.JID != nil {
		resp.JID = *s.JID
	}
	return resp
}
