package handlers

import (
	"time"

	"github.com/felipe/wagateway/internal/api/dto"
	"github.com/felipe/wagateway/internal/api/middleware"
	"github.com/felipe/wagateway/internal/apierr"
	"github.com/felipe/wagateway/internal/send"
	"github.com/gofiber/fiber/v2"
)

// MessageHandler serves `/api/v1/send/*`: every request runs through the
// Admission Pipeline via the Send Executor.
type MessageHandler struct {
	executor *send.Executor
}

func NewMessageHandler(executor *send.Executor) *MessageHandler {
	return &MessageHandler{executor: executor}
}

func (h *MessageHandler) SendText(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	var req dto.SendTextRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	result, err := h.executor.SendText(c.Context(), auth.UserID, auth.SessionID, req.To, req.Text)
	if err != nil {
		return writeError(c, err)
	}
	return writeSuccess(c, fiber.StatusOK, "message sent", toSendResponse(req.To, result.MessageID))
}

func (h *MessageHandler) SendOTP(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	var req dto.SendOTPRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	result, err := h.executor.SendOTP(c.Context(), auth.UserID, auth.SessionID, req.To, req.Code, req.Language)
	if err != nil {
		return writeError(c, err)
	}
	return writeSuccess(c, fiber.StatusOK, "otp sent", toSendResponse(req.To, result.MessageID))
}

func (h *MessageHandler) SendAnnouncement(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	var req dto.SendAnnouncementRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	bulk, err := h.executor.SendAnnouncement(c.Context(), auth.UserID, auth.SessionID, req.Text, req.Recipients)
	if err != nil {
		return writeError(c, err)
	}

	resp := dto.BulkSendResponse{TotalCount: len(bulk.Outcomes), SuccessCount: bulk.Sent, FailedCount: bulk.Failed}
	for _, o := range bulk.Outcomes {
		result := dto.SendResponse{To: o.Recipient, MessageID: o.MessageID, SentAt: time.Now()}
		if o.Rejected {
			result.Status = "rejected: " + o.Reason
		} else {
			result.Status = "sent"
		}
		resp.Results = append(resp.Results, result)
	}
	return writeSuccess(c, fiber.StatusOK, "announcement dispatched", resp)
}

func (h *MessageHandler) SendTestMessage(c *fiber.Ctx) error {
	auth := middleware.GetAuthContext(c)
	var req dto.SendTestMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	result, err := h.executor.SendTestMessage(c.Context(), auth.UserID, auth.SessionID, req.To)
	if err != nil {
		return writeError(c, err)
	}
	return writeSuccess(c, fiber.StatusOK, "test message sent", toSendResponse(req.To, result.MessageID))
}

func toSendResponse(to, messageID string) dto.SendResponse {
	return dto.SendResponse{To: to, MessageID: messageID, Status: "sent", SentAt: time.Now()}
}
