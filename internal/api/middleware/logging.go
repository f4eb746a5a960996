package middleware

import (
	"time"

	"github.com/felipe/wagateway/internal/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type LoggingMiddleware struct {
	logger *logger.ComponentLogger
}

func NewLoggingMiddleware() *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger.ForComponent("http")}
}

func (m *LoggingMiddleware) Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		status := c.Response().StatusCode()

		logEvent := m.logger.Info()
		if status >= 400 && status < 500 {
			logEvent = m.logger.Warn()
		} else if status >= 500 {
			logEvent = m.logger.Error()
		}

		logEvent.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration", duration).
			Str("ip", c.IP()).
			Str("request_id", requestID(c)).
			Msg("http request")

		return err
	}
}

func (m *LoggingMiddleware) RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := uuid.New().String()
		c.Locals("request_id", id)
		c.Set("X-Request-ID", id)
		return c.Next()
	}
}

func requestID(c *fiber.Ctx) string {
	if id := c.Locals("request_id"); id != nil {
		return id.(string)
	}
	return ""
}
