package middleware

import (
	"strings"

	"github.com/felipe/wagateway/internal/apikeycache"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// AuthContext is what a handler reads back off the Fiber context after
// either auth middleware below runs.
type AuthContext struct {
	IsAdmin   bool
	UserID    string
	SessionID string
	APIKey    *models.APIKey
}

// AuthMiddleware guards the dashboard (admin bearer token) and /api/v1
// (per-session API key) route families.
type AuthMiddleware struct {
	adminKey string
	apiKeys  *apikeycache.Cache
	logger   *logger.ComponentLogger
}

func NewAuthMiddleware(adminKey string, apiKeys *apikeycache.Cache) *AuthMiddleware {
	return &AuthMiddleware{
		adminKey: adminKey,
		apiKeys:  apiKeys,
		logger:   logger.ForComponent("auth_middleware"),
	}
}

func GetAuthContext(c *fiber.Ctx) *AuthContext {
	if v := c.Locals("auth"); v != nil {
		return v.(*AuthContext)
	}
	return nil
}

func bearerToken(c *fiber.Ctx) string {
	token := c.Get("Authorization")
	return strings.TrimPrefix(token, "Bearer ")
}

// RequireAdmin authenticates dashboard/admin requests against the single
// configured admin key.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" || token != m.adminKey {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false, "error": "unauthenticated", "message": "admin token required",
			})
		}
		c.Locals("auth", &AuthContext{IsAdmin: true})
		return c.Next()
	}
}

// RequireAPIKey authenticates `/api/v1` requests against the api_keys table
// (cached), resolving the calling user and the session the key is bound to.
func (m *AuthMiddleware) RequireAPIKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" {
			key = bearerToken(c)
		}
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false, "error": "unauthenticated", "message": "api key required",
			})
		}
		row, err := m.apiKeys.Lookup(key)
		if err != nil || row == nil || !row.IsActive {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false, "error": "unauthenticated", "message": "invalid or inactive api key",
			})
		}
		c.Locals("auth", &AuthContext{UserID: row.UserID, SessionID: row.SessionID, APIKey: row})
		return c.Next()
	}
}

func (m *AuthMiddleware) CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization,X-API-Key",
		ExposeHeaders: "Content-Length,X-Request-ID",
	})
}
