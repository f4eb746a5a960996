package routes

import (
	"github.com/felipe/wagateway/internal/api/handlers"
	"github.com/felipe/wagateway/internal/api/middleware"
	"github.com/gofiber/fiber/v2"
)

// Router wires every handler into the Fiber app under the admin/API-key
// middleware split: `/sessions` and `/admin/*` require the shared admin
// bearer token; `/api/v1/send/*`, `/webhooks`, `/wallet` and
// `/subscriptions` require a per-session API key.
type Router struct {
	app  *fiber.App
	auth *middleware.AuthMiddleware
	log  *middleware.LoggingMiddleware

	session      *handlers.SessionHandler
	message      *handlers.MessageHandler
	webhook      *handlers.WebhookHandler
	wallet       *handlers.WalletHandler
	subscription *handlers.SubscriptionHandler
	apiKey       *handlers.APIKeyHandler
}

// RouterConfig bundles every handler and middleware the Router wires.
type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleware
	LoggingMiddleware   *middleware.LoggingMiddleware
	SessionHandler      *handlers.SessionHandler
	MessageHandler      *handlers.MessageHandler
	WebhookHandler      *handlers.WebhookHandler
	WalletHandler       *handlers.WalletHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	APIKeyHandler       *handlers.APIKeyHandler
}

func NewRouter(app *fiber.App, cfg *RouterConfig) *Router {
	return &Router{
		app:          app,
		auth:         cfg.AuthMiddleware,
		log:          cfg.LoggingMiddleware,
		session:      cfg.SessionHandler,
		message:      cfg.MessageHandler,
		webhook:      cfg.WebhookHandler,
		wallet:       cfg.WalletHandler,
		subscription: cfg.SubscriptionHandler,
		apiKey:       cfg.APIKeyHandler,
	}
}

// SetupRoutes registers every route family.
func (r *Router) SetupRoutes() {
	r.setupGlobalMiddleware()
	r.app.Get("/health", r.healthCheck)

	r.setupSessionRoutes()
	r.setupMessageRoutes()
	r.setupWebhookRoutes()
	r.setupAccountRoutes()
}

func (r *Router) setupGlobalMiddleware() {
	r.app.Use(r.auth.CORS())
	r.app.Use(r.log.RequestID())
	r.app.Use(r.log.Logger())
}

func (r *Router) healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "service": "wagateway-api"})
}
