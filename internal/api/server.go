package api

import (
	"fmt"
	"time"

	"github.com/felipe/wagateway/internal/api/routes"
	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Server is the gateway's Public API Surface: a Fiber app wired to every
// handler via routes.Router.
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *logger.ComponentLogger
	router *routes.Router
}

func NewServer(cfg *config.Config, routerConfig *routes.RouterConfig) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "wagateway",
		ServerHeader: "wagateway",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   "internal_error",
				"message": err.Error(),
				"status":  code,
			})
		},
	})

	return &Server{
		app:    app,
		config: cfg,
		logger: logger.ForComponent("api_server"),
		router: routes.NewRouter(app, routerConfig),
	}
}

func (s *Server) SetupRoutes() {
	s.app.Use(recover.New())
	s.router.SetupRoutes()
	s.logger.Info().Msg("api routes configured")
}

func (s *Server) Start() error {
	s.SetupRoutes()

	port := s.config.Server.Port
	if port == 0 {
		port = 8080
	}
	address := fmt.Sprintf(":%d", port)
	s.logger.Info().Int("port", port).Msg("starting http server")
	return s.app.Listen(address)
}

func (s *Server) Stop() error {
	s.logger.Info().Msg("stopping http server")
	return s.app.Shutdown()
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}
