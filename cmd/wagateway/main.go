package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felipe/wagateway/internal/admission"
	"github.com/felipe/wagateway/internal/api"
	"github.com/felipe/wagateway/internal/api/handlers"
	"github.com/felipe/wagateway/internal/api/middleware"
	"github.com/felipe/wagateway/internal/api/routes"
	"github.com/felipe/wagateway/internal/apikeycache"
	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/db"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/felipe/wagateway/internal/objectstore"
	"github.com/felipe/wagateway/internal/rpc"
	"github.com/felipe/wagateway/internal/send"
	"github.com/felipe/wagateway/internal/session"
	"github.com/felipe/wagateway/internal/sessionstore"
	"github.com/felipe/wagateway/internal/startup"
	"github.com/felipe/wagateway/internal/webhook"
	"github.com/felipe/wagateway/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)
	log := logger.ForComponent("main")

	database, err := db.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	sessions := repositories.NewSessionRepository(database.DB)
	connectionEvents := repositories.NewConnectionEventRepository(database.DB)
	apiKeys := repositories.NewAPIKeyRepository(database.DB)
	subscriptions := repositories.NewSubscriptionRepository(database.DB)
	wallets := repositories.NewWalletRepository(database.DB)
	delivery := repositories.NewDeliveryTrackingRepository(database.DB)
	rateLimits := repositories.NewRateLimitRepository(database.DB, cfg.RateLimit)
	automationLog := repositories.NewAutomationLogRepository(database.DB)
	webhooks := repositories.NewWebhookRepository(database.DB)

	objStore, err := objectstore.New(cfg.ObjectStore)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object store")
	}
	store := sessionstore.New(cfg.Worker.AuthBaseDir, objStore)

	webhookEngine := webhook.New(webhooks, cfg.Webhook)
	registry := session.NewRegistry()
	factory := worker.NewFactory(database.GetSQLStore())

	supDeps := session.Deps{
		Sessions:         sessions,
		ConnectionEvents: connectionEvents,
		APIKeys:          apiKeys,
		Subscriptions:    subscriptions,
		Delivery:         delivery,
		Store:            store,
		Webhooks:         webhookEngine,
		WorkerConfig:     cfg.Worker,
	}

	var procedures admission.Procedures
	if cfg.Admission.RPCBaseURL != "" {
		procedures = rpc.NewClient(cfg.Admission)
	} else {
		procedures = admission.NewLocalProcedures(subscriptions, wallets)
	}
	cachedRateLimits := admission.NewCachedRateLimitRepository(rateLimits, 30*time.Second)
	pipeline := admission.NewPipeline(registry, sessions, factory, supDeps, cachedRateLimits, automationLog, procedures, webhookEngine, cfg.Worker)
	executor := send.NewExecutor(pipeline, cfg.Wallet.CostPerMessageIQD)
	apiKeyCache := apikeycache.New(apiKeys, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	webhookEngine.Start(ctx, 5)

	reconciler := startup.New(sessions, objStore, factory, registry, supDeps)
	if err := reconciler.Run(ctx); err != nil {
		log.Warn().Err(err).Msg("startup reconciliation encountered an error, continuing")
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.AdminAPIKey, apiKeyCache)
	loggingMiddleware := middleware.NewLoggingMiddleware()

	sessionHandler := handlers.NewSessionHandler(sessions, registry, factory, supDeps, cfg.Worker)
	messageHandler := handlers.NewMessageHandler(executor)
	webhookHandler := handlers.NewWebhookHandler(webhooks, webhookEngine)
	walletHandler := handlers.NewWalletHandler(wallets, procedures)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptions)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeys, apiKeyCache)

	server := api.NewServer(cfg, &routes.RouterConfig{
		AuthMiddleware:      authMiddleware,
		LoggingMiddleware:   loggingMiddleware,
		SessionHandler:      sessionHandler,
		MessageHandler:      messageHandler,
		WebhookHandler:      webhookHandler,
		WalletHandler:       walletHandler,
		SubscriptionHandler: subscriptionHandler,
		APIKeyHandler:       apiKeyHandler,
	})

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()
	if err := server.Stop(); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
}
