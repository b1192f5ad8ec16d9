package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/internal/config"
	"github.com/sacredflow/backend-go/internal/db"
	"github.com/sacredflow/backend-go/internal/db/repository"
	"github.com/sacredflow/backend-go/internal/handler"
	"github.com/sacredflow/backend-go/internal/metrics"
	"github.com/sacredflow/backend-go/internal/middleware"
	"github.com/sacredflow/backend-go/internal/service"
	"github.com/sacredflow/backend-go/internal/square"
	"github.com/sacredflow/backend-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close(pool)

	logger.Log.Info("database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name))

	m := metrics.New(prometheus.DefaultRegisterer)

	eventRepo := repository.NewWebhookEventRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	catalogRepo := repository.NewCatalogItemRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	commsRepo := repository.NewCommunicationRepository(pool)

	// Square is optional; everything that needs it degrades cleanly.
	squareClient, err := square.NewClient(&cfg.Square)
	if errors.Is(err, square.ErrNotConfigured) {
		logger.Log.Warn("square access token not configured, catalog sync and payments listing disabled")
		squareClient = nil
	} else if err != nil {
		logger.Log.Fatal("failed to initialize square client", zap.Error(err))
	} else {
		logger.Log.Info("square client initialized",
			zap.String("environment", squareClient.Environment()))
	}

	var publisher service.Publisher
	if cfg.RabbitMQ.Host != "" {
		mp, pubErr := service.NewMessagePublisher(&cfg.RabbitMQ)
		if pubErr != nil {
			logger.Log.Warn("failed to initialize RabbitMQ publisher, event publishing disabled",
				zap.Error(pubErr))
		} else {
			publisher = mp
			defer mp.Close()
		}
	}

	verifier := square.NewSignatureVerifier(cfg.Square.WebhookSignatureKey)
	paymentEvents := service.NewPaymentEventHandler(paymentRepo)
	pipeline := service.NewWebhookPipeline(
		eventRepo,
		db.NewTxRunner(pool),
		verifier,
		paymentEvents,
		publisher,
		cfg.RabbitMQ.RoutingKey,
		m,
	)

	var lister service.CatalogLister
	var paymentsLister handler.PaymentsLister
	if squareClient != nil {
		lister = squareClient
		paymentsLister = squareClient
	}
	syncService := service.NewCatalogSyncService(lister, catalogRepo, productRepo, db.NewTxRunner(pool), m)

	forwarder := service.NewForwarder(&cfg.Forwarding)
	commsService := service.NewCommunicationService(commsRepo, forwarder)

	webhookHandler := handler.NewWebhookHandler(pipeline)
	catalogHandler := handler.NewCatalogHandler(syncService, catalogRepo)
	paymentsHandler := handler.NewPaymentsHandler(paymentsLister)
	commsHandler := handler.NewCommunicationsHandler(commsRepo, commsService)
	slackHandler := handler.NewSlackHandler(forwarder)
	healthHandler := handler.NewHealthHandler(pool, squareClient)

	auth := middleware.NewAPIKeyAuth(cfg.Auth.APIKeys)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	// Provider-facing endpoints authenticate by signature, not API key.
	router.POST("/square/webhook", webhookHandler.HandleSquareWebhook)
	router.POST("/communications/chat/intake", commsHandler.ChatIntake)
	router.POST("/slack/webhook", slackHandler.Forward)

	router.GET("/health", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := router.Group("", auth.Middleware())
	protected.POST("/square/catalog/sync", catalogHandler.TriggerSync)
	protected.GET("/square/catalog/items", catalogHandler.ListItems)
	protected.GET("/payments", paymentsHandler.ListPayments)
	protected.POST("/communications", commsHandler.Create)
	protected.GET("/communications", commsHandler.List)
	protected.GET("/communications/unread-count", commsHandler.UnreadCount)
	protected.GET("/communications/:id", commsHandler.Get)
	protected.PATCH("/communications/:id", commsHandler.Patch)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Log.Fatal("server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Log.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				logger.Log.Error("failed to close server", zap.Error(err))
			}
			os.Exit(1)
		}

		logger.Log.Info("server stopped gracefully")
	}
}
