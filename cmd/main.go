package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listing-service/internal/auth"
	"listing-service/internal/billing"
	"listing-service/internal/cache"
	"listing-service/internal/handler"
	"listing-service/internal/listing"
	mid "listing-service/internal/middleware"
	"listing-service/internal/model"
	"listing-service/internal/repository"
	"listing-service/internal/repository/memory"
	"listing-service/pkg/config"
	"listing-service/pkg/database"
	"listing-service/pkg/logger"
	"listing-service/pkg/mercadopago"
	"listing-service/pkg/storage"
	"listing-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting listing-service", appConfig.LogFields()...)

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Root context for startup work
	ctx := context.Background()

	// Storage
	var (
		db           *gorm.DB
		listingStore listing.Store
		billingStore billing.Store
	)
	switch appConfig.Storage.Driver {
	case "memory":
		listingStore = memory.New()
		log.Warn("Using in-memory listing store, data is lost on restart")
	default:
		// Connect to PostgreSQL
		db, err = database.InitDB(appConfig)
		if err != nil {
			log.Fatal("Failed to initialize database", zap.Error(err))
		}
		defer database.Close(db)
		log.Info("Database connection established")

		// Auto-migrate schema when enabled
		if appConfig.Database.AutoMigrate {
			if err := database.Migrate(db, log, model.All()...); err != nil {
				log.Fatal("Failed to migrate database", zap.Error(err))
			}
		}
		listingStore = repository.NewListingStore(db)
		billingStore = repository.NewBillingStore(db)
	}

	// Optional read cache
	var summaryCache listing.SummaryCache
	if appConfig.Redis.Addr != "" {
		rdb, err := cache.ConnectRedis(ctx, appConfig.Redis)
		if err != nil {
			log.Warn("Redis unavailable, running without cache", zap.Error(err))
		} else {
			defer cache.DisconnectRedis(rdb)
			summaryCache = cache.NewListingCache(rdb, appConfig.Redis.CacheTTL)
			log.Info("Redis cache connected", zap.String("addr", appConfig.Redis.Addr))
		}
	}

	// Identity and services
	resolver := auth.NewResolver(appConfig.Auth.JWTSecret, appConfig.Auth.Audience, log)
	if appConfig.Auth.JWTSecret == "" {
		log.Warn("JWT_SECRET is empty, every authenticated request will be rejected")
	}
	listingService := listing.NewService(listingStore, summaryCache, log)

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", handler.NewHealthHandler(db).HealthCheck)

	// Rate limit writes per authenticated user, else per client IP
	writeLimiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStore(rate.Limit(appConfig.RateLimit.WritesPerSecond)),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if id, ok := mid.GetAuthUserID(c); ok {
				return id, nil
			}
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
		},
	})

	// Public listing routes
	listingHandler := handler.NewListingHandler(listingService)
	v1 := e.Group("/v1")
	v1.GET("/listings", listingHandler.List)
	v1.GET("/listings/:id", listingHandler.FindByID)
	v1.GET("/listings/:id/media", listingHandler.ListMedia)

	// Owner routes
	me := v1.Group("/me", mid.AuthMiddleware(resolver))
	me.GET("/listings", listingHandler.Mine)
	me.POST("/listings", listingHandler.Upsert, writeLimiter)

	// Document uploads
	if appConfig.Documents.PublicBaseURL != "" {
		docStorage, err := storage.NewS3Storage(ctx, appConfig.Documents, log)
		if err != nil {
			log.Fatal("Failed to initialize document storage", zap.Error(err))
		}
		uploads := v1.Group("/uploads", mid.AuthMiddleware(resolver))
		uploads.POST("/documents", handler.NewUploadHandler(docStorage).PresignDocument, writeLimiter)
	} else {
		log.Warn("DOCUMENTS_PUBLIC_BASE_URL is empty, document uploads disabled")
	}

	// Payment webhook
	if billingStore != nil {
		// Payment provider client
		gateway := mercadopago.NewClient(appConfig.MercadoPago.BaseURL, appConfig.MercadoPago.AccessToken, log)
		billingService := billing.NewService(billingStore, gateway, log)
		webhook := handler.NewWebhookHandler(billingService, appConfig.MercadoPago.WebhookSecret, appConfig.IsProduction())
		v1.POST("/payments/webhook", webhook.PaymentWebhook)
	} else {
		log.Warn("Payment webhook disabled with the in-memory store")
	}

	// Start server
	go func() {
		port := appConfig.Server.Port
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	// Give in-flight requests time to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
}
