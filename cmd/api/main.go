package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/sellerops/marketplace-hub/internal/api/handlers"
	"github.com/sellerops/marketplace-hub/internal/application"
	"github.com/sellerops/marketplace-hub/internal/domain"
	"github.com/sellerops/marketplace-hub/internal/infrastructure/adapters"
	mongoRepo "github.com/sellerops/marketplace-hub/internal/infrastructure/mongodb"
	"github.com/sellerops/marketplace-hub/internal/pkg/crypto"
	"github.com/sellerops/marketplace-hub/internal/pkg/kafka"
	"github.com/sellerops/marketplace-hub/internal/pkg/logging"
	"github.com/sellerops/marketplace-hub/internal/pkg/metrics"
	"github.com/sellerops/marketplace-hub/internal/pkg/middleware"
	"github.com/sellerops/marketplace-hub/internal/pkg/mongodb"
	"github.com/sellerops/marketplace-hub/internal/pkg/outbox"
	outboxMongo "github.com/sellerops/marketplace-hub/internal/pkg/outbox/mongodb"
	"github.com/sellerops/marketplace-hub/internal/pkg/tracing"
)

const (
	serviceName = "marketplace-hub"
	version     = "1.0.0"
)

func main() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	if err := run(context.Background(), quit); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, quit <-chan os.Signal) error {
	_ = godotenv.Load()

	logConfig := logging.DefaultConfig(serviceName)
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("starting marketplace-hub API", "version", version)

	tracerProvider, err := tracing.Initialize(ctx, tracing.DefaultConfig(serviceName))
	if err != nil {
		logger.WithError(err).Error("initializing tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("shutting down tracer")
			}
		}()
	}

	m := metrics.New(serviceName)

	mongoClient, err := mongodb.NewClient(ctx, mongodb.DefaultConfig(), logger)
	if err != nil {
		logger.WithError(err).Error("connecting to MongoDB")
		return err
	}
	defer mongoClient.Close(ctx)

	if err := mongodb.EnsureIndexes(ctx, mongoClient.Database()); err != nil {
		logger.WithError(err).Error("ensuring indexes")
		return err
	}

	outboxRepo := outboxMongo.NewRepository(mongoClient.Database())
	if err := outboxRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Error("ensuring outbox indexes")
		return err
	}

	masterKey := os.Getenv("CREDENTIAL_MASTER_KEY")
	cipher, err := crypto.NewCipher(masterKey)
	if err != nil {
		logger.WithError(err).Error("initializing credential cipher")
		return err
	}

	productRepo := mongoRepo.NewProductRepository(mongoClient.Database())
	orderRepo := mongoRepo.NewOrderRepository(mongoClient.Database())
	stockRepo := mongoRepo.NewStockRepository(mongoClient.Database())
	warehouseRepo := mongoRepo.NewWarehouseRepository(mongoClient.Database())
	mappingRepo := mongoRepo.NewCategoryMappingRepository(mongoClient.Database())
	credentialRepo := mongoRepo.NewCredentialRepository(mongoClient.Database())
	bonusRepo := mongoRepo.NewBonusTransactionRepository(mongoClient.Database())
	syncJobRepo := mongoRepo.NewSyncJobRepository(mongoClient.Database())

	kafkaProducer := kafka.NewProducer(kafka.DefaultConfig())
	defer kafkaProducer.Close()

	publisher := outbox.NewPublisher(outboxRepo, kafkaProducer, logger, m, outbox.DefaultPublisherConfig())
	if err := publisher.Start(ctx); err != nil {
		logger.WithError(err).Error("starting outbox publisher")
	} else {
		defer publisher.Stop()
	}

	factory := domain.NewFactory()
	factory.Register(domain.MarketplaceOzon, func(creds domain.Credentials) domain.MarketplaceAdapter {
		return adapters.NewOzonAdapter(creds)
	})
	factory.Register(domain.MarketplaceWB, func(creds domain.Credentials) domain.MarketplaceAdapter {
		return adapters.NewWildberriesAdapter(creds)
	})
	factory.Register(domain.MarketplaceYandex, func(creds domain.Credentials) domain.MarketplaceAdapter {
		return adapters.NewYandexAdapter(creds)
	})
	logger.Info("marketplace adapters registered", "marketplaces", []string{"ozon", "wb", "yandex"})

	credentialService := application.NewCredentialService(credentialRepo, cipher, factory, outboxRepo, logger)
	syncService := application.NewSyncService(
		productRepo, orderRepo, stockRepo, warehouseRepo, mappingRepo,
		bonusRepo, syncJobRepo, credentialService, outboxRepo, logger, m)
	catalogService := application.NewCatalogService(mappingRepo, credentialService, logger)
	warehouseService := application.NewWarehouseService(warehouseRepo, logger)

	router := gin.New()
	middleware.Setup(router, logger, m)

	router.GET("/health", middleware.HealthCheck(serviceName, version))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, map[string]func(ctx context.Context) error{
		"mongodb": mongoClient.Ping,
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	handlers.NewSyncHandler(syncService, logger).RegisterRoutes(api)
	handlers.NewCredentialHandler(credentialService, logger).RegisterRoutes(api)
	handlers.NewCatalogHandler(catalogService, logger).RegisterRoutes(api)
	handlers.NewWarehouseHandler(warehouseService, logger).RegisterRoutes(api)

	addr := ":" + getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server error")
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	logger.Info("server stopped")
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
