package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Munirmohammed/Ecommerce/cache"
	"github.com/Munirmohammed/Ecommerce/config"
	"github.com/Munirmohammed/Ecommerce/database"
	"github.com/Munirmohammed/Ecommerce/events"
	"github.com/Munirmohammed/Ecommerce/handlers"
	"github.com/Munirmohammed/Ecommerce/middleware"
	"github.com/Munirmohammed/Ecommerce/services"
	"github.com/Munirmohammed/Ecommerce/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()

	db, err := database.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	cacheStore, err := cache.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize cache", zap.Error(err))
	}

	shutdownTracing, err := middleware.InitTracing(cfg.ServiceName, cfg.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing()

	producer, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	images, err := storage.NewImageStore(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		logger.Fatal("Failed to initialize image store", zap.Error(err))
	}

	authSvc := services.NewAuthService(db, cfg.JWTSecret, cfg.JWTExpiresIn, logger)
	productSvc := services.NewProductService(db, cacheStore, cfg.CacheTTL, logger)
	orderSvc := services.NewOrderService(db, logger)

	router := handlers.NewRouter(cfg, logger,
		handlers.NewAuthHandler(authSvc, logger),
		handlers.NewProductHandler(productSvc, images, logger),
		handlers.NewOrderHandler(orderSvc, producer, logger),
	)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", cfg.HTTPAddr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
