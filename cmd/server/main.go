// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/koyomart/autoorder-go/internal/api"
	"github.com/koyomart/autoorder-go/internal/cache"
	"github.com/koyomart/autoorder-go/internal/calibration"
	"github.com/koyomart/autoorder-go/internal/config"
	"github.com/koyomart/autoorder-go/internal/exclusion"
	"github.com/koyomart/autoorder-go/internal/pipeline"
	"github.com/koyomart/autoorder-go/internal/repository/postgres"
	"github.com/koyomart/autoorder-go/internal/service"
	"github.com/koyomart/autoorder-go/internal/storage"
	"github.com/koyomart/autoorder-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Repositories
	storeRepo := postgres.NewStoreRepository(db)
	productRepo := postgres.NewProductRepository(db)
	inventoryRepo := postgres.NewInventoryRepository(db)
	salesRepo := postgres.NewSalesRepository(db)
	orderRepo := postgres.NewOrderTrackingRepository(db)
	exclusionRepo := postgres.NewExclusionRepository(db)
	calibrationRepo := postgres.NewCalibrationRepository(db)
	predictionRepo := postgres.NewPredictionRepository(db)
	paramRepo := postgres.NewParamRepository(db)

	// Exclusion feed: live portal first, cached snapshot on failure
	portal := exclusion.NewPortalSource(cfg.Source.BaseURL, time.Duration(cfg.Source.TimeoutSeconds)*time.Second)
	filter := exclusion.NewFilter(portal, exclusionRepo)

	// Run cache (degrades to noop when Redis is unavailable)
	runCache, err := cache.NewRunCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Run cache unavailable, continuing without caching")
		runCache = cache.NewNoopRunCache()
	}

	// Optional CSV export to object storage
	var exporter storage.ObjectStorage
	if cfg.Export.Enabled {
		exporter, err = storage.NewMinioClient(cfg.Export)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Object storage unavailable, export disabled")
			exporter = nil
		}
	}

	// Pipeline
	repos := pipeline.Repos{
		Products:    productRepo,
		Inventory:   inventoryRepo,
		Sales:       salesRepo,
		Orders:      orderRepo,
		Exclusions:  exclusionRepo,
		Params:      paramRepo,
		Predictions: predictionRepo,
	}
	storeRunner := pipeline.NewStoreRunner(repos, filter, pipeline.Config{
		AnalysisDays: cfg.Forecast.AnalysisDays,
		FloorRatio:   cfg.Forecast.FloorRatio,
	})
	runner := pipeline.NewRunner(storeRunner, cfg.Forecast.StoreParallelism)

	// Services
	orderService := service.NewOrderService(runner, storeRepo, exclusionRepo, runCache, exporter, cfg.Forecast.OutputDir)
	calibrator := calibration.NewCalibrator(predictionRepo, calibrationRepo)
	calibrationService := service.NewCalibrationService(calibrator, calibrationRepo, storeRepo)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		OrderService:       orderService,
		CalibrationService: calibrationService,
	}, cfg.Server.AllowedOrigins)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
