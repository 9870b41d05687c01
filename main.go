package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Wardenfar/parkingsystem/internal/di"
	"github.com/Wardenfar/parkingsystem/pkg/config"
	"github.com/Wardenfar/parkingsystem/pkg/logger"
	"github.com/Wardenfar/parkingsystem/pkg/middleware"
	"github.com/Wardenfar/parkingsystem/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Parking Service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	// Initialize telemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		MetricsAddr:    cfg.OTel.MetricsAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			appLog.Warn("Failed to flush telemetry", zap.Error(err))
		}
	}()

	// Build dependency injection container
	container, cleanup, err := di.Bootstrap(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("Bootstrap failed", zap.Error(err))
	}
	defer cleanup()

	if container.AvailabilitySyncer != nil {
		container.AvailabilitySyncer.Start(ctx)
		defer container.AvailabilitySyncer.Stop()
	}

	router := newRouter(cfg, container, appLog)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		appLog.Info("Parking Service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}

func newRouter(cfg *config.Config, container *di.Container, appLog *logger.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(appLog))
	router.Use(telemetry.TracingMiddleware(telemetry.DefaultTracingConfig(cfg.OTel.ServiceName)))
	router.Use(middleware.Logger(appLog, "/health", "/ready", "/metrics"))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(container.Registry, promhttp.HandlerOpts{})))

	// Write routes replay stored responses when the gate retries with the same key
	writeGuard := func(c *gin.Context) { c.Next() }
	if cfg.Parking.IdempotencyEnabled && container.Redis != nil {
		writeGuard = middleware.Idempotency(middleware.DefaultIdempotencyConfig(container.Redis.Client()))
	}

	v1 := router.Group("/api/v1")
	{
		parking := v1.Group("/parking")
		{
			parking.POST("/entries", writeGuard, container.ParkingHandler.Enter)
			parking.POST("/exits", writeGuard, container.ParkingHandler.Exit)
			parking.GET("/tickets/:registration", container.ParkingHandler.GetTicket)
			parking.GET("/spots", container.ParkingHandler.ListSpots)
		}

		v1.POST("/fares/quote", container.FareHandler.Quote)
	}

	return router
}
