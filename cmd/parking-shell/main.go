package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Wardenfar/parkingsystem/internal/console"
	"github.com/Wardenfar/parkingsystem/internal/di"
	"github.com/Wardenfar/parkingsystem/pkg/config"
	"github.com/Wardenfar/parkingsystem/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// The menu owns stdout, logs go to stderr only at warn and above
	if err := logger.Init(&logger.Config{
		Level:       "warn",
		ServiceName: cfg.App.Name + "-shell",
		Development: cfg.IsDevelopment(),
		Encoding:    "console",
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLog := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := di.Bootstrap(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("Bootstrap failed", zap.Error(err))
	}
	defer cleanup()

	if container.AvailabilitySyncer != nil {
		container.AvailabilitySyncer.Start(ctx)
		defer container.AvailabilitySyncer.Stop()
	}

	shell := console.NewShell(os.Stdin, os.Stdout, container.ParkingService, appLog)
	if err := shell.Run(ctx); err != nil {
		appLog.Error("Shell stopped", zap.Error(err))
	}
}
