package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := config.InitLogger(cfg.Log); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zap.L().Sync() //nolint:errcheck

	zap.L().Info("starting PriceLens backend",
		zap.String("version", httpDelivery.Version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wire history, catalog sources and tracker
	application, err := app.New(ctx, cfg)
	if err != nil {
		zap.L().Error("failed to build tracker", zap.Error(err))
		os.Exit(1)
	}
	defer application.Close()

	handler := httpDelivery.NewHandler(application.Tracker)
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	if err := httpDelivery.Serve(ctx, addr, router); err != nil {
		zap.L().Error("server stopped", zap.Error(err))
		application.Close()
		os.Exit(1)
	}
}
