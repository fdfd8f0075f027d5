package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nestara/console-backend/internal/adapter/httpapi"
	"github.com/nestara/console-backend/internal/adapter/platform"
	"github.com/nestara/console-backend/internal/config"
	"github.com/nestara/console-backend/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	// 1. Load configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		cfg = loaded
	}

	// 2. Setup logging
	logger, err := logging.NewLogger(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 3. Platform backend client (reference data + submission)
	client := platform.NewClient(cfg.Platform, logger)

	// 4. Console API
	api := httpapi.NewServer(client, client, cfg.APIToken, logger)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.Handler(),
	}

	go func() {
		logger.Info("console API listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// waitForShutdown waits for SIGTERM or SIGINT and drains the server
func waitForShutdown(server *http.Server, logger *logging.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
