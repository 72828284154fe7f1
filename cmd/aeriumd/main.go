package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"aerium-backend/config"
	"aerium-backend/internal/api"
	"aerium-backend/internal/auth"
	"aerium-backend/internal/db"
	"aerium-backend/internal/ingest"
	"aerium-backend/internal/logging"
	"aerium-backend/internal/notification"
	"aerium-backend/internal/sim"
	"aerium-backend/internal/store"
	"aerium-backend/internal/ws"
)

func main() {
	// Secrets may come from a local .env file in development.
	_ = godotenv.Load()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger := logging.New(&cfg.Logging)
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	logger.Info("database initialized", zap.String("dsn", cfg.Database.DSN))

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	tokens := auth.NewManager(&cfg.Auth)
	hub := ws.NewHub(logger)

	// Notification pool and ingestion pipeline
	pool := notification.NewWorkerPool(cfg, appStore, logger)
	pool.Start(ctx)

	pipeline := ingest.NewPipeline(appStore, &cfg.Thresholds, pool, hub, logger)

	// Background simulation tick
	simulator := sim.New()
	scheduler := ingest.NewScheduler(&cfg.Simulator, appStore, pipeline, simulator, logger)
	go scheduler.Run(ctx)

	// Initialize router
	handler := api.NewHandler(appStore, cfg, tokens, pipeline, simulator, hub, logger)
	wsServer := ws.NewServer(hub, tokens, appStore, logger)
	router := api.NewRouter(handler, wsServer, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("HTTP server Shutdown", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}
