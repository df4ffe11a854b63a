package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pinchat/pinchat/internal/server"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := server.NewConfigFromEnv().Sanitize()
	logger := server.NewLogger(cfg.Env)

	if cfg.GlobalAdminPassword == server.DefaultGlobalAdminPassword {
		logger.Warn("GLOBAL_ADMIN_PASSWORD not set, using the insecure default")
	}

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := server.NewRegistry()
	store := server.NewFileFilterStore(cfg.FilterPath)
	metrics := server.NewMetrics()

	router := server.NewRouter(logger, registry, store, metrics, cfg.GlobalAdminPassword)
	router.LoadFilterData()

	hub := server.NewHub(logger, router, metrics)
	go hub.Run()

	app := server.NewApp(cfg, hub, metrics)
	srv := server.CreateServer(cfg.Port, app.SetupRoutes())

	go func() {
		if err := server.StartServer(srv, logger); err != nil && err != http.ErrServerClosed {
			logger.Error("server crashed", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	_ = server.ShutdownServer(srv, logger, 10*time.Second)
	if err := hub.Shutdown(10 * time.Second); err != nil {
		logger.Warn("hub shutdown incomplete", "err", err)
		os.Exit(1)
	}
}
