package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/galleryspace/relay/internal/api"
	"github.com/galleryspace/relay/internal/config"
	"github.com/galleryspace/relay/internal/factory"
	"github.com/galleryspace/relay/internal/services/session"
	redissnapshot "github.com/galleryspace/relay/internal/snapshot/redis"
	"github.com/galleryspace/relay/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		SessionConfig: session.Config{
			MaxSessions: cfg.MaxPlayers,
			Open:        cfg.Open,
			Credentials: session.ParseCredentials(cfg.Admins),
		},
		IdleTimeout:   cfg.ActivityTimeout,
		SweepInterval: cfg.IdleSweepInterval,
		Backend:       cfg.SnapshotBackend,
		SnapshotPath:  cfg.SnapshotPath,
		Logger:        logger,
	}

	if cfg.SnapshotBackend == config.BackendRedis {
		redisCfg := redissnapshot.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Store.Close(); err != nil {
			logger.Warn("closing snapshot store", slog.String("error", err.Error()))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:    logger,
		WSHandler: ws.NewHandler(app.Dispatcher, logger),
		StaticDir: cfg.StaticDir,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// The relay loop and the idle sweeper stop when the context does
	go app.Dispatcher.Run(ctx)
	go app.Monitor.Run(ctx)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
