package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/afkbot/internal/config"
	"github.com/rickgao/afkbot/internal/keeper"
	"github.com/rickgao/afkbot/internal/status"
	"github.com/rickgao/afkbot/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; env vars used when empty)")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting afkbot",
		"version", version.Version,
		"commit", version.Commit,
		"server", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"username", cfg.Bot.Username,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	k := keeper.New(keeper.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Username:       cfg.Bot.Username,
		Version:        cfg.Bot.Version,
		ReconnectDelay: cfg.Reconnect.Delay,
	}, nil, logger)

	// The status server binds before the first connection attempt so
	// orchestrators can observe the bot from the start. A bind failure
	// is the one failure that is never retried.
	statusServer := status.NewServer(cfg.HTTP.Port, k, logger)
	if err := statusServer.Start(); err != nil {
		logger.Error("failed to start status server", "error", err)
		os.Exit(1)
	}

	var g errgroup.Group
	g.Go(func() error {
		if err := statusServer.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	})

	// Initiate the first connection attempt
	k.Start(ctx)

	logger.Info("afkbot running",
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.HTTP.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	k.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := statusServer.Shutdown(shutdownCtx); err != nil {
		logger.Debug("status server shutdown", "error", err)
	}

	if err := g.Wait(); err != nil {
		logger.Error("status server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("afkbot stopped")
}

// loadConfig resolves configuration from a file when a path is given,
// otherwise from environment variables alone.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadAndValidate(path)
	}
	return config.FromEnv()
}
