package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/arturoeanton/cirkle/internal/adapter/store"
	"github.com/arturoeanton/cirkle/internal/port"
	"github.com/arturoeanton/cirkle/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "cirkle",
	Short: "Study groups with shared Drive resources and pomodoro leaderboards",
	// Running the binary without a subcommand starts the server.
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h).With("app", cfg.AppName))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore connects the configured persistence backend.
func openStore(ctx context.Context, cfg *config.Config) (port.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		slog.Info("connecting to postgres", "dsn", cfg.DSN())
		return store.NewPostgresStore(cfg.DatabaseURL)
	case config.BackendFirestore:
		slog.Info("connecting to firestore", "project_id", cfg.FirestoreProjectID)
		return store.NewFirestoreStore(ctx, cfg.FirestoreProjectID)
	default:
		slog.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}
}
