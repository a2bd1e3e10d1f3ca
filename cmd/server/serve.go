package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arturoeanton/cirkle/internal/adapter/auth"
	"github.com/arturoeanton/cirkle/internal/adapter/drive"
	"github.com/arturoeanton/cirkle/internal/adapter/store"
	"github.com/arturoeanton/cirkle/internal/handler"
	"github.com/arturoeanton/cirkle/internal/port"
	"github.com/arturoeanton/cirkle/internal/service"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "apply Postgres migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting cirkle",
		"port", cfg.Port,
		"store", cfg.StoreBackend,
		"pomodoro_seconds", cfg.PomodoroDefaultSeconds,
		"pomodoro_idle_timeout", cfg.PomodoroIdleTimeout,
		"score_atomic", cfg.ScoreAtomic,
	)

	// ── Storage ──────────────────────────────────────────────────────────
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if pg, ok := st.(*store.PostgresStore); ok && autoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
	}

	// ── Adapters ─────────────────────────────────────────────────────────
	googleAuth := auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	providers := port.AuthProviderRegistry{
		googleAuth.ProviderName(): googleAuth,
	}

	// ── Services ─────────────────────────────────────────────────────────
	events := handler.NewEventBus()
	groups := service.NewGroupService(st)
	board := service.NewLeaderboardService(st)
	sessions := service.NewSessionService(groups, service.NewScoreService(st, cfg.ScoreAtomic), board, events,
		service.SessionConfig{
			DefaultSeconds: cfg.PomodoroDefaultSeconds,
			Tick:           cfg.PomodoroTick,
			IdleTimeout:    cfg.PomodoroIdleTimeout,
			Audit:          st,
		})
	defer sessions.Close()

	app := handler.NewApp(handler.Deps{
		AppName:     cfg.AppName,
		FrontendURL: cfg.FrontendURL,
		AccessLog:   true,
		Auth:        service.NewAuthService(providers, st, st, cfg),
		Groups:      groups,
		Drive:       service.NewDriveService(groups, st, st, drive.NewFactory(googleAuth.OAuthConfig(), drive.Options{})),
		Sessions:    sessions,
		Leaderboard: board,
		Events:      events,
		Audit:       st,
		JWT:         service.JWTConfig(cfg),
	})

	// ── Start ────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		slog.Info("fiber listening", "port", cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
