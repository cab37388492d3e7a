package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardshow/cardshow/internal/app"
	"github.com/cardshow/cardshow/internal/config"
	"github.com/cardshow/cardshow/internal/logger"
	"github.com/cardshow/cardshow/internal/routes"
	"github.com/spf13/cobra"
)

func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, upload worker and payout schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// bootstrap loads config, sets up logging and builds the app.
func bootstrap() (*app.App, error) {
	cfg := config.Load()

	logger.Init(logger.Options{
		Development: cfg.IsDevelopment(),
		Environment: cfg.AppEnv,
		SentryDSN:   cfg.SentryDSN,
	})

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return nil, err
	}
	return a, nil
}

func closeApp(a *app.App) {
	closeErr := a.Close()
	if closeErr != nil {
		slog.Error("failed to close app", "error", closeErr)
	}
}

func runServe() error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeApp(a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.StartBackground(ctx)

	server := &http.Server{
		Addr:              ":" + a.Cfg.Port,
		Handler:           routes.SetupRoutes(a),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", a.Cfg.Port, "env", a.Cfg.AppEnv, "url", "http://localhost:"+a.Cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	return a.Shutdown(shutdownCtx)
}
