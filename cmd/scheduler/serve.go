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

	"github.com/spf13/cobra"

	"github.com/example/meeting-finder/internal/application"
	"github.com/example/meeting-finder/internal/config"
	httptransport "github.com/example/meeting-finder/internal/http"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := newLogger(os.Stdout, cfg.SlogLevel())

	if err := cfg.RequireAPIKeys(); err != nil {
		return err
	}
	hashes, err := cfg.APIKeyHashes()
	if err != nil {
		return err
	}

	deps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := deps.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Cases:       httptransport.NewCaseHandler(deps.cases, logger),
		Manage:      httptransport.NewManageHandler(deps.cases.Reconciler(), logger),
		Auth:        application.NewKeyRing(hashes, cfg.AllowedDomain),
		Logger:      logger,
		MetricsPath: cfg.MetricsPath,
		CORSOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("meeting finder API listening",
			"addr", server.Addr,
			"store", cfg.Store,
			"calendar", cfg.Calendar,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server encountered error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
