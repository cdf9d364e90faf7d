package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/liteapi-travel/hscode-assistant/internal/app"
	"github.com/liteapi-travel/hscode-assistant/internal/config"
	"github.com/liteapi-travel/hscode-assistant/internal/server"
)

func newServeCmd() *cobra.Command {
	var inline bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the LINE webhook over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.ValidateLINE(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, inline)
		},
	}

	cmd.Flags().BoolVar(&inline, "inline", false, "process events before acknowledging the webhook")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, inline bool) error {
	logger := newLogger(cfg)

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Store.Driver).
		Str("ai_provider", cfg.AI.Provider).
		Msg("Starting HS code assistant")

	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store")
		}
	}()

	webhook := a.Server(server.Options{Inline: inline, ServiceName: serviceName})

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      webhook.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Server error")
			return err
		}
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	// Acknowledged batches still need their replies.
	if err := webhook.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Abandoned in-flight webhook events")
	}

	logger.Info().Msg("Server stopped")
	return nil
}
