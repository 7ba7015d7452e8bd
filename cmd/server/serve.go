package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/bizledger/api"
	"github.com/warp/bizledger/format"
	"github.com/warp/bizledger/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API and the background reconciliation scheduler.

On SIGINT/SIGTERM the server stops accepting connections, waits up to
30 seconds for active requests, stops the scheduler and closes the store.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (overrides PORT)")
	serveCmd.Flags().Bool("no-scheduler", false, "Disable the reconciliation scheduler")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("server")
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Port = port
	}

	store, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(store, logger.WithComponent("api"))
	handler.Currency = format.NewCurrency(cfg.CurrencyLocale, "₹")
	handler.Retry = cfg.RetryPolicy()

	scheduler := api.NewReconciliationScheduler(handler.Reconciler, logger.WithComponent("api"))
	scheduler.CheckInterval = cfg.ReconcileInterval
	if off, _ := cmd.Flags().GetBool("no-scheduler"); off {
		scheduler.Enabled = false
	}

	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		scheduler.Stop()
		return err
	}

	log.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	scheduler.Stop()

	log.Info().Msg("Server stopped")
	return nil
}
