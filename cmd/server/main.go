/*
main.go - Application entry point

PURPOSE:
  Command-line entry for the bizledger server and tools. Loads
  configuration, sets up logging, opens the configured store and hands
  off to a subcommand.

COMMANDS:
  serve       Start the HTTP API and the reconciliation scheduler
  statement   Print a party's ledger to stdout

CONFIGURATION:
  Environment (and .env if present), see internal/config:
    PORT, DB_PATH, DATABASE_URL, ALLOWED_ORIGINS, LOG_LEVEL, LOG_FORMAT,
    LOG_OUTPUT, RECONCILE_INTERVAL, CURRENCY_LOCALE, RETRY_ATTEMPTS, RETRY_DELAY
  Flags on each command override the environment.

STORE SELECTION:
  DATABASE_URL set -> PostgreSQL
  otherwise        -> SQLite at DB_PATH (":memory:" for an in-memory database)

EXAMPLES:
  # Run with file database
  bizledger serve --db ./data/bizledger.db

  # Run against PostgreSQL on another port
  DATABASE_URL=postgres://localhost/bizledger bizledger serve --port 3000

  # Print a statement for April
  bizledger statement party-asha --from 2025-04-01 --to 2025-04-30

SEE ALSO:
  - serve.go: HTTP server lifecycle
  - statement.go: Ledger printer
  - internal/config/config.go: Environment variables
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/bizledger/generic"
	"github.com/warp/bizledger/internal/config"
	"github.com/warp/bizledger/internal/logger"
	"github.com/warp/bizledger/store/postgres"
	"github.com/warp/bizledger/store/sqlite"
)

var version = "0.1.0"

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bizledger",
	Short: "Party ledgers and invoice discounts",
	Long: `bizledger keeps sales and payments per customer or vendor, builds
running-balance statements from them on demand, and prices invoice lines
against live category, product and party discounts.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if err := applyStoreFlags(cmd); err != nil {
			return err
		}
		return logger.Setup(cfg.LoggerConfig())
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL URL (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd, statementCmd)
}

func applyStoreFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if v, _ := flags.GetString("db"); v != "" {
		cfg.DBPath = v
	}
	if v, _ := flags.GetString("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// openStore opens PostgreSQL when a URL is configured, SQLite otherwise.
func openStore(ctx context.Context) (generic.Backend, error) {
	log := logger.WithComponent("store")
	if cfg.UsePostgres() {
		s, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		log.Info().Msg("Using PostgreSQL store")
		return s, nil
	}

	s, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.DBPath, err)
	}
	log.Info().Str("path", cfg.DBPath).Msg("Using SQLite store")
	return s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
