// Command migrate applies the ledger schema to the configured PostgreSQL
// database. SQLite databases are migrated when opened.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/paydemo/wallet_ledger/internal/config"
	"github.com/paydemo/wallet_ledger/internal/infra"
	"github.com/paydemo/wallet_ledger/internal/ledger"
	"github.com/paydemo/wallet_ledger/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, "app", cfg.AppName, "cmd", "migrate")

	if cfg.LedgerBackend != config.BackendPostgres {
		logger.Info("nothing to migrate", "backend", cfg.LedgerBackend)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := ledger.NewPostgresStore(pool).Migrate(ctx); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}
	logger.Info("schema applied")
}
