package infra

import (
	"context"
	"fmt"

	"github.com/paydemo/wallet_ledger/internal/config"
	"github.com/paydemo/wallet_ledger/internal/ledger"
)

// OpenLedger builds the ledger store selected by cfg.LedgerBackend. The
// returned close function releases its connections.
func OpenLedger(ctx context.Context, cfg config.Config) (ledger.Store, func(), error) {
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		pool, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := ledger.NewPostgresStore(pool)
		if cfg.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return store, pool.Close, nil

	case config.BackendSQLite:
		store, err := ledger.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	case config.BackendMemory:
		return ledger.NewInMemory(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}
