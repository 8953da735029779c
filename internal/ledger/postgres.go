package ledger

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/postgres.sql
var postgresSchema string

const (
	pgInsertWallet = `INSERT INTO wallets (id, owner_id, balance, created_at, updated_at)
        VALUES ($1, $2, 0, $3, $3)
        ON CONFLICT (owner_id) DO NOTHING`

	pgWalletByOwner = `SELECT id, owner_id, balance, created_at, updated_at
        FROM wallets WHERE owner_id = $1`

	pgWalletForUpdate = `SELECT id, owner_id, balance, created_at, updated_at
        FROM wallets WHERE id = $1 FOR UPDATE`

	pgUpdateWallet = `UPDATE wallets SET balance = $2, updated_at = $3 WHERE id = $1`

	pgInsertTransaction = `INSERT INTO transactions (id, wallet_id, type, amount, balance_after, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING seq`

	pgListTransactions = `SELECT seq, id, wallet_id, type, amount, balance_after, created_at
        FROM transactions
        WHERE wallet_id = $1
        ORDER BY created_at DESC, seq DESC
        LIMIT $2 OFFSET $3`

	pgWalletExists = `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1)`

	pgReconcile = `
        SELECT w.balance,
               COALESCE(SUM(CASE WHEN t.type = 'deposit' THEN t.amount ELSE -t.amount END), 0)::bigint,
               COUNT(t.id)
        FROM wallets w
        LEFT JOIN transactions t ON t.wallet_id = w.id
        WHERE w.id = $1
        GROUP BY w.balance`
)

// PostgresStore persists wallets and their transaction log in PostgreSQL.
// Entries against one wallet are serialized by a row lock on the wallet.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the ledger tables and indexes if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

// CreateWalletIfAbsent relies on the owner_id unique constraint: concurrent
// callers race on the insert and all of them read back the single winner.
func (s *PostgresStore) CreateWalletIfAbsent(ctx context.Context, ownerID string) (Wallet, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if _, err := s.db.Exec(ctx, pgInsertWallet, uuid.New(), ownerID, now); err != nil {
		return Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}
	w, err := scanWallet(s.db.QueryRow(ctx, pgWalletByOwner, ownerID))
	if err != nil {
		return Wallet{}, fmt.Errorf("read wallet: %w", err)
	}
	return w, nil
}

// WalletByOwner fetches the owner's wallet without creating one.
func (s *PostgresStore) WalletByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	return scanWallet(s.db.QueryRow(ctx, pgWalletByOwner, ownerID))
}

// ApplyEntry re-reads the balance under FOR UPDATE, so a concurrent entry on
// the same wallet waits for this transaction to commit or roll back.
func (s *PostgresStore) ApplyEntry(ctx context.Context, walletID string, kind EntryType, amount int64) (Wallet, Transaction, error) {
	if err := validateEntry(kind, amount); err != nil {
		return Wallet{}, Transaction{}, err
	}
	id, err := uuid.Parse(walletID)
	if err != nil {
		return Wallet{}, Transaction{}, ErrWalletNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Wallet{}, Transaction{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := scanWallet(tx.QueryRow(ctx, pgWalletForUpdate, id))
	if err != nil {
		return Wallet{}, Transaction{}, err
	}

	balance, err := nextBalance(w.Balance, kind, amount)
	if err != nil {
		return Wallet{}, Transaction{}, err
	}

	entry := Transaction{
		ID:           uuid.NewString(),
		WalletID:     w.ID,
		Type:         kind,
		Amount:       amount,
		BalanceAfter: balance,
		CreatedAt:    entryTime(time.Now(), w.UpdatedAt),
	}

	if _, err := tx.Exec(ctx, pgUpdateWallet, id, balance, entry.CreatedAt); err != nil {
		return Wallet{}, Transaction{}, fmt.Errorf("update wallet: %w", err)
	}
	if err := tx.QueryRow(ctx, pgInsertTransaction, uuid.MustParse(entry.ID), id, string(kind), amount, balance, entry.CreatedAt).Scan(&entry.Seq); err != nil {
		return Wallet{}, Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, Transaction{}, fmt.Errorf("commit: %w", err)
	}

	w.Balance = balance
	w.UpdatedAt = entry.CreatedAt
	return w, entry, nil
}

// ListTransactions returns the wallet's entries newest first.
func (s *PostgresStore) ListTransactions(ctx context.Context, walletID string, opts ListOptions) ([]Transaction, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrWalletNotFound
	}

	var exists bool
	if err := s.db.QueryRow(ctx, pgWalletExists, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check wallet: %w", err)
	}
	if !exists {
		return nil, ErrWalletNotFound
	}

	var limit *int
	if opts.Limit > 0 {
		limit = &opts.Limit
	}
	rows, err := s.db.Query(ctx, pgListTransactions, id, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		var (
			t        Transaction
			txID     uuid.UUID
			walletUU uuid.UUID
			kind     string
		)
		if err := rows.Scan(&t.Seq, &txID, &walletUU, &kind, &t.Amount, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.ID = txID.String()
		t.WalletID = walletUU.String()
		t.Type = EntryType(kind)
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// Reconcile reads the balance and the log sum in one statement, so both come
// from the same snapshot.
func (s *PostgresStore) Reconcile(ctx context.Context, walletID string) (Reconciliation, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return Reconciliation{}, ErrWalletNotFound
	}
	rec := Reconciliation{WalletID: walletID}
	if err := s.db.QueryRow(ctx, pgReconcile, id).Scan(&rec.Balance, &rec.LedgerSum, &rec.EntryCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reconciliation{}, ErrWalletNotFound
		}
		return Reconciliation{}, fmt.Errorf("reconcile: %w", err)
	}
	return rec, nil
}

// Ping checks connectivity to the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w       Wallet
		id      uuid.UUID
		created time.Time
		updated time.Time
	)
	if err := row.Scan(&id, &w.OwnerID, &w.Balance, &created, &updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.CreatedAt = created.UTC()
	w.UpdatedAt = updated.UTC()
	return w, nil
}
