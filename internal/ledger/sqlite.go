package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

// _txlock=immediate makes every BeginTx take the database write lock up
// front, so two entries never read the same balance.
const sqliteDSN = "file:%s?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL"

// SQLiteStore is a single-file ledger for local development and small
// deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf(sqliteDSN, path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateWalletIfAbsent(ctx context.Context, ownerID string) (Wallet, error) {
	now := toMicros(time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets (id, owner_id, balance, created_at, updated_at)
         VALUES (?, ?, 0, ?, ?)
         ON CONFLICT (owner_id) DO NOTHING`,
		uuid.NewString(), ownerID, now, now)
	if err != nil {
		return Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}
	w, err := s.WalletByOwner(ctx, ownerID)
	if err != nil {
		return Wallet{}, fmt.Errorf("read wallet: %w", err)
	}
	return w, nil
}

func (s *SQLiteStore) WalletByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	return scanSQLiteWallet(s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, balance, created_at, updated_at FROM wallets WHERE owner_id = ?`, ownerID))
}

func (s *SQLiteStore) ApplyEntry(ctx context.Context, walletID string, kind EntryType, amount int64) (Wallet, Transaction, error) {
	if err := validateEntry(kind, amount); err != nil {
		return Wallet{}, Transaction{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Wallet{}, Transaction{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	w, err := scanSQLiteWallet(tx.QueryRowContext(ctx,
		`SELECT id, owner_id, balance, created_at, updated_at FROM wallets WHERE id = ?`, walletID))
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
	at := toMicros(entry.CreatedAt)

	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = ?, updated_at = ? WHERE id = ?`, balance, at, w.ID); err != nil {
		return Wallet{}, Transaction{}, fmt.Errorf("update wallet: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, wallet_id, type, amount, balance_after, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, w.ID, string(kind), amount, balance, at)
	if err != nil {
		return Wallet{}, Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if entry.Seq, err = res.LastInsertId(); err != nil {
		return Wallet{}, Transaction{}, fmt.Errorf("transaction seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Wallet{}, Transaction{}, fmt.Errorf("commit: %w", err)
	}

	w.Balance = balance
	w.UpdatedAt = entry.CreatedAt
	return w, entry, nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, walletID string, opts ListOptions) ([]Transaction, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM wallets WHERE id = ?)`, walletID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check wallet: %w", err)
	}
	if !exists {
		return nil, ErrWalletNotFound
	}

	// SQLite treats a negative LIMIT as unbounded.
	limit := -1
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, wallet_id, type, amount, balance_after, created_at
         FROM transactions
         WHERE wallet_id = ?
         ORDER BY created_at DESC, seq DESC
         LIMIT ? OFFSET ?`,
		walletID, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		var (
			t    Transaction
			kind string
			at   int64
		)
		if err := rows.Scan(&t.Seq, &t.ID, &t.WalletID, &kind, &t.Amount, &t.BalanceAfter, &at); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = EntryType(kind)
		t.CreatedAt = fromMicros(at)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Reconcile(ctx context.Context, walletID string) (Reconciliation, error) {
	rec := Reconciliation{WalletID: walletID}
	err := s.db.QueryRowContext(ctx, `
        SELECT w.balance,
               COALESCE(SUM(CASE WHEN t.type = 'deposit' THEN t.amount ELSE -t.amount END), 0),
               COUNT(t.id)
        FROM wallets w
        LEFT JOIN transactions t ON t.wallet_id = w.id
        WHERE w.id = ?
        GROUP BY w.balance`, walletID).Scan(&rec.Balance, &rec.LedgerSum, &rec.EntryCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reconciliation{}, ErrWalletNotFound
		}
		return Reconciliation{}, fmt.Errorf("reconcile: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanSQLiteWallet(row *sql.Row) (Wallet, error) {
	var (
		w                Wallet
		created, updated int64
	)
	if err := row.Scan(&w.ID, &w.OwnerID, &w.Balance, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.CreatedAt = fromMicros(created)
	w.UpdatedAt = fromMicros(updated)
	return w, nil
}

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
