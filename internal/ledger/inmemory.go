package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryWallet struct {
	mu      sync.Mutex
	wallet  Wallet
	entries []Transaction
}

type inMemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*memoryWallet
	byOwner map[string]string
	seq     int64
	seqMu   sync.Mutex
	now     func() time.Time
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests
// and local development. Each wallet has its own lock, so entries against
// different wallets never contend.
func NewInMemory() Store {
	return &inMemoryStore{
		byID:    make(map[string]*memoryWallet),
		byOwner: make(map[string]string),
		now:     time.Now,
	}
}

func (s *inMemoryStore) CreateWalletIfAbsent(_ context.Context, ownerID string) (Wallet, error) {
	s.mu.RLock()
	id, ok := s.byOwner[ownerID]
	s.mu.RUnlock()
	if ok {
		return s.snapshot(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byOwner[ownerID]; ok {
		w := s.byID[id]
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.wallet, nil
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	w := Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byID[w.ID] = &memoryWallet{wallet: w}
	s.byOwner[ownerID] = w.ID
	return w, nil
}

func (s *inMemoryStore) WalletByOwner(_ context.Context, ownerID string) (Wallet, error) {
	s.mu.RLock()
	id, ok := s.byOwner[ownerID]
	s.mu.RUnlock()
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return s.snapshot(id)
}

func (s *inMemoryStore) ApplyEntry(ctx context.Context, walletID string, kind EntryType, amount int64) (Wallet, Transaction, error) {
	if err := validateEntry(kind, amount); err != nil {
		return Wallet{}, Transaction{}, err
	}
	w, err := s.lookup(walletID)
	if err != nil {
		return Wallet{}, Transaction{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Wallet{}, Transaction{}, err
	}

	balance, err := nextBalance(w.wallet.Balance, kind, amount)
	if err != nil {
		return Wallet{}, Transaction{}, err
	}

	createdAt := entryTime(s.now(), w.wallet.UpdatedAt)
	tx := Transaction{
		ID:           uuid.NewString(),
		Seq:          s.nextSeq(),
		WalletID:     walletID,
		Type:         kind,
		Amount:       amount,
		BalanceAfter: balance,
		CreatedAt:    createdAt,
	}
	w.entries = append(w.entries, tx)
	w.wallet.Balance = balance
	w.wallet.UpdatedAt = createdAt
	return w.wallet, tx, nil
}

func (s *inMemoryStore) ListTransactions(_ context.Context, walletID string, opts ListOptions) ([]Transaction, error) {
	w, err := s.lookup(walletID)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	// entries are appended in log order, so newest first is a reverse walk.
	out := make([]Transaction, 0, len(w.entries))
	for i := len(w.entries) - 1 - max(opts.Offset, 0); i >= 0; i-- {
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
		out = append(out, w.entries[i])
	}
	return out, nil
}

func (s *inMemoryStore) Reconcile(_ context.Context, walletID string) (Reconciliation, error) {
	w, err := s.lookup(walletID)
	if err != nil {
		return Reconciliation{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	rec := Reconciliation{WalletID: walletID, Balance: w.wallet.Balance}
	for _, e := range w.entries {
		rec.LedgerSum += e.SignedAmount()
		rec.EntryCount++
	}
	return rec, nil
}

func (s *inMemoryStore) Ping(context.Context) error {
	return nil
}

func (s *inMemoryStore) lookup(walletID string) (*memoryWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.byID[walletID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return w, nil
}

func (s *inMemoryStore) snapshot(walletID string) (Wallet, error) {
	w, err := s.lookup(walletID)
	if err != nil {
		return Wallet{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wallet, nil
}

func (s *inMemoryStore) nextSeq() int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq++
	return s.seq
}
