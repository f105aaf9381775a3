package memory

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/iho/cardbank/internal/domain"
)

// record is a ledger row. lock serializes every mutation of the row; the
// fields themselves are read and written under LedgerStore.mu.
type record struct {
	lock    *semaphore.Weighted
	account domain.Account
	deleted bool
}

// LedgerStore implements usecase.LedgerStore in process memory.
//
// Writers take per-account locks in canonical order, compute the new balances
// while holding them, and publish all changes in one critical section of mu.
// Readers only take mu, so they never observe half of a transfer.
type LedgerStore struct {
	mu      sync.RWMutex
	byCard  map[string]*record
	byOwner map[string]*record
	hooks   domain.TransferHooks
}

// Option configures a LedgerStore.
type Option func(*LedgerStore)

// WithHooks installs transfer hooks.
func WithHooks(hooks domain.TransferHooks) Option {
	return func(s *LedgerStore) {
		s.hooks = hooks
	}
}

// NewLedgerStore creates an empty LedgerStore.
func NewLedgerStore(opts ...Option) *LedgerStore {
	s := &LedgerStore{
		byCard:  make(map[string]*record),
		byOwner: make(map[string]*record),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create inserts a new account.
func (s *LedgerStore) Create(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCard[account.Number]; ok {
		return domain.ErrDuplicateIdentifier
	}

	rec := &record{
		lock:    semaphore.NewWeighted(1),
		account: *account,
	}
	s.byCard[account.Number] = rec
	s.byOwner[account.OwnerID] = rec

	return nil
}

// GetByNumber returns a snapshot of the account.
func (s *LedgerStore) GetByNumber(_ context.Context, number string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byCard[number]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	acc := rec.account

	return &acc, nil
}

// Deposit atomically increments the balance.
func (s *LedgerStore) Deposit(ctx context.Context, number string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	rec, err := s.lockCard(ctx, number, wrapStep("deposit"))
	if err != nil {
		return err
	}
	defer rec.lock.Release(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := rec.account.ValidateCredit(amount); err != nil {
		return err
	}
	rec.account.Balance += amount

	return nil
}

// Transfer moves t.Amount from t.From to t.To.
func (s *LedgerStore) Transfer(ctx context.Context, t *domain.Transfer) error {
	if err := t.Validate(); err != nil {
		return err
	}

	locked := make([]*record, 0, 2)
	defer func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].lock.Release(1)
		}
	}()

	for _, number := range t.LockOrder() {
		rec, err := s.lockCard(ctx, number, aborted)
		if err != nil {
			return err
		}
		locked = append(locked, rec)
	}

	if err := s.hooks.RunAfterLock(ctx, t); err != nil {
		return aborted("after lock", err)
	}

	s.mu.RLock()
	sender := s.byCard[t.From].account
	receiver := s.byCard[t.To].account
	s.mu.RUnlock()

	// The write set is staged locally; dropping it is the rollback.
	if err := sender.ValidateDebit(t.Amount); err != nil {
		return err
	}
	if err := receiver.ValidateCredit(t.Amount); err != nil {
		return err
	}
	sender.Balance = sender.ApplyDebit(t.Amount)

	if err := s.hooks.RunAfterDebit(ctx, t); err != nil {
		return aborted("after debit", err)
	}

	receiver.Balance = receiver.ApplyCredit(t.Amount)

	if err := ctx.Err(); err != nil {
		return aborted("commit", err)
	}

	s.mu.Lock()
	s.byCard[t.From].account.Balance = sender.Balance
	s.byCard[t.To].account.Balance = receiver.Balance
	s.mu.Unlock()

	return nil
}

// Delete removes the account owned by ownerID. Accounts with a non-zero
// balance are kept and domain.ErrAccountNotEmpty is returned.
func (s *LedgerStore) Delete(ctx context.Context, ownerID string) error {
	s.mu.RLock()
	rec, ok := s.byOwner[ownerID]
	s.mu.RUnlock()

	if !ok {
		return domain.ErrAccountNotFound
	}

	rec, err := s.lockCard(ctx, rec.account.Number, wrapStep("close"))
	if err != nil {
		return err
	}
	defer rec.lock.Release(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.account.Balance != 0 {
		return domain.ErrAccountNotEmpty
	}

	rec.deleted = true
	delete(s.byCard, rec.account.Number)
	delete(s.byOwner, rec.account.OwnerID)

	return nil
}

// lockCard acquires the row lock of number; wrap decorates a failed wait. The
// row may be deleted while the caller waits, so existence is checked again
// once the lock is held.
func (s *LedgerStore) lockCard(ctx context.Context, number string, wrap func(step string, err error) error) (*record, error) {
	s.mu.RLock()
	rec, ok := s.byCard[number]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	if err := rec.lock.Acquire(ctx, 1); err != nil {
		return nil, wrap("lock "+number, err)
	}

	s.mu.RLock()
	deleted := rec.deleted
	s.mu.RUnlock()

	if deleted {
		rec.lock.Release(1)
		return nil, domain.ErrAccountNotFound
	}

	return rec, nil
}

func aborted(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrTransferAborted, step, err)
}

func wrapStep(op string) func(step string, err error) error {
	return func(step string, err error) error {
		return fmt.Errorf("%s: %s: %w", op, step, err)
	}
}
