package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/cardbank/internal/domain"
)

const (
	pgErrUniqueViolation = "23505"
	pgErrOutOfRange      = "22003"
)

type pgxPool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LedgerStore implements usecase.LedgerStore on PostgreSQL.
//
// A transfer runs in one transaction: both rows are locked with
// SELECT ... FOR UPDATE in card number order, the debit is conditional on
// the balance read inside the transaction, and any failure rolls back.
type LedgerStore struct {
	pool  pgxPool
	hooks domain.TransferHooks
}

// Option configures a LedgerStore.
type Option func(*LedgerStore)

// WithHooks installs transfer hooks.
func WithHooks(hooks domain.TransferHooks) Option {
	return func(s *LedgerStore) {
		s.hooks = hooks
	}
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *pgxpool.Pool, opts ...Option) *LedgerStore {
	return newLedgerStoreWithPool(pool, opts...)
}

func newLedgerStoreWithPool(pool pgxPool, opts ...Option) *LedgerStore {
	s := &LedgerStore{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a new account.
func (s *LedgerStore) Create(ctx context.Context, account *domain.Account) error {
	_, err := s.pool.Exec(ctx, createCardSQL, account.OwnerID, account.Number, account.PIN, account.Balance)
	if err != nil {
		if isPgError(err, pgErrUniqueViolation) {
			return domain.ErrDuplicateIdentifier
		}
		return fmt.Errorf("create card: %w", err)
	}

	return nil
}

// GetByNumber retrieves an account by card number.
func (s *LedgerStore) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	var acc domain.Account

	err := s.pool.QueryRow(ctx, getCardSQL, number).Scan(&acc.OwnerID, &acc.Number, &acc.PIN, &acc.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get card: %w", err)
	}

	return &acc, nil
}

// Deposit atomically increments the balance.
func (s *LedgerStore) Deposit(ctx context.Context, number string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	tag, err := s.pool.Exec(ctx, depositSQL, amount, number)
	if err != nil {
		if isPgError(err, pgErrOutOfRange) {
			return domain.ErrBalanceOverflow
		}
		return fmt.Errorf("deposit: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// Transfer moves t.Amount from t.From to t.To in a single transaction.
func (s *LedgerStore) Transfer(ctx context.Context, t *domain.Transfer) error {
	if err := t.Validate(); err != nil {
		return err
	}

	return s.inTx(ctx, aborted, func(tx pgx.Tx) error {
		for _, number := range t.LockOrder() {
			var locked string
			if err := tx.QueryRow(ctx, lockCardSQL, number).Scan(&locked); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return domain.ErrAccountNotFound
				}
				return aborted("lock "+number, err)
			}
		}

		if err := s.hooks.RunAfterLock(ctx, t); err != nil {
			return aborted("after lock", err)
		}

		tag, err := tx.Exec(ctx, debitSQL, t.Amount, t.From)
		if err != nil {
			return aborted("debit", err)
		}
		if tag.RowsAffected() != 1 {
			return domain.ErrInsufficientFunds
		}

		if err := s.hooks.RunAfterDebit(ctx, t); err != nil {
			return aborted("after debit", err)
		}

		tag, err = tx.Exec(ctx, creditSQL, t.Amount, t.To)
		if err != nil {
			if isPgError(err, pgErrOutOfRange) {
				return domain.ErrBalanceOverflow
			}
			return aborted("credit", err)
		}
		if tag.RowsAffected() != 1 {
			return aborted("credit", domain.ErrAccountNotFound)
		}

		return nil
	})
}

// Delete removes the account owned by ownerID if its balance is zero.
func (s *LedgerStore) Delete(ctx context.Context, ownerID string) error {
	return s.inTx(ctx, wrapStep, func(tx pgx.Tx) error {
		var balance int64
		if err := tx.QueryRow(ctx, lockOwnerSQL, ownerID).Scan(&balance); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("lock owner: %w", err)
		}

		if balance != 0 {
			return domain.ErrAccountNotEmpty
		}

		if _, err := tx.Exec(ctx, deleteOwnerSQL, ownerID); err != nil {
			return fmt.Errorf("delete owner: %w", err)
		}

		return nil
	})
}

// inTx runs fn in a transaction, committing on nil and rolling back otherwise.
// Locks are released by the commit or the rollback, never before.
func (s *LedgerStore) inTx(ctx context.Context, wrap func(step string, err error) error, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrap("begin", err)
	}

	if err := fn(tx); err != nil {
		// rollback must reach the server even if ctx is already done
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrap("commit", err)
	}

	return nil
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func aborted(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrTransferAborted, step, err)
}

func wrapStep(step string, err error) error {
	return fmt.Errorf("%s: %w", step, err)
}
