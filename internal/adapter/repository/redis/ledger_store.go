package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/iho/cardbank/internal/domain"
)

const (
	fieldOwner   = "owner"
	fieldPIN     = "pin"
	fieldBalance = "balance"

	defaultPrefix  = "cardbank:"
	defaultLockTTL = 30 * time.Second
)

// LedgerStore implements usecase.LedgerStore on Redis.
//
// Each card is a hash. Writers hold per-card locks taken in card number
// order and publish all balance changes in a single MULTI/EXEC, watching
// the touched hashes so a lost lock turns into an aborted transaction.
type LedgerStore struct {
	client *redis.Client
	prefix string
	locks  *locker
	hooks  domain.TransferHooks
}

// Option configures a LedgerStore.
type Option func(*LedgerStore)

// WithHooks installs transfer hooks.
func WithHooks(hooks domain.TransferHooks) Option {
	return func(s *LedgerStore) {
		s.hooks = hooks
	}
}

// WithKeyPrefix namespaces every key written by the store.
func WithKeyPrefix(prefix string) Option {
	return func(s *LedgerStore) {
		s.prefix = prefix
	}
}

// WithLockTTL sets how long a row lock survives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *LedgerStore) {
		if ttl > 0 {
			s.locks.ttl = ttl
		}
	}
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(client *redis.Client, opts ...Option) *LedgerStore {
	s := &LedgerStore{
		client: client,
		prefix: defaultPrefix,
		locks: &locker{
			client:          client,
			ttl:             defaultLockTTL,
			initialInterval: 2 * time.Millisecond,
			maxInterval:     50 * time.Millisecond,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.locks.prefix = s.prefix + "lock:"

	return s
}

func (s *LedgerStore) cardKey(number string) string {
	return s.prefix + "card:" + number
}

func (s *LedgerStore) ownerKey(ownerID string) string {
	return s.prefix + "owner:" + ownerID
}

// Create inserts a new account.
func (s *LedgerStore) Create(ctx context.Context, account *domain.Account) error {
	cardKey := s.cardKey(account.Number)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, cardKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrDuplicateIdentifier
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, cardKey,
				fieldOwner, account.OwnerID,
				fieldPIN, account.PIN,
				fieldBalance, account.Balance,
			)
			p.Set(ctx, s.ownerKey(account.OwnerID), account.Number, 0)
			return nil
		})
		return err
	}, cardKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrDuplicateIdentifier), errors.Is(err, redis.TxFailedErr):
		// a concurrent create of the same number wins the watch
		return domain.ErrDuplicateIdentifier
	default:
		return fmt.Errorf("create card: %w", err)
	}
}

// GetByNumber retrieves an account by card number.
func (s *LedgerStore) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	fields, err := s.client.HGetAll(ctx, s.cardKey(number)).Result()
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrAccountNotFound
	}

	balance, err := strconv.ParseInt(fields[fieldBalance], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse balance of %s: %w", number, err)
	}

	return &domain.Account{
		OwnerID: fields[fieldOwner],
		Number:  number,
		PIN:     fields[fieldPIN],
		Balance: balance,
	}, nil
}

// Deposit atomically increments the balance.
func (s *LedgerStore) Deposit(ctx context.Context, number string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	unlock, err := s.lock(ctx, number, wrapStep("deposit"))
	if err != nil {
		return err
	}
	defer unlock()

	cardKey := s.cardKey(number)

	return s.watch(ctx, func(tx *redis.Tx) error {
		current, err := s.balance(ctx, tx, number)
		if err != nil {
			return err
		}

		account := domain.Account{Number: number, Balance: current}
		if err := account.ValidateCredit(amount); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HIncrBy(ctx, cardKey, fieldBalance, amount)
			return nil
		})
		return err
	}, cardKey)
}

// Transfer moves t.Amount from t.From to t.To.
func (s *LedgerStore) Transfer(ctx context.Context, t *domain.Transfer) error {
	if err := t.Validate(); err != nil {
		return err
	}

	for _, number := range t.LockOrder() {
		unlock, err := s.lock(ctx, number, aborted)
		if err != nil {
			return err
		}
		defer unlock()
	}

	if err := s.hooks.RunAfterLock(ctx, t); err != nil {
		return aborted("after lock", err)
	}

	fromKey, toKey := s.cardKey(t.From), s.cardKey(t.To)

	return s.watch(ctx, func(tx *redis.Tx) error {
		// read fresh inside the watch; nothing is cached across transfers
		fromBalance, err := s.balance(ctx, tx, t.From)
		if err != nil {
			return err
		}
		toBalance, err := s.balance(ctx, tx, t.To)
		if err != nil {
			return err
		}

		sender := domain.Account{Number: t.From, Balance: fromBalance}
		if err := sender.ValidateDebit(t.Amount); err != nil {
			return err
		}
		receiver := domain.Account{Number: t.To, Balance: toBalance}
		if err := receiver.ValidateCredit(t.Amount); err != nil {
			return err
		}

		// Commands queued in MULTI are discarded unless EXEC runs, so
		// returning before the credit rolls back the debit.
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HIncrBy(ctx, fromKey, fieldBalance, -t.Amount)

			if err := s.hooks.RunAfterDebit(ctx, t); err != nil {
				return aborted("after debit", err)
			}

			p.HIncrBy(ctx, toKey, fieldBalance, t.Amount)
			return nil
		})
		return err
	}, fromKey, toKey)
}

// Delete removes the account owned by ownerID if its balance is zero.
func (s *LedgerStore) Delete(ctx context.Context, ownerID string) error {
	ownerKey := s.ownerKey(ownerID)

	number, err := s.client.Get(ctx, ownerKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrAccountNotFound
		}
		return fmt.Errorf("get owner: %w", err)
	}

	unlock, err := s.lock(ctx, number, wrapStep("close"))
	if err != nil {
		return err
	}
	defer unlock()

	cardKey := s.cardKey(number)

	return s.watch(ctx, func(tx *redis.Tx) error {
		balance, err := s.balance(ctx, tx, number)
		if err != nil {
			return err
		}
		if balance != 0 {
			return domain.ErrAccountNotEmpty
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, cardKey, ownerKey)
			return nil
		})
		return err
	}, cardKey, ownerKey)
}

// lock takes the row lock of number and returns its release function.
// wrap decorates a failed acquisition.
func (s *LedgerStore) lock(ctx context.Context, number string, wrap func(step string, err error) error) (func(), error) {
	token, err := s.locks.acquire(ctx, number)
	if err != nil {
		return nil, wrap("lock "+number, err)
	}

	return func() {
		if err := s.locks.release(context.WithoutCancel(ctx), number, token); err != nil {
			log.Warn().Err(err).Str("card", number).Msg("failed to release card lock")
		}
	}, nil
}

// watch runs fn in an optimistic transaction over keys and maps redis
// failures to aborted transfers. Domain errors returned by fn pass through.
func (s *LedgerStore) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	err := s.client.Watch(ctx, fn, keys...)
	if err == nil {
		return nil
	}

	for _, domainErr := range []error{
		domain.ErrAccountNotFound,
		domain.ErrInsufficientFunds,
		domain.ErrAccountNotEmpty,
		domain.ErrInvalidAmount,
		domain.ErrBalanceOverflow,
		domain.ErrTransferAborted,
	} {
		if errors.Is(err, domainErr) {
			return err
		}
	}

	return aborted("exec", err)
}

func (s *LedgerStore) balance(ctx context.Context, tx *redis.Tx, number string) (int64, error) {
	balance, err := tx.HGet(ctx, s.cardKey(number), fieldBalance).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrAccountNotFound
		}
		return 0, err
	}

	return balance, nil
}

func aborted(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrTransferAborted, step, err)
}

func wrapStep(op string) func(step string, err error) error {
	return func(step string, err error) error {
		return fmt.Errorf("%s: %s: %w", op, step, err)
	}
}
