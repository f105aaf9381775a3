// Package storetest holds the behavioural suite every LedgerStore
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cardbank/internal/domain"
	"github.com/iho/cardbank/internal/usecase"
)

// Factory returns an empty store with the given hooks installed.
type Factory func(t *testing.T, hooks domain.TransferHooks) usecase.LedgerStore

// Options tunes the suite for slower backends.
type Options struct {
	// Workers is the number of concurrent goroutines in contention tests.
	Workers int
	// Deadline bounds every concurrent scenario; exceeding it is reported as a hang.
	Deadline time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 20
	}
	if o.Deadline <= 0 {
		o.Deadline = 30 * time.Second
	}
	return o
}

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory, opts Options) {
	opts = opts.withDefaults()

	t.Run("create rejects duplicate card number", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, domain.TransferHooks{})

		open(t, store, "owner-a", CardA, 0)

		err := store.Create(ctx, &domain.Account{OwnerID: "owner-b", Number: CardA, PIN: "0000"})
		require.ErrorIs(t, err, domain.ErrDuplicateIdentifier)
	})

	t.Run("get unknown card", func(t *testing.T) {
		store := newStore(t, domain.TransferHooks{})

		_, err := store.GetByNumber(context.Background(), CardA)
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
	})

	t.Run("deposit increments balance", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, domain.TransferHooks{})

		open(t, store, "owner-a", CardA, 30)
		require.NoError(t, store.Deposit(ctx, CardA, 12))
		assert.Equal(t, int64(42), balance(t, store, CardA))

		require.ErrorIs(t, store.Deposit(ctx, CardB, 1), domain.ErrAccountNotFound)
	})

	t.Run("transfer moves money", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, domain.TransferHooks{})

		open(t, store, "owner-a", CardA, 100)
		open(t, store, "owner-b", CardB, 5)

		require.NoError(t, store.Transfer(ctx, transfer(CardA, CardB, 40)))
		assert.Equal(t, int64(60), balance(t, store, CardA))
		assert.Equal(t, int64(45), balance(t, store, CardB))
	})

	t.Run("transfer to unknown card", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, domain.TransferHooks{})

		open(t, store, "owner-a", CardA, 100)

		require.ErrorIs(t, store.Transfer(ctx, transfer(CardA, CardB, 10)), domain.ErrAccountNotFound)
		require.ErrorIs(t, store.Transfer(ctx, transfer(CardB, CardA, 10)), domain.ErrAccountNotFound)
		assert.Equal(t, int64(100), balance(t, store, CardA))
	})

	t.Run("insufficient funds leaves balances untouched", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, domain.TransferHooks{})

		open(t, store, "owner-a", CardA, 9)
		open(t, store, "owner-b", CardB, 0)

		require.ErrorIs(t, store.Transfer(ctx, transfer(CardA, CardB, 10)), domain.ErrInsufficientFunds)
		assert.Equal(t, int64(9), balance(t, store, CardA))
		assert.Equal(t, int64(0), balance(t, store, CardB))
	})

	t.Run("credit never overflows the balance", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, domain.TransferHooks{})

		open(t, store, "owner-a", CardA, math.MaxInt64)
		open(t, store, "owner-b", CardB, 10)

		require.ErrorIs(t, store.Deposit(ctx, CardA, 1), domain.ErrBalanceOverflow)
		assert.Equal(t, int64(math.MaxInt64), balance(t, store, CardA))

		require.ErrorIs(t, store.Transfer(ctx, transfer(CardB, CardA, 5)), domain.ErrBalanceOverflow)
		assert.Equal(t, int64(math.MaxInt64), balance(t, store, CardA))
		assert.Equal(t, int64(10), balance(t, store, CardB))

		// the receiver can still be drained and refilled
		require.NoError(t, store.Transfer(ctx, transfer(CardA, CardB, 5)))
		require.NoError(t, store.Deposit(ctx, CardA, 5))
		assert.Equal(t, int64(math.MaxInt64), balance(t, store, CardA))
		assert.Equal(t, int64(15), balance(t, store, CardB))
	})

	t.Run("fault after debit rolls back", func(t *testing.T) {
		ctx := context.Background()
		injected := errors.New("injected fault")
		store := newStore(t, domain.TransferHooks{
			AfterDebit: func(context.Context, *domain.Transfer) error { return injected },
		})

		open(t, store, "owner-a", CardA, 10)
		open(t, store, "owner-b", CardB, 0)

		err := store.Transfer(ctx, transfer(CardA, CardB, 10))
		require.ErrorIs(t, err, domain.ErrTransferAborted)
		require.ErrorIs(t, err, injected)

		assert.Equal(t, int64(10), balance(t, store, CardA))
		assert.Equal(t, int64(0), balance(t, store, CardB))

		// the store stays usable after an aborted transfer
		require.NoError(t, store.Deposit(ctx, CardB, 1))
	})

	t.Run("serializable under contention", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, domain.TransferHooks{})

		const amount = 3
		k := opts.Workers

		open(t, store, "owner-a", CardA, int64(k*amount))
		open(t, store, "owner-b", CardB, 0)

		committed := race(t, opts, k, func(int) error {
			return store.Transfer(ctx, transfer(CardA, CardB, amount))
		})

		assert.Equal(t, int32(k), committed)
		assert.Equal(t, int64(0), balance(t, store, CardA))
		assert.Equal(t, int64(k*amount), balance(t, store, CardB))
	})

	t.Run("no double spend of a stale balance", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, domain.TransferHooks{
			AfterLock: func(context.Context, *domain.Transfer) error {
				time.Sleep(20 * time.Millisecond)
				return nil
			},
		})

		open(t, store, "owner-a", CardA, 10)
		open(t, store, "owner-b", CardB, 0)

		var insufficient atomic.Int32
		committed := race(t, opts, 2, func(int) error {
			err := store.Transfer(ctx, transfer(CardA, CardB, 10))
			if errors.Is(err, domain.ErrInsufficientFunds) {
				insufficient.Add(1)
				return nil
			}
			return err
		})

		assert.Equal(t, int32(1), committed-insufficient.Load())
		assert.Equal(t, int32(1), insufficient.Load())
		assert.Equal(t, int64(0), balance(t, store, CardA))
		assert.Equal(t, int64(10), balance(t, store, CardB))
	})

	t.Run("two receivers split the balance", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, domain.TransferHooks{})

		open(t, store, "owner-a", CardA, 20)
		open(t, store, "owner-b", CardB, 0)
		open(t, store, "owner-c", CardC, 0)

		receivers := []string{CardB, CardC}
		committed := race(t, opts, 2, func(i int) error {
			return store.Transfer(ctx, transfer(CardA, receivers[i], 10))
		})

		assert.Equal(t, int32(2), committed)
		assert.Equal(t, int64(0), balance(t, store, CardA))
		assert.Equal(t, int64(20), balance(t, store, CardB)+balance(t, store, CardC))
	})

	t.Run("opposite directions never deadlock", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, domain.TransferHooks{})

		open(t, store, "owner-a", CardA, 1000)
		open(t, store, "owner-b", CardB, 1000)

		committed := race(t, opts, opts.Workers*2, func(i int) error {
			if i%2 == 0 {
				return store.Transfer(ctx, transfer(CardA, CardB, 10))
			}
			return store.Transfer(ctx, transfer(CardB, CardA, 10))
		})

		assert.Equal(t, int32(opts.Workers*2), committed)
		assert.Equal(t, int64(1000), balance(t, store, CardA))
		assert.Equal(t, int64(1000), balance(t, store, CardB))
	})

	t.Run("conservation across a ring of accounts", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, domain.TransferHooks{})

		cards := []string{CardA, CardB, CardC, CardD}
		for i, card := range cards {
			open(t, store, fmt.Sprintf("owner-%d", i), card, 50)
		}

		race(t, opts, opts.Workers*2, func(i int) error {
			from := cards[i%len(cards)]
			to := cards[(i*3+1)%len(cards)]
			if from == to {
				to = cards[(i+1)%len(cards)]
			}
			err := store.Transfer(ctx, transfer(from, to, int64(i%7+1)))
			if errors.Is(err, domain.ErrInsufficientFunds) {
				return nil
			}
			return err
		})

		var total int64
		for _, card := range cards {
			b := balance(t, store, card)
			assert.GreaterOrEqual(t, b, int64(0), "card %s went negative", card)
			total += b
		}
		assert.Equal(t, int64(50*len(cards)), total)
	})

	t.Run("cancelled context aborts without mutation", func(t *testing.T) {
		release := make(chan struct{})
		entered := make(chan struct{})
		var once sync.Once
		store := newStore(t, domain.TransferHooks{
			AfterLock: func(context.Context, *domain.Transfer) error {
				once.Do(func() { close(entered) })
				<-release
				return nil
			},
		})

		ctx := context.Background()
		open(t, store, "owner-a", CardA, 10)
		open(t, store, "owner-b", CardB, 0)

		done := make(chan error, 1)
		go func() { done <- store.Transfer(ctx, transfer(CardA, CardB, 5)) }()
		<-entered

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		err := store.Transfer(waitCtx, transfer(CardB, CardA, 1))
		close(release)

		require.ErrorIs(t, err, domain.ErrTransferAborted)
		require.NoError(t, <-done)
		assert.Equal(t, int64(5), balance(t, store, CardA))
		assert.Equal(t, int64(5), balance(t, store, CardB))
	})

	t.Run("deposit waiting for a lock is not a transfer failure", func(t *testing.T) {
		release := make(chan struct{})
		entered := make(chan struct{})
		var once sync.Once
		store := newStore(t, domain.TransferHooks{
			AfterLock: func(context.Context, *domain.Transfer) error {
				once.Do(func() { close(entered) })
				<-release
				return nil
			},
		})

		ctx := context.Background()
		open(t, store, "owner-a", CardA, 10)
		open(t, store, "owner-b", CardB, 0)

		done := make(chan error, 1)
		go func() { done <- store.Transfer(ctx, transfer(CardA, CardB, 5)) }()
		<-entered

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		err := store.Deposit(waitCtx, CardA, 1)
		close(release)

		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrTransferAborted)
		require.NoError(t, <-done)
		assert.Equal(t, int64(5), balance(t, store, CardA))
	})

	t.Run("close requires zero balance", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t, domain.TransferHooks{})

		open(t, store, "owner-a", CardA, 10)
		open(t, store, "owner-b", CardB, 0)

		require.ErrorIs(t, store.Delete(ctx, "owner-a"), domain.ErrAccountNotEmpty)
		require.NoError(t, store.Transfer(ctx, transfer(CardA, CardB, 10)))
		require.NoError(t, store.Delete(ctx, "owner-a"))

		_, err := store.GetByNumber(ctx, CardA)
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
		require.ErrorIs(t, store.Transfer(ctx, transfer(CardB, CardA, 1)), domain.ErrAccountNotFound)
		require.ErrorIs(t, store.Delete(ctx, "owner-a"), domain.ErrAccountNotFound)
	})
}

// race runs n operations concurrently and returns how many returned nil.
// Any other error fails the test; not finishing within the deadline is a hang.
func race(t *testing.T, opts Options, n int, op func(i int) error) int32 {
	t.Helper()

	var (
		wg        sync.WaitGroup
		committed atomic.Int32
		start     = make(chan struct{})
		errs      = make(chan error, n)
	)

	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			<-start
			if err := op(i); err != nil {
				errs <- err
				return
			}
			committed.Add(1)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	close(start)

	select {
	case <-done:
	case <-time.After(opts.Deadline):
		t.Fatalf("concurrent transfers did not finish within %s", opts.Deadline)
	}

	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	return committed.Load()
}
