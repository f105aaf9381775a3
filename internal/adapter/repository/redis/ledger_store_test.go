package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cardbank/internal/adapter/repository/storetest"
	"github.com/iho/cardbank/internal/domain"
	"github.com/iho/cardbank/internal/usecase"
)

func TestLedgerStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, hooks domain.TransferHooks) usecase.LedgerStore {
		client, _ := newTestRedisClient(t)
		return NewLedgerStore(client, WithHooks(hooks))
	}, storetest.Options{Workers: 10})
}

func TestLedgerStore_KeyLayout(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestRedisClient(t)
	store := NewLedgerStore(client, WithKeyPrefix("test:"))

	require.NoError(t, store.Create(ctx, &domain.Account{
		OwnerID: "owner-a",
		Number:  storetest.CardA,
		PIN:     "1234",
		Balance: 7,
	}))

	assert.Equal(t, "owner-a", mr.HGet("test:card:"+storetest.CardA, fieldOwner))
	assert.Equal(t, "1234", mr.HGet("test:card:"+storetest.CardA, fieldPIN))
	assert.Equal(t, "7", mr.HGet("test:card:"+storetest.CardA, fieldBalance))

	number, err := mr.Get("test:owner:owner-a")
	require.NoError(t, err)
	assert.Equal(t, storetest.CardA, number)

	require.NoError(t, store.Deposit(ctx, storetest.CardA, 3))
	assert.False(t, mr.Exists("test:lock:"+storetest.CardA), "lock must be released after deposit")
}

func TestLedgerStore_CorruptBalance(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestRedisClient(t)
	store := NewLedgerStore(client)

	mr.HSet(defaultPrefix+"card:"+storetest.CardA, fieldOwner, "owner-a", fieldPIN, "0000", fieldBalance, "many")

	_, err := store.GetByNumber(ctx, storetest.CardA)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("release ignores foreign token", func(t *testing.T) {
		client, mr := newTestRedisClient(t)
		l := NewLedgerStore(client).locks

		_, err := l.acquire(ctx, "x")
		require.NoError(t, err)

		require.NoError(t, l.release(ctx, "x", "not-mine"))
		assert.True(t, mr.Exists(defaultPrefix+"lock:x"))
	})

	t.Run("expired lock can be taken again", func(t *testing.T) {
		client, mr := newTestRedisClient(t)
		l := NewLedgerStore(client, WithLockTTL(time.Second)).locks

		first, err := l.acquire(ctx, "x")
		require.NoError(t, err)

		mr.FastForward(2 * time.Second)

		second, err := l.acquire(ctx, "x")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		// the stale holder must not drop the new lock
		require.NoError(t, l.release(ctx, "x", first))
		assert.True(t, mr.Exists(defaultPrefix+"lock:x"))

		require.NoError(t, l.release(ctx, "x", second))
		assert.False(t, mr.Exists(defaultPrefix+"lock:x"))
	})

	t.Run("held lock times out with context", func(t *testing.T) {
		client, _ := newTestRedisClient(t)
		l := NewLedgerStore(client).locks

		_, err := l.acquire(ctx, "x")
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
		defer cancel()

		_, err = l.acquire(waitCtx, "x")
		require.Error(t, err)
	})
}
