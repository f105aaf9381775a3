package redis

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

var errLockBusy = errors.New("lock held by another owner")

// locker hands out exclusive, expiring row locks backed by SET NX PX.
type locker struct {
	client          *redis.Client
	prefix          string
	ttl             time.Duration
	initialInterval time.Duration
	maxInterval     time.Duration
}

// acquire blocks until the lock on name is taken or ctx is done.
// It returns the token needed to release the lock.
func (l *locker) acquire(ctx context.Context, name string) (string, error) {
	key := l.prefix + name
	token := ulid.Make().String()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.initialInterval
	b.MaxInterval = l.maxInterval
	b.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errLockBusy
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return "", err
	}

	return token, nil
}

// release deletes the lock only if it is still held with token.
func (l *locker) release(ctx context.Context, name, token string) error {
	key := l.prefix + name

	return l.client.Watch(ctx, func(tx *redis.Tx) error {
		held, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if held != token {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			return nil
		})
		return err
	}, key)
}
