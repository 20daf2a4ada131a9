package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrLockNotObtained means another writer held the lock for the whole wait.
var ErrLockNotObtained = errors.New("could not obtain lock")

// Locker hands out exclusive redis locks. It satisfies store.Locker.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewLocker returns nil when client is nil so callers can fall back to
// in-process locking.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Locker{
		client: redislock.New(client),
		ttl:    ttl,
		wait:   ttl,
	}
}

// Acquire blocks until key is held, the wait elapses or ctx is done. The lock
// is refreshed at half its TTL until released.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(100 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	stop := keepAlive(l.ttl/2, func(ctx context.Context) error {
		return lock.Refresh(ctx, l.ttl, nil)
	}, func(err error) {
		log.Warn().Err(err).Str("key", key).Msg("failed to refresh lock")
	})

	return func() {
		stop()
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Str("key", key).Msg("failed to release lock")
		}
	}, nil
}

// keepAlive calls refresh every interval until stop is called. A failed
// refresh is reported and ends the loop, since the lock is then lost.
func keepAlive(interval time.Duration, refresh func(context.Context) error, onErr func(error)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := refresh(ctx); err != nil {
					if ctx.Err() == nil {
						onErr(err)
					}
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
