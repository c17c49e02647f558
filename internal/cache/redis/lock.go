package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// unlockLua deletes a lock key only if its value matches the caller's unique
// token. This prevents one holder from accidentally releasing another
// holder's lock after its TTL lapsed.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

const (
	// defaultLockTTL bounds how long a crashed holder can wedge a key.
	defaultLockTTL = 30 * time.Second
	// defaultAcquireTimeout bounds how long WithLock waits on contention
	// before reporting the retryable busy condition.
	defaultAcquireTimeout = 3 * time.Second
	// acquirePollInterval is the retry cadence while a key is contended.
	acquirePollInterval = 25 * time.Millisecond
)

// LockManager implements domain.LockManager using Redis SETNX with a TTL and
// a Lua-based conditional unlock. It serializes actors across processes, not
// just goroutines.
type LockManager struct {
	rdb            *redis.Client
	unlockSc       *redis.Script
	ttl            time.Duration
	acquireTimeout time.Duration
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:            c.Underlying(),
		unlockSc:       redis.NewScript(unlockLua),
		ttl:            defaultLockTTL,
		acquireTimeout: defaultAcquireTimeout,
	}
}

// WithTimeouts overrides the lock TTL and acquisition timeout.
func (lm *LockManager) WithTimeouts(ttl, acquireTimeout time.Duration) *LockManager {
	if ttl > 0 {
		lm.ttl = ttl
	}
	if acquireTimeout > 0 {
		lm.acquireTimeout = acquireTimeout
	}
	return lm
}

func lockKey(key string) string {
	return "lock:" + key
}

// TradeLockKey returns the canonical lock key for a participant pair. The
// pair is sorted so any two trades sharing the same two participants map to
// the same key regardless of proposal order.
func TradeLockKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return "trade:" + a + ":" + b
}

// Acquire attempts to obtain the lock for key with the given TTL. On success
// it returns an unlock function that must be called to release the lock; the
// unlock function is safe to call multiple times.
//
// It returns domain.ErrLockHeld if the lock is held by another party.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := lockKey(key)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true

		// Use a background context so unlock succeeds even if the caller's
		// context is already cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = lm.unlockSc.Run(unlockCtx, lm.rdb, []string{lk}, token).Err()
	}

	return unlock, nil
}

// WithLock runs fn holding exclusive ownership of key. Contended keys are
// polled until the acquisition timeout; the lock is released on every exit
// path, including panics in fn. A timeout maps to domain.ErrLockBusy, which
// callers treat as retryable, not fatal.
func (lm *LockManager) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	deadline := time.Now().Add(lm.acquireTimeout)

	var unlock func()
	for {
		var err error
		unlock, err = lm.Acquire(ctx, key, lm.ttl)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("redis: lock %s: %w", key, domain.ErrLockBusy)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("redis: lock %s: %w", key, ctx.Err())
		case <-time.After(acquirePollInterval):
		}
	}

	defer unlock()
	return fn(ctx)
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
