package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AccountLocker serializes writers of the same key. Lock blocks until the key is
// free or ctx is done, and returns the function that releases it.
type AccountLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func accountLockKey(accountID string) string {
	return "account:" + accountID
}

func customerLockKey(customerID string) string {
	return "customer:" + customerID
}

// LocalAccountLocker is an in-process keyed mutex. It is enough when a single
// replica serves the accounts.
type LocalAccountLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	sem  chan struct{}
	refs int
}

// NewLocalAccountLocker creates an empty keyed mutex.
func NewLocalAccountLocker() *LocalAccountLocker {
	return &LocalAccountLocker{locks: make(map[string]*localLock)}
}

func (l *LocalAccountLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localLock{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.release(key, entry)
		})
	}, nil
}

func (l *LocalAccountLocker) release(key string, entry *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

// releaseLockScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another replica is never released by us.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLockClient is the part of the Redis client the locker uses.
// *redis.Client and redis.UniversalClient both satisfy it.
type RedisLockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// RedisAccountLocker implements distributed per-account locking using Redis so
// that every replica of the service shares the same single-writer discipline.
type RedisAccountLocker struct {
	client        RedisLockClient
	prefix        string
	ttl           time.Duration
	waitTimeout   time.Duration
	retryInterval time.Duration
	logger        *slog.Logger
}

func NewRedisAccountLocker(client RedisLockClient, prefix string, ttl time.Duration, logger *slog.Logger) *RedisAccountLocker {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "bankaccounts:lock"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")
	if ttl <= 0 {
		ttl = 15 * time.Second
	}

	return &RedisAccountLocker{
		client:        client,
		prefix:        trimmedPrefix,
		ttl:           ttl,
		waitTimeout:   10 * time.Second,
		retryInterval: 25 * time.Millisecond,
		logger:        logger,
	}
}

func (r *RedisAccountLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := fmt.Sprintf("%s:%s", r.prefix, key)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, r.waitTimeout)
	defer cancel()

	for {
		acquired, err := r.client.SetNX(waitCtx, lockKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", lockKey, err)
		}
		if acquired {
			break
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", lockKey, waitCtx.Err())
		case <-time.After(r.retryInterval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseLockScript.Run(releaseCtx, r.client, []string{lockKey}, token).Err(); err != nil {
				r.logger.Warn("failed to release account lock", "key", lockKey, "error", err)
			}
		})
	}, nil
}
