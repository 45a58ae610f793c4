package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"rentalspot/internal/app/policies"
)

const (
	DefaultRetryInterval = 25 * time.Millisecond
	DefaultWaitTimeout   = 5 * time.Second
)

// releaseScript deletes the key only while it still carries our token, so an
// expired lease never frees a lock now owned by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a single-instance Redis lease lock: SET NX PX with a random token.
type Locker struct {
	client        *redis.Client
	RetryInterval time.Duration
	WaitTimeout   time.Duration
}

func New(client *redis.Client) *Locker {
	return &Locker{client: client, RetryInterval: DefaultRetryInterval, WaitTimeout: DefaultWaitTimeout}
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (policies.Unlock, error) {
	token := uuid.NewString()
	wait := l.WaitTimeout
	if wait <= 0 {
		wait = DefaultWaitTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	retry := l.RetryInterval
	if retry <= 0 {
		retry = DefaultRetryInterval
	}
	ticker := time.NewTicker(retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("redislock: acquire %s: %w", key, err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", policies.ErrLockNotAcquired, key)
		case <-ticker.C:
		}
	}
}

func (l *Locker) unlocker(key, token string) policies.Unlock {
	return func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redislock: release %s: %w", key, err)
		}
		return nil
	}
}

// Ping reports whether Redis answers.
func (l *Locker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

var _ policies.Locker = (*Locker)(nil)
