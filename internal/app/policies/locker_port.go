package policies

import (
	"context"
	"errors"
	"time"
)

var ErrLockNotAcquired = errors.New("policies: lock not acquired")

// Unlock releases a lock. It is safe to call after the lease expired.
type Unlock func(ctx context.Context) error

// Locker serializes the check-then-claim section for one property. Claims
// stay conditional, so an expired lease never produces a double booking.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (Unlock, error)
}

func PropertyLockKey(propertyID string) string {
	return "lock:property:" + propertyID
}
