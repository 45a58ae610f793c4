package memory

import (
	"context"
	"sync"
	"time"

	"rentalspot/internal/app/policies"
)

// Locker is an in-process keyed mutex. Leases expire after ttl so a crashed
// holder cannot block a property forever.
type Locker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocker() *Locker {
	return &Locker{slots: make(map[string]chan struct{})}
}

func (l *Locker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (policies.Unlock, error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, policies.ErrLockNotAcquired
	}
	var once sync.Once
	release := func() { once.Do(func() { <-ch }) }
	timer := time.AfterFunc(ttl, release)
	return func(context.Context) error {
		timer.Stop()
		release()
		return nil
	}, nil
}

var _ policies.Locker = (*Locker)(nil)
