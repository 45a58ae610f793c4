package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/apperr"
)

// CalendarRepository keeps shards keyed "{propertyId}_{YYYY-MM}". One mutex
// makes every call's batch atomic.
type CalendarRepository struct {
	mu     sync.RWMutex
	shards map[string]*calendar.Shard
	writes int
	now    func() time.Time
	// failWith is returned by the next mutating call, for tests.
	failWith error
}

func NewCalendarRepository() *CalendarRepository {
	return &CalendarRepository{shards: make(map[string]*calendar.Shard), now: time.Now}
}

// Writes counts shard documents written so far.
func (r *CalendarRepository) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

// FailNextWrite makes the next mutating call fail with a storage error.
func (r *CalendarRepository) FailNextWrite(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

func (r *CalendarRepository) ReadShards(ctx context.Context, propertyID calendar.PropertyID, months []calendar.Month) (map[calendar.Month]*calendar.Shard, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Storage("memory.ReadShards", err, true)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.read(propertyID, months), nil
}

func (r *CalendarRepository) read(propertyID calendar.PropertyID, months []calendar.Month) map[calendar.Month]*calendar.Shard {
	out := make(map[calendar.Month]*calendar.Shard, len(months))
	for _, m := range months {
		if s, ok := r.shards[calendar.ShardKey(propertyID, m)]; ok {
			out[m] = s.Clone()
		}
	}
	return out
}

func (r *CalendarRepository) ApplyNightChanges(ctx context.Context, propertyID calendar.PropertyID, changes []calendar.NightChange) error {
	const op = "memory.ApplyNightChanges"
	return r.mutate(ctx, op, func() error {
		months := monthsOfChanges(changes)
		writes, err := calendar.PlanChanges(propertyID, r.read(propertyID, months), changes)
		if err != nil {
			return apperr.Validation(op, err)
		}
		r.commit(writes)
		return nil
	})
}

func (r *CalendarRepository) ClaimNights(ctx context.Context, propertyID calendar.PropertyID, dates []time.Time, holdID string) error {
	const op = "memory.ClaimNights"
	return r.mutate(ctx, op, func() error {
		writes, err := calendar.PlanClaim(propertyID, r.read(propertyID, calendar.MonthsSpanning(dates)), dates, holdID)
		if err != nil {
			return classifyPlanError(op, err)
		}
		r.commit(writes)
		return nil
	})
}

func (r *CalendarRepository) ReleaseNights(ctx context.Context, propertyID calendar.PropertyID, dates []time.Time, holdID string) error {
	const op = "memory.ReleaseNights"
	return r.mutate(ctx, op, func() error {
		writes, err := calendar.PlanRelease(propertyID, r.read(propertyID, calendar.MonthsSpanning(dates)), dates, holdID)
		if err != nil {
			return classifyPlanError(op, err)
		}
		r.commit(writes)
		return nil
	})
}

func (r *CalendarRepository) HeldNights(ctx context.Context, propertyID calendar.PropertyID) ([]calendar.HeldNight, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Storage("memory.HeldNights", err, true)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.shards))
	for k, s := range r.shards {
		if propertyID == "" || s.PropertyID == propertyID {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var out []calendar.HeldNight
	for _, k := range keys {
		out = append(out, r.shards[k].HeldNights()...)
	}
	return out, nil
}

func (r *CalendarRepository) mutate(ctx context.Context, op string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return apperr.Storage(op, err, true)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		err := r.failWith
		r.failWith = nil
		return apperr.Storage(op, err, true)
	}
	return fn()
}

func (r *CalendarRepository) commit(writes []calendar.ShardWrite) {
	now := r.now()
	for _, w := range writes {
		key := w.Key()
		r.shards[key] = calendar.Apply(r.shards[key], w, now)
		r.writes++
	}
}

func monthsOfChanges(changes []calendar.NightChange) []calendar.Month {
	dates := make([]time.Time, 0, len(changes))
	for _, c := range changes {
		dates = append(dates, c.Date)
	}
	return calendar.MonthsSpanning(dates)
}

func classifyPlanError(op string, err error) error {
	var unavailable *calendar.UnavailableError
	if errors.As(err, &unavailable) {
		return apperr.Conflict(op, err)
	}
	return apperr.Validation(op, err)
}

var _ calendar.Repository = (*CalendarRepository)(nil)
