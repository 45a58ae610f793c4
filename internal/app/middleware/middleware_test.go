package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/apperr"
)

type result struct {
	ID string `json:"id"`
}

type holdCmd struct {
	Name string `validate:"required"`
	key  string
}

func (c holdCmd) Key() string            { return "test.hold" }
func (c holdCmd) IdempotencyKey() string { return c.key }
func (c holdCmd) ResultPrototype() any   { return &result{} }
func (c holdCmd) Retryable() bool        { return true }

type mapStore struct {
	items map[string]IdempotencyRecord
}

func (s *mapStore) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *mapStore) Save(ctx context.Context, rec IdempotencyRecord) error {
	s.items[rec.Key] = rec
	return nil
}

type scriptedBus struct {
	calls   int
	results []error
}

func (b *scriptedBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.calls++
	if len(b.results) > 0 {
		err := b.results[0]
		b.results = b.results[1:]
		if err != nil {
			return nil, err
		}
	}
	return &result{ID: "b1"}, nil
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	bus := &scriptedBus{}
	store := &mapStore{items: map[string]IdempotencyRecord{}}
	chain := ChainCommands(bus, Idempotency(store, nil))

	for i := 0; i < 3; i++ {
		res, err := chain.Dispatch(context.Background(), holdCmd{Name: "a", key: "k1"})
		if err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
		if got := res.(*result); got.ID != "b1" {
			t.Fatalf("dispatch %d returned %+v", i, got)
		}
	}
	if bus.calls != 1 {
		t.Fatalf("handler ran %d times", bus.calls)
	}
}

func TestIdempotencyReplaysClassifiedFailure(t *testing.T) {
	bus := &scriptedBus{results: []error{apperr.Coupon("op", "expired", errors.New("coupon expired"))}}
	store := &mapStore{items: map[string]IdempotencyRecord{}}
	chain := ChainCommands(bus, Idempotency(store, nil))

	_, first := chain.Dispatch(context.Background(), holdCmd{Name: "a", key: "k1"})
	_, second := chain.Dispatch(context.Background(), holdCmd{Name: "a", key: "k1"})
	if bus.calls != 1 {
		t.Fatalf("handler ran %d times", bus.calls)
	}
	if !apperr.Is(second, apperr.KindCoupon) || apperr.ReasonOf(second) != "expired" {
		t.Fatalf("replayed err = %v (first %v)", second, first)
	}
}

func TestIdempotencyReplaysContestedNights(t *testing.T) {
	night := time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC)
	bus := &scriptedBus{results: []error{
		apperr.Conflict("holds.Place", &calendar.UnavailableError{PropertyID: "p1", Dates: []time.Time{night}}),
	}}
	store := &mapStore{items: map[string]IdempotencyRecord{}}
	chain := ChainCommands(bus, Idempotency(store, nil))

	for i := 0; i < 2; i++ {
		_, err := chain.Dispatch(context.Background(), holdCmd{Name: "a", key: "k1"})
		var unavailable *calendar.UnavailableError
		if !apperr.Is(err, apperr.KindConflict) || !errors.As(err, &unavailable) {
			t.Fatalf("dispatch %d err = %v", i, err)
		}
		if unavailable.PropertyID != "p1" || len(unavailable.Dates) != 1 || !unavailable.Dates[0].Equal(night) {
			t.Fatalf("dispatch %d nights = %+v", i, unavailable)
		}
		if !errors.Is(err, calendar.ErrNightsUnavailable) {
			t.Fatalf("dispatch %d lost the sentinel: %v", i, err)
		}
	}
	if bus.calls != 1 {
		t.Fatalf("handler ran %d times", bus.calls)
	}
}

func TestIdempotencySkipsTransientFailures(t *testing.T) {
	bus := &scriptedBus{results: []error{apperr.Storage("op", errors.New("timeout"), true)}}
	store := &mapStore{items: map[string]IdempotencyRecord{}}
	chain := ChainCommands(bus, Idempotency(store, nil))

	if _, err := chain.Dispatch(context.Background(), holdCmd{Name: "a", key: "k1"}); !apperr.IsTransient(err) {
		t.Fatalf("err = %v", err)
	}
	if len(store.items) != 0 {
		t.Fatal("transient failure was recorded")
	}
	if _, err := chain.Dispatch(context.Background(), holdCmd{Name: "a", key: "k1"}); err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if bus.calls != 2 {
		t.Fatalf("handler ran %d times", bus.calls)
	}
}

func TestRetryStopsOnPermanentErrors(t *testing.T) {
	transient := apperr.Storage("op", errors.New("timeout"), true)
	cases := []struct {
		name      string
		results   []error
		wantCalls int
		wantErr   bool
	}{
		{"recovers", []error{transient, transient}, 3, false},
		{"gives up", []error{transient, transient, transient}, 3, true},
		{"permanent", []error{apperr.Conflict("op", errors.New("taken"))}, 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &scriptedBus{results: tc.results}
			chain := ChainCommands(bus, Retry(RetryPolicy{Backoff: []time.Duration{time.Millisecond, time.Millisecond}}))
			_, err := chain.Dispatch(context.Background(), holdCmd{Name: "a"})
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v", err)
			}
			if bus.calls != tc.wantCalls {
				t.Fatalf("calls = %d, want %d", bus.calls, tc.wantCalls)
			}
		})
	}
}

func TestValidationRejectsBeforeHandler(t *testing.T) {
	bus := &scriptedBus{}
	chain := ChainCommands(bus, Validation(NewStructValidator()))
	_, err := chain.Dispatch(context.Background(), holdCmd{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v", err)
	}
	if bus.calls != 0 {
		t.Fatal("handler ran for an invalid command")
	}
}
