package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"rentalspot/internal/app/schedule"
	"rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/shared/apperr"
)

type expirerFunc func(ctx context.Context, id booking.BookingID) (bool, error)

func (f expirerFunc) ExpireHold(ctx context.Context, id booking.BookingID) (bool, error) {
	return f(ctx, id)
}

func TestNewTaskCarriesStableID(t *testing.T) {
	deadline := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	task, opts, err := NewTask(schedule.TaskExpireHold, schedule.ExpireHoldPayload{BookingID: "b1", Deadline: deadline}, deadline.Add(time.Second), "", 3)
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	if task.Type() != schedule.TaskExpireHold {
		t.Fatalf("type = %s", task.Type())
	}
	var id string
	for _, o := range opts {
		if o.Type() == asynq.TaskIDOpt {
			id = o.Value().(string)
		}
	}
	if id != "hold:expire:b1:20250701T120000" {
		t.Fatalf("task id = %q", id)
	}
}

func TestExpireHoldHandlerRetriesOnlyTransientFailures(t *testing.T) {
	payload := []byte(`{"booking_id":"b1","deadline":"2025-07-01T12:00:00Z"}`)
	cases := []struct {
		name      string
		err       error
		wantErr   bool
		wantRetry bool
	}{
		{"expired", nil, false, false},
		{"missing", apperr.NotFound("test", booking.ErrBookingNotFound), true, false},
		{"storage", apperr.Storage("test", errors.New("timeout"), true), true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got booking.BookingID
			h := ExpireHoldHandler(expirerFunc(func(ctx context.Context, id booking.BookingID) (bool, error) {
				got = id
				return tc.err == nil, tc.err
			}), nil)
			err := h(context.Background(), asynq.NewTask(schedule.TaskExpireHold, payload))
			if got != "b1" {
				t.Fatalf("booking id = %q", got)
			}
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v", err)
			}
			if err != nil && errors.Is(err, asynq.SkipRetry) == tc.wantRetry {
				t.Fatalf("retry mismatch: %v", err)
			}
		})
	}
}

func TestExpireHoldHandlerSkipsBadPayload(t *testing.T) {
	h := ExpireHoldHandler(expirerFunc(func(context.Context, booking.BookingID) (bool, error) {
		t.Fatal("expirer must not be called")
		return false, nil
	}), nil)
	err := h(context.Background(), asynq.NewTask(schedule.TaskExpireHold, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v", err)
	}
}
