package schedule

import (
	"context"
	"time"
)

const TaskExpireHold = "hold:expire"

// Scheduler runs a named task with payload at runAt.
type Scheduler interface {
	Schedule(ctx context.Context, name string, payload any, runAt time.Time) error
}

type ExpireHoldPayload struct {
	BookingID string    `json:"booking_id"`
	Deadline  time.Time `json:"deadline"`
}

// TaskID makes one expiry task per booking and deadline.
func (p ExpireHoldPayload) TaskID() string {
	return TaskExpireHold + ":" + p.BookingID + ":" + p.Deadline.UTC().Format("20060102T150405")
}
