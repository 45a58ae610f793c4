package holds

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rentalspot/internal/domain/booking"
)

var ErrSweeperNotConfigured = errors.New("holds: sweeper missing dependencies")

type SweepReport struct {
	Expired   int
	Completed int
	Failed    int
}

// Sweeper periodically releases bookings past their deadline and completes
// stays that have ended.
type Sweeper struct {
	Manager    *Manager
	Bookings   booking.Repository
	Reconciler *Reconciler
	Interval   time.Duration
	Logger     *slog.Logger
}

func (s *Sweeper) Run(ctx context.Context) error {
	if s.Manager == nil || s.Bookings == nil {
		return ErrSweeperNotConfigured
	}
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	report, err := s.SweepOnce(ctx)
	if err != nil {
		s.log().Error("sweep failed", "error", err)
	} else if report.Expired+report.Completed+report.Failed > 0 {
		s.log().Info("sweep finished", "expired", report.Expired, "completed", report.Completed, "failed", report.Failed)
	}
	if s.Reconciler == nil {
		return
	}
	rec, err := s.Reconciler.Reconcile(ctx)
	if err != nil {
		s.log().Error("reconcile failed", "error", err)
		return
	}
	if rec.Changed() {
		s.log().Info("reconcile repaired calendar", "reclaimed", rec.Reclaimed, "cancelled", rec.Cancelled, "released", rec.ReleasedNights)
	}
}

// SweepOnce runs one pass. Per-booking failures are counted and do not stop
// the pass.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := s.Manager.now()
	expired, err := s.Bookings.ListExpired(ctx, now)
	if err != nil {
		return report, err
	}
	for _, b := range expired {
		ok, err := s.Manager.ExpireHold(ctx, b.ID)
		if err != nil {
			report.Failed++
			s.log().Warn("expire hold failed", "booking_id", b.ID, "error", err)
			continue
		}
		if ok {
			report.Expired++
		}
	}

	confirmed, err := s.Bookings.ListByStatus(ctx, booking.StatusConfirmed)
	if err != nil {
		return report, err
	}
	for _, b := range confirmed {
		if now.Before(b.Range.CheckOut) {
			continue
		}
		ok, err := s.Manager.Complete(ctx, b.ID)
		if err != nil {
			report.Failed++
			s.log().Warn("complete booking failed", "booking_id", b.ID, "error", err)
			continue
		}
		if ok {
			report.Completed++
		}
	}
	return report, nil
}

func (s *Sweeper) interval() time.Duration {
	if s.Interval <= 0 {
		return time.Minute
	}
	return s.Interval
}

func (s *Sweeper) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}
