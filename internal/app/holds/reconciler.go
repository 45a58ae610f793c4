package holds

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/daterange"
)

type ReconcileReport struct {
	Reclaimed      int
	Cancelled      int
	Expired        int
	ReleasedNights int
}

func (r ReconcileReport) Changed() bool {
	return r.Reclaimed+r.Cancelled+r.Expired+r.ReleasedNights > 0
}

// Reconciler repairs the two-step gap between booking records and calendar
// claims. Bookings are always written before their nights are claimed, so a
// claimed night without a live booking is safe to free.
type Reconciler struct {
	Manager  *Manager
	Bookings booking.Repository
	Calendar calendar.Repository
	Logger   *slog.Logger
}

func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	if err := r.reclaimActive(ctx, &report); err != nil {
		return report, err
	}
	if err := r.releaseOrphans(ctx, &report); err != nil {
		return report, err
	}
	return report, nil
}

// reclaimActive makes sure every live booking owns all of its future nights.
func (r *Reconciler) reclaimActive(ctx context.Context, report *ReconcileReport) error {
	active, err := r.Bookings.ListByStatus(ctx, booking.StatusPending, booking.StatusOnHold, booking.StatusConfirmed)
	if err != nil {
		return err
	}
	now := r.Manager.now()
	today := daterange.Day(now)
	for _, b := range active {
		if !b.Range.CheckOut.After(today) {
			continue
		}
		if b.IsExpired(now) {
			ok, err := r.Manager.ExpireHold(ctx, b.ID)
			if err != nil {
				r.warn("reconcile expire failed", b.ID, err)
				continue
			}
			if ok {
				report.Expired++
			}
			continue
		}
		outcome, err := r.Manager.reclaim(ctx, b.ID)
		if err != nil {
			r.warn("reconcile reclaim failed", b.ID, err)
			continue
		}
		switch outcome {
		case reclaimed:
			report.Reclaimed++
		case cancelled:
			report.Cancelled++
		}
	}
	return nil
}

// releaseOrphans frees nights held by ids whose booking is missing, cancelled
// or failed.
func (r *Reconciler) releaseOrphans(ctx context.Context, report *ReconcileReport) error {
	held, err := r.Calendar.HeldNights(ctx, "")
	if err != nil {
		return err
	}
	type holder struct {
		property calendar.PropertyID
		id       string
	}
	groups := map[holder][]time.Time{}
	for _, n := range held {
		k := holder{property: n.PropertyID, id: n.HoldID}
		groups[k] = append(groups[k], n.Date)
	}
	keys := make([]holder, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].property != keys[j].property {
			return keys[i].property < keys[j].property
		}
		return keys[i].id < keys[j].id
	})

	for _, k := range keys {
		b, err := r.Bookings.ByID(ctx, booking.BookingID(k.id))
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
		case err != nil:
			return err
		case b.Status == booking.StatusCancelled || b.Status == booking.StatusPaymentFailed:
		default:
			continue
		}
		n, err := r.Manager.releaseOrphan(ctx, k.property, k.id, groups[k])
		if err != nil {
			r.warn("reconcile release failed", booking.BookingID(k.id), err)
			continue
		}
		report.ReleasedNights += n
	}
	return nil
}

func (r *Reconciler) warn(msg string, id booking.BookingID, err error) {
	if r.Logger != nil {
		r.Logger.Warn(msg, "booking_id", id, "error", err)
	}
}

type reclaimOutcome int

const (
	intact reclaimOutcome = iota
	reclaimed
	cancelled
)

// reclaim re-asserts a live booking's claim; when another holder took the
// nights meanwhile the booking is cancelled.
func (m *Manager) reclaim(ctx context.Context, id booking.BookingID) (reclaimOutcome, error) {
	b, err := m.load(ctx, id)
	if err != nil {
		return intact, err
	}
	unlock, err := m.lock(ctx, b.PropertyID)
	if err != nil {
		return intact, err
	}
	defer unlock()
	if b, err = m.load(ctx, id); err != nil {
		return intact, err
	}
	if !b.Status.ClaimsNights() {
		return intact, nil
	}

	dates := b.Range.Dates()
	shards, err := m.Calendar.ReadShards(ctx, b.PropertyID, calendar.MonthsSpanning(dates))
	if err != nil {
		return intact, err
	}
	missing := false
	for _, d := range dates {
		if calendar.Lookup(shards, d).HoldID != string(b.ID) {
			missing = true
			break
		}
	}
	if !missing {
		return intact, nil
	}

	err = m.Calendar.ClaimNights(ctx, b.PropertyID, dates, string(b.ID))
	var unavailable *calendar.UnavailableError
	switch {
	case err == nil:
		m.publish(ctx, calendar.NightsClaimed{PropertyID: string(b.PropertyID), HoldID: string(b.ID), Range: b.Range, At: m.now()})
		return reclaimed, nil
	case errors.As(err, &unavailable):
		m.publish(ctx, calendar.OverbookingPrevented{PropertyID: string(b.PropertyID), Range: b.Range, Contested: unavailable.Dates, At: m.now()})
		if err := b.Cancel(ReasonReconcileConflict, m.now()); err != nil {
			return intact, err
		}
		if err := m.Bookings.Save(ctx, b); err != nil {
			return intact, err
		}
		m.publish(ctx, b.Drain()...)
		return cancelled, m.release(ctx, b, ReasonReconcileConflict)
	default:
		return intact, err
	}
}

func (m *Manager) releaseOrphan(ctx context.Context, propertyID calendar.PropertyID, holdID string, dates []time.Time) (int, error) {
	unlock, err := m.lock(ctx, propertyID)
	if err != nil {
		return 0, err
	}
	defer unlock()
	if err := m.Calendar.ReleaseNights(ctx, propertyID, dates, holdID); err != nil {
		return 0, err
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	span := daterange.DateRange{CheckIn: dates[0], CheckOut: dates[len(dates)-1].AddDate(0, 0, 1)}
	m.publish(ctx, calendar.NightsReleased{PropertyID: string(propertyID), HoldID: holdID, Range: span, Reason: ReasonOrphaned, At: m.now()})
	if m.Logger != nil {
		m.Logger.Info("orphaned nights released", "property_id", propertyID, "hold_id", holdID, "nights", len(dates))
	}
	return len(dates), nil
}
