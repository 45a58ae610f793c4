package holds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rentalspot/internal/app/availability"
	"rentalspot/internal/app/outbox"
	"rentalspot/internal/app/policies"
	"rentalspot/internal/app/schedule"
	"rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/events"
	"rentalspot/internal/domain/shared/money"
)

const (
	DefaultLockTTL = 10 * time.Second

	ReasonDatesTaken        = "dates-unavailable"
	ReasonReconcileConflict = "reconcile-conflict"
	ReasonOrphaned          = "orphaned"
)

// Manager owns every transition that claims or frees nights. Each transition
// runs under the property lock and ends with a conditional calendar write.
type Manager struct {
	Calendar  calendar.Repository
	Bookings  booking.Repository
	Checker   *availability.Checker
	Locker    policies.Locker
	LockTTL   time.Duration
	Scheduler schedule.Scheduler
	Events    outbox.Recorder
	Logger    *slog.Logger
	Now       func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

// Place stores a new pending or on-hold booking and claims its nights. A
// conflicting request that finds expired or orphaned holders releases them
// first. When the claim loses a race the booking is cancelled and a conflict
// is returned. When the claim fails for storage reasons the booking is left in
// place for reconciliation.
func (m *Manager) Place(ctx context.Context, b *booking.Booking) error {
	const op = "holds.Place"
	unlock, err := m.lock(ctx, b.PropertyID)
	if err != nil {
		return err
	}
	defer unlock()

	res, err := m.Checker.Check(ctx, b.PropertyID, b.Range)
	if err != nil {
		return err
	}
	if !res.IsAvailable && len(res.Holders) > 0 {
		freed, err := m.releaseStale(ctx, res)
		if err != nil {
			return err
		}
		if freed {
			if res, err = m.Checker.Check(ctx, b.PropertyID, b.Range); err != nil {
				return err
			}
		}
	}
	if !res.IsAvailable {
		unavailable := &calendar.UnavailableError{PropertyID: b.PropertyID, Dates: res.UnavailableDates}
		m.publish(ctx, calendar.OverbookingPrevented{PropertyID: string(b.PropertyID), Range: b.Range, Contested: res.UnavailableDates, At: m.now()})
		return apperr.Conflict(op, unavailable)
	}

	if err := m.Bookings.Save(ctx, b); err != nil {
		return err
	}
	if err := m.Calendar.ClaimNights(ctx, b.PropertyID, b.Range.Dates(), string(b.ID)); err != nil {
		var unavailable *calendar.UnavailableError
		if errors.As(err, &unavailable) {
			m.abandon(ctx, b, unavailable)
			return apperr.Conflict(op, unavailable)
		}
		m.warn("claim failed, booking left for reconciliation", b, err)
		return err
	}

	m.publish(ctx, calendar.NightsClaimed{PropertyID: string(b.PropertyID), HoldID: string(b.ID), Range: b.Range, At: m.now()})
	m.publish(ctx, b.Drain()...)
	m.scheduleExpiry(ctx, b)
	return nil
}

// Confirm records payment. A zero-currency amount means the quoted total.
// Replays with the same reference are no-ops. Payments after the hold or
// payment deadline are refused even before the sweep releases the nights.
// The nights are re-claimed under the booking id, which is a no-op while the
// claim is intact and restores it if reconciliation freed it.
func (m *Manager) Confirm(ctx context.Context, id booking.BookingID, paymentReference string, amount money.Money) (*booking.Booking, error) {
	const op = "holds.Confirm"
	b, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == booking.StatusConfirmed && b.PaymentReference == paymentReference {
		return b, nil
	}
	unlock, err := m.lock(ctx, b.PropertyID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if b, err = m.load(ctx, id); err != nil {
		return nil, err
	}

	if amount.Currency == "" && b.Pricing != nil {
		amount = b.Pricing.Total
	}

	switch b.Status {
	case booking.StatusPending, booking.StatusOnHold:
	case booking.StatusConfirmed:
		if b.PaymentReference == paymentReference {
			return b, nil
		}
		return nil, apperr.Conflict(op, fmt.Errorf("%w: already confirmed with another payment", booking.ErrInvalidState))
	default:
		return nil, apperr.Conflict(op, fmt.Errorf("%w: booking is %s", booking.ErrInvalidState, b.Status))
	}
	if b.IsExpired(m.now()) {
		return nil, apperr.Conflict(op, fmt.Errorf("%w: deadline was %s", booking.ErrHoldExpired, b.Deadline().Format(time.RFC3339)))
	}

	if err := m.Calendar.ClaimNights(ctx, b.PropertyID, b.Range.Dates(), string(b.ID)); err != nil {
		var unavailable *calendar.UnavailableError
		if errors.As(err, &unavailable) {
			m.publish(ctx, calendar.OverbookingPrevented{PropertyID: string(b.PropertyID), Range: b.Range, Contested: unavailable.Dates, At: m.now()})
			return nil, apperr.Conflict(op, unavailable)
		}
		return nil, err
	}
	if err := b.Confirm(paymentReference, amount, m.now()); err != nil {
		if errors.Is(err, booking.ErrPaymentReference) {
			return nil, apperr.Validation(op, err)
		}
		return nil, apperr.Conflict(op, err)
	}
	if err := m.Bookings.Save(ctx, b); err != nil {
		return nil, err
	}
	m.publish(ctx, b.Drain()...)
	return b, nil
}

// Cancel moves the booking to cancelled and frees its nights. Cancelling a
// cancelled booking repeats only the release, which frees nothing it does not own.
func (m *Manager) Cancel(ctx context.Context, id booking.BookingID, reason string) (*booking.Booking, error) {
	return m.terminate(ctx, "holds.Cancel", id, reason, func(b *booking.Booking, now time.Time) error {
		return b.Cancel(reason, now)
	})
}

// FailPayment marks a pending or held booking payment_failed and frees its nights.
func (m *Manager) FailPayment(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	return m.terminate(ctx, "holds.FailPayment", id, booking.ReasonPaymentFailed, func(b *booking.Booking, now time.Time) error {
		return b.MarkPaymentFailed(now)
	})
}

func (m *Manager) terminate(ctx context.Context, op string, id booking.BookingID, reason string, transition func(*booking.Booking, time.Time) error) (*booking.Booking, error) {
	b, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock, err := m.lock(ctx, b.PropertyID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if b, err = m.load(ctx, id); err != nil {
		return nil, err
	}
	switch err := transition(b, m.now()); {
	case errors.Is(err, booking.ErrAlreadyApplied):
		return b, m.release(ctx, b, reason)
	case err != nil:
		return nil, apperr.Conflict(op, fmt.Errorf("%w: booking is %s", err, b.Status))
	}
	if err := m.Bookings.Save(ctx, b); err != nil {
		return nil, err
	}
	m.publish(ctx, b.Drain()...)
	return b, m.release(ctx, b, reason)
}

// ExpireHold releases a pending or on-hold booking past its deadline. It
// reports false when the booking is not expired or already terminal.
func (m *Manager) ExpireHold(ctx context.Context, id booking.BookingID) (bool, error) {
	b, err := m.load(ctx, id)
	if err != nil {
		return false, err
	}
	if !b.IsExpired(m.now()) {
		return false, nil
	}
	unlock, err := m.lock(ctx, b.PropertyID)
	if err != nil {
		return false, err
	}
	defer unlock()
	if b, err = m.load(ctx, id); err != nil {
		return false, err
	}
	return m.expireLocked(ctx, b)
}

func (m *Manager) expireLocked(ctx context.Context, b *booking.Booking) (bool, error) {
	if err := b.Expire(m.now()); err != nil {
		return false, nil
	}
	if err := m.Bookings.Save(ctx, b); err != nil {
		return false, err
	}
	m.publish(ctx, b.Drain()...)
	if err := m.release(ctx, b, booking.ReasonExpired); err != nil {
		return true, err
	}
	if m.Logger != nil {
		m.Logger.Info("hold expired", "booking_id", b.ID, "property_id", b.PropertyID)
	}
	return true, nil
}

// Complete closes a confirmed booking whose stay has ended.
func (m *Manager) Complete(ctx context.Context, id booking.BookingID) (bool, error) {
	b, err := m.load(ctx, id)
	if err != nil {
		return false, err
	}
	if err := b.Complete(m.now()); err != nil {
		return false, nil
	}
	if err := m.Bookings.Save(ctx, b); err != nil {
		return false, err
	}
	m.publish(ctx, b.Drain()...)
	return true, nil
}

// releaseStale frees nights whose holder is expired, missing or no longer live.
// The caller holds the property lock.
func (m *Manager) releaseStale(ctx context.Context, res availability.Result) (bool, error) {
	freed := false
	for _, holder := range res.Holders {
		b, err := m.Bookings.ByID(ctx, booking.BookingID(holder))
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
			if err := m.Calendar.ReleaseNights(ctx, res.PropertyID, res.DatesHeldBy(holder), holder); err != nil {
				return freed, err
			}
			m.publish(ctx, calendar.NightsReleased{PropertyID: string(res.PropertyID), HoldID: holder, Range: res.Range, Reason: ReasonOrphaned, At: m.now()})
			freed = true
		case err != nil:
			return freed, err
		case b.IsExpired(m.now()):
			ok, err := m.expireLocked(ctx, b)
			if err != nil {
				return freed, err
			}
			freed = freed || ok
		case b.Status == booking.StatusCancelled || b.Status == booking.StatusPaymentFailed:
			if err := m.release(ctx, b, ReasonOrphaned); err != nil {
				return freed, err
			}
			freed = true
		}
	}
	return freed, nil
}

func (m *Manager) release(ctx context.Context, b *booking.Booking, reason string) error {
	if err := m.Calendar.ReleaseNights(ctx, b.PropertyID, b.Range.Dates(), string(b.ID)); err != nil {
		m.warn("release failed, nights left for reconciliation", b, err)
		return err
	}
	m.publish(ctx, calendar.NightsReleased{PropertyID: string(b.PropertyID), HoldID: string(b.ID), Range: b.Range, Reason: reason, At: m.now()})
	return nil
}

func (m *Manager) abandon(ctx context.Context, b *booking.Booking, unavailable *calendar.UnavailableError) {
	m.publish(ctx, calendar.OverbookingPrevented{PropertyID: string(b.PropertyID), Range: b.Range, Contested: unavailable.Dates, At: m.now()})
	if err := b.Cancel(ReasonDatesTaken, m.now()); err != nil {
		return
	}
	if err := m.Bookings.Save(ctx, b); err != nil {
		m.warn("cannot cancel booking that lost its claim", b, err)
		return
	}
	m.publish(ctx, b.Drain()...)
}

func (m *Manager) load(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	b, err := m.Bookings.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			return nil, apperr.NotFound("holds.load", fmt.Errorf("%w: %s", err, id))
		}
		return nil, err
	}
	return b, nil
}

func (m *Manager) lock(ctx context.Context, propertyID calendar.PropertyID) (func(), error) {
	if m.Locker == nil {
		return func() {}, nil
	}
	ttl := m.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	unlock, err := m.Locker.Lock(ctx, policies.PropertyLockKey(string(propertyID)), ttl)
	if err != nil {
		return nil, apperr.Storage("holds.lock", fmt.Errorf("property %s: %w", propertyID, err), true)
	}
	return func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil && m.Logger != nil {
			m.Logger.Warn("property unlock failed", "property_id", propertyID, "error", err)
		}
	}, nil
}

func (m *Manager) scheduleExpiry(ctx context.Context, b *booking.Booking) {
	if m.Scheduler == nil {
		return
	}
	deadline := b.Deadline()
	if deadline == nil {
		return
	}
	payload := schedule.ExpireHoldPayload{BookingID: string(b.ID), Deadline: *deadline}
	// one second past the deadline so IsExpired holds when the task runs
	if err := m.Scheduler.Schedule(ctx, schedule.TaskExpireHold, payload, deadline.Add(time.Second)); err != nil {
		m.warn("expiry task not scheduled, sweep will release", b, err)
	}
}

func (m *Manager) publish(ctx context.Context, evs ...events.DomainEvent) {
	if err := m.Events.Record(ctx, evs...); err != nil && m.Logger != nil {
		m.Logger.Error("outbox record failed", "events", len(evs), "error", err)
	}
}

func (m *Manager) warn(msg string, b *booking.Booking, err error) {
	if m.Logger != nil {
		m.Logger.Warn(msg, "booking_id", b.ID, "property_id", b.PropertyID, "error", err)
	}
}

// Booking loads a booking, reporting a missing one as not found.
func (m *Manager) Booking(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	return m.load(ctx, id)
}
