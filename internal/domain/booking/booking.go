package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/pricing"
	"rentalspot/internal/domain/shared/daterange"
	"rentalspot/internal/domain/shared/events"
	"rentalspot/internal/domain/shared/money"
)

var (
	ErrInvalidGuests     = errors.New("booking: guests count must be positive")
	ErrInvalidState      = errors.New("booking: invalid state transition")
	ErrBookingNotFound   = errors.New("booking: not found")
	ErrAlreadyApplied    = errors.New("booking: transition already applied")
	ErrHoldExpired       = errors.New("booking: hold expired before payment")
	ErrGuestInfoRequired = errors.New("booking: guest name and email required")
	ErrPricingRequired   = errors.New("booking: pricing snapshot required")
	ErrPaymentReference  = errors.New("booking: payment reference required")
	ErrConcurrentUpdate  = errors.New("booking: concurrent update detected")
)

type BookingID string

type Status string

const (
	StatusPending       Status = "pending"
	StatusOnHold        Status = "on-hold"
	StatusConfirmed     Status = "confirmed"
	StatusCancelled     Status = "cancelled"
	StatusCompleted     Status = "completed"
	StatusPaymentFailed Status = "payment_failed"
)

const (
	ReasonExpired       = "hold-expired"
	ReasonGuest         = "guest-cancelled"
	ReasonPaymentFailed = "payment-failed"
)

// ClaimsNights reports whether a booking in this status owns its nights.
func (s Status) ClaimsNights() bool {
	return s == StatusPending || s == StatusOnHold || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusPaymentFailed
}

type GuestInfo struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
	Phone string `json:"phone" bson:"phone"`
}

func (g GuestInfo) Validate() error {
	if strings.TrimSpace(g.Name) == "" || !strings.Contains(g.Email, "@") {
		return ErrGuestInfoRequired
	}
	return nil
}

type Booking struct {
	ID                BookingID
	PropertyID        calendar.PropertyID
	Range             daterange.DateRange
	Guests            int
	Guest             GuestInfo
	Pricing           *pricing.Snapshot
	Status            Status
	HoldUntil         *time.Time
	PaymentDueBy      *time.Time
	HoldFee           money.Money
	PaymentReference  string
	AmountPaid        money.Money
	AppliedCouponCode string
	CancelReason      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, b *Booking) error
	// ListExpired returns pending/on-hold bookings whose deadline is at or before now.
	ListExpired(ctx context.Context, now time.Time) ([]*Booking, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Booking, error)
}

type CreateParams struct {
	ID         BookingID
	PropertyID calendar.PropertyID
	Range      daterange.DateRange
	Guests     int
	Guest      GuestInfo
	Pricing    *pricing.Snapshot
	CreatedAt  time.Time
}

func (p CreateParams) validate() error {
	if p.Guests <= 0 {
		return ErrInvalidGuests
	}
	if err := p.Range.Validate(); err != nil {
		return err
	}
	if err := p.Guest.Validate(); err != nil {
		return err
	}
	if p.Pricing == nil {
		return ErrPricingRequired
	}
	return nil
}

func newBooking(p CreateParams, status Status) *Booking {
	now := p.CreatedAt.UTC()
	return &Booking{
		ID:                p.ID,
		PropertyID:        p.PropertyID,
		Range:             p.Range,
		Guests:            p.Guests,
		Guest:             p.Guest,
		Pricing:           p.Pricing.Copy(),
		Status:            status,
		AppliedCouponCode: p.Pricing.AppliedCouponCode,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// NewPending creates a booking awaiting full payment until paymentDueBy.
func NewPending(p CreateParams, paymentDueBy time.Time) (*Booking, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	b := newBooking(p, StatusPending)
	due := paymentDueBy.UTC()
	b.PaymentDueBy = &due
	b.Record(BookingRequested{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, Guests: b.Guests, Total: b.Pricing.Total, DueBy: due, At: b.CreatedAt})
	return b, nil
}

// NewOnHold creates a held booking whose hold fee has been captured.
func NewOnHold(p CreateParams, holdUntil time.Time, holdFee money.Money) (*Booking, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	b := newBooking(p, StatusOnHold)
	until := holdUntil.UTC()
	b.HoldUntil = &until
	b.HoldFee = holdFee
	b.Record(BookingHeld{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, HoldUntil: until, HoldFee: holdFee, At: b.CreatedAt})
	return b, nil
}

// Deadline is the instant after which an unpaid booking stops owning its nights.
func (b *Booking) Deadline() *time.Time {
	switch b.Status {
	case StatusOnHold:
		return b.HoldUntil
	case StatusPending:
		return b.PaymentDueBy
	}
	return nil
}

func (b *Booking) IsExpired(now time.Time) bool {
	d := b.Deadline()
	return d != nil && now.After(*d)
}

// Confirm records a captured payment. Replaying the same reference on a
// confirmed booking returns ErrAlreadyApplied; a payment after the deadline
// returns ErrHoldExpired.
func (b *Booking) Confirm(paymentReference string, amount money.Money, now time.Time) error {
	if strings.TrimSpace(paymentReference) == "" {
		return ErrPaymentReference
	}
	if b.Status == StatusConfirmed || b.Status == StatusCompleted {
		if b.PaymentReference == paymentReference {
			return ErrAlreadyApplied
		}
		return ErrInvalidState
	}
	if b.Status != StatusPending && b.Status != StatusOnHold {
		return ErrInvalidState
	}
	if b.IsExpired(now) {
		return ErrHoldExpired
	}
	b.Status = StatusConfirmed
	b.PaymentReference = paymentReference
	b.AmountPaid = amount
	b.HoldUntil = nil
	b.PaymentDueBy = nil
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, PaymentReference: paymentReference, At: b.UpdatedAt})
	return nil
}

// Cancel is allowed at any point before completion.
func (b *Booking) Cancel(reason string, now time.Time) error {
	switch b.Status {
	case StatusCancelled:
		return ErrAlreadyApplied
	case StatusPending, StatusOnHold, StatusConfirmed:
	default:
		return ErrInvalidState
	}
	if reason == "" {
		reason = ReasonGuest
	}
	b.Status = StatusCancelled
	b.CancelReason = reason
	b.HoldUntil = nil
	b.PaymentDueBy = nil
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, Reason: reason, At: b.UpdatedAt})
	return nil
}

// Expire releases an unpaid booking whose deadline has passed.
func (b *Booking) Expire(now time.Time) error {
	if !b.IsExpired(now) {
		return ErrInvalidState
	}
	return b.Cancel(ReasonExpired, now)
}

func (b *Booking) MarkPaymentFailed(now time.Time) error {
	switch b.Status {
	case StatusPaymentFailed:
		return ErrAlreadyApplied
	case StatusPending, StatusOnHold:
	default:
		return ErrInvalidState
	}
	b.Status = StatusPaymentFailed
	b.CancelReason = ReasonPaymentFailed
	b.HoldUntil = nil
	b.PaymentDueBy = nil
	b.UpdatedAt = now.UTC()
	b.Record(BookingPaymentFailed{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, At: b.UpdatedAt})
	return nil
}

// Complete closes a confirmed stay once its check-out day has arrived.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed || daterange.Day(now).Before(b.Range.CheckOut) {
		return ErrInvalidState
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}
