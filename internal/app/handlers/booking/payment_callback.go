package booking

import (
	"context"
	"errors"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/dto"
	"rentalspot/internal/app/holds"
	domainbooking "rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/money"
)

const paymentCallbackKey = "booking.payment_callback"

const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// PaymentCallbackCommand is the processor's verdict on a booking payment.
type PaymentCallbackCommand struct {
	EventID    string
	BookingID  string `validate:"required"`
	AmountPaid int64  `validate:"gte=0"`
	Currency   string `validate:"omitempty,len=3"`
	Status     string `validate:"required,oneof=succeeded failed"`
	Reference  string `validate:"required_if=Status succeeded"`
}

func (c PaymentCallbackCommand) Key() string { return paymentCallbackKey }

func (c PaymentCallbackCommand) Retryable() bool { return true }

func (c PaymentCallbackCommand) IdempotencyKey() string { return c.EventID }

func (c PaymentCallbackCommand) ResultPrototype() any { return &dto.Booking{} }

type PaymentCallbackHandler struct {
	Holds *holds.Manager
}

// Handle is safe to replay: a succeeded callback on a confirmed booking with
// the same reference and a failed callback on a closed booking both return
// the booking unchanged.
func (h *PaymentCallbackHandler) Handle(ctx context.Context, cmd PaymentCallbackCommand) (*dto.Booking, error) {
	id := domainbooking.BookingID(cmd.BookingID)
	var (
		b   *domainbooking.Booking
		err error
	)
	switch cmd.Status {
	case PaymentSucceeded:
		var amount money.Money
		if cmd.Currency != "" {
			if amount, err = money.New(cmd.AmountPaid, cmd.Currency); err != nil {
				return nil, newDomainError(paymentCallbackKey, err)
			}
		}
		b, err = h.Holds.Confirm(ctx, id, cmd.Reference, amount)
	case PaymentFailed:
		b, err = h.Holds.FailPayment(ctx, id)
		if apperr.Is(err, apperr.KindConflict) && errors.Is(err, domainbooking.ErrInvalidState) {
			// the booking already left the unpaid states; nothing to release
			if b, err = h.Holds.Booking(ctx, id); err != nil {
				return nil, err
			}
		}
	default:
		return nil, apperr.Validationf(paymentCallbackKey, "unknown payment status %q", cmd.Status)
	}
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	return &out, nil
}

var _ commands.Handler[PaymentCallbackCommand, *dto.Booking] = (*PaymentCallbackHandler)(nil)
