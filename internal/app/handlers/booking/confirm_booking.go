package booking

import (
	"context"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/dto"
	"rentalspot/internal/app/holds"
	"rentalspot/internal/app/middleware"
	domainbooking "rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/shared/money"
)

const confirmBookingKey = "booking.confirm"

type ConfirmBookingCommand struct {
	BookingID        string `validate:"required"`
	PaymentReference string `validate:"required"`
	// AmountPaid defaults to the quoted total when Currency is empty.
	AmountPaid      int64  `validate:"gte=0"`
	Currency        string `validate:"omitempty,len=3"`
	IdempotencyKeyV string
}

func (c ConfirmBookingCommand) Key() string { return confirmBookingKey }

func (c ConfirmBookingCommand) Retryable() bool { return true }

func (c ConfirmBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ConfirmBookingCommand) ResultPrototype() any { return &dto.Booking{} }

type ConfirmBookingHandler struct {
	Holds *holds.Manager
}

func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*dto.Booking, error) {
	var amount money.Money
	if cmd.Currency != "" {
		m, err := money.New(cmd.AmountPaid, cmd.Currency)
		if err != nil {
			return nil, newDomainError(confirmBookingKey, err)
		}
		amount = m
	}
	b, err := h.Holds.Confirm(ctx, domainbooking.BookingID(cmd.BookingID), cmd.PaymentReference, amount)
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	return &out, nil
}

var (
	_ commands.Handler[ConfirmBookingCommand, *dto.Booking] = (*ConfirmBookingHandler)(nil)
	_ middleware.IdempotentCommand                         = ConfirmBookingCommand{}
	_ middleware.RetryableCommand                          = ConfirmBookingCommand{}
)
