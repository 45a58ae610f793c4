package booking

import (
	"context"
	"time"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/dto"
	"rentalspot/internal/app/holds"
	"rentalspot/internal/app/middleware"
	"rentalspot/internal/app/quoting"
	domainbooking "rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/shared/money"
)

const (
	createHoldKey = "booking.hold"

	DefaultHoldDuration = 24 * time.Hour
)

type CreateHoldCommand struct {
	CommandID string
	StayRequest
	// HoldFeeAmount is in minor units of the property currency; zero falls
	// back to the property's configured hold fee.
	HoldFeeAmount   int64 `validate:"gte=0"`
	IdempotencyKeyV string
}

func (c CreateHoldCommand) Key() string { return createHoldKey }

func (c CreateHoldCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateHoldCommand) ResultPrototype() any { return &CreateHoldResult{} }

type CreateHoldResult struct {
	BookingID string      `json:"booking_id"`
	Booking   dto.Booking `json:"booking"`
}

type CreateHoldHandler struct {
	Quoter       *quoting.Quoter
	Holds        *holds.Manager
	HoldDuration time.Duration
	Now          func() time.Time
}

func (h *CreateHoldHandler) Handle(ctx context.Context, cmd CreateHoldCommand) (*CreateHoldResult, error) {
	now := nowUTC(h.Now)
	p, err := prepare(ctx, createHoldKey, h.Quoter, now, cmd.CommandID, cmd.StayRequest)
	if err != nil {
		return nil, err
	}
	fee := p.quote.Property.HoldFee()
	if cmd.HoldFeeAmount > 0 {
		fee = money.Money{Amount: cmd.HoldFeeAmount, Currency: p.quote.Snapshot.Currency}
	}
	duration := h.HoldDuration
	if duration <= 0 {
		duration = DefaultHoldDuration
	}
	b, err := domainbooking.NewOnHold(p.params, now.Add(duration), fee)
	if err != nil {
		return nil, newDomainError(createHoldKey, err)
	}
	if err := h.Holds.Place(ctx, b); err != nil {
		return nil, err
	}
	return &CreateHoldResult{BookingID: string(b.ID), Booking: dto.MapBooking(b)}, nil
}

var _ commands.Handler[CreateHoldCommand, *CreateHoldResult] = (*CreateHoldHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateHoldCommand)(nil)
