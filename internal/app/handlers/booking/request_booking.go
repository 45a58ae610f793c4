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
)

const (
	requestBookingKey = "booking.request"

	DefaultPendingPaymentTTL = 30 * time.Minute
)

// RequestBookingCommand creates a pending booking that owns its nights until
// payment is due.
type RequestBookingCommand struct {
	CommandID string
	StayRequest
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &RequestBookingResult{} }

type RequestBookingResult struct {
	BookingID string      `json:"booking_id"`
	Booking   dto.Booking `json:"booking"`
}

type RequestBookingHandler struct {
	Quoter     *quoting.Quoter
	Holds      *holds.Manager
	PaymentTTL time.Duration
	Now        func() time.Time
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*RequestBookingResult, error) {
	now := nowUTC(h.Now)
	p, err := prepare(ctx, requestBookingKey, h.Quoter, now, cmd.CommandID, cmd.StayRequest)
	if err != nil {
		return nil, err
	}
	ttl := h.PaymentTTL
	if ttl <= 0 {
		ttl = DefaultPendingPaymentTTL
	}
	b, err := domainbooking.NewPending(p.params, now.Add(ttl))
	if err != nil {
		return nil, newDomainError(requestBookingKey, err)
	}
	if err := h.Holds.Place(ctx, b); err != nil {
		return nil, err
	}
	return &RequestBookingResult{BookingID: string(b.ID), Booking: dto.MapBooking(b)}, nil
}

var _ commands.Handler[RequestBookingCommand, *RequestBookingResult] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*RequestBookingCommand)(nil)
