package booking

import (
	"context"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/dto"
	"rentalspot/internal/app/holds"
	domainbooking "rentalspot/internal/domain/booking"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID string `validate:"required"`
	Reason    string `validate:"omitempty,max=200"`
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

// Retryable holds because a repeated cancel only repeats the release.
func (c CancelBookingCommand) Retryable() bool { return true }

type CancelBookingHandler struct {
	Holds *holds.Manager
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.Booking, error) {
	b, err := h.Holds.Cancel(ctx, domainbooking.BookingID(cmd.BookingID), cmd.Reason)
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	return &out, nil
}

var _ commands.Handler[CancelBookingCommand, *dto.Booking] = (*CancelBookingHandler)(nil)
