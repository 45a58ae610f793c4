package booking

import (
	"context"

	"rentalspot/internal/app/dto"
	"rentalspot/internal/app/holds"
	"rentalspot/internal/app/queries"
	domainbooking "rentalspot/internal/domain/booking"
)

const getBookingKey = "booking.get"

type GetBookingQuery struct {
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	Holds *holds.Manager
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	b, err := h.Holds.Booking(ctx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(b), nil
}

var _ queries.Handler[GetBookingQuery, dto.Booking] = (*GetBookingHandler)(nil)
