package booking

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentalspot/internal/app/quoting"
	domainbooking "rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/daterange"
)

// StayRequest is the part shared by holds and pending bookings.
type StayRequest struct {
	PropertyID string `validate:"required"`
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int    `validate:"gte=0"`
	GuestName  string `validate:"required"`
	GuestEmail string `validate:"required,email"`
	GuestPhone string
	CouponCode string `validate:"omitempty,max=64"`
}

// placement is a priced, validated stay ready to become a booking.
type placement struct {
	params domainbooking.CreateParams
	quote  *quoting.Quote
}

func prepare(ctx context.Context, op string, quoter *quoting.Quoter, now time.Time, commandID string, req StayRequest) (*placement, error) {
	dr, err := daterange.New(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, apperr.Validation(op, err)
	}
	if err := domainbooking.ValidateStayDates(dr, now); err != nil {
		return nil, apperr.Validation(op, err)
	}
	guests := req.Guests
	if guests == 0 {
		guests = 1
	}
	guest := domainbooking.GuestInfo{
		Name:  strings.TrimSpace(req.GuestName),
		Email: strings.TrimSpace(req.GuestEmail),
		Phone: strings.TrimSpace(req.GuestPhone),
	}
	if err := guest.Validate(); err != nil {
		return nil, apperr.Validation(op, err)
	}
	quote, err := quoter.Quote(ctx, quoting.Request{
		PropertyID: calendar.PropertyID(req.PropertyID),
		Range:      dr,
		Guests:     guests,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return nil, err
	}
	id := commandID
	if id == "" {
		id = uuid.NewString()
	}
	return &placement{
		params: domainbooking.CreateParams{
			ID:         domainbooking.BookingID(id),
			PropertyID: quote.Property.ID,
			Range:      dr,
			Guests:     guests,
			Guest:      guest,
			Pricing:    quote.Snapshot,
			CreatedAt:  now,
		},
		quote: quote,
	}, nil
}

// newDomainError maps constructor failures to validation errors.
func newDomainError(op string, err error) error {
	if apperr.KindOf(err) != "" {
		return err
	}
	return apperr.Validation(op, err)
}

func nowUTC(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
