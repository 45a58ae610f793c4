package availability

import (
	"context"
	"time"

	appavailability "rentalspot/internal/app/availability"
	"rentalspot/internal/app/dto"
	"rentalspot/internal/app/queries"
	"rentalspot/internal/domain/calendar"
)

const checkAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	PropertyID string `validate:"required"`
	CheckIn    time.Time
	CheckOut   time.Time
	// Suggest asks for the next free window of the same length when the
	// requested one is taken.
	Suggest bool
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

func (q CheckAvailabilityQuery) Validate() error {
	_, err := stay(checkAvailabilityKey, q.CheckIn, q.CheckOut)
	return err
}

type CheckAvailabilityHandler struct {
	Checker *appavailability.Checker
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	dr, err := stay(checkAvailabilityKey, q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Availability{}, err
	}
	propertyID := calendar.PropertyID(q.PropertyID)
	res, err := h.Checker.Check(ctx, propertyID, dr)
	if err != nil {
		return dto.Availability{}, err
	}
	var suggestion *appavailability.Suggestion
	if !res.IsAvailable && q.Suggest {
		if suggestion, err = h.Checker.SuggestNext(ctx, propertyID, dr); err != nil {
			return dto.Availability{}, err
		}
	}
	return dto.MapAvailability(res, suggestion), nil
}

var _ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)
