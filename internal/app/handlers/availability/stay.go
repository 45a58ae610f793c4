package availability

import (
	"time"

	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/daterange"
)

// stay normalizes a check-in/check-out pair into a validated night range.
func stay(op string, checkIn, checkOut time.Time) (daterange.DateRange, error) {
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return daterange.DateRange{}, apperr.Validation(op, err)
	}
	return dr, nil
}
