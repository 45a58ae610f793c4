package booking

import (
	"errors"
	"time"

	"rentalspot/internal/domain/shared/daterange"
)

var ErrCheckInInPast = errors.New("booking: check-in date is in the past")

// ValidateStayDates rejects stays starting before today (UTC).
func ValidateStayDates(dr daterange.DateRange, now time.Time) error {
	if err := dr.Validate(); err != nil {
		return err
	}
	if daterange.Day(dr.CheckIn).Before(daterange.Day(now)) {
		return ErrCheckInInPast
	}
	return nil
}
