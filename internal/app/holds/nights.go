package holds

import (
	"context"
	"fmt"
	"time"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/daterange"
)

// EditNights sets host-managed availability for every night of dr. Nights
// claimed by a booking are never touched; the whole edit is refused instead.
func (m *Manager) EditNights(ctx context.Context, propertyID calendar.PropertyID, dr daterange.DateRange, available bool) error {
	const op = "holds.EditNights"
	if err := dr.Validate(); err != nil {
		return apperr.Validation(op, err)
	}
	unlock, err := m.lock(ctx, propertyID)
	if err != nil {
		return err
	}
	defer unlock()

	dates := dr.Dates()
	shards, err := m.Calendar.ReadShards(ctx, propertyID, calendar.MonthsSpanning(dates))
	if err != nil {
		return err
	}
	var held []time.Time
	changes := make([]calendar.NightChange, 0, len(dates))
	for _, d := range dates {
		if calendar.Lookup(shards, d).HoldID != "" {
			held = append(held, d)
			continue
		}
		changes = append(changes, calendar.NightChange{Date: d, Available: available})
	}
	if len(held) > 0 {
		return apperr.Conflict(op, fmt.Errorf("%w: nights are claimed by bookings", &calendar.UnavailableError{PropertyID: propertyID, Dates: held}))
	}
	if err := m.Calendar.ApplyNightChanges(ctx, propertyID, changes); err != nil {
		return err
	}

	formatted := make([]string, 0, len(dates))
	for _, d := range dates {
		formatted = append(formatted, daterange.FormatDate(d))
	}
	m.publish(ctx, calendar.NightsEdited{PropertyID: string(propertyID), Dates: formatted, Available: available, At: m.now()})
	return nil
}
