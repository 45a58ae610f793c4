package availability

import (
	"context"
	"fmt"
	"time"

	"rentalspot/internal/app/dto"
	"rentalspot/internal/app/queries"
	"rentalspot/internal/domain/calendar"
)

const getCalendarKey = "availability.calendar"

type GetCalendarQuery struct {
	PropertyID string `validate:"required"`
	From       time.Time
	To         time.Time
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

// Validate bounds the window to daterange.MaxNights.
func (q GetCalendarQuery) Validate() error {
	_, err := stay(getCalendarKey, q.From, q.To)
	return err
}

type GetCalendarHandler struct {
	Calendar calendar.Repository
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	dr, err := stay(getCalendarKey, q.From, q.To)
	if err != nil {
		return dto.Calendar{}, err
	}
	propertyID := calendar.PropertyID(q.PropertyID)
	shards, err := h.Calendar.ReadShards(ctx, propertyID, calendar.MonthsSpanning(dr.Dates()))
	if err != nil {
		return dto.Calendar{}, fmt.Errorf("read calendar %s: %w", propertyID, err)
	}
	return dto.MapCalendar(propertyID, dr, shards), nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
