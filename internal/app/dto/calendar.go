package dto

import (
	"time"

	"rentalspot/internal/app/availability"
	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/daterange"
)

type Night struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
	HoldID    string `json:"hold_id,omitempty"`
	// Explicit is false when the night was never written and reads as free.
	Explicit bool `json:"explicit"`
}

type Calendar struct {
	PropertyID string  `json:"property_id"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	Nights     []Night `json:"nights"`
}

func MapCalendar(propertyID calendar.PropertyID, dr daterange.DateRange, shards map[calendar.Month]*calendar.Shard) Calendar {
	out := Calendar{
		PropertyID: string(propertyID),
		From:       daterange.FormatDate(dr.CheckIn),
		To:         daterange.FormatDate(dr.CheckOut),
		Nights:     make([]Night, 0, dr.Nights()),
	}
	for _, d := range dr.Dates() {
		state := calendar.Lookup(shards, d)
		out.Nights = append(out.Nights, Night{
			Date:      daterange.FormatDate(d),
			Available: state.Bookable(),
			HoldID:    state.HoldID,
			Explicit:  state.Known,
		})
	}
	return out
}

type StayWindow struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Label    string `json:"label,omitempty"`
}

type Availability struct {
	PropertyID       string      `json:"property_id"`
	CheckIn          string      `json:"check_in"`
	CheckOut         string      `json:"check_out"`
	IsAvailable      bool        `json:"is_available"`
	UnavailableDates []string    `json:"unavailable_dates"`
	Suggestion       *StayWindow `json:"suggestion,omitempty"`
}

func MapAvailability(res availability.Result, suggestion *availability.Suggestion) Availability {
	out := Availability{
		PropertyID:       string(res.PropertyID),
		CheckIn:          daterange.FormatDate(res.Range.CheckIn),
		CheckOut:         daterange.FormatDate(res.Range.CheckOut),
		IsAvailable:      res.IsAvailable,
		UnavailableDates: formatDates(res.UnavailableDates),
	}
	if suggestion != nil {
		out.Suggestion = &StayWindow{
			CheckIn:  daterange.FormatDate(suggestion.Range.CheckIn),
			CheckOut: daterange.FormatDate(suggestion.Range.CheckOut),
			Label:    suggestion.Label,
		}
	}
	return out
}

func formatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, daterange.FormatDate(d))
	}
	return out
}
