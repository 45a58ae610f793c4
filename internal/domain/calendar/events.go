package calendar

import (
	"time"

	"rentalspot/internal/domain/shared/daterange"
)

type NightsClaimed struct {
	PropertyID string              `json:"property_id"`
	HoldID     string              `json:"hold_id"`
	Range      daterange.DateRange `json:"range"`
	At         time.Time           `json:"at"`
}

func (e NightsClaimed) EventName() string     { return "calendar.nights_claimed" }
func (e NightsClaimed) AggregateID() string   { return e.PropertyID }
func (e NightsClaimed) OccurredAt() time.Time { return e.At }

type NightsReleased struct {
	PropertyID string              `json:"property_id"`
	HoldID     string              `json:"hold_id"`
	Range      daterange.DateRange `json:"range"`
	Reason     string              `json:"reason"`
	At         time.Time           `json:"at"`
}

func (e NightsReleased) EventName() string     { return "calendar.nights_released" }
func (e NightsReleased) AggregateID() string   { return e.PropertyID }
func (e NightsReleased) OccurredAt() time.Time { return e.At }

type OverbookingPrevented struct {
	PropertyID string              `json:"property_id"`
	Range      daterange.DateRange `json:"range"`
	Contested  []time.Time         `json:"contested"`
	At         time.Time           `json:"at"`
}

func (e OverbookingPrevented) EventName() string     { return "calendar.overbooking_prevented" }
func (e OverbookingPrevented) AggregateID() string   { return e.PropertyID }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }

type NightsEdited struct {
	PropertyID string    `json:"property_id"`
	Dates      []string  `json:"dates"`
	Available  bool      `json:"available"`
	At         time.Time `json:"at"`
}

func (e NightsEdited) EventName() string     { return "calendar.nights_edited" }
func (e NightsEdited) AggregateID() string   { return e.PropertyID }
func (e NightsEdited) OccurredAt() time.Time { return e.At }
