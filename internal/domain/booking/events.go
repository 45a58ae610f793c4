package booking

import (
	"time"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/daterange"
	"rentalspot/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID  BookingID           `json:"booking_id"`
	PropertyID calendar.PropertyID `json:"property_id"`
	Range      daterange.DateRange `json:"range"`
	Guests     int                 `json:"guests"`
	Total      money.Money         `json:"total"`
	DueBy      time.Time           `json:"due_by"`
	At         time.Time           `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingHeld struct {
	BookingID  BookingID           `json:"booking_id"`
	PropertyID calendar.PropertyID `json:"property_id"`
	Range      daterange.DateRange `json:"range"`
	HoldUntil  time.Time           `json:"hold_until"`
	HoldFee    money.Money         `json:"hold_fee"`
	At         time.Time           `json:"at"`
}

func (e BookingHeld) EventName() string     { return "booking.held" }
func (e BookingHeld) AggregateID() string   { return string(e.BookingID) }
func (e BookingHeld) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID        BookingID           `json:"booking_id"`
	PropertyID       calendar.PropertyID `json:"property_id"`
	Range            daterange.DateRange `json:"range"`
	PaymentReference string              `json:"payment_reference"`
	At               time.Time           `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID  BookingID           `json:"booking_id"`
	PropertyID calendar.PropertyID `json:"property_id"`
	Range      daterange.DateRange `json:"range"`
	Reason     string              `json:"reason"`
	At         time.Time           `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingPaymentFailed struct {
	BookingID  BookingID           `json:"booking_id"`
	PropertyID calendar.PropertyID `json:"property_id"`
	Range      daterange.DateRange `json:"range"`
	At         time.Time           `json:"at"`
}

func (e BookingPaymentFailed) EventName() string     { return "booking.payment_failed" }
func (e BookingPaymentFailed) AggregateID() string   { return string(e.BookingID) }
func (e BookingPaymentFailed) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID `json:"booking_id"`
	At        time.Time `json:"at"`
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }
