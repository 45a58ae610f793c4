package dto

import (
	"time"

	domainbooking "rentalspot/internal/domain/booking"
	"rentalspot/internal/domain/shared/daterange"
	"rentalspot/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Booking struct {
	ID               string           `json:"id"`
	PropertyID       string           `json:"property_id"`
	CheckIn          string           `json:"check_in"`
	CheckOut         string           `json:"check_out"`
	Guests           int              `json:"guests"`
	GuestName        string           `json:"guest_name"`
	Status           string           `json:"status"`
	HoldUntil        *time.Time       `json:"hold_until,omitempty"`
	PaymentDueBy     *time.Time       `json:"payment_due_by,omitempty"`
	HoldFee          *MoneyDTO        `json:"hold_fee,omitempty"`
	Pricing          *PricingSnapshot `json:"pricing"`
	PaymentReference string           `json:"payment_reference,omitempty"`
	AmountPaid       *MoneyDTO        `json:"amount_paid,omitempty"`
	CancelReason     string           `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
	}
}

func optionalMoney(value money.Money) *MoneyDTO {
	if value.Currency == "" {
		return nil
	}
	m := MapMoney(value)
	return &m
}

func MapBooking(b *domainbooking.Booking) Booking {
	return Booking{
		ID:               string(b.ID),
		PropertyID:       string(b.PropertyID),
		CheckIn:          daterange.FormatDate(b.Range.CheckIn),
		CheckOut:         daterange.FormatDate(b.Range.CheckOut),
		Guests:           b.Guests,
		GuestName:        b.Guest.Name,
		Status:           string(b.Status),
		HoldUntil:        b.HoldUntil,
		PaymentDueBy:     b.PaymentDueBy,
		HoldFee:          optionalMoney(b.HoldFee),
		Pricing:          MapSnapshot(b.Pricing),
		PaymentReference: b.PaymentReference,
		AmountPaid:       optionalMoney(b.AmountPaid),
		CancelReason:     b.CancelReason,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}
