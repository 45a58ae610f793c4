package dto

import (
	"rentalspot/internal/app/quoting"
	"rentalspot/internal/domain/coupon"
	"rentalspot/internal/domain/pricing"
	"rentalspot/internal/domain/shared/daterange"
)

type DailyRate struct {
	Date   string   `json:"date"`
	Rate   MoneyDTO `json:"rate"`
	Source string   `json:"source"`
}

type PricingSnapshot struct {
	BaseRate            MoneyDTO    `json:"base_rate"`
	NumberOfNights      int         `json:"number_of_nights"`
	CleaningFee         MoneyDTO    `json:"cleaning_fee"`
	ExtraGuestFee       MoneyDTO    `json:"extra_guest_fee"`
	NumberOfExtraGuests int         `json:"number_of_extra_guests"`
	ExtraGuestFeeTotal  MoneyDTO    `json:"extra_guest_fee_total"`
	AccommodationTotal  MoneyDTO    `json:"accommodation_total"`
	Subtotal            MoneyDTO    `json:"subtotal"`
	DiscountPercentage  float64     `json:"discount_percentage"`
	DiscountAmount      MoneyDTO    `json:"discount_amount"`
	Total               MoneyDTO    `json:"total"`
	Currency            string      `json:"currency"`
	AppliedCouponCode   string      `json:"applied_coupon_code,omitempty"`
	DailyRates          []DailyRate `json:"daily_rates,omitempty"`
}

func MapSnapshot(s *pricing.Snapshot) *PricingSnapshot {
	if s == nil {
		return nil
	}
	rates := make([]DailyRate, 0, len(s.DailyRates))
	for _, r := range s.DailyRates {
		rates = append(rates, DailyRate{Date: daterange.FormatDate(r.Date), Rate: MapMoney(r.Rate), Source: r.Source})
	}
	return &PricingSnapshot{
		BaseRate:            MapMoney(s.BaseRate),
		NumberOfNights:      s.NumberOfNights,
		CleaningFee:         MapMoney(s.CleaningFee),
		ExtraGuestFee:       MapMoney(s.ExtraGuestFee),
		NumberOfExtraGuests: s.NumberOfExtraGuests,
		ExtraGuestFeeTotal:  MapMoney(s.ExtraGuestFeeTotal),
		AccommodationTotal:  MapMoney(s.AccommodationTotal),
		Subtotal:            MapMoney(s.Subtotal),
		DiscountPercentage:  s.DiscountPercentage,
		DiscountAmount:      MapMoney(s.DiscountAmount),
		Total:               MapMoney(s.Total),
		Currency:            s.Currency,
		AppliedCouponCode:   s.AppliedCouponCode,
		DailyRates:          rates,
	}
}

// Quote is a price offer. Display carries converted totals when another
// currency was requested; the snapshot always stays in the property currency.
type Quote struct {
	PropertyID      string           `json:"property_id"`
	CheckIn         string           `json:"check_in"`
	CheckOut        string           `json:"check_out"`
	Guests          int              `json:"guests"`
	Pricing         *PricingSnapshot `json:"pricing"`
	CouponRejection string           `json:"coupon_rejection,omitempty"`
	Display         *quoting.Display `json:"display,omitempty"`
}

type CouponCheck struct {
	Code               string  `json:"code"`
	Applicable         bool    `json:"applicable"`
	DiscountPercentage float64 `json:"discount_percentage,omitempty"`
	Reason             string  `json:"reason,omitempty"`
}

func MapCouponResult(code string, res coupon.Result) CouponCheck {
	return CouponCheck{
		Code:               coupon.NormalizeCode(code),
		Applicable:         res.Applicable,
		DiscountPercentage: res.DiscountPercentage,
		Reason:             string(res.Reason),
	}
}
