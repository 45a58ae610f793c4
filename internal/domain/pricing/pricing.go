package pricing

import (
	"errors"
	"strings"
	"time"

	"rentalspot/internal/domain/property"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/daterange"
	"rentalspot/internal/domain/shared/money"
)

var (
	ErrNotComputable     = errors.New("pricing: not computable for non-positive nights or guests")
	ErrNegativeComponent = errors.New("pricing: components cannot be negative")
	ErrCurrencyUnset     = errors.New("pricing: currency must be defined")
	ErrInvalidDiscount   = errors.New("pricing: discount percentage must be within 0..100")
	ErrDailyRatesLength  = errors.New("pricing: daily rates must cover every night")
)

const (
	SourceBase       = "base"
	sourceSeasonPref = "season:"
)

// DailyRate is the price applied to one night.
type DailyRate struct {
	Date   time.Time   `json:"date"`
	Rate   money.Money `json:"rate"`
	Source string      `json:"source"`
}

// Input carries everything the calculator needs. Amounts are minor units of
// Currency. DailyRates, when set, override PricePerNight night by night.
type Input struct {
	PricePerNight         int64
	NumberOfNights        int
	CleaningFee           int64
	NumberOfGuests        int
	BaseOccupancy         int
	ExtraGuestFeePerNight int64
	Currency              string
	DiscountPercentage    float64
	CouponCode            string
	DailyRates            []DailyRate
}

// Snapshot is the immutable price record attached to a booking.
type Snapshot struct {
	BaseRate            money.Money `json:"base_rate"`
	NumberOfNights      int         `json:"number_of_nights"`
	CleaningFee         money.Money `json:"cleaning_fee"`
	ExtraGuestFee       money.Money `json:"extra_guest_fee"`
	NumberOfExtraGuests int         `json:"number_of_extra_guests"`
	ExtraGuestFeeTotal  money.Money `json:"extra_guest_fee_total"`
	AccommodationTotal  money.Money `json:"accommodation_total"`
	Subtotal            money.Money `json:"subtotal"`
	DiscountPercentage  float64     `json:"discount_percentage"`
	DiscountAmount      money.Money `json:"discount_amount"`
	Total               money.Money `json:"total"`
	Currency            string      `json:"currency"`
	AppliedCouponCode   string      `json:"applied_coupon_code,omitempty"`
	DailyRates          []DailyRate `json:"daily_rates,omitempty"`
}

// Calculate prices a stay:
//
//	extraGuests        = max(0, guests - baseOccupancy)
//	extraGuestFeeTotal = extraGuests * extraGuestFeePerNight * nights
//	accommodationTotal = sum of nightly rates
//	subtotal           = accommodationTotal + cleaningFee + extraGuestFeeTotal
//	total              = subtotal - subtotal * discount / 100
func Calculate(in Input) (*Snapshot, error) {
	const op = "pricing.Calculate"
	if in.NumberOfNights <= 0 || in.NumberOfGuests <= 0 {
		return nil, apperr.Validation(op, ErrNotComputable)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if len(currency) != 3 {
		return nil, apperr.Validation(op, ErrCurrencyUnset)
	}
	if in.PricePerNight < 0 || in.CleaningFee < 0 || in.ExtraGuestFeePerNight < 0 {
		return nil, apperr.Validation(op, ErrNegativeComponent)
	}
	if in.DiscountPercentage < 0 || in.DiscountPercentage > 100 {
		return nil, apperr.Validation(op, ErrInvalidDiscount)
	}
	if len(in.DailyRates) > 0 && len(in.DailyRates) != in.NumberOfNights {
		return nil, apperr.Validation(op, ErrDailyRatesLength)
	}

	extraGuests := in.NumberOfGuests - in.BaseOccupancy
	if extraGuests < 0 {
		extraGuests = 0
	}
	nights := int64(in.NumberOfNights)
	extraFee := money.Money{Amount: in.ExtraGuestFeePerNight, Currency: currency}
	extraTotal := extraFee.Multiply(int64(extraGuests) * nights)

	accommodation := money.Money{Amount: in.PricePerNight * nights, Currency: currency}
	var (
		daily []DailyRate
		err   error
	)
	if len(in.DailyRates) > 0 {
		accommodation = money.Zero(currency)
		daily = make([]DailyRate, 0, len(in.DailyRates))
		for _, r := range in.DailyRates {
			if r.Rate.Amount < 0 {
				return nil, apperr.Validation(op, ErrNegativeComponent)
			}
			r.Rate.Currency = currency
			if accommodation, err = accommodation.Add(r.Rate); err != nil {
				return nil, apperr.Validation(op, err)
			}
			daily = append(daily, r)
		}
	}

	cleaning := money.Money{Amount: in.CleaningFee, Currency: currency}
	subtotal, err := sum(accommodation, cleaning, extraTotal)
	if err != nil {
		return nil, apperr.Validation(op, err)
	}
	discount := subtotal.Percent(in.DiscountPercentage)
	total, err := subtotal.Sub(discount)
	if err != nil {
		return nil, apperr.Validation(op, err)
	}

	snap := &Snapshot{
		BaseRate:            money.Money{Amount: in.PricePerNight, Currency: currency},
		NumberOfNights:      in.NumberOfNights,
		CleaningFee:         cleaning,
		ExtraGuestFee:       extraFee,
		NumberOfExtraGuests: extraGuests,
		ExtraGuestFeeTotal:  extraTotal,
		AccommodationTotal:  accommodation,
		Subtotal:            subtotal,
		DiscountPercentage:  in.DiscountPercentage,
		DiscountAmount:      discount,
		Total:               total,
		Currency:            currency,
		DailyRates:          daily,
	}
	if in.DiscountPercentage > 0 {
		snap.AppliedCouponCode = in.CouponCode
	}
	return snap, nil
}

func sum(first money.Money, rest ...money.Money) (money.Money, error) {
	total := first
	for _, m := range rest {
		var err error
		if total, err = total.Add(m); err != nil {
			return money.Money{}, err
		}
	}
	return total, nil
}

// Breakdown resolves the nightly rate for every night of the stay, applying
// the first seasonal rate that covers each date.
func Breakdown(p *property.Property, dr daterange.DateRange) []DailyRate {
	currency := strings.ToUpper(p.Currency)
	dates := dr.Dates()
	out := make([]DailyRate, 0, len(dates))
	for _, d := range dates {
		rate := DailyRate{Date: d, Rate: money.Money{Amount: p.PricePerNight, Currency: currency}, Source: SourceBase}
		if s, ok := p.SeasonFor(d); ok {
			rate.Rate.Amount = s.PricePerNight
			rate.Source = sourceSeasonPref + s.Name
		}
		out = append(out, rate)
	}
	return out
}

// QuoteStay prices a stay at a property. The daily breakdown is only kept
// when at least one night deviates from the base rate.
func QuoteStay(p *property.Property, dr daterange.DateRange, guests int, discountPct float64, couponCode string) (*Snapshot, error) {
	in := Input{
		PricePerNight:         p.PricePerNight,
		NumberOfNights:        dr.Nights(),
		CleaningFee:           p.CleaningFee,
		NumberOfGuests:        guests,
		BaseOccupancy:         p.BaseOccupancy,
		ExtraGuestFeePerNight: p.ExtraGuestFeePerNight,
		Currency:              p.Currency,
		DiscountPercentage:    discountPct,
		CouponCode:            couponCode,
	}
	if len(p.SeasonalRates) > 0 {
		daily := Breakdown(p, dr)
		for _, r := range daily {
			if r.Source != SourceBase {
				in.DailyRates = daily
				break
			}
		}
	}
	return Calculate(in)
}

func (s *Snapshot) Copy() *Snapshot {
	if s == nil {
		return nil
	}
	clone := *s
	clone.DailyRates = append([]DailyRate(nil), s.DailyRates...)
	return &clone
}
