package property

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/daterange"
	"rentalspot/internal/domain/shared/money"
)

var (
	ErrPropertyNotFound  = errors.New("property: not found")
	ErrPropertyInactive  = errors.New("property: not accepting bookings")
	ErrInvalidRateConfig = errors.New("property: invalid rate configuration")
)

// SeasonalRate overrides the base nightly price for nights between Start and
// End, both inclusive.
type SeasonalRate struct {
	Name          string
	Start         time.Time
	End           time.Time
	PricePerNight int64
	MinNights     int
}

func (s SeasonalRate) Covers(date time.Time) bool {
	return daterange.Through(s.Start, s.End).ContainsDate(date)
}

// Property owns the rate configuration consulted by pricing. Listing CRUD
// lives elsewhere; this side only reads it.
type Property struct {
	ID                    calendar.PropertyID
	Name                  string
	Currency              string
	PricePerNight         int64
	CleaningFee           int64
	BaseOccupancy         int
	MaxGuests             int
	ExtraGuestFeePerNight int64
	MinNights             int
	HoldFeeAmount         int64
	SeasonalRates         []SeasonalRate
	Active                bool
	UpdatedAt             time.Time
}

type Repository interface {
	ByID(ctx context.Context, id calendar.PropertyID) (*Property, error)
	Save(ctx context.Context, p *Property) error
}

func (p *Property) Validate() error {
	if p.ID == "" {
		return errors.Join(ErrInvalidRateConfig, errors.New("id required"))
	}
	if len(strings.TrimSpace(p.Currency)) != 3 {
		return errors.Join(ErrInvalidRateConfig, money.ErrInvalidCurrency)
	}
	if p.PricePerNight < 0 || p.CleaningFee < 0 || p.ExtraGuestFeePerNight < 0 {
		return errors.Join(ErrInvalidRateConfig, errors.New("amounts cannot be negative"))
	}
	if p.BaseOccupancy < 1 {
		return errors.Join(ErrInvalidRateConfig, errors.New("base occupancy must be positive"))
	}
	if p.MaxGuests != 0 && p.MaxGuests < p.BaseOccupancy {
		return errors.Join(ErrInvalidRateConfig, errors.New("max guests below base occupancy"))
	}
	for _, s := range p.SeasonalRates {
		if s.End.Before(s.Start) || s.PricePerNight < 0 {
			return errors.Join(ErrInvalidRateConfig, errors.New("season "+s.Name+" is malformed"))
		}
	}
	return nil
}

// SeasonFor returns the first seasonal rate covering date.
func (p *Property) SeasonFor(date time.Time) (SeasonalRate, bool) {
	for _, s := range p.SeasonalRates {
		if s.Covers(date) {
			return s, true
		}
	}
	return SeasonalRate{}, false
}

// MinNightsFor resolves the minimum stay for a check-in date; a season's
// minimum wins over the property's when it is stricter.
func (p *Property) MinNightsFor(checkIn time.Time) int {
	min := p.MinNights
	if min < 1 {
		min = 1
	}
	if s, ok := p.SeasonFor(checkIn); ok && s.MinNights > min {
		min = s.MinNights
	}
	return min
}

func (p *Property) HoldFee() money.Money {
	return money.Money{Amount: p.HoldFeeAmount, Currency: strings.ToUpper(p.Currency)}
}
