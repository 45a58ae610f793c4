package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/coupon"
	"rentalspot/internal/domain/property"
	"rentalspot/internal/domain/shared/daterange"
)

type fixtureFile struct {
	Properties []propertyFixture `json:"properties"`
	Coupons    []couponFixture   `json:"coupons"`
}

type seasonFixture struct {
	Name          string `json:"name"`
	Start         string `json:"start"`
	End           string `json:"end"`
	PricePerNight int64  `json:"price_per_night"`
	MinNights     int    `json:"min_nights"`
}

type propertyFixture struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Currency              string          `json:"currency"`
	PricePerNight         int64           `json:"price_per_night"`
	CleaningFee           int64           `json:"cleaning_fee"`
	BaseOccupancy         int             `json:"base_occupancy"`
	MaxGuests             int             `json:"max_guests"`
	ExtraGuestFeePerNight int64           `json:"extra_guest_fee_per_night"`
	MinNights             int             `json:"min_nights"`
	HoldFeeAmount         int64           `json:"hold_fee_amount"`
	SeasonalRates         []seasonFixture `json:"seasonal_rates"`
	Active                bool            `json:"active"`
}

type periodFixture struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type couponFixture struct {
	Code               string          `json:"code"`
	DiscountPercentage float64         `json:"discount_percentage"`
	IsActive           bool            `json:"is_active"`
	ValidUntil         string          `json:"valid_until"`
	BookingValidFrom   string          `json:"booking_valid_from"`
	BookingValidUntil  string          `json:"booking_valid_until"`
	ExclusionPeriods   []periodFixture `json:"exclusion_periods"`
	PropertyIDs        []string        `json:"property_ids"`
}

// loadFixtures seeds properties and coupons. Invalid entries are logged and
// skipped.
func loadFixtures(ctx context.Context, path string, properties property.Repository, coupons coupon.Repository, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var file fixtureFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	for _, fx := range file.Properties {
		p, err := fx.toProperty(now)
		if err == nil {
			err = properties.Save(ctx, p)
		}
		if err != nil {
			logger.Error("property fixture rejected", "property_id", fx.ID, "error", err)
			continue
		}
		logger.Info("property fixture imported", "property_id", p.ID)
	}
	for _, fx := range file.Coupons {
		c, err := fx.toCoupon(now)
		if err == nil {
			err = coupons.Save(ctx, c)
		}
		if err != nil {
			logger.Error("coupon fixture rejected", "code", fx.Code, "error", err)
			continue
		}
		logger.Info("coupon fixture imported", "code", c.Code)
	}
	return nil
}

func (fx propertyFixture) toProperty(now time.Time) (*property.Property, error) {
	p := &property.Property{
		ID:                    calendar.PropertyID(strings.TrimSpace(fx.ID)),
		Name:                  fx.Name,
		Currency:              strings.ToUpper(fx.Currency),
		PricePerNight:         fx.PricePerNight,
		CleaningFee:           fx.CleaningFee,
		BaseOccupancy:         fx.BaseOccupancy,
		MaxGuests:             fx.MaxGuests,
		ExtraGuestFeePerNight: fx.ExtraGuestFeePerNight,
		MinNights:             fx.MinNights,
		HoldFeeAmount:         fx.HoldFeeAmount,
		Active:                fx.Active,
		UpdatedAt:             now,
	}
	for _, s := range fx.SeasonalRates {
		start, err := daterange.ParseDate(s.Start)
		if err != nil {
			return nil, fmt.Errorf("season %s: %w", s.Name, err)
		}
		end, err := daterange.ParseDate(s.End)
		if err != nil {
			return nil, fmt.Errorf("season %s: %w", s.Name, err)
		}
		p.SeasonalRates = append(p.SeasonalRates, property.SeasonalRate{
			Name:          s.Name,
			Start:         start,
			End:           end,
			PricePerNight: s.PricePerNight,
			MinNights:     s.MinNights,
		})
	}
	return p, p.Validate()
}

func (fx couponFixture) toCoupon(now time.Time) (*coupon.Coupon, error) {
	c := &coupon.Coupon{
		Code:               fx.Code,
		DiscountPercentage: fx.DiscountPercentage,
		IsActive:           fx.IsActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	var err error
	if c.ValidUntil, err = optionalDate(fx.ValidUntil); err != nil {
		return nil, err
	}
	if c.BookingValidFrom, err = optionalDate(fx.BookingValidFrom); err != nil {
		return nil, err
	}
	if c.BookingValidUntil, err = optionalDate(fx.BookingValidUntil); err != nil {
		return nil, err
	}
	for _, p := range fx.ExclusionPeriods {
		start, err := daterange.ParseDate(p.Start)
		if err != nil {
			return nil, err
		}
		end, err := daterange.ParseDate(p.End)
		if err != nil {
			return nil, err
		}
		c.ExclusionPeriods = append(c.ExclusionPeriods, coupon.Period{Start: start, End: end})
	}
	for _, id := range fx.PropertyIDs {
		c.PropertyIDs = append(c.PropertyIDs, calendar.PropertyID(id))
	}
	// malformed exclusion periods are stored; they still block the days they name
	if err := c.Validate(); err != nil && !errors.Is(err, coupon.ErrMalformedPeriod) {
		return nil, err
	}
	return c, nil
}

func optionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := daterange.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
