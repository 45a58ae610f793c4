package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/coupon"
	"rentalspot/internal/domain/property"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("properties")}
}

type seasonDocument struct {
	Name          string    `bson:"name"`
	Start         time.Time `bson:"start"`
	End           time.Time `bson:"end"`
	PricePerNight int64     `bson:"price_per_night"`
	MinNights     int       `bson:"min_nights,omitempty"`
}

type propertyDocument struct {
	ID                    string           `bson:"_id"`
	Name                  string           `bson:"name"`
	Currency              string           `bson:"currency"`
	PricePerNight         int64            `bson:"price_per_night"`
	CleaningFee           int64            `bson:"cleaning_fee"`
	BaseOccupancy         int              `bson:"base_occupancy"`
	MaxGuests             int              `bson:"max_guests"`
	ExtraGuestFeePerNight int64            `bson:"extra_guest_fee_per_night"`
	MinNights             int              `bson:"min_nights"`
	HoldFeeAmount         int64            `bson:"hold_fee_amount"`
	SeasonalRates         []seasonDocument `bson:"seasonal_rates"`
	Active                bool             `bson:"active"`
	UpdatedAt             time.Time        `bson:"updated_at"`
}

func (r *PropertyRepository) ByID(ctx context.Context, id calendar.PropertyID) (*property.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, property.ErrPropertyNotFound
		}
		return nil, classify("mongo.PropertyByID", err)
	}
	p := &property.Property{
		ID:                    calendar.PropertyID(doc.ID),
		Name:                  doc.Name,
		Currency:              doc.Currency,
		PricePerNight:         doc.PricePerNight,
		CleaningFee:           doc.CleaningFee,
		BaseOccupancy:         doc.BaseOccupancy,
		MaxGuests:             doc.MaxGuests,
		ExtraGuestFeePerNight: doc.ExtraGuestFeePerNight,
		MinNights:             doc.MinNights,
		HoldFeeAmount:         doc.HoldFeeAmount,
		Active:                doc.Active,
		UpdatedAt:             doc.UpdatedAt,
	}
	for _, s := range doc.SeasonalRates {
		p.SeasonalRates = append(p.SeasonalRates, property.SeasonalRate{
			Name: s.Name, Start: s.Start.UTC(), End: s.End.UTC(), PricePerNight: s.PricePerNight, MinNights: s.MinNights,
		})
	}
	return p, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *property.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	doc := propertyDocument{
		ID:                    string(p.ID),
		Name:                  p.Name,
		Currency:              p.Currency,
		PricePerNight:         p.PricePerNight,
		CleaningFee:           p.CleaningFee,
		BaseOccupancy:         p.BaseOccupancy,
		MaxGuests:             p.MaxGuests,
		ExtraGuestFeePerNight: p.ExtraGuestFeePerNight,
		MinNights:             p.MinNights,
		HoldFeeAmount:         p.HoldFeeAmount,
		Active:                p.Active,
		UpdatedAt:             p.UpdatedAt,
	}
	for _, s := range p.SeasonalRates {
		doc.SeasonalRates = append(doc.SeasonalRates, seasonDocument{
			Name: s.Name, Start: s.Start, End: s.End, PricePerNight: s.PricePerNight, MinNights: s.MinNights,
		})
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return classify("mongo.SaveProperty", err)
}

type CouponRepository struct {
	col *mongo.Collection
}

func NewCouponRepository(db *mongo.Database) *CouponRepository {
	return &CouponRepository{col: db.Collection("coupons")}
}

type periodDocument struct {
	Start time.Time `bson:"start"`
	End   time.Time `bson:"end"`
}

type couponDocument struct {
	Code               string           `bson:"_id"`
	DiscountPercentage float64          `bson:"discount_percentage"`
	IsActive           bool             `bson:"is_active"`
	ValidUntil         *time.Time       `bson:"valid_until,omitempty"`
	BookingValidFrom   *time.Time       `bson:"booking_valid_from,omitempty"`
	BookingValidUntil  *time.Time       `bson:"booking_valid_until,omitempty"`
	ExclusionPeriods   []periodDocument `bson:"exclusion_periods"`
	PropertyIDs        []string         `bson:"property_ids,omitempty"`
	CreatedAt          time.Time        `bson:"created_at"`
	UpdatedAt          time.Time        `bson:"updated_at"`
}

func (r *CouponRepository) ByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var doc couponDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": coupon.NormalizeCode(code)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, classify("mongo.CouponByCode", err)
	}
	c := &coupon.Coupon{
		Code:               doc.Code,
		DiscountPercentage: doc.DiscountPercentage,
		IsActive:           doc.IsActive,
		ValidUntil:         utcPtr(doc.ValidUntil),
		BookingValidFrom:   utcPtr(doc.BookingValidFrom),
		BookingValidUntil:  utcPtr(doc.BookingValidUntil),
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
	for _, p := range doc.ExclusionPeriods {
		c.ExclusionPeriods = append(c.ExclusionPeriods, coupon.Period{Start: p.Start.UTC(), End: p.End.UTC()})
	}
	for _, id := range doc.PropertyIDs {
		c.PropertyIDs = append(c.PropertyIDs, calendar.PropertyID(id))
	}
	return c, nil
}

// Save stores the coupon as given. Malformed exclusion periods are kept and
// still block the days they span.
func (r *CouponRepository) Save(ctx context.Context, c *coupon.Coupon) error {
	code := coupon.NormalizeCode(c.Code)
	if code == "" {
		return coupon.ErrCodeRequired
	}
	doc := couponDocument{
		Code:               code,
		DiscountPercentage: c.DiscountPercentage,
		IsActive:           c.IsActive,
		ValidUntil:         c.ValidUntil,
		BookingValidFrom:   c.BookingValidFrom,
		BookingValidUntil:  c.BookingValidUntil,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
	for _, p := range c.ExclusionPeriods {
		doc.ExclusionPeriods = append(doc.ExclusionPeriods, periodDocument{Start: p.Start, End: p.End})
	}
	for _, id := range c.PropertyIDs {
		doc.PropertyIDs = append(doc.PropertyIDs, string(id))
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": code}, doc, options.Replace().SetUpsert(true))
	return classify("mongo.SaveCoupon", err)
}

var (
	_ property.Repository = (*PropertyRepository)(nil)
	_ coupon.Repository   = (*CouponRepository)(nil)
)
