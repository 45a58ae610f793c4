package memory

import (
	"context"
	"sync"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/coupon"
	"rentalspot/internal/domain/property"
)

type PropertyRepository struct {
	mu    sync.RWMutex
	items map[calendar.PropertyID]property.Property
}

func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{items: make(map[calendar.PropertyID]property.Property)}
}

func (r *PropertyRepository) ByID(ctx context.Context, id calendar.PropertyID) (*property.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, property.ErrPropertyNotFound
	}
	p.SeasonalRates = append([]property.SeasonalRate(nil), p.SeasonalRates...)
	return &p, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *property.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *p
	stored.SeasonalRates = append([]property.SeasonalRate(nil), p.SeasonalRates...)
	r.items[p.ID] = stored
	return nil
}

// CouponRepository looks codes up case-insensitively.
type CouponRepository struct {
	mu    sync.RWMutex
	items map[string]coupon.Coupon
}

func NewCouponRepository() *CouponRepository {
	return &CouponRepository{items: make(map[string]coupon.Coupon)}
}

func (r *CouponRepository) ByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[coupon.NormalizeCode(code)]
	if !ok {
		return nil, coupon.ErrCouponNotFound
	}
	c.ExclusionPeriods = append([]coupon.Period(nil), c.ExclusionPeriods...)
	c.PropertyIDs = append([]calendar.PropertyID(nil), c.PropertyIDs...)
	return &c, nil
}

// Save stores the coupon. Malformed exclusion periods are kept: they only
// block the days they cover.
func (r *CouponRepository) Save(ctx context.Context, c *coupon.Coupon) error {
	code := coupon.NormalizeCode(c.Code)
	if code == "" {
		return coupon.ErrCodeRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *c
	stored.Code = code
	stored.ExclusionPeriods = append([]coupon.Period(nil), c.ExclusionPeriods...)
	stored.PropertyIDs = append([]calendar.PropertyID(nil), c.PropertyIDs...)
	r.items[code] = stored
	return nil
}

var (
	_ property.Repository = (*PropertyRepository)(nil)
	_ coupon.Repository   = (*CouponRepository)(nil)
)
