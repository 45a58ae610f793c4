package quoting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentalspot/internal/app/policies"
	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/coupon"
	"rentalspot/internal/domain/pricing"
	"rentalspot/internal/domain/property"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/daterange"
	"rentalspot/internal/domain/shared/money"
)

var (
	ErrTooManyGuests = errors.New("quoting: guests exceed property capacity")
	ErrStayTooShort  = errors.New("quoting: stay shorter than minimum nights")
)

type Request struct {
	PropertyID calendar.PropertyID
	Range      daterange.DateRange
	Guests     int
	CouponCode string
	// SkipInvalidCoupon prices without discount instead of failing when the
	// coupon does not apply.
	SkipInvalidCoupon bool
}

type Quote struct {
	Property *property.Property
	Snapshot *pricing.Snapshot
	// CouponRejection is set when a coupon was supplied but skipped.
	CouponRejection coupon.Reason
}

// Quoter prices stays from the property's rate configuration and an optional coupon.
type Quoter struct {
	Properties property.Repository
	Coupons    coupon.Repository
	Converter  policies.CurrencyConverter
	Now        func() time.Time
}

func (q *Quoter) now() time.Time {
	if q.Now != nil {
		return q.Now()
	}
	return time.Now()
}

func (q *Quoter) Quote(ctx context.Context, req Request) (*Quote, error) {
	const op = "quoting.Quote"
	if err := req.Range.Validate(); err != nil {
		return nil, apperr.Validation(op, err)
	}
	if req.Guests <= 0 {
		return nil, apperr.Validation(op, pricing.ErrNotComputable)
	}
	prop, err := q.property(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if prop.MaxGuests > 0 && req.Guests > prop.MaxGuests {
		return nil, apperr.Validation(op, fmt.Errorf("%w: %d > %d", ErrTooManyGuests, req.Guests, prop.MaxGuests))
	}
	if minNights := prop.MinNightsFor(req.Range.CheckIn); req.Range.Nights() < minNights {
		return nil, apperr.Validation(op, fmt.Errorf("%w: %d < %d", ErrStayTooShort, req.Range.Nights(), minNights))
	}

	out := &Quote{Property: prop}
	var discount float64
	code := coupon.NormalizeCode(req.CouponCode)
	if code != "" {
		res, err := q.EvaluateCoupon(ctx, code, prop.ID, req.Range)
		if err != nil {
			return nil, err
		}
		switch {
		case res.Applicable:
			discount = res.DiscountPercentage
		case req.SkipInvalidCoupon:
			out.CouponRejection = res.Reason
			code = ""
		default:
			return nil, apperr.Coupon(op, string(res.Reason), coupon.ErrNotApplicable)
		}
	}

	snap, err := pricing.QuoteStay(prop, req.Range, req.Guests, discount, code)
	if err != nil {
		return nil, err
	}
	out.Snapshot = snap
	return out, nil
}

// EvaluateCoupon looks up the code and runs the coupon checks. An unknown code
// is a rejection, not an error.
func (q *Quoter) EvaluateCoupon(ctx context.Context, code string, propertyID calendar.PropertyID, stay daterange.DateRange) (coupon.Result, error) {
	if q.Coupons == nil {
		return coupon.Result{Reason: coupon.ReasonNotFound}, nil
	}
	c, err := q.Coupons.ByCode(ctx, coupon.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, coupon.ErrCouponNotFound) {
			return coupon.Evaluate(nil, propertyID, stay, q.now()), nil
		}
		return coupon.Result{}, err
	}
	return coupon.Evaluate(c, propertyID, stay, q.now()), nil
}

func (q *Quoter) property(ctx context.Context, id calendar.PropertyID) (*property.Property, error) {
	const op = "quoting.property"
	prop, err := q.Properties.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, property.ErrPropertyNotFound) {
			return nil, apperr.NotFound(op, fmt.Errorf("%w: %s", err, id))
		}
		return nil, err
	}
	if !prop.Active {
		return nil, apperr.Validation(op, fmt.Errorf("%w: %s", property.ErrPropertyInactive, id))
	}
	return prop, nil
}

// Display is a presentation-only conversion of a snapshot.
type Display struct {
	Currency           string      `json:"currency"`
	AccommodationTotal money.Money `json:"accommodation_total"`
	CleaningFee        money.Money `json:"cleaning_fee"`
	ExtraGuestFeeTotal money.Money `json:"extra_guest_fee_total"`
	Subtotal           money.Money `json:"subtotal"`
	DiscountAmount     money.Money `json:"discount_amount"`
	Total              money.Money `json:"total"`
}

// ConvertForDisplay converts the totals of snap into currency. The snapshot is
// not modified.
func (q *Quoter) ConvertForDisplay(ctx context.Context, snap *pricing.Snapshot, currency string) (*Display, error) {
	const op = "quoting.ConvertForDisplay"
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == snap.Currency {
		return nil, nil
	}
	if q.Converter == nil {
		return nil, apperr.Validation(op, fmt.Errorf("%w: %s", policies.ErrUnsupportedCurrency, currency))
	}
	d := &Display{Currency: currency}
	for _, pair := range []struct {
		dst *money.Money
		src money.Money
	}{
		{&d.AccommodationTotal, snap.AccommodationTotal},
		{&d.CleaningFee, snap.CleaningFee},
		{&d.ExtraGuestFeeTotal, snap.ExtraGuestFeeTotal},
		{&d.Subtotal, snap.Subtotal},
		{&d.DiscountAmount, snap.DiscountAmount},
		{&d.Total, snap.Total},
	} {
		converted, err := q.Converter.Convert(ctx, pair.src, currency)
		if err != nil {
			if errors.Is(err, policies.ErrUnsupportedCurrency) {
				return nil, apperr.Validation(op, err)
			}
			return nil, err
		}
		*pair.dst = converted
	}
	return d, nil
}
