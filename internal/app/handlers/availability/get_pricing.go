package availability

import (
	"context"
	"time"

	"rentalspot/internal/app/dto"
	"rentalspot/internal/app/queries"
	"rentalspot/internal/app/quoting"
	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/daterange"
)

const getPricingKey = "availability.pricing"

type GetPricingQuery struct {
	PropertyID string `validate:"required"`
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int    `validate:"gte=1"`
	CouponCode string `validate:"omitempty,max=64"`
	// Currency requests converted display totals.
	Currency          string `validate:"omitempty,len=3"`
	SkipInvalidCoupon bool
}

func (q GetPricingQuery) Key() string { return getPricingKey }

func (q GetPricingQuery) Validate() error {
	_, err := stay(getPricingKey, q.CheckIn, q.CheckOut)
	return err
}

type GetPricingHandler struct {
	Quoter *quoting.Quoter
}

func (h *GetPricingHandler) Handle(ctx context.Context, q GetPricingQuery) (dto.Quote, error) {
	dr, err := stay(getPricingKey, q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Quote{}, err
	}
	quote, err := h.Quoter.Quote(ctx, quoting.Request{
		PropertyID:        calendar.PropertyID(q.PropertyID),
		Range:             dr,
		Guests:            q.Guests,
		CouponCode:        q.CouponCode,
		SkipInvalidCoupon: q.SkipInvalidCoupon,
	})
	if err != nil {
		return dto.Quote{}, err
	}
	display, err := h.Quoter.ConvertForDisplay(ctx, quote.Snapshot, q.Currency)
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.Quote{
		PropertyID:      q.PropertyID,
		CheckIn:         daterange.FormatDate(dr.CheckIn),
		CheckOut:        daterange.FormatDate(dr.CheckOut),
		Guests:          q.Guests,
		Pricing:         dto.MapSnapshot(quote.Snapshot),
		CouponRejection: string(quote.CouponRejection),
		Display:         display,
	}, nil
}

var _ queries.Handler[GetPricingQuery, dto.Quote] = (*GetPricingHandler)(nil)
