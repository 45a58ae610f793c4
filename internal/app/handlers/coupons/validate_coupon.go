package coupons

import (
	"context"
	"time"

	"rentalspot/internal/app/dto"
	"rentalspot/internal/app/queries"
	"rentalspot/internal/app/quoting"
	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/daterange"
)

const validateCouponKey = "coupons.validate"

type ValidateCouponQuery struct {
	Code       string `validate:"required,max=64"`
	PropertyID string
	CheckIn    time.Time
	CheckOut   time.Time
}

func (q ValidateCouponQuery) Key() string { return validateCouponKey }

// ValidateCouponHandler reports whether a code would apply to a stay. A
// rejected code is a normal answer with a reason, not an error.
type ValidateCouponHandler struct {
	Quoter *quoting.Quoter
}

func (h *ValidateCouponHandler) Handle(ctx context.Context, q ValidateCouponQuery) (dto.CouponCheck, error) {
	dr, err := daterange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.CouponCheck{}, apperr.Validation(validateCouponKey, err)
	}
	res, err := h.Quoter.EvaluateCoupon(ctx, q.Code, calendar.PropertyID(q.PropertyID), dr)
	if err != nil {
		return dto.CouponCheck{}, err
	}
	return dto.MapCouponResult(q.Code, res), nil
}

var _ queries.Handler[ValidateCouponQuery, dto.CouponCheck] = (*ValidateCouponHandler)(nil)
