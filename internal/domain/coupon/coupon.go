package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/daterange"
)

var (
	ErrCouponNotFound  = errors.New("coupon: not found")
	ErrMalformedPeriod = errors.New("coupon: exclusion period ends before it starts")
	ErrInvalidDiscount = errors.New("coupon: discount percentage must be within (0, 100]")
	ErrCodeRequired    = errors.New("coupon: code required")
	ErrNotApplicable   = errors.New("coupon: not applicable")
	ErrInvalidWindow   = errors.New("coupon: booking window ends before it starts")
)

// Reason explains why a coupon was rejected.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNotFound      Reason = "not-found"
	ReasonInactive      Reason = "inactive"
	ReasonExpired       Reason = "expired"
	ReasonOutsideWindow Reason = "outside-booking-window"
	ReasonExcluded      Reason = "excluded-period"
	ReasonWrongProperty Reason = "not-valid-for-property"
)

// Period is an inclusive date range.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) Malformed() bool {
	return daterange.Day(p.End).Before(daterange.Day(p.Start))
}

// Overlaps applies stayEnd >= start && stayStart <= end on calendar days.
func (p Period) Overlaps(stayStart, stayEnd time.Time) bool {
	period := daterange.Through(p.Start, p.End)
	if p.Malformed() {
		period = daterange.Through(p.End, p.Start)
	}
	return period.Overlaps(daterange.Through(stayStart, stayEnd))
}

type Coupon struct {
	Code               string
	DiscountPercentage float64
	IsActive           bool
	ValidUntil         *time.Time
	BookingValidFrom   *time.Time
	BookingValidUntil  *time.Time
	ExclusionPeriods   []Period
	// PropertyIDs restricts the coupon to specific properties; empty means all.
	PropertyIDs []calendar.PropertyID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository interface {
	ByCode(ctx context.Context, code string) (*Coupon, error)
	Save(ctx context.Context, c *Coupon) error
}

// NormalizeCode makes codes case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks a coupon definition before it is stored.
func (c *Coupon) Validate() error {
	if NormalizeCode(c.Code) == "" {
		return ErrCodeRequired
	}
	if c.DiscountPercentage <= 0 || c.DiscountPercentage > 100 {
		return ErrInvalidDiscount
	}
	if c.BookingValidFrom != nil && c.BookingValidUntil != nil && c.BookingValidUntil.Before(*c.BookingValidFrom) {
		return ErrInvalidWindow
	}
	var errs []error
	for i, p := range c.ExclusionPeriods {
		if p.Malformed() {
			errs = append(errs, fmt.Errorf("%w: period %d (%s..%s)", ErrMalformedPeriod, i, daterange.FormatDate(p.Start), daterange.FormatDate(p.End)))
		}
	}
	return errors.Join(errs...)
}

// Result is the outcome of evaluating a coupon for a stay.
type Result struct {
	Applicable         bool
	DiscountPercentage float64
	Reason             Reason
}

func reject(r Reason) Result { return Result{Reason: r} }

// Evaluate runs the checks in order and stops at the first failure:
// active, not expired, check-in inside the booking window, no exclusion
// overlap. A malformed exclusion period still blocks the days it spans.
func Evaluate(c *Coupon, propertyID calendar.PropertyID, stay daterange.DateRange, today time.Time) Result {
	if c == nil {
		return reject(ReasonNotFound)
	}
	if !c.IsActive {
		return reject(ReasonInactive)
	}
	day := daterange.Day(today)
	if c.ValidUntil != nil && daterange.Day(*c.ValidUntil).Before(day) {
		return reject(ReasonExpired)
	}
	if len(c.PropertyIDs) > 0 && propertyID != "" && !containsProperty(c.PropertyIDs, propertyID) {
		return reject(ReasonWrongProperty)
	}
	checkIn := daterange.Day(stay.CheckIn)
	if c.BookingValidFrom != nil && checkIn.Before(daterange.Day(*c.BookingValidFrom)) {
		return reject(ReasonOutsideWindow)
	}
	if c.BookingValidUntil != nil && checkIn.After(daterange.Day(*c.BookingValidUntil)) {
		return reject(ReasonOutsideWindow)
	}
	for _, p := range c.ExclusionPeriods {
		if p.Overlaps(stay.CheckIn, stay.CheckOut) {
			return reject(ReasonExcluded)
		}
	}
	return Result{Applicable: true, DiscountPercentage: c.DiscountPercentage}
}

func containsProperty(ids []calendar.PropertyID, id calendar.PropertyID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
