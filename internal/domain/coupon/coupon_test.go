package coupon

import (
	"testing"
	"time"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/daterange"
)

func date(s string) time.Time {
	t, err := daterange.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func stay(in, out string) daterange.DateRange {
	dr, err := daterange.Parse(in, out)
	if err != nil {
		panic(err)
	}
	return dr
}

func ptr(t time.Time) *time.Time { return &t }

func TestEvaluateExclusionPeriods(t *testing.T) {
	c := &Coupon{
		Code:               "SUMMER",
		DiscountPercentage: 15,
		IsActive:           true,
		ExclusionPeriods:   []Period{{Start: date("2025-07-01"), End: date("2025-07-10")}},
	}
	today := date("2025-05-01")
	cases := []struct {
		name string
		stay daterange.DateRange
		want bool
	}{
		{"fully inside", stay("2025-07-05", "2025-07-08"), false},
		{"fully outside", stay("2025-06-01", "2025-06-05"), true},
		{"partial overlap", stay("2025-07-09", "2025-07-15"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(c, "p1", tc.stay, today)
			if res.Applicable != tc.want {
				t.Fatalf("applicable = %v (%s)", res.Applicable, res.Reason)
			}
			if !tc.want && res.Reason != ReasonExcluded {
				t.Fatalf("reason = %q", res.Reason)
			}
		})
	}
}

func TestEvaluateOrder(t *testing.T) {
	today := date("2025-05-01")
	s := stay("2025-07-01", "2025-07-03")
	cases := []struct {
		name string
		c    *Coupon
		want Reason
	}{
		{"missing", nil, ReasonNotFound},
		{"inactive beats expired", &Coupon{DiscountPercentage: 10, ValidUntil: ptr(date("2025-01-01"))}, ReasonInactive},
		{"expired", &Coupon{DiscountPercentage: 10, IsActive: true, ValidUntil: ptr(date("2025-04-30"))}, ReasonExpired},
		{"valid until today", &Coupon{DiscountPercentage: 10, IsActive: true, ValidUntil: ptr(today)}, ReasonNone},
		{"before window", &Coupon{DiscountPercentage: 10, IsActive: true, BookingValidFrom: ptr(date("2025-07-02"))}, ReasonOutsideWindow},
		{"after window", &Coupon{DiscountPercentage: 10, IsActive: true, BookingValidUntil: ptr(date("2025-06-30"))}, ReasonOutsideWindow},
		{"other property", &Coupon{DiscountPercentage: 10, IsActive: true, PropertyIDs: []calendar.PropertyID{"p2"}}, ReasonWrongProperty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(tc.c, "p1", s, today)
			if res.Reason != tc.want {
				t.Fatalf("reason = %q, want %q", res.Reason, tc.want)
			}
			if (tc.want == ReasonNone) != res.Applicable {
				t.Fatalf("applicable = %v", res.Applicable)
			}
		})
	}
}

func TestMalformedPeriodStillBlocks(t *testing.T) {
	c := &Coupon{
		Code:               "BACKWARDS",
		DiscountPercentage: 5,
		IsActive:           true,
		ExclusionPeriods:   []Period{{Start: date("2025-07-10"), End: date("2025-07-01")}},
	}
	if err := c.Validate(); err == nil {
		t.Fatal("Validate should flag the malformed period")
	}
	res := Evaluate(c, "p1", stay("2025-07-03", "2025-07-05"), date("2025-05-01"))
	if res.Applicable || res.Reason != ReasonExcluded {
		t.Fatalf("result = %+v", res)
	}
}
