package daterange

import (
	"errors"
	"testing"
	"time"
)

func TestParseRejectsNonPositiveRanges(t *testing.T) {
	for _, tc := range [][2]string{
		{"2025-07-05", "2025-07-05"},
		{"2025-07-05", "2025-07-04"},
	} {
		if _, err := Parse(tc[0], tc[1]); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("Parse(%s, %s) err = %v", tc[0], tc[1], err)
		}
	}
	if _, err := Parse("07/05/2025", "2025-07-06"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected invalid date, got %v", err)
	}
}

func TestDatesExcludeCheckOut(t *testing.T) {
	dr, err := Parse("2025-12-30", "2026-01-02")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if dr.Nights() != 3 {
		t.Fatalf("nights = %d", dr.Nights())
	}
	dates := dr.Dates()
	if len(dates) != 3 || FormatDate(dates[2]) != "2026-01-01" {
		t.Fatalf("dates = %v", dates)
	}
	if dr.ContainsDate(dr.CheckOut) {
		t.Fatal("check-out day is not a consumed night")
	}
}

func TestParseDateAcceptsTimestamps(t *testing.T) {
	got, err := ParseDate("2025-07-05T22:30:00+02:00")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !got.Equal(time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got %v", got)
	}
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	a, _ := Parse("2025-07-01", "2025-07-05")
	b, _ := Parse("2025-07-05", "2025-07-08")
	if a.Overlaps(b) {
		t.Fatal("back-to-back stays must not overlap")
	}
	if !a.Overlaps(b.Shift(-1)) {
		t.Fatal("shifted stay should overlap")
	}
}

func TestRangeLengthIsBounded(t *testing.T) {
	if _, err := Parse("2025-01-01", "2026-01-02"); err != nil {
		t.Fatalf("a %d-night range should be accepted: %v", MaxNights, err)
	}
	if _, err := Parse("2025-01-01", "2026-01-03"); !errors.Is(err, ErrRangeTooLong) {
		t.Fatalf("367 nights err = %v", err)
	}

	huge := DateRange{
		CheckIn:  time.Date(1, 1, 2, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	if n := huge.Nights(); n != 3652057 {
		t.Fatalf("nights = %d", n)
	}
	if err := huge.Validate(); !errors.Is(err, ErrRangeTooLong) {
		t.Fatalf("Validate = %v", err)
	}
}

func TestThroughIncludesLastDay(t *testing.T) {
	dr := Through(time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC), time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC))
	if dr.Nights() != 10 {
		t.Fatalf("nights = %d", dr.Nights())
	}
	if !dr.ContainsDate(time.Date(2025, 7, 10, 23, 0, 0, 0, time.UTC)) || dr.ContainsDate(time.Date(2025, 7, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("range %s", dr)
	}
}
