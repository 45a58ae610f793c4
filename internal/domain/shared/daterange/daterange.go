package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
	// MaxNights bounds every range: stays, calendar windows and host edits.
	MaxNights = 366

	secondsPerDay = 24 * 60 * 60
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
	ErrInvalidDate  = errors.New("daterange: invalid date")
	ErrRangeTooLong = errors.New("daterange: range exceeds the maximum number of nights")
)

// DateRange represents a half-open interval [checkIn, checkOut) of calendar days.
// The check-out day itself is not a consumed night.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Parse builds a range from two YYYY-MM-DD strings.
func Parse(checkIn, checkOut string) (DateRange, error) {
	in, err := ParseDate(checkIn)
	if err != nil {
		return DateRange{}, err
	}
	out, err := ParseDate(checkOut)
	if err != nil {
		return DateRange{}, err
	}
	return New(in, out)
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	if n := dr.Nights(); n > MaxNights {
		return fmt.Errorf("%w: %d > %d", ErrRangeTooLong, n, MaxNights)
	}
	return nil
}

// Through covers first..last with both days included.
func Through(first, last time.Time) DateRange {
	return DateRange{CheckIn: Day(first), CheckOut: Day(last).AddDate(0, 0, 1)}
}

// Nights counts calendar days between the ends. Unix seconds keep the count
// exact for ranges a time.Duration cannot hold.
func (dr DateRange) Nights() int {
	return int((Day(dr.CheckOut).Unix() - Day(dr.CheckIn).Unix()) / secondsPerDay)
}

// Dates enumerates every consumed night, check-out excluded.
func (dr DateRange) Dates() []time.Time {
	n := dr.Nights()
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	for d := dr.CheckIn; d.Before(dr.CheckOut); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Shift moves both ends by the given number of days, keeping the length.
func (dr DateRange) Shift(days int) DateRange {
	return DateRange{CheckIn: dr.CheckIn.AddDate(0, 0, days), CheckOut: dr.CheckOut.AddDate(0, 0, days)}
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = Day(t)
	return (t.Equal(dr.CheckIn) || t.After(dr.CheckIn)) && t.Before(dr.CheckOut)
}

func (dr DateRange) String() string {
	return FormatDate(dr.CheckIn) + ".." + FormatDate(dr.CheckOut)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return Day(t), nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
