package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var ErrInvalidMonth = errors.New("calendar: month must be formatted YYYY-MM")

// Month identifies one calendar month; it is half of a shard's identity.
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

func ParseMonth(value string) (Month, error) {
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m Month) Date(day int) time.Time {
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC)
}

func (m Month) Next() Month {
	return MonthOf(time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC))
}

func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// MonthsSpanning returns the sorted, de-duplicated months touched by dates.
func MonthsSpanning(dates []time.Time) []Month {
	seen := make(map[Month]struct{}, 2)
	out := make([]Month, 0, 2)
	for _, d := range dates {
		m := MonthOf(d)
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// MonthsBetween lists every month from the month of from through the month of to.
func MonthsBetween(from, to time.Time) []Month {
	start, end := MonthOf(from), MonthOf(to)
	var out []Month
	for m := start; !end.Before(m); m = m.Next() {
		out = append(out, m)
	}
	return out
}
