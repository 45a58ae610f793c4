package availability

import (
	"context"
	"sort"
	"time"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/daterange"
)

const (
	DefaultHorizonDays = 60
	NextAvailableLabel = "Next Available"
)

// Result describes a candidate stay against the calendar.
type Result struct {
	PropertyID       calendar.PropertyID
	Range            daterange.DateRange
	IsAvailable      bool
	UnavailableDates []time.Time
	Conflicts        []calendar.NightState
	// Holders are the distinct booking ids claiming the conflicting nights.
	Holders []string
}

// DatesHeldBy returns the conflicting nights claimed by holdID.
func (r Result) DatesHeldBy(holdID string) []time.Time {
	var out []time.Time
	for _, n := range r.Conflicts {
		if n.HoldID == holdID {
			out = append(out, n.Date)
		}
	}
	return out
}

type Suggestion struct {
	Range daterange.DateRange
	Label string
}

// Checker decides whether every night of a stay is free.
type Checker struct {
	Calendar    calendar.Repository
	HorizonDays int
	Now         func() time.Time
}

func (c *Checker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Checker) horizon() int {
	if c.HorizonDays > 0 {
		return c.HorizonDays
	}
	return DefaultHorizonDays
}

// Check reads the shards spanning the stay. An empty range is rejected before
// any lookup; a missing shard reads as free.
func (c *Checker) Check(ctx context.Context, propertyID calendar.PropertyID, dr daterange.DateRange) (Result, error) {
	const op = "availability.Check"
	if err := dr.Validate(); err != nil {
		return Result{}, apperr.Validation(op, err)
	}
	dates := dr.Dates()
	shards, err := c.Calendar.ReadShards(ctx, propertyID, calendar.MonthsSpanning(dates))
	if err != nil {
		return Result{}, err
	}
	return Evaluate(propertyID, dr, shards, ""), nil
}

// Evaluate tests every night of dr against fetched shards. Nights already
// claimed by holdID do not conflict.
func Evaluate(propertyID calendar.PropertyID, dr daterange.DateRange, shards map[calendar.Month]*calendar.Shard, holdID string) Result {
	res := Result{PropertyID: propertyID, Range: dr, IsAvailable: true}
	seen := map[string]bool{}
	for _, d := range dr.Dates() {
		state := calendar.Lookup(shards, d)
		if state.BookableFor(holdID) {
			continue
		}
		res.IsAvailable = false
		res.UnavailableDates = append(res.UnavailableDates, d)
		res.Conflicts = append(res.Conflicts, state)
		if state.HoldID != "" && !seen[state.HoldID] {
			seen[state.HoldID] = true
			res.Holders = append(res.Holders, state.HoldID)
		}
	}
	sort.Strings(res.Holders)
	return res
}

// SuggestNext scans forward from the day after the requested check-out for the
// first free window of the same length, skipping windows that start in the
// past. It returns nil when nothing is free within the horizon.
func (c *Checker) SuggestNext(ctx context.Context, propertyID calendar.PropertyID, dr daterange.DateRange) (*Suggestion, error) {
	const op = "availability.SuggestNext"
	if err := dr.Validate(); err != nil {
		return nil, apperr.Validation(op, err)
	}
	nights := dr.Nights()
	first := dr.CheckOut.AddDate(0, 0, 1)
	horizon := c.horizon()
	lastCheckOut := first.AddDate(0, 0, horizon+nights)
	shards, err := c.Calendar.ReadShards(ctx, propertyID, calendar.MonthsBetween(first, lastCheckOut))
	if err != nil {
		return nil, err
	}

	today := daterange.Day(c.now())
	for offset := 0; offset <= horizon; offset++ {
		candidate := dr.Shift(nights + 1 + offset)
		if candidate.CheckIn.Before(today) {
			continue
		}
		if Evaluate(propertyID, candidate, shards, "").IsAvailable {
			return &Suggestion{Range: candidate, Label: NextAvailableLabel}, nil
		}
	}
	return nil, nil
}
