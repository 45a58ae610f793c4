package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"rentalspot/internal/domain/shared/daterange"
)

var (
	ErrNightsUnavailable = errors.New("calendar: nights no longer available")
	ErrHoldIDRequired    = errors.New("calendar: hold id required")
)

// NightChange is the desired end state of one night. An empty HoldID clears
// the claim.
type NightChange struct {
	Date      time.Time
	Available bool
	HoldID    string
}

// FieldWrite is a single day whose stored value differs from the desired one.
type FieldWrite struct {
	Day       int
	Available bool
	HoldID    string
}

// ShardWrite is the minimal set of field updates for one shard.
type ShardWrite struct {
	PropertyID PropertyID
	Month      Month
	// Create is set when the shard does not exist yet and must be seeded
	// with full-month defaults before Fields are applied.
	Create bool
	Fields []FieldWrite
}

func (w ShardWrite) Key() string {
	return ShardKey(w.PropertyID, w.Month)
}

// UnavailableError lists the nights that blocked a conditional claim.
type UnavailableError struct {
	PropertyID PropertyID
	Dates      []time.Time
}

func (e *UnavailableError) Error() string {
	parts := make([]string, 0, len(e.Dates))
	for _, d := range e.Dates {
		parts = append(parts, daterange.FormatDate(d))
	}
	return fmt.Sprintf("%s: property %s: %s", ErrNightsUnavailable, e.PropertyID, strings.Join(parts, ","))
}

func (e *UnavailableError) Unwrap() error { return ErrNightsUnavailable }

// PlanChanges diffs the requested changes against current shard state and
// returns only the writes needed. Applying the same changes to the resulting
// state plans nothing.
func PlanChanges(propertyID PropertyID, current map[Month]*Shard, changes []NightChange) ([]ShardWrite, error) {
	desired := make(map[Month]map[int]NightChange)
	for _, ch := range changes {
		if ch.HoldID != "" && ch.Available {
			return nil, ErrHeldNightAvailable
		}
		date := daterange.Day(ch.Date)
		m := MonthOf(date)
		if desired[m] == nil {
			desired[m] = make(map[int]NightChange)
		}
		ch.Date = date
		desired[m][date.Day()] = ch
	}

	months := make([]Month, 0, len(desired))
	for m := range desired {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	var writes []ShardWrite
	for _, m := range months {
		shard := current[m]
		days := make([]int, 0, len(desired[m]))
		for d := range desired[m] {
			days = append(days, d)
		}
		sort.Ints(days)

		w := ShardWrite{PropertyID: propertyID, Month: m, Create: shard == nil}
		for _, d := range days {
			ch := desired[m][d]
			cur := shard.Night(d)
			if cur.Available == ch.Available && cur.HoldID == ch.HoldID {
				continue
			}
			w.Fields = append(w.Fields, FieldWrite{Day: d, Available: ch.Available, HoldID: ch.HoldID})
		}
		if len(w.Fields) > 0 {
			writes = append(writes, w)
		}
	}
	return writes, nil
}

// PlanClaim plans a conditional claim of dates for holdID. Nights already
// claimed by holdID are accepted; any other claimed or unavailable night
// fails the whole claim.
func PlanClaim(propertyID PropertyID, current map[Month]*Shard, dates []time.Time, holdID string) ([]ShardWrite, error) {
	if holdID == "" {
		return nil, ErrHoldIDRequired
	}
	var contested []time.Time
	changes := make([]NightChange, 0, len(dates))
	for _, d := range dates {
		state := Lookup(current, daterange.Day(d))
		if !state.BookableFor(holdID) {
			contested = append(contested, state.Date)
			continue
		}
		changes = append(changes, NightChange{Date: d, Available: false, HoldID: holdID})
	}
	if len(contested) > 0 {
		return nil, &UnavailableError{PropertyID: propertyID, Dates: contested}
	}
	return PlanChanges(propertyID, current, changes)
}

// PlanRelease frees only the nights still claimed by holdID.
func PlanRelease(propertyID PropertyID, current map[Month]*Shard, dates []time.Time, holdID string) ([]ShardWrite, error) {
	if holdID == "" {
		return nil, ErrHoldIDRequired
	}
	changes := make([]NightChange, 0, len(dates))
	for _, d := range dates {
		state := Lookup(current, daterange.Day(d))
		if state.HoldID != holdID {
			continue
		}
		changes = append(changes, NightChange{Date: d, Available: true})
	}
	return PlanChanges(propertyID, current, changes)
}

// Apply overlays a write onto the shard, creating it with defaults when needed.
func Apply(shard *Shard, w ShardWrite, now time.Time) *Shard {
	if shard == nil {
		shard = NewShard(w.PropertyID, w.Month, now)
	}
	if shard.Available == nil {
		shard.Available = make(map[int]bool)
	}
	if shard.Holds == nil {
		shard.Holds = make(map[int]string)
	}
	for _, f := range w.Fields {
		shard.Available[f.Day] = f.Available
		if f.HoldID == "" {
			delete(shard.Holds, f.Day)
		} else {
			shard.Holds[f.Day] = f.HoldID
		}
	}
	shard.UpdatedAt = now.UTC()
	return shard
}

// HeldNight is one claimed night, used by reconciliation.
type HeldNight struct {
	PropertyID PropertyID
	Date       time.Time
	HoldID     string
}

// HeldNights flattens the claims recorded in a shard.
func (s *Shard) HeldNights() []HeldNight {
	if s == nil {
		return nil
	}
	days := make([]int, 0, len(s.Holds))
	for d, h := range s.Holds {
		if h != "" {
			days = append(days, d)
		}
	}
	sort.Ints(days)
	out := make([]HeldNight, 0, len(days))
	for _, d := range days {
		out = append(out, HeldNight{PropertyID: s.PropertyID, Date: s.Month.Date(d), HoldID: s.Holds[d]})
	}
	return out
}
