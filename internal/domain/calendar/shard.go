package calendar

import (
	"errors"
	"time"
)

type PropertyID string

var ErrHeldNightAvailable = errors.New("calendar: a held night cannot be marked available")

// ShardKey is the persisted document key "{propertyId}_{YYYY-MM}".
func ShardKey(propertyID PropertyID, month Month) string {
	return string(propertyID) + "_" + month.String()
}

// Shard is one property's availability and hold state for one month.
//
// Available uses default-available semantics: a missing day is bookable.
// Holds maps a day to the booking id claiming it; a missing day is unclaimed.
type Shard struct {
	PropertyID PropertyID
	Month      Month
	Available  map[int]bool
	Holds      map[int]string
	UpdatedAt  time.Time
}

// NewShard returns a shard seeded with full-month defaults.
func NewShard(propertyID PropertyID, month Month, now time.Time) *Shard {
	s := &Shard{
		PropertyID: propertyID,
		Month:      month,
		Available:  make(map[int]bool, month.Days()),
		Holds:      make(map[int]string),
		UpdatedAt:  now.UTC(),
	}
	for d := 1; d <= month.Days(); d++ {
		s.Available[d] = true
	}
	return s
}

func (s *Shard) Key() string {
	return ShardKey(s.PropertyID, s.Month)
}

// NightState is the resolved state of one night.
type NightState struct {
	Date      time.Time
	Available bool
	HoldID    string
	// Known is false when the value comes from defaults rather than a write.
	Known bool
}

// Bookable reports whether a new party may claim the night.
func (n NightState) Bookable() bool {
	return n.Available && n.HoldID == ""
}

// BookableFor also accepts a night already claimed by holdID.
func (n NightState) BookableFor(holdID string) bool {
	if holdID != "" && n.HoldID == holdID {
		return true
	}
	return n.Bookable()
}

func (s *Shard) Night(day int) NightState {
	state := NightState{Available: true, Known: false}
	if s == nil {
		return state
	}
	state.Date = s.Month.Date(day)
	if v, ok := s.Available[day]; ok {
		state.Available = v
		state.Known = true
	}
	if h := s.Holds[day]; h != "" {
		state.HoldID = h
		state.Known = true
	}
	return state
}

// Validate checks the shard invariant: a held day is never available.
func (s *Shard) Validate() error {
	for day, holder := range s.Holds {
		if holder == "" {
			continue
		}
		if v, ok := s.Available[day]; !ok || v {
			return ErrHeldNightAvailable
		}
	}
	return nil
}

func (s *Shard) Clone() *Shard {
	if s == nil {
		return nil
	}
	out := &Shard{PropertyID: s.PropertyID, Month: s.Month, UpdatedAt: s.UpdatedAt}
	out.Available = make(map[int]bool, len(s.Available))
	for k, v := range s.Available {
		out.Available[k] = v
	}
	out.Holds = make(map[int]string, len(s.Holds))
	for k, v := range s.Holds {
		out.Holds[k] = v
	}
	return out
}

// Lookup resolves a date against a set of fetched shards; an absent shard
// resolves to the default state.
func Lookup(shards map[Month]*Shard, date time.Time) NightState {
	state := shards[MonthOf(date)].Night(date.Day())
	state.Date = date
	return state
}
