package calendar

import (
	"errors"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func applyAll(shards map[Month]*Shard, writes []ShardWrite, now time.Time) {
	for _, w := range writes {
		shards[w.Month] = Apply(shards[w.Month], w, now)
	}
}

func TestShardKeyFormat(t *testing.T) {
	if got := ShardKey("p1", MonthOf(day("2025-08-03"))); got != "p1_2025-08" {
		t.Fatalf("ShardKey = %q", got)
	}
}

func TestMissingShardReadsAvailableAndUnknown(t *testing.T) {
	state := Lookup(map[Month]*Shard{}, day("2025-08-03"))
	if !state.Bookable() {
		t.Fatal("missing shard should read as bookable")
	}
	if state.Known {
		t.Fatal("missing shard should not be reported as explicitly written")
	}
}

func TestPlanChangesIsIdempotent(t *testing.T) {
	now := day("2025-06-01")
	shards := map[Month]*Shard{}
	changes := []NightChange{
		{Date: day("2025-07-30"), Available: false},
		{Date: day("2025-07-31"), Available: false},
		{Date: day("2025-08-01"), Available: false},
	}
	writes, err := PlanChanges("p1", shards, changes)
	if err != nil {
		t.Fatalf("PlanChanges: %v", err)
	}
	if len(writes) != 2 {
		t.Fatalf("expected one write per month, got %d", len(writes))
	}
	if !writes[0].Create || !writes[1].Create {
		t.Fatal("first write to a month should create the shard")
	}
	applyAll(shards, writes, now)

	again, err := PlanChanges("p1", shards, changes)
	if err != nil {
		t.Fatalf("PlanChanges: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("repeated changes planned %d writes", len(again))
	}
}

func TestPlanChangesWritesOnlyDifferingDays(t *testing.T) {
	m := MonthOf(day("2025-07-01"))
	shard := NewShard("p1", m, day("2025-06-01"))
	shard.Available[5] = false
	writes, err := PlanChanges("p1", map[Month]*Shard{m: shard}, []NightChange{
		{Date: day("2025-07-05"), Available: false},
		{Date: day("2025-07-06"), Available: false},
	})
	if err != nil {
		t.Fatalf("PlanChanges: %v", err)
	}
	if len(writes) != 1 || len(writes[0].Fields) != 1 || writes[0].Fields[0].Day != 6 {
		t.Fatalf("writes = %+v", writes)
	}
	if writes[0].Create {
		t.Fatal("existing shard must not be recreated")
	}
}

func TestPlanChangesRejectsAvailableHeldNight(t *testing.T) {
	_, err := PlanChanges("p1", nil, []NightChange{{Date: day("2025-07-01"), Available: true, HoldID: "b1"}})
	if !errors.Is(err, ErrHeldNightAvailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestClaimReleaseRoundTrip(t *testing.T) {
	now := day("2025-06-01")
	shards := map[Month]*Shard{}
	dates := []time.Time{day("2025-07-30"), day("2025-07-31"), day("2025-08-01")}

	writes, err := PlanClaim("p1", shards, dates, "b1")
	if err != nil {
		t.Fatalf("PlanClaim: %v", err)
	}
	applyAll(shards, writes, now)
	for _, s := range shards {
		if err := s.Validate(); err != nil {
			t.Fatalf("shard %s invalid after claim: %v", s.Key(), err)
		}
	}
	for _, d := range dates {
		state := Lookup(shards, d)
		if state.Available || state.HoldID != "b1" {
			t.Fatalf("%s not claimed: %+v", d.Format("2006-01-02"), state)
		}
	}

	writes, err = PlanRelease("p1", shards, dates, "b1")
	if err != nil {
		t.Fatalf("PlanRelease: %v", err)
	}
	applyAll(shards, writes, now)
	for _, d := range dates {
		state := Lookup(shards, d)
		if !state.Available || state.HoldID != "" {
			t.Fatalf("%s not released: %+v", d.Format("2006-01-02"), state)
		}
	}
}

func TestPlanClaimReportsContestedNights(t *testing.T) {
	now := day("2025-06-01")
	shards := map[Month]*Shard{}
	first, _ := PlanClaim("p1", shards, []time.Time{day("2025-07-02")}, "b1")
	applyAll(shards, first, now)

	_, err := PlanClaim("p1", shards, []time.Time{day("2025-07-01"), day("2025-07-02")}, "b2")
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v", err)
	}
	if len(unavailable.Dates) != 1 || !unavailable.Dates[0].Equal(day("2025-07-02")) {
		t.Fatalf("contested = %v", unavailable.Dates)
	}
	if !errors.Is(err, ErrNightsUnavailable) {
		t.Fatal("UnavailableError should unwrap to ErrNightsUnavailable")
	}

	again, err := PlanClaim("p1", shards, []time.Time{day("2025-07-02")}, "b1")
	if err != nil || len(again) != 0 {
		t.Fatalf("re-claim by the same holder: writes=%v err=%v", again, err)
	}
}

func TestPlanReleaseLeavesOtherHolders(t *testing.T) {
	now := day("2025-06-01")
	shards := map[Month]*Shard{}
	w, _ := PlanClaim("p1", shards, []time.Time{day("2025-07-02")}, "b1")
	applyAll(shards, w, now)

	writes, err := PlanRelease("p1", shards, []time.Time{day("2025-07-02")}, "b2")
	if err != nil {
		t.Fatalf("PlanRelease: %v", err)
	}
	if len(writes) != 0 {
		t.Fatalf("release by another holder planned %v", writes)
	}
}

func TestHeldNightsSorted(t *testing.T) {
	m := MonthOf(day("2025-07-01"))
	shard := NewShard("p1", m, day("2025-06-01"))
	shard.Available[9], shard.Holds[9] = false, "b2"
	shard.Available[3], shard.Holds[3] = false, "b1"
	held := shard.HeldNights()
	if len(held) != 2 || held[0].HoldID != "b1" || held[1].Date.Day() != 9 {
		t.Fatalf("held = %+v", held)
	}
}

func TestMonthsBetweenCrossesYear(t *testing.T) {
	months := MonthsBetween(day("2025-12-15"), day("2026-02-01"))
	want := []string{"2025-12", "2026-01", "2026-02"}
	if len(months) != len(want) {
		t.Fatalf("months = %v", months)
	}
	for i, m := range months {
		if m.String() != want[i] {
			t.Fatalf("months[%d] = %s, want %s", i, m, want[i])
		}
	}
}
