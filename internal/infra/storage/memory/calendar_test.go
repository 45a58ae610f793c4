package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentalspot/internal/domain/calendar"
	"rentalspot/internal/domain/shared/apperr"
)

func day(month time.Month, d int) time.Time {
	return time.Date(2025, month, d, 0, 0, 0, 0, time.UTC)
}

func TestApplyNightChangesTwiceWritesOnce(t *testing.T) {
	cases := []struct {
		name       string
		changes    []calendar.NightChange
		wantWrites int
	}{
		{
			name: "block across a month boundary",
			changes: []calendar.NightChange{
				{Date: day(time.July, 31)},
				{Date: day(time.August, 1)},
			},
			wantWrites: 2,
		},
		{
			name: "mixed edits in one month",
			changes: []calendar.NightChange{
				{Date: day(time.July, 10)},
				{Date: day(time.July, 11)},
				{Date: day(time.July, 12), Available: true},
			},
			wantWrites: 1,
		},
		{
			name:       "reopen an untouched month",
			changes:    []calendar.NightChange{{Date: day(time.September, 5), Available: true}},
			wantWrites: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewCalendarRepository()
			if err := repo.ApplyNightChanges(ctx, "p1", tc.changes); err != nil {
				t.Fatalf("first apply: %v", err)
			}
			if got := repo.Writes(); got != tc.wantWrites {
				t.Fatalf("first apply wrote %d shards, want %d", got, tc.wantWrites)
			}
			if err := repo.ApplyNightChanges(ctx, "p1", tc.changes); err != nil {
				t.Fatalf("second apply: %v", err)
			}
			if got := repo.Writes(); got != tc.wantWrites {
				t.Fatalf("second apply wrote %d more shards", got-tc.wantWrites)
			}
		})
	}
}

func TestReleaseNightsLeavesOtherHolds(t *testing.T) {
	ctx := context.Background()
	repo := NewCalendarRepository()
	mine := []time.Time{day(time.July, 20), day(time.July, 21)}
	theirs := []time.Time{day(time.July, 22), day(time.July, 23)}
	if err := repo.ClaimNights(ctx, "p1", mine, "hold-a"); err != nil {
		t.Fatalf("claim a: %v", err)
	}
	if err := repo.ClaimNights(ctx, "p1", theirs, "hold-b"); err != nil {
		t.Fatalf("claim b: %v", err)
	}

	err := repo.ClaimNights(ctx, "p1", []time.Time{day(time.July, 21), day(time.July, 22)}, "hold-c")
	var unavailable *calendar.UnavailableError
	if !apperr.Is(err, apperr.KindConflict) || !errors.As(err, &unavailable) || len(unavailable.Dates) != 2 {
		t.Fatalf("overlapping claim err = %v", err)
	}

	before := repo.Writes()
	if err := repo.ReleaseNights(ctx, "p1", append(append([]time.Time{}, mine...), theirs...), "hold-a"); err != nil {
		t.Fatalf("release a: %v", err)
	}
	if repo.Writes() != before+1 {
		t.Fatalf("release wrote %d shards", repo.Writes()-before)
	}

	held, err := repo.HeldNights(ctx, "p1")
	if err != nil {
		t.Fatalf("held: %v", err)
	}
	if len(held) != 2 {
		t.Fatalf("held = %+v", held)
	}
	for i, h := range held {
		if h.HoldID != "hold-b" || !h.Date.Equal(theirs[i]) {
			t.Fatalf("held[%d] = %+v", i, h)
		}
	}

	shards, err := repo.ReadShards(ctx, "p1", []calendar.Month{calendar.MonthOf(day(time.July, 1))})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, d := range mine {
		if n := shards[calendar.MonthOf(d)].Night(d.Day()); !n.Available || n.HoldID != "" {
			t.Fatalf("night %s = %+v", d.Format("2006-01-02"), n)
		}
	}

	before = repo.Writes()
	if err := repo.ReleaseNights(ctx, "p1", mine, "hold-a"); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if repo.Writes() != before {
		t.Fatal("releasing freed nights wrote shards")
	}
}
