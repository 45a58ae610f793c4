package calendar

import (
	"context"
	"time"
)

// Repository is the Calendar Store. Every mutation is field-granular and
// all shard writes of a single call commit together or not at all.
type Repository interface {
	// ReadShards returns the stored shards; months never written are absent
	// from the map and must be read as all-available.
	ReadShards(ctx context.Context, propertyID PropertyID, months []Month) (map[Month]*Shard, error)
	// ApplyNightChanges writes the desired night states, diffing first so a
	// repeated call performs no writes.
	ApplyNightChanges(ctx context.Context, propertyID PropertyID, changes []NightChange) error
	// ClaimNights marks every date unavailable and held by holdID, failing
	// with *UnavailableError when any night is claimed by someone else.
	ClaimNights(ctx context.Context, propertyID PropertyID, dates []time.Time, holdID string) error
	// ReleaseNights frees the dates still held by holdID.
	ReleaseNights(ctx context.Context, propertyID PropertyID, dates []time.Time, holdID string) error
	// HeldNights lists claimed nights; an empty propertyID scans all properties.
	HeldNights(ctx context.Context, propertyID PropertyID) ([]HeldNight, error)
}
