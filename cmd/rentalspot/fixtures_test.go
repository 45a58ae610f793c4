package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"rentalspot/internal/infra/storage/memory"
)

func TestLoadFixturesSeedsRepositories(t *testing.T) {
	ctx := context.Background()
	properties := memory.NewPropertyRepository()
	coupons := memory.NewCouponRepository()
	if err := loadFixtures(ctx, filepath.Join("..", "..", "data", "fixtures.json"), properties, coupons, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}
	p, err := properties.ByID(ctx, "prop-lisbon-loft")
	if err != nil {
		t.Fatalf("property: %v", err)
	}
	if len(p.SeasonalRates) != 2 || p.Currency != "EUR" {
		t.Fatalf("property = %+v", p)
	}
	c, err := coupons.ByCode(ctx, "summer15")
	if err != nil {
		t.Fatalf("coupon: %v", err)
	}
	if len(c.ExclusionPeriods) != 1 || len(c.PropertyIDs) == 0 {
		t.Fatalf("coupon = %+v", c)
	}
}

func TestLoadFixturesSkipsBadEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixtures.json")
	body := `{
  "properties": [
    {"id": "ok", "currency": "USD", "price_per_night": 100, "base_occupancy": 1, "active": true},
    {"id": "bad", "currency": "US", "price_per_night": 100, "base_occupancy": 1}
  ],
  "coupons": [
    {"code": "BACKWARDS", "discount_percentage": 5, "is_active": true,
     "exclusion_periods": [{"start": "2025-07-10", "end": "2025-07-01"}]},
    {"code": "", "discount_percentage": 5}
  ]
}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	properties := memory.NewPropertyRepository()
	coupons := memory.NewCouponRepository()
	if err := loadFixtures(ctx, path, properties, coupons, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}
	if _, err := properties.ByID(ctx, "ok"); err != nil {
		t.Fatalf("valid property skipped: %v", err)
	}
	if _, err := properties.ByID(ctx, "bad"); err == nil {
		t.Fatal("invalid property imported")
	}
	if _, err := coupons.ByCode(ctx, "backwards"); err != nil {
		t.Fatalf("coupon with malformed period skipped: %v", err)
	}
}

func TestLoadFixturesMissingFile(t *testing.T) {
	err := loadFixtures(context.Background(), filepath.Join(t.TempDir(), "none.json"), memory.NewPropertyRepository(), memory.NewCouponRepository(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("missing file should be skipped: %v", err)
	}
}
