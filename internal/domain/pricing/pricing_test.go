package pricing

import (
	"testing"
	"time"

	"rentalspot/internal/domain/property"
	"rentalspot/internal/domain/shared/apperr"
	"rentalspot/internal/domain/shared/daterange"
)

func TestCalculateIdentities(t *testing.T) {
	cases := []struct {
		name      string
		in        Input
		wantExtra int
		wantTotal int64
	}{
		{
			name:      "base occupancy",
			in:        Input{PricePerNight: 10000, NumberOfNights: 3, CleaningFee: 2500, NumberOfGuests: 2, BaseOccupancy: 2, ExtraGuestFeePerNight: 1000, Currency: "usd"},
			wantExtra: 0,
			wantTotal: 32500,
		},
		{
			name:      "extra guests",
			in:        Input{PricePerNight: 10000, NumberOfNights: 3, CleaningFee: 2500, NumberOfGuests: 4, BaseOccupancy: 2, ExtraGuestFeePerNight: 1000, Currency: "USD"},
			wantExtra: 2,
			wantTotal: 38500,
		},
		{
			name:      "discount",
			in:        Input{PricePerNight: 10000, NumberOfNights: 2, CleaningFee: 0, NumberOfGuests: 1, BaseOccupancy: 2, Currency: "USD", DiscountPercentage: 10, CouponCode: "TEN"},
			wantExtra: 0,
			wantTotal: 18000,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := Calculate(tc.in)
			if err != nil {
				t.Fatalf("Calculate: %v", err)
			}
			if snap.NumberOfExtraGuests != tc.wantExtra {
				t.Fatalf("extra guests = %d", snap.NumberOfExtraGuests)
			}
			if snap.Subtotal.Amount != snap.AccommodationTotal.Amount+snap.CleaningFee.Amount+snap.ExtraGuestFeeTotal.Amount {
				t.Fatalf("subtotal identity broken: %+v", snap)
			}
			if snap.Total.Amount != snap.Subtotal.Amount-snap.DiscountAmount.Amount {
				t.Fatalf("total identity broken: %+v", snap)
			}
			if snap.Total.Amount != tc.wantTotal {
				t.Fatalf("total = %d, want %d", snap.Total.Amount, tc.wantTotal)
			}
			if snap.Currency != "USD" {
				t.Fatalf("currency = %q", snap.Currency)
			}
		})
	}
}

func TestCalculateRejectsNonPositiveInputs(t *testing.T) {
	for _, in := range []Input{
		{PricePerNight: 100, NumberOfNights: 0, NumberOfGuests: 1, BaseOccupancy: 1, Currency: "USD"},
		{PricePerNight: 100, NumberOfNights: 2, NumberOfGuests: 0, BaseOccupancy: 1, Currency: "USD"},
		{PricePerNight: 100, NumberOfNights: 2, NumberOfGuests: 1, BaseOccupancy: 1, Currency: ""},
		{PricePerNight: -1, NumberOfNights: 2, NumberOfGuests: 1, BaseOccupancy: 1, Currency: "USD"},
	} {
		snap, err := Calculate(in)
		if err == nil || snap != nil {
			t.Fatalf("Calculate(%+v) = %v, %v", in, snap, err)
		}
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("err kind = %q", apperr.KindOf(err))
		}
	}
}

func TestQuoteStayUsesSeasonalBreakdown(t *testing.T) {
	p := &property.Property{
		ID:            "p1",
		Currency:      "EUR",
		PricePerNight: 10000,
		BaseOccupancy: 2,
		SeasonalRates: []property.SeasonalRate{{
			Name:          "summer",
			Start:         time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			End:           time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC),
			PricePerNight: 15000,
		}},
	}
	dr, err := daterange.Parse("2025-06-30", "2025-07-02")
	if err != nil {
		t.Fatal(err)
	}
	snap, err := QuoteStay(p, dr, 2, 0, "")
	if err != nil {
		t.Fatalf("QuoteStay: %v", err)
	}
	if len(snap.DailyRates) != 2 || snap.DailyRates[1].Source != "season:summer" {
		t.Fatalf("daily = %+v", snap.DailyRates)
	}
	if snap.AccommodationTotal.Amount != 25000 {
		t.Fatalf("accommodation = %d", snap.AccommodationTotal.Amount)
	}

	off, err := daterange.Parse("2025-06-01", "2025-06-03")
	if err != nil {
		t.Fatal(err)
	}
	flat, err := QuoteStay(p, off, 2, 0, "")
	if err != nil {
		t.Fatalf("QuoteStay: %v", err)
	}
	if len(flat.DailyRates) != 0 {
		t.Fatal("off-season stay should not carry a breakdown")
	}
}
