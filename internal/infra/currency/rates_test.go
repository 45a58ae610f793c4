package currency

import (
	"context"
	"errors"
	"testing"

	"rentalspot/internal/app/policies"
	"rentalspot/internal/domain/shared/money"
)

func TestRateTableConvert(t *testing.T) {
	table := NewRateTable("usd", map[string]float64{"eur": 0.9, "GBP": 0.8, "XXX": -1}, nil)
	cases := []struct {
		name string
		in   money.Money
		to   string
		want money.Money
	}{
		{"same currency", money.Must(1000, "USD"), "usd", money.Must(1000, "USD")},
		{"from base", money.Must(1000, "USD"), "EUR", money.Must(900, "EUR")},
		{"to base", money.Must(900, "EUR"), "USD", money.Must(1000, "USD")},
		{"cross", money.Must(900, "EUR"), "GBP", money.Must(800, "GBP")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := table.Convert(context.Background(), tc.in, tc.to)
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestRateTableRejectsUnknownCurrency(t *testing.T) {
	table := NewRateTable("USD", map[string]float64{"XXX": 0}, nil)
	_, err := table.Convert(context.Background(), money.Must(100, "USD"), "XXX")
	if !errors.Is(err, policies.ErrUnsupportedCurrency) {
		t.Fatalf("err = %v", err)
	}
}
