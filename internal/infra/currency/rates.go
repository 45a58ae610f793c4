package currency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"rentalspot/internal/app/policies"
	"rentalspot/internal/domain/shared/money"
)

// RateTable converts between currencies using fixed rates quoted against Base.
// It is presentation-only: nothing it returns is persisted.
type RateTable struct {
	Base  string
	Rates map[string]float64
}

// NewRateTable normalizes codes and drops non-positive rates.
func NewRateTable(base string, rates map[string]float64, logger *slog.Logger) *RateTable {
	base = normalize(base)
	t := &RateTable{Base: base, Rates: make(map[string]float64, len(rates))}
	for code, rate := range rates {
		code = normalize(code)
		if code == "" || rate <= 0 {
			if logger != nil {
				logger.Warn("ignoring display rate", "currency", code, "rate", rate)
			}
			continue
		}
		t.Rates[code] = rate
	}
	if base != "" {
		t.Rates[base] = 1
	}
	return t
}

func (t *RateTable) rate(code string) (float64, bool) {
	if code == t.Base {
		return 1, true
	}
	r, ok := t.Rates[code]
	return r, ok
}

func (t *RateTable) Convert(ctx context.Context, amount money.Money, to string) (money.Money, error) {
	to = normalize(to)
	from := normalize(amount.Currency)
	if from == to {
		return amount, nil
	}
	fromRate, ok := t.rate(from)
	if !ok {
		return money.Money{}, fmt.Errorf("%w: %s", policies.ErrUnsupportedCurrency, from)
	}
	toRate, ok := t.rate(to)
	if !ok {
		return money.Money{}, fmt.Errorf("%w: %s", policies.ErrUnsupportedCurrency, to)
	}
	return amount.Convert(toRate/fromRate, to), nil
}

// Supported lists the currencies the table can convert into.
func (t *RateTable) Supported() []string {
	out := make([]string, 0, len(t.Rates))
	for code := range t.Rates {
		out = append(out, code)
	}
	return out
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var _ policies.CurrencyConverter = (*RateTable)(nil)
