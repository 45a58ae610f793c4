package policies

import (
	"context"
	"errors"

	"rentalspot/internal/domain/shared/money"
)

var ErrUnsupportedCurrency = errors.New("policies: unsupported display currency")

// CurrencyConverter converts amounts for presentation only; converted values
// are never persisted into a pricing snapshot.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount money.Money, to string) (money.Money, error)
}
