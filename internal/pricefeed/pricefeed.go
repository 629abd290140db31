// Package pricefeed abstracts the market-data input of the bot.
package pricefeed

import (
	"context"

	"github.com/shopspring/decimal"
)

// Source provides the current reference price for a trading pair. The
// accounting engine never talks to a Source directly; the trading service
// resolves the price once per operation.
type Source interface {
	CurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error)
}

// Static serves a single configured price for every pair. This is the only
// implementation in use today; a live feed can replace it behind the same
// interface.
type Static struct {
	price decimal.Decimal
}

// NewStatic builds a Source that always answers with price.
func NewStatic(price decimal.Decimal) *Static {
	return &Static{price: price}
}

// CurrentPrice returns the configured price regardless of pair.
func (s *Static) CurrentPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	return s.price, nil
}
