// Package ledger implements the balance accounting rules for order
// lifecycle transitions. Every function is pure: it takes the current
// balance by value and returns the mutated copy, never touching storage.
// Preconditions are rejected, never clamped; on error the input balance
// must be discarded by the caller.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/skalper-bot/trading-bot/internal/domain"
)

// ApplyMarketBuy spends quoteAmount from the available quote balance and
// credits the equivalent base amount at the given price. Returns the updated
// balance and the base amount bought.
func ApplyMarketBuy(b domain.Balance, quoteAmount, price decimal.Decimal) (domain.Balance, decimal.Decimal, error) {
	if !quoteAmount.IsPositive() || !price.IsPositive() {
		return b, decimal.Zero, ErrInvalidQuantity
	}
	if b.QuoteAvailable.LessThan(quoteAmount) {
		return b, decimal.Zero, ErrInsufficientFunds
	}

	baseBought := quoteAmount.Div(price)
	b.QuoteAvailable = b.QuoteAvailable.Sub(quoteAmount)
	b.BaseAvailable = b.BaseAvailable.Add(baseBought)

	return b, baseBought, nil
}

// ApplySellReservation freezes baseAmount of the base asset against a new
// limit sell order. Price only validates the order; the reservation itself
// is denominated in base units.
func ApplySellReservation(b domain.Balance, baseAmount, price decimal.Decimal) (domain.Balance, error) {
	if !baseAmount.IsPositive() || !price.IsPositive() {
		return b, ErrInvalidQuantity
	}
	if b.BaseAvailable.LessThan(baseAmount) {
		return b, ErrInsufficientFunds
	}

	b.BaseAvailable = b.BaseAvailable.Sub(baseAmount)
	b.BaseFrozen = b.BaseFrozen.Add(baseAmount)

	return b, nil
}

// ApplyBuyReservation freezes baseAmount*price of the quote asset against a
// new limit buy order.
func ApplyBuyReservation(b domain.Balance, baseAmount, price decimal.Decimal) (domain.Balance, error) {
	if !baseAmount.IsPositive() || !price.IsPositive() {
		return b, ErrInvalidQuantity
	}

	quoteNeeded := baseAmount.Mul(price)
	if b.QuoteAvailable.LessThan(quoteNeeded) {
		return b, ErrInsufficientFunds
	}

	b.QuoteAvailable = b.QuoteAvailable.Sub(quoteNeeded)
	b.QuoteFrozen = b.QuoteFrozen.Add(quoteNeeded)

	return b, nil
}

// ReleaseReservation reverses exactly the reservation applied when the order
// was placed. Valid only for open orders; the caller is responsible for the
// status check and transition.
func ReleaseReservation(b domain.Balance, o *domain.Order) (domain.Balance, error) {
	if o == nil {
		return b, ErrNotFound
	}
	if o.Status != domain.OrderStatusOpen {
		return b, ErrAlreadyFinal
	}

	switch o.Side {
	case domain.OrderSideSell:
		b.BaseFrozen = b.BaseFrozen.Sub(o.Amount)
		b.BaseAvailable = b.BaseAvailable.Add(o.Amount)
	case domain.OrderSideBuy:
		reserved := o.Amount.Mul(o.Price)
		b.QuoteFrozen = b.QuoteFrozen.Sub(reserved)
		b.QuoteAvailable = b.QuoteAvailable.Add(reserved)
	default:
		return b, ErrNotFound
	}

	if !b.IsNonNegative() {
		// A negative frozen bucket means the order and balance diverged;
		// refuse to commit the release.
		return b, ErrConflict
	}

	return b, nil
}
