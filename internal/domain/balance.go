package domain

import "github.com/shopspring/decimal"

// Balance holds the two-asset account of a single user. Available funds can
// back new orders; frozen funds are reserved against open orders and released
// on cancellation. All four quantities must stay non-negative at every
// committed state.
type Balance struct {
	UserID         int64
	BaseAvailable  decimal.Decimal
	BaseFrozen     decimal.Decimal
	QuoteAvailable decimal.Decimal
	QuoteFrozen    decimal.Decimal
}

// NewBalance returns a fresh balance seeded with the configured starting
// quote amount. Created once per user, at the trading service boundary.
func NewBalance(userID int64, startingQuote decimal.Decimal) *Balance {
	return &Balance{
		UserID:         userID,
		BaseAvailable:  decimal.Zero,
		BaseFrozen:     decimal.Zero,
		QuoteAvailable: startingQuote,
		QuoteFrozen:    decimal.Zero,
	}
}

// IsNonNegative reports whether every quantity is >= 0.
func (b Balance) IsNonNegative() bool {
	return !b.BaseAvailable.IsNegative() &&
		!b.BaseFrozen.IsNegative() &&
		!b.QuoteAvailable.IsNegative() &&
		!b.QuoteFrozen.IsNegative()
}
