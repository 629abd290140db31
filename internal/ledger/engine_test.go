package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/skalper-bot/trading-bot/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func balance(baseAvail, baseFrozen, quoteAvail, quoteFrozen string) domain.Balance {
	return domain.Balance{
		UserID:         1,
		BaseAvailable:  dec(baseAvail),
		BaseFrozen:     dec(baseFrozen),
		QuoteAvailable: dec(quoteAvail),
		QuoteFrozen:    dec(quoteFrozen),
	}
}

func TestApplyMarketBuy(t *testing.T) {
	testCases := []struct {
		name        string
		balance     domain.Balance
		quoteAmount string
		price       string
		expectedErr error
		wantBase    string
		wantQuote   string
		wantBought  string
	}{
		{
			name:        "buy half of starting quote",
			balance:     balance("0", "0", "10000", "0"),
			quoteAmount: "5000",
			price:       "50000",
			wantBase:    "0.1",
			wantQuote:   "5000",
			wantBought:  "0.1",
		},
		{
			name:        "buy entire quote balance",
			balance:     balance("0", "0", "10000", "0"),
			quoteAmount: "10000",
			price:       "50000",
			wantBase:    "0.2",
			wantQuote:   "0",
			wantBought:  "0.2",
		},
		{
			name:        "insufficient quote",
			balance:     balance("0", "0", "100", "0"),
			quoteAmount: "101",
			price:       "50000",
			expectedErr: ErrInsufficientFunds,
		},
		{
			name:        "zero amount rejected",
			balance:     balance("0", "0", "10000", "0"),
			quoteAmount: "0",
			price:       "50000",
			expectedErr: ErrInvalidQuantity,
		},
		{
			name:        "negative amount rejected",
			balance:     balance("0", "0", "10000", "0"),
			quoteAmount: "-5",
			price:       "50000",
			expectedErr: ErrInvalidQuantity,
		},
		{
			name:        "zero price rejected",
			balance:     balance("0", "0", "10000", "0"),
			quoteAmount: "100",
			price:       "0",
			expectedErr: ErrInvalidQuantity,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			before := tc.balance
			after, bought, err := ApplyMarketBuy(tc.balance, dec(tc.quoteAmount), dec(tc.price))

			if tc.expectedErr != nil {
				if !errors.Is(err, tc.expectedErr) {
					t.Fatalf("expected %v, got %v", tc.expectedErr, err)
				}
				if !after.BaseAvailable.Equal(before.BaseAvailable) || !after.QuoteAvailable.Equal(before.QuoteAvailable) {
					t.Fatalf("balance mutated on error: %+v", after)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bought.Equal(dec(tc.wantBought)) {
				t.Errorf("bought = %s, want %s", bought, tc.wantBought)
			}
			if !after.BaseAvailable.Equal(dec(tc.wantBase)) {
				t.Errorf("base available = %s, want %s", after.BaseAvailable, tc.wantBase)
			}
			if !after.QuoteAvailable.Equal(dec(tc.wantQuote)) {
				t.Errorf("quote available = %s, want %s", after.QuoteAvailable, tc.wantQuote)
			}
			if !after.IsNonNegative() {
				t.Errorf("balance went negative: %+v", after)
			}
		})
	}
}

func TestApplySellReservation(t *testing.T) {
	testCases := []struct {
		name        string
		balance     domain.Balance
		amount      string
		price       string
		expectedErr error
		wantAvail   string
		wantFrozen  string
	}{
		{
			name:       "freeze part of base",
			balance:    balance("0.5", "0", "0", "0"),
			amount:     "0.1",
			price:      "60000",
			wantAvail:  "0.4",
			wantFrozen: "0.1",
		},
		{
			name:       "freeze everything",
			balance:    balance("0.1", "0", "0", "0"),
			amount:     "0.1",
			price:      "60000",
			wantAvail:  "0",
			wantFrozen: "0.1",
		},
		{
			name:        "more than available",
			balance:     balance("0.1", "0", "0", "0"),
			amount:      "1",
			price:       "60000",
			expectedErr: ErrInsufficientFunds,
		},
		{
			name:        "zero amount",
			balance:     balance("1", "0", "0", "0"),
			amount:      "0",
			price:       "60000",
			expectedErr: ErrInvalidQuantity,
		},
		{
			name:        "negative price",
			balance:     balance("1", "0", "0", "0"),
			amount:      "0.1",
			price:       "-1",
			expectedErr: ErrInvalidQuantity,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			before := tc.balance
			after, err := ApplySellReservation(tc.balance, dec(tc.amount), dec(tc.price))

			if tc.expectedErr != nil {
				if !errors.Is(err, tc.expectedErr) {
					t.Fatalf("expected %v, got %v", tc.expectedErr, err)
				}
				if !after.BaseAvailable.Equal(before.BaseAvailable) || !after.BaseFrozen.Equal(before.BaseFrozen) {
					t.Fatalf("balance mutated on error: %+v", after)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !after.BaseAvailable.Equal(dec(tc.wantAvail)) {
				t.Errorf("base available = %s, want %s", after.BaseAvailable, tc.wantAvail)
			}
			if !after.BaseFrozen.Equal(dec(tc.wantFrozen)) {
				t.Errorf("base frozen = %s, want %s", after.BaseFrozen, tc.wantFrozen)
			}
		})
	}
}

func TestApplyBuyReservation(t *testing.T) {
	b := balance("0", "0", "10000", "0")

	after, err := ApplyBuyReservation(b, dec("0.1"), dec("45000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !after.QuoteAvailable.Equal(dec("5500")) {
		t.Errorf("quote available = %s, want 5500", after.QuoteAvailable)
	}
	if !after.QuoteFrozen.Equal(dec("4500")) {
		t.Errorf("quote frozen = %s, want 4500", after.QuoteFrozen)
	}

	if _, err := ApplyBuyReservation(b, dec("1"), dec("45000")); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := ApplyBuyReservation(b, dec("0"), dec("45000")); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestReleaseReservation_RoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		side  domain.OrderSide
		start domain.Balance
	}{
		{name: "sell order round trip", side: domain.OrderSideSell, start: balance("0.1", "0", "5000", "0")},
		{name: "buy order round trip", side: domain.OrderSideBuy, start: balance("0", "0", "10000", "0")},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			amount := dec("0.1")
			price := dec("60000")

			var reserved domain.Balance
			var err error
			if tc.side == domain.OrderSideSell {
				reserved, err = ApplySellReservation(tc.start, amount, price)
			} else {
				reserved, err = ApplyBuyReservation(tc.start, amount, price)
			}
			if err != nil {
				t.Fatalf("reservation failed: %v", err)
			}

			order := &domain.Order{
				ID:     1,
				UserID: 1,
				Side:   tc.side,
				Amount: amount,
				Price:  price,
				Status: domain.OrderStatusOpen,
			}

			released, err := ReleaseReservation(reserved, order)
			if err != nil {
				t.Fatalf("release failed: %v", err)
			}

			if !released.BaseAvailable.Equal(tc.start.BaseAvailable) ||
				!released.BaseFrozen.Equal(tc.start.BaseFrozen) ||
				!released.QuoteAvailable.Equal(tc.start.QuoteAvailable) ||
				!released.QuoteFrozen.Equal(tc.start.QuoteFrozen) {
				t.Errorf("round trip did not restore balance: start=%+v end=%+v", tc.start, released)
			}
		})
	}
}

func TestReleaseReservation_Guards(t *testing.T) {
	b := balance("0", "0.1", "0", "0")

	finalOrder := &domain.Order{Side: domain.OrderSideSell, Amount: dec("0.1"), Status: domain.OrderStatusCancelled}
	if _, err := ReleaseReservation(b, finalOrder); !errors.Is(err, ErrAlreadyFinal) {
		t.Errorf("expected ErrAlreadyFinal, got %v", err)
	}

	if _, err := ReleaseReservation(b, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for nil order, got %v", err)
	}

	// Frozen bucket smaller than the order reservation means the stores
	// diverged. The release must be refused rather than clamped.
	oversized := &domain.Order{Side: domain.OrderSideSell, Amount: dec("1"), Status: domain.OrderStatusOpen}
	if _, err := ReleaseReservation(b, oversized); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}
