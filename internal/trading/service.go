// Package trading orchestrates order lifecycle transitions. Every mutating
// operation runs inside a single ledger transaction covering the balance and
// order rows, so a failure on either write rolls back both.
//
// Limit orders placed here stay Open until the user cancels them: there is no
// matching engine and no fill path in this system.
package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skalper-bot/trading-bot/internal/domain"
	"github.com/skalper-bot/trading-bot/internal/ledger"
	"github.com/skalper-bot/trading-bot/internal/pricefeed"
	"github.com/skalper-bot/trading-bot/internal/repository"
	"github.com/skalper-bot/trading-bot/pkg/metrics"
)

// conflictRetries bounds transparent retries of transactions that lost an
// isolation race before the conflict surfaces to the caller.
const conflictRetries = 3

// Config carries the trading knobs resolved from configuration.
type Config struct {
	Pair          string
	StartingQuote decimal.Decimal
}

// Fill describes the outcome of a market buy.
type Fill struct {
	Order      *domain.Order
	BaseBought decimal.Decimal
	Price      decimal.Decimal
}

// Service is the order lifecycle manager.
type Service struct {
	store  repository.LedgerStore
	prices pricefeed.Source
	cfg    Config
	log    *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service instance.
func NewService(store repository.LedgerStore, prices pricefeed.Source, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store:  store,
		prices: prices,
		cfg:    cfg,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreateBalance loads the user's balance, creating it with the
// configured starting quote amount on first trading action. This is the only
// place a balance row comes into existence.
func (s *Service) GetOrCreateBalance(ctx context.Context, userID int64) (*domain.Balance, error) {
	var result *domain.Balance

	err := s.withTx(ctx, func(tx repository.LedgerTx) error {
		b, err := s.loadOrSeedBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// PlaceMarketBuy spends quoteAmount at the current reference price and
// records a Completed order. Market buys always execute instantly since
// there is no counter-party matching.
func (s *Service) PlaceMarketBuy(ctx context.Context, userID int64, quoteAmount decimal.Decimal) (*Fill, error) {
	price, err := s.prices.CurrentPrice(ctx, s.cfg.Pair)
	if err != nil {
		return nil, fmt.Errorf("resolve current price: %w", err)
	}

	var fill *Fill

	err = s.withTx(ctx, func(tx repository.LedgerTx) error {
		balance, err := s.loadOrSeedBalance(ctx, tx, userID)
		if err != nil {
			return err
		}

		updated, baseBought, err := ledger.ApplyMarketBuy(*balance, quoteAmount, price)
		if err != nil {
			return err
		}

		if err := tx.PutBalance(ctx, &updated); err != nil {
			return err
		}

		order := &domain.Order{
			UserID:    userID,
			Side:      domain.OrderSideBuy,
			Amount:    baseBought,
			Price:     price,
			Status:    domain.OrderStatusCompleted,
			CreatedAt: s.now(),
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		fill = &Fill{Order: order, BaseBought: baseBought, Price: price}
		return nil
	})
	if err != nil {
		s.recordRejection("market_buy", err)
		return nil, err
	}

	metrics.RecordOrderPlaced(string(domain.OrderSideBuy), string(domain.OrderStatusCompleted))
	s.log.Info("market buy executed",
		slog.Int64("user_id", userID),
		slog.String("quote_spent", quoteAmount.String()),
		slog.String("base_bought", fill.BaseBought.String()),
	)

	return fill, nil
}

// PlaceLimitSell reserves baseAmount of the base asset and records an Open
// sell order at the given price.
func (s *Service) PlaceLimitSell(ctx context.Context, userID int64, baseAmount, price decimal.Decimal) (*domain.Order, error) {
	order, err := s.placeReservation(ctx, userID, domain.OrderSideSell, baseAmount, price)
	if err != nil {
		s.recordRejection("limit_sell", err)
		return nil, err
	}

	metrics.RecordOrderPlaced(string(domain.OrderSideSell), string(domain.OrderStatusOpen))
	return order, nil
}

// PlaceLimitBuy reserves baseAmount*price of the quote asset and records an
// Open buy order.
func (s *Service) PlaceLimitBuy(ctx context.Context, userID int64, baseAmount, price decimal.Decimal) (*domain.Order, error) {
	order, err := s.placeReservation(ctx, userID, domain.OrderSideBuy, baseAmount, price)
	if err != nil {
		s.recordRejection("limit_buy", err)
		return nil, err
	}

	metrics.RecordOrderPlaced(string(domain.OrderSideBuy), string(domain.OrderStatusOpen))
	return order, nil
}

func (s *Service) placeReservation(ctx context.Context, userID int64, side domain.OrderSide, baseAmount, price decimal.Decimal) (*domain.Order, error) {
	var placed *domain.Order

	err := s.withTx(ctx, func(tx repository.LedgerTx) error {
		balance, err := s.loadOrSeedBalance(ctx, tx, userID)
		if err != nil {
			return err
		}

		var updated domain.Balance
		if side == domain.OrderSideSell {
			updated, err = ledger.ApplySellReservation(*balance, baseAmount, price)
		} else {
			updated, err = ledger.ApplyBuyReservation(*balance, baseAmount, price)
		}
		if err != nil {
			return err
		}

		if err := tx.PutBalance(ctx, &updated); err != nil {
			return err
		}

		order := &domain.Order{
			UserID:    userID,
			Side:      side,
			Amount:    baseAmount,
			Price:     price,
			Status:    domain.OrderStatusOpen,
			CreatedAt: s.now(),
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("limit order placed",
		slog.Int64("user_id", userID),
		slog.Int64("order_id", placed.ID),
		slog.String("side", string(side)),
		slog.String("amount", baseAmount.String()),
		slog.String("price", price.String()),
	)

	return placed, nil
}

// CancelOrder releases the reservation of an Open order owned by userID and
// marks it Cancelled. A repeated cancel returns ledger.ErrAlreadyFinal and
// changes nothing.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID int64) error {
	err := s.withTx(ctx, func(tx repository.LedgerTx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			// Foreign orders are indistinguishable from missing ones.
			return ledger.ErrNotFound
		}
		if order.IsFinal() {
			return ledger.ErrAlreadyFinal
		}

		balance, err := tx.GetBalanceForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		updated, err := ledger.ReleaseReservation(*balance, order)
		if err != nil {
			return err
		}

		if err := tx.PutBalance(ctx, &updated); err != nil {
			return err
		}

		return tx.UpdateOrderStatus(ctx, orderID, domain.OrderStatusCancelled)
	})
	if err != nil {
		s.recordRejection("cancel", err)
		return err
	}

	metrics.RecordOrderCancelled()
	s.log.Info("order cancelled", slog.Int64("user_id", userID), slog.Int64("order_id", orderID))

	return nil
}

// ListOrders returns the user's order history, newest first.
func (s *Service) ListOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	var orders []domain.Order

	err := s.withTx(ctx, func(tx repository.LedgerTx) error {
		list, err := tx.ListOrders(ctx, userID)
		if err != nil {
			return err
		}
		orders = list
		return nil
	})
	if err != nil {
		return nil, err
	}

	return orders, nil
}

// loadOrSeedBalance reads the balance inside tx, seeding a fresh one with
// the configured starting quote when none exists yet.
func (s *Service) loadOrSeedBalance(ctx context.Context, tx repository.LedgerTx, userID int64) (*domain.Balance, error) {
	balance, err := tx.GetBalanceForUpdate(ctx, userID)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}

	// A concurrent first trade may insert the row between the read above and
	// this insert; the guarded insert loses to it, and the re-read below
	// returns the winner's row under lock.
	seeded := domain.NewBalance(userID, s.cfg.StartingQuote)
	if err := tx.SeedBalance(ctx, seeded); err != nil {
		return nil, err
	}

	s.log.Info("seeded balance for new trader",
		slog.Int64("user_id", userID),
		slog.String("quote_available", s.cfg.StartingQuote.String()),
	)

	return tx.GetBalanceForUpdate(ctx, userID)
}

// withTx runs fn inside a ledger transaction, committing on success and
// rolling back otherwise. Conflicting transactions are retried a bounded
// number of times before the conflict is surfaced.
func (s *Service) withTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	var err error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !errors.Is(err, ledger.ErrConflict) {
			return err
		}

		s.log.Warn("ledger transaction conflict, retrying",
			slog.Int("attempt", attempt+1),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 25 * time.Millisecond):
		}
	}

	return err
}

func (s *Service) runTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error("ledger rollback failed", slog.Any("error", rbErr))
		}
		return err
	}

	return tx.Commit()
}

func (s *Service) recordRejection(operation string, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		metrics.RecordLedgerRejection(operation, "insufficient_funds")
	case errors.Is(err, ledger.ErrInvalidQuantity):
		metrics.RecordLedgerRejection(operation, "invalid_quantity")
	case errors.Is(err, ledger.ErrNotFound):
		metrics.RecordLedgerRejection(operation, "not_found")
	case errors.Is(err, ledger.ErrAlreadyFinal):
		metrics.RecordLedgerRejection(operation, "already_final")
	case errors.Is(err, ledger.ErrConflict):
		metrics.RecordLedgerRejection(operation, "conflict")
	}
}
