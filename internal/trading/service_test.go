package trading

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skalper-bot/trading-bot/internal/domain"
	"github.com/skalper-bot/trading-bot/internal/ledger"
	"github.com/skalper-bot/trading-bot/internal/pricefeed"
	"github.com/skalper-bot/trading-bot/internal/repository"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeStore is an in-memory LedgerStore with transaction staging, so tests
// can observe rollback behavior and inject write failures.
type fakeStore struct {
	balances map[int64]domain.Balance
	orders   map[int64]domain.Order
	nextID   int64

	failInsertOrder  error
	failPutBalance   error
	conflictOnBegin  int
	beginsSeen       int
	committedTxCount int

	// missFirstBalanceRead makes the next balance read report ErrNotFound
	// even when the row exists, mimicking a concurrent first trade that
	// commits its seed between the read and the guarded insert.
	missFirstBalanceRead bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		balances: make(map[int64]domain.Balance),
		orders:   make(map[int64]domain.Order),
		nextID:   1,
	}
}

func (s *fakeStore) Begin(_ context.Context) (repository.LedgerTx, error) {
	s.beginsSeen++
	if s.conflictOnBegin > 0 {
		s.conflictOnBegin--
		return nil, ledger.ErrConflict
	}

	tx := &fakeTx{
		store:    s,
		balances: make(map[int64]domain.Balance),
		orders:   make(map[int64]domain.Order),
	}
	for id, b := range s.balances {
		tx.balances[id] = b
	}
	for id, o := range s.orders {
		tx.orders[id] = o
	}
	return tx, nil
}

type fakeTx struct {
	store    *fakeStore
	balances map[int64]domain.Balance
	orders   map[int64]domain.Order
	done     bool
}

func (t *fakeTx) GetBalanceForUpdate(_ context.Context, userID int64) (*domain.Balance, error) {
	if t.store.missFirstBalanceRead {
		t.store.missFirstBalanceRead = false
		return nil, ledger.ErrNotFound
	}

	b, ok := t.balances[userID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &b, nil
}

func (t *fakeTx) PutBalance(_ context.Context, b *domain.Balance) error {
	if err := t.store.failPutBalance; err != nil {
		return err
	}
	t.balances[b.UserID] = *b
	return nil
}

func (t *fakeTx) SeedBalance(_ context.Context, b *domain.Balance) error {
	if err := t.store.failPutBalance; err != nil {
		return err
	}
	if _, ok := t.balances[b.UserID]; ok {
		return nil
	}
	t.balances[b.UserID] = *b
	return nil
}

func (t *fakeTx) GetOrderForUpdate(_ context.Context, orderID int64) (*domain.Order, error) {
	o, ok := t.orders[orderID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &o, nil
}

func (t *fakeTx) InsertOrder(_ context.Context, o *domain.Order) error {
	if err := t.store.failInsertOrder; err != nil {
		return err
	}
	o.ID = t.store.nextID
	t.store.nextID++
	t.orders[o.ID] = *o
	return nil
}

func (t *fakeTx) UpdateOrderStatus(_ context.Context, orderID int64, status domain.OrderStatus) error {
	o, ok := t.orders[orderID]
	if !ok {
		return ledger.ErrNotFound
	}
	o.Status = status
	t.orders[orderID] = o
	return nil
}

func (t *fakeTx) ListOrders(_ context.Context, userID int64) ([]domain.Order, error) {
	var orders []domain.Order
	for _, o := range t.orders {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	// Newest first, matching the SQL ordering.
	for i := 0; i < len(orders); i++ {
		for j := i + 1; j < len(orders); j++ {
			if orders[j].CreatedAt.After(orders[i].CreatedAt) ||
				(orders[j].CreatedAt.Equal(orders[i].CreatedAt) && orders[j].ID > orders[i].ID) {
				orders[i], orders[j] = orders[j], orders[i]
			}
		}
	}
	return orders, nil
}

func (t *fakeTx) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	t.store.balances = t.balances
	t.store.orders = t.orders
	t.store.committedTxCount++
	return nil
}

func (t *fakeTx) Rollback() error {
	t.done = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestService(store *fakeStore, price string) *Service {
	svc := NewService(
		store,
		pricefeed.NewStatic(dec(price)),
		Config{Pair: "BTC/USDT", StartingQuote: dec("10000")},
		testLogger(),
	)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	calls := 0
	svc.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	return svc
}

func TestPlaceMarketBuy(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, "50000")

	fill, err := svc.PlaceMarketBuy(ctx, 7, dec("5000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !fill.BaseBought.Equal(dec("0.1")) {
		t.Errorf("base bought = %s, want 0.1", fill.BaseBought)
	}
	if fill.Order.Status != domain.OrderStatusCompleted {
		t.Errorf("order status = %s, want Completed", fill.Order.Status)
	}

	b := store.balances[7]
	if !b.QuoteAvailable.Equal(dec("5000")) {
		t.Errorf("quote available = %s, want 5000", b.QuoteAvailable)
	}
	if !b.BaseAvailable.Equal(dec("0.1")) {
		t.Errorf("base available = %s, want 0.1", b.BaseAvailable)
	}
	if len(store.orders) != 1 {
		t.Errorf("expected 1 order, got %d", len(store.orders))
	}
}

func TestPlaceMarketBuy_Validation(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name        string
		amount      string
		expectedErr error
	}{
		{name: "zero amount", amount: "0", expectedErr: ledger.ErrInvalidQuantity},
		{name: "negative amount", amount: "-10", expectedErr: ledger.ErrInvalidQuantity},
		{name: "over budget", amount: "10001", expectedErr: ledger.ErrInsufficientFunds},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc := newTestService(store, "50000")

			if _, err := svc.PlaceMarketBuy(ctx, 7, dec(tc.amount)); !errors.Is(err, tc.expectedErr) {
				t.Fatalf("expected %v, got %v", tc.expectedErr, err)
			}

			if len(store.orders) != 0 {
				t.Errorf("no order should be committed, got %d", len(store.orders))
			}
		})
	}
}

func TestPlaceLimitSell_ThenCancel_RestoresBalance(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, "50000")

	if _, err := svc.PlaceMarketBuy(ctx, 7, dec("5000")); err != nil {
		t.Fatalf("market buy failed: %v", err)
	}

	order, err := svc.PlaceLimitSell(ctx, 7, dec("0.1"), dec("60000"))
	if err != nil {
		t.Fatalf("limit sell failed: %v", err)
	}
	if order.Status != domain.OrderStatusOpen {
		t.Fatalf("order status = %s, want Open", order.Status)
	}

	reserved := store.balances[7]
	if !reserved.BaseAvailable.Equal(dec("0")) || !reserved.BaseFrozen.Equal(dec("0.1")) {
		t.Fatalf("reservation not applied: %+v", reserved)
	}

	if err := svc.CancelOrder(ctx, 7, order.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	restored := store.balances[7]
	if !restored.BaseAvailable.Equal(dec("0.1")) || !restored.BaseFrozen.Equal(dec("0")) {
		t.Errorf("cancel did not restore balance: %+v", restored)
	}
	if store.orders[order.ID].Status != domain.OrderStatusCancelled {
		t.Errorf("order status = %s, want Cancelled", store.orders[order.ID].Status)
	}
}

func TestPlaceLimitSell_InsufficientBase(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, "50000")

	if _, err := svc.PlaceMarketBuy(ctx, 7, dec("5000")); err != nil {
		t.Fatalf("market buy failed: %v", err)
	}

	before := store.balances[7]
	if _, err := svc.PlaceLimitSell(ctx, 7, dec("1"), dec("60000")); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	after := store.balances[7]
	if !after.BaseAvailable.Equal(before.BaseAvailable) || !after.BaseFrozen.Equal(before.BaseFrozen) {
		t.Errorf("balance changed despite rejection: before=%+v after=%+v", before, after)
	}
}

func TestCancelOrder_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, "50000")

	if _, err := svc.PlaceMarketBuy(ctx, 7, dec("5000")); err != nil {
		t.Fatalf("market buy failed: %v", err)
	}
	order, err := svc.PlaceLimitSell(ctx, 7, dec("0.1"), dec("60000"))
	if err != nil {
		t.Fatalf("limit sell failed: %v", err)
	}

	if err := svc.CancelOrder(ctx, 7, order.ID); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}
	afterFirst := store.balances[7]

	if err := svc.CancelOrder(ctx, 7, order.ID); !errors.Is(err, ledger.ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal on second cancel, got %v", err)
	}

	afterSecond := store.balances[7]
	if !afterSecond.BaseAvailable.Equal(afterFirst.BaseAvailable) || !afterSecond.BaseFrozen.Equal(afterFirst.BaseFrozen) {
		t.Errorf("second cancel mutated balance: %+v vs %+v", afterFirst, afterSecond)
	}
}

func TestCancelOrder_OwnershipAndMissing(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, "50000")

	if _, err := svc.PlaceMarketBuy(ctx, 7, dec("5000")); err != nil {
		t.Fatalf("market buy failed: %v", err)
	}
	order, err := svc.PlaceLimitSell(ctx, 7, dec("0.1"), dec("60000"))
	if err != nil {
		t.Fatalf("limit sell failed: %v", err)
	}

	if err := svc.CancelOrder(ctx, 99, order.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("foreign cancel: expected ErrNotFound, got %v", err)
	}
	if err := svc.CancelOrder(ctx, 7, 424242); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("missing order: expected ErrNotFound, got %v", err)
	}
}

func TestAtomicity_OrderWriteFailureRollsBackBalance(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, "50000")

	if _, err := svc.GetOrCreateBalance(ctx, 7); err != nil {
		t.Fatalf("seed balance failed: %v", err)
	}
	before := store.balances[7]

	store.failInsertOrder = errors.New("disk full")
	if _, err := svc.PlaceMarketBuy(ctx, 7, dec("5000")); err == nil {
		t.Fatal("expected error from injected order write failure")
	}

	after := store.balances[7]
	if !after.QuoteAvailable.Equal(before.QuoteAvailable) || !after.BaseAvailable.Equal(before.BaseAvailable) {
		t.Errorf("balance write leaked past rollback: before=%+v after=%+v", before, after)
	}
	if len(store.orders) != 0 {
		t.Errorf("order leaked past rollback: %d orders", len(store.orders))
	}
}

func TestConflictRetry(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, "50000")

	store.conflictOnBegin = 2
	if _, err := svc.PlaceMarketBuy(ctx, 7, dec("100")); err != nil {
		t.Fatalf("expected conflict to be retried away, got %v", err)
	}
	if store.beginsSeen != 3 {
		t.Errorf("begins = %d, want 3", store.beginsSeen)
	}

	store.conflictOnBegin = conflictRetries + 1
	if _, err := svc.PlaceMarketBuy(ctx, 7, dec("100")); !errors.Is(err, ledger.ErrConflict) {
		t.Errorf("expected surfaced ErrConflict after retries, got %v", err)
	}
}

func TestGetOrCreateBalance_SeedsOnce(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, "50000")

	first, err := svc.GetOrCreateBalance(ctx, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.QuoteAvailable.Equal(dec("10000")) {
		t.Errorf("starting quote = %s, want 10000", first.QuoteAvailable)
	}

	if _, err := svc.PlaceMarketBuy(ctx, 7, dec("1000")); err != nil {
		t.Fatalf("market buy failed: %v", err)
	}

	second, err := svc.GetOrCreateBalance(ctx, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.QuoteAvailable.Equal(dec("9000")) {
		t.Errorf("balance was re-seeded: %+v", second)
	}
}

func TestSeedBalance_ConcurrentFirstTradeNotOverwritten(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, "50000")

	// One first trade has already committed: 10000 seeded, 1000 spent.
	if _, err := svc.PlaceMarketBuy(ctx, 7, dec("1000")); err != nil {
		t.Fatalf("first trade failed: %v", err)
	}

	// The second trade's balance read misses as if both transactions had
	// started before either seeded. The guarded insert must lose to the
	// committed row instead of resetting it to the starting quote.
	store.missFirstBalanceRead = true
	if _, err := svc.PlaceMarketBuy(ctx, 7, dec("1000")); err != nil {
		t.Fatalf("second trade failed: %v", err)
	}

	b := store.balances[7]
	if !b.QuoteAvailable.Equal(dec("8000")) {
		t.Errorf("quote available = %s, want 8000 (seed overwrote the committed balance)", b.QuoteAvailable)
	}
}

func TestListOrders_NewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store, "50000")

	if _, err := svc.PlaceMarketBuy(ctx, 7, dec("1000")); err != nil {
		t.Fatalf("buy 1 failed: %v", err)
	}
	if _, err := svc.PlaceMarketBuy(ctx, 7, dec("2000")); err != nil {
		t.Fatalf("buy 2 failed: %v", err)
	}

	orders, err := svc.ListOrders(ctx, 7)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if !orders[0].CreatedAt.After(orders[1].CreatedAt) {
		t.Errorf("orders not newest first: %v then %v", orders[0].CreatedAt, orders[1].CreatedAt)
	}
}
