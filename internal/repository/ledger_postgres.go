package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/skalper-bot/trading-bot/internal/domain"
	"github.com/skalper-bot/trading-bot/internal/ledger"
)

// Postgres error codes that signal an isolation race worth retrying.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

type ledgerStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewLedgerStore creates a SQL-backed LedgerStore.
func NewLedgerStore(db *sql.DB, log *slog.Logger) LedgerStore {
	if log == nil {
		log = slog.Default()
	}

	return &ledgerStore{
		db:  db,
		log: log,
	}
}

func (s *ledgerStore) Begin(ctx context.Context) (LedgerTx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin ledger transaction: %w", mapConflict(err))
	}

	return &ledgerTx{tx: tx, log: s.log}, nil
}

type ledgerTx struct {
	tx  *sql.Tx
	log *slog.Logger
}

func (t *ledgerTx) GetBalanceForUpdate(ctx context.Context, userID int64) (*domain.Balance, error) {
	const query = `
		SELECT user_id, base_available, base_frozen, quote_available, quote_frozen
		FROM balances
		WHERE user_id = $1
		FOR UPDATE
	`

	row := t.tx.QueryRowContext(ctx, query, userID)

	var b domain.Balance
	if err := row.Scan(
		&b.UserID,
		&b.BaseAvailable,
		&b.BaseFrozen,
		&b.QuoteAvailable,
		&b.QuoteFrozen,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		t.log.Error("failed to fetch balance", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("select balance for update: %w", mapConflict(err))
	}

	return &b, nil
}

func (t *ledgerTx) PutBalance(ctx context.Context, b *domain.Balance) error {
	const query = `
		INSERT INTO balances (user_id, base_available, base_frozen, quote_available, quote_frozen)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			base_available = EXCLUDED.base_available,
			base_frozen = EXCLUDED.base_frozen,
			quote_available = EXCLUDED.quote_available,
			quote_frozen = EXCLUDED.quote_frozen
	`

	if _, err := t.tx.ExecContext(
		ctx,
		query,
		b.UserID,
		b.BaseAvailable,
		b.BaseFrozen,
		b.QuoteAvailable,
		b.QuoteFrozen,
	); err != nil {
		t.log.Error("failed to put balance", slog.Int64("user_id", b.UserID), slog.Any("error", err))
		return fmt.Errorf("upsert balance: %w", mapConflict(err))
	}

	return nil
}

func (t *ledgerTx) SeedBalance(ctx context.Context, b *domain.Balance) error {
	const query = `
		INSERT INTO balances (user_id, base_available, base_frozen, quote_available, quote_frozen)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := t.tx.ExecContext(
		ctx,
		query,
		b.UserID,
		b.BaseAvailable,
		b.BaseFrozen,
		b.QuoteAvailable,
		b.QuoteFrozen,
	); err != nil {
		t.log.Error("failed to seed balance", slog.Int64("user_id", b.UserID), slog.Any("error", err))
		return fmt.Errorf("seed balance: %w", mapConflict(err))
	}

	return nil
}

func (t *ledgerTx) GetOrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error) {
	const query = `
		SELECT id, user_id, side, amount, price, status, created_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	row := t.tx.QueryRowContext(ctx, query, orderID)

	var o domain.Order
	if err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Side,
		&o.Amount,
		&o.Price,
		&o.Status,
		&o.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		t.log.Error("failed to fetch order", slog.Int64("order_id", orderID), slog.Any("error", err))
		return nil, fmt.Errorf("select order for update: %w", mapConflict(err))
	}

	return &o, nil
}

func (t *ledgerTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	const query = `
		INSERT INTO orders (user_id, side, amount, price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	if err := t.tx.QueryRowContext(
		ctx,
		query,
		o.UserID,
		o.Side,
		o.Amount,
		o.Price,
		o.Status,
		o.CreatedAt,
	).Scan(&o.ID); err != nil {
		t.log.Error("failed to insert order", slog.Int64("user_id", o.UserID), slog.Any("error", err))
		return fmt.Errorf("insert order: %w", mapConflict(err))
	}

	return nil
}

func (t *ledgerTx) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	const query = `UPDATE orders SET status = $1 WHERE id = $2`

	result, err := t.tx.ExecContext(ctx, query, status, orderID)
	if err != nil {
		t.log.Error("failed to update order status", slog.Int64("order_id", orderID), slog.Any("error", err))
		return fmt.Errorf("update order status: %w", mapConflict(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status rows affected: %w", err)
	}
	if affected == 0 {
		return ledger.ErrNotFound
	}

	return nil
}

func (t *ledgerTx) ListOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	const query = `
		SELECT id, user_id, side, amount, price, status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := t.tx.QueryContext(ctx, query, userID)
	if err != nil {
		t.log.Error("failed to list orders", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("select orders: %w", mapConflict(err))
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Side, &o.Amount, &o.Price, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

func (t *ledgerTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", mapConflict(err))
	}
	return nil
}

func (t *ledgerTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback ledger transaction: %w", err)
	}
	return nil
}

// mapConflict translates postgres isolation violations into ledger.ErrConflict
// so the trading service can retry them transparently.
func mapConflict(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailure, pqDeadlockDetected:
			return fmt.Errorf("%w: %v", ledger.ErrConflict, err)
		}
	}

	return err
}
