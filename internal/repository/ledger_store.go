// Package repository contains the SQL-backed persistence layer.
package repository

import (
	"context"

	"github.com/skalper-bot/trading-bot/internal/domain"
)

// LedgerTx is a single atomic unit of work spanning the balance and order
// rows of one user. Either every write inside it commits or none do.
type LedgerTx interface {
	// GetBalanceForUpdate loads the user's balance under a row lock, or
	// ledger.ErrNotFound when no balance row exists yet.
	GetBalanceForUpdate(ctx context.Context, userID int64) (*domain.Balance, error)
	// PutBalance inserts or updates the balance row.
	PutBalance(ctx context.Context, b *domain.Balance) error
	// SeedBalance inserts the balance row only when none exists yet. A row
	// written by a concurrent transaction is left untouched.
	SeedBalance(ctx context.Context, b *domain.Balance) error
	// GetOrderForUpdate loads an order by id under a row lock, or
	// ledger.ErrNotFound when absent.
	GetOrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error)
	// InsertOrder persists a new order and fills in its assigned id.
	InsertOrder(ctx context.Context, o *domain.Order) error
	// UpdateOrderStatus transitions the order to the given status.
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
	// ListOrders returns the user's orders newest first.
	ListOrders(ctx context.Context, userID int64) ([]domain.Order, error)

	Commit() error
	Rollback() error
}

// LedgerStore opens ledger transactions.
type LedgerStore interface {
	Begin(ctx context.Context) (LedgerTx, error)
}
