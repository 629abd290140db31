package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide distinguishes buy and sell orders.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus models the order lifecycle. Transitions are monotone: once an
// order reaches Completed or Cancelled it never changes again.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "Open"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// Order is a single trading order. Amount is denominated in base units,
// Price in quote units per base unit. Orders are retained as history after
// reaching a terminal status.
type Order struct {
	ID        int64
	UserID    int64
	Side      OrderSide
	Amount    decimal.Decimal
	Price     decimal.Decimal
	Status    OrderStatus
	CreatedAt time.Time
}

// IsFinal reports whether the order has reached a terminal status.
func (o *Order) IsFinal() bool {
	return o != nil && o.Status != OrderStatusOpen
}
