package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order.
type OrderSide string

// OrderType is the execution style of an order.
type OrderType string

// OrderStatus is the lifecycle state of an order.
// The set is closed: anything outside these constants is rejected at the boundary.
type OrderStatus string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"

	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
	OrderTypeStop   OrderType = "stop"

	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Valid reports whether the side is a known constant.
func (s OrderSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Valid reports whether the order type is a known constant.
func (t OrderType) Valid() bool {
	return t == OrderTypeMarket || t == OrderTypeLimit || t == OrderTypeStop
}

// Valid reports whether the status is a known constant.
func (st OrderStatus) Valid() bool {
	switch st {
	case OrderStatusPending, OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further mutation.
func (st OrderStatus) Terminal() bool {
	switch st {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether st may legally move to next.
// Only pending orders move; filled, cancelled and rejected are terminal.
func (st OrderStatus) CanTransition(next OrderStatus) bool {
	if st != OrderStatusPending || !next.Valid() {
		return false
	}
	return next != OrderStatusPending
}

// Order is a single order row. Prices and quantities are decimals end to end;
// float64 appears only in the JSON encoding at the API boundary.
type Order struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID        `gorm:"type:uuid;index" json:"user_id"`
	MarketID       uuid.UUID        `gorm:"type:uuid;index" json:"market_id"`
	OrderType      OrderType        `gorm:"type:varchar(16)" json:"order_type"`
	Side           OrderSide        `gorm:"type:varchar(8);index" json:"side"`
	Quantity       decimal.Decimal  `gorm:"type:decimal(32,16)" json:"quantity"`
	Price          *decimal.Decimal `gorm:"type:decimal(32,16)" json:"price"`
	Status         OrderStatus      `gorm:"type:varchar(16);index" json:"status"`
	FilledQuantity decimal.Decimal  `gorm:"type:decimal(32,16)" json:"filled_quantity"`
	AveragePrice   *decimal.Decimal `gorm:"type:decimal(32,16)" json:"average_price"`
	Leverage       *decimal.Decimal `gorm:"type:decimal(16,4)" json:"leverage"`
	MarginType     *string          `gorm:"type:varchar(16)" json:"margin_type"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// RestingQuantity returns the unfilled remainder that contributes to book depth.
func (o *Order) RestingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// IsResting reports whether the order contributes liquidity to the book:
// pending, priced, and not fully filled.
func (o *Order) IsResting() bool {
	return o.Status == OrderStatusPending &&
		o.Price != nil &&
		o.FilledQuantity.LessThan(o.Quantity)
}

// CheckFillInvariant verifies 0 <= filled_quantity <= quantity and that a
// filled order is completely filled. Fill progress is asserted by an external
// settlement process; this is the read-side guard.
func (o *Order) CheckFillInvariant() error {
	if o.FilledQuantity.IsNegative() {
		return ErrInvariantViolation
	}
	if o.FilledQuantity.GreaterThan(o.Quantity) {
		return ErrInvariantViolation
	}
	if o.Status == OrderStatusFilled && !o.FilledQuantity.Equal(o.Quantity) {
		return ErrInvariantViolation
	}
	return nil
}
