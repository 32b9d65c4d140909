package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus tracks an order through fulfillment.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a checkout snapshot of a cart. Items carry the product name and
// unit price at purchase time so later catalog edits do not rewrite history.
type Order struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Status     OrderStatus
	TotalCents int64
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Items []OrderItem
}

// OrderItem is one purchased line within an order.
type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	Name           string
	UnitPriceCents int64
	Quantity       int
}
