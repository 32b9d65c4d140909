package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product line in a user's cart. At most one row per
// (user, product); adding the same product again bumps the quantity.
type CartItem struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time

	// Product is populated on reads that join the catalog.
	Product *Product
}
