package domain

import (
	"time"

	"github.com/google/uuid"
)

// Storefront is a vendor's shop inside the mall. Each storefront belongs to
// one owner account and holds its own product catalog.
type Storefront struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Slug        string
	Description *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
