package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry in one storefront. Prices are stored in cents
// to avoid floating point drift in totals.
type Product struct {
	ID             uuid.UUID
	StorefrontID   uuid.UUID
	Name           string
	Slug           string
	Description    *string
	Category       *string
	PriceCents     int64
	SalePriceCents *int64
	SKU            *string
	IsFeatured     bool
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// EffectivePriceCents returns the sale price when one is set, otherwise the
// regular price.
func (p *Product) EffectivePriceCents() int64 {
	if p.SalePriceCents != nil {
		return *p.SalePriceCents
	}
	return p.PriceCents
}

// PriceChange records one price mutation for auditing. Written whenever an
// admin updates a product's price.
type PriceChange struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	OldPriceCents int64
	NewPriceCents int64
	ChangedBy     uuid.UUID
	ChangedAt     time.Time
}

// ProductFilter narrows public catalog listings.
type ProductFilter struct {
	StorefrontID *uuid.UUID
	Category     *string
	FeaturedOnly bool
	Limit        int
	Offset       int
}
