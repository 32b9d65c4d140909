package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/novamall/mall-backend/internal/domain"
)

// CartItemsRepository handles cart persistence.
type CartItemsRepository struct {
	db *sql.DB
}

// NewCartItemsRepository creates a new cart items repository.
func NewCartItemsRepository(db *sql.DB) *CartItemsRepository {
	return &CartItemsRepository{db: db}
}

// Upsert adds a product to the user's cart, bumping the quantity when the
// product is already present.
func (r *CartItemsRepository) Upsert(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	query := `
		INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, uuid.New(), userID, productID, quantity, time.Now())
	return err
}

// SetQuantity replaces the quantity of one cart line.
func (r *CartItemsRepository) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	query := `
		UPDATE cart_items
		SET quantity = $3, updated_at = NOW()
		WHERE id = $2 AND user_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, userID, itemID, quantity)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

// Remove deletes one cart line.
func (r *CartItemsRepository) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE id = $2 AND user_id = $1`
	result, err := r.db.ExecContext(ctx, query, userID, itemID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

// ListByUser returns the user's cart with product data joined in.
func (r *CartItemsRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		       p.id, p.storefront_id, p.name, p.slug, p.description, p.category,
		       p.price_cents, p.sale_price_cents, p.sku, p.is_featured, p.is_active,
		       p.created_at, p.updated_at, p.deleted_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.CartItem
	for rows.Next() {
		item := &domain.CartItem{Product: &domain.Product{}}
		p := item.Product
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&p.ID, &p.StorefrontID, &p.Name, &p.Slug, &p.Description, &p.Category,
			&p.PriceCents, &p.SalePriceCents, &p.SKU, &p.IsFeatured, &p.IsActive,
			&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ClearTx empties the user's cart within a transaction (checkout).
func (r *CartItemsRepository) ClearTx(ctx context.Context, q Querier, userID uuid.UUID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

// Clear empties the user's cart.
func (r *CartItemsRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.ClearTx(ctx, r.db, userID)
}
