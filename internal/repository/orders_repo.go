package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/novamall/mall-backend/internal/domain"
)

// OrdersRepository handles order persistence.
type OrdersRepository struct {
	db *sql.DB
}

// NewOrdersRepository creates a new orders repository.
func NewOrdersRepository(db *sql.DB) *OrdersRepository {
	return &OrdersRepository{db: db}
}

// CreateTx inserts an order with its items within a transaction.
func (r *OrdersRepository) CreateTx(ctx context.Context, q Querier, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, status, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.ExecContext(ctx, query,
		order.ID, order.UserID, order.Status, order.TotalCents,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, unit_price_cents, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, item := range order.Items {
		if _, err := q.ExecContext(ctx, itemQuery,
			item.ID, item.OrderID, item.ProductID, item.Name,
			item.UnitPriceCents, item.Quantity,
		); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves an order with its items. Orders are only visible to
// their owner, so the user ID is part of the lookup.
func (r *OrdersRepository) GetByID(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders
		WHERE id = $1 AND user_id = $2
	`
	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, query, orderID, userID).Scan(
		&order.ID, &order.UserID, &order.Status, &order.TotalCents,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	itemQuery := `
		SELECT id, order_id, product_id, name, unit_price_cents, quantity
		FROM order_items
		WHERE order_id = $1
	`
	rows, err := r.db.QueryContext(ctx, itemQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.UnitPriceCents, &item.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	return order, rows.Err()
}

// ListByUser returns a user's orders, newest first, without items.
func (r *OrdersRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order := &domain.Order{}
		if err := rows.Scan(
			&order.ID, &order.UserID, &order.Status, &order.TotalCents,
			&order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
