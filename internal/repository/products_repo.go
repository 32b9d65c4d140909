package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/novamall/mall-backend/internal/domain"
)

// ProductsRepository handles product catalog persistence.
type ProductsRepository struct {
	db *sql.DB
}

// NewProductsRepository creates a new products repository.
func NewProductsRepository(db *sql.DB) *ProductsRepository {
	return &ProductsRepository{db: db}
}

const productColumns = `id, storefront_id, name, slug, description, category,
	       price_cents, sale_price_cents, sku, is_featured, is_active,
	       created_at, updated_at, deleted_at`

func scanProduct(row *sql.Row) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID, &p.StorefrontID, &p.Name, &p.Slug, &p.Description, &p.Category,
		&p.PriceCents, &p.SalePriceCents, &p.SKU, &p.IsFeatured, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create creates a new product.
func (r *ProductsRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, storefront_id, name, slug, description, category,
		                      price_cents, sale_price_cents, sku, is_featured, is_active,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.StorefrontID, p.Name, p.Slug, p.Description, p.Category,
		p.PriceCents, p.SalePriceCents, p.SKU, p.IsFeatured, p.IsActive,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a product by ID.
func (r *ProductsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`
	return scanProduct(r.db.QueryRowContext(ctx, query, id))
}

// GetBySlug retrieves an active product by slug (public catalog lookup).
func (r *ProductsRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1 AND is_active = true AND deleted_at IS NULL`
	return scanProduct(r.db.QueryRowContext(ctx, query, slug))
}

// ExistsBySlug checks if a product slug is taken.
func (r *ProductsRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1 AND deleted_at IS NULL)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, slug).Scan(&exists)
	return exists, err
}

// List returns active products matching the filter, newest first.
func (r *ProductsRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active = true AND deleted_at IS NULL`
	args := []any{}

	if filter.StorefrontID != nil {
		args = append(args, *filter.StorefrontID)
		query += fmt.Sprintf(" AND storefront_id = $%d", len(args))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.FeaturedOnly {
		query += " AND is_featured = true"
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p := &domain.Product{}
		if err := rows.Scan(
			&p.ID, &p.StorefrontID, &p.Name, &p.Slug, &p.Description, &p.Category,
			&p.PriceCents, &p.SalePriceCents, &p.SKU, &p.IsFeatured, &p.IsActive,
			&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListByStorefront returns all products of one storefront, including
// inactive ones (back-office listing).
func (r *ProductsRepository) ListByStorefront(ctx context.Context, storefrontID uuid.UUID) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE storefront_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, storefrontID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p := &domain.Product{}
		if err := rows.Scan(
			&p.ID, &p.StorefrontID, &p.Name, &p.Slug, &p.Description, &p.Category,
			&p.PriceCents, &p.SalePriceCents, &p.SKU, &p.IsFeatured, &p.IsActive,
			&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Update updates a product within a transaction.
func (r *ProductsRepository) UpdateTx(ctx context.Context, q Querier, p *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, slug = $3, description = $4, category = $5,
		    price_cents = $6, sale_price_cents = $7, sku = $8,
		    is_featured = $9, is_active = $10, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := q.ExecContext(ctx, query,
		p.ID, p.Name, p.Slug, p.Description, p.Category,
		p.PriceCents, p.SalePriceCents, p.SKU, p.IsFeatured, p.IsActive,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// Update updates a product.
func (r *ProductsRepository) Update(ctx context.Context, p *domain.Product) error {
	return r.UpdateTx(ctx, r.db, p)
}

// SoftDelete soft-deletes a product.
func (r *ProductsRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE products
		SET deleted_at = NOW(), is_active = false
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// RecordPriceChangeTx appends a price audit row within a transaction.
func (r *ProductsRepository) RecordPriceChangeTx(ctx context.Context, q Querier, change *domain.PriceChange) error {
	query := `
		INSERT INTO price_history (id, product_id, old_price_cents, new_price_cents, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.ExecContext(ctx, query,
		change.ID, change.ProductID, change.OldPriceCents,
		change.NewPriceCents, change.ChangedBy, change.ChangedAt,
	)
	return err
}

// PriceHistory returns past price changes for a product, newest first.
func (r *ProductsRepository) PriceHistory(ctx context.Context, productID uuid.UUID) ([]*domain.PriceChange, error) {
	query := `
		SELECT id, product_id, old_price_cents, new_price_cents, changed_by, changed_at
		FROM price_history
		WHERE product_id = $1
		ORDER BY changed_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []*domain.PriceChange
	for rows.Next() {
		c := &domain.PriceChange{}
		if err := rows.Scan(&c.ID, &c.ProductID, &c.OldPriceCents, &c.NewPriceCents, &c.ChangedBy, &c.ChangedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
