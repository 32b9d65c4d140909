package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/novamall/mall-backend/internal/domain"
)

// StorefrontsRepository handles storefront persistence.
type StorefrontsRepository struct {
	db *sql.DB
}

// NewStorefrontsRepository creates a new storefronts repository.
func NewStorefrontsRepository(db *sql.DB) *StorefrontsRepository {
	return &StorefrontsRepository{db: db}
}

const storefrontColumns = `id, owner_id, name, slug, description, is_active, created_at, updated_at`

func scanStorefront(row *sql.Row) (*domain.Storefront, error) {
	sf := &domain.Storefront{}
	err := row.Scan(
		&sf.ID, &sf.OwnerID, &sf.Name, &sf.Slug, &sf.Description,
		&sf.IsActive, &sf.CreatedAt, &sf.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStorefrontNotFound
	}
	if err != nil {
		return nil, err
	}
	return sf, nil
}

// Create creates a new storefront.
func (r *StorefrontsRepository) Create(ctx context.Context, sf *domain.Storefront) error {
	query := `
		INSERT INTO storefronts (id, owner_id, name, slug, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		sf.ID, sf.OwnerID, sf.Name, sf.Slug, sf.Description,
		sf.IsActive, sf.CreatedAt, sf.UpdatedAt,
	)
	return err
}

// GetByID retrieves a storefront by ID.
func (r *StorefrontsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Storefront, error) {
	query := `SELECT ` + storefrontColumns + ` FROM storefronts WHERE id = $1`
	return scanStorefront(r.db.QueryRowContext(ctx, query, id))
}

// GetBySlug retrieves a storefront by slug.
func (r *StorefrontsRepository) GetBySlug(ctx context.Context, slug string) (*domain.Storefront, error) {
	query := `SELECT ` + storefrontColumns + ` FROM storefronts WHERE slug = $1`
	return scanStorefront(r.db.QueryRowContext(ctx, query, slug))
}

// GetByOwner retrieves the storefront owned by a user.
func (r *StorefrontsRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Storefront, error) {
	query := `SELECT ` + storefrontColumns + ` FROM storefronts WHERE owner_id = $1`
	return scanStorefront(r.db.QueryRowContext(ctx, query, ownerID))
}

// ExistsBySlug checks if a storefront slug is taken.
func (r *StorefrontsRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM storefronts WHERE slug = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, slug).Scan(&exists)
	return exists, err
}

// List returns storefronts, optionally only active ones.
func (r *StorefrontsRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Storefront, error) {
	query := `SELECT ` + storefrontColumns + ` FROM storefronts`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var storefronts []*domain.Storefront
	for rows.Next() {
		sf := &domain.Storefront{}
		if err := rows.Scan(
			&sf.ID, &sf.OwnerID, &sf.Name, &sf.Slug, &sf.Description,
			&sf.IsActive, &sf.CreatedAt, &sf.UpdatedAt,
		); err != nil {
			return nil, err
		}
		storefronts = append(storefronts, sf)
	}
	return storefronts, rows.Err()
}

// Update updates a storefront.
func (r *StorefrontsRepository) Update(ctx context.Context, sf *domain.Storefront) error {
	query := `
		UPDATE storefronts
		SET name = $2, slug = $3, description = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, sf.ID, sf.Name, sf.Slug, sf.Description, sf.IsActive)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrStorefrontNotFound
	}
	return nil
}

// Delete permanently deletes a storefront. Products are removed by the
// database's cascade constraint.
func (r *StorefrontsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM storefronts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrStorefrontNotFound
	}
	return nil
}
