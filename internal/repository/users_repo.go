package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/novamall/mall-backend/internal/domain"
)

const userColumns = `id, email, email_verified, name, password_hash, role,
	       verification_code, verification_code_expires_at,
	       two_factor_code, two_factor_expires_at,
	       totp_secret, mfa_enabled,
	       created_at, updated_at, deleted_at`

// UsersRepository handles user persistence, including the two verification
// code column pairs owned by the user record.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.EmailVerified, &user.Name,
		&user.PasswordHash, &user.Role,
		&user.VerificationCode, &user.VerificationCodeExpiresAt,
		&user.TwoFactorCode, &user.TwoFactorExpiresAt,
		&user.TOTPSecret, &user.MFAEnabled,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create creates a new user.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	return r.CreateTx(ctx, r.db, user)
}

// CreateTx creates a new user within a transaction.
func (r *UsersRepository) CreateTx(ctx context.Context, q Querier, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, email_verified, name, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.ExecContext(ctx, query,
		user.ID, user.Email, user.EmailVerified, user.Name,
		user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetByID retrieves a user by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// ExistsByEmail checks if a user exists by email.
func (r *UsersRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	return exists, err
}

// SetCode stores a verification code and its expiry in the column pair
// matching the purpose, unconditionally overwriting any prior value.
func (r *UsersRepository) SetCode(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose, code string, expiresAt time.Time) error {
	var query string
	if purpose == domain.PurposeLoginTwoFactor {
		query = `
			UPDATE users
			SET two_factor_code = $2, two_factor_expires_at = $3, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
		`
	} else {
		query = `
			UPDATE users
			SET verification_code = $2, verification_code_expires_at = $3, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
		`
	}
	result, err := r.db.ExecContext(ctx, query, userID, code, expiresAt)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ClearCode nulls the code and expiry columns for the purpose. Clearing an
// already-clear pair is a no-op, not an error.
func (r *UsersRepository) ClearCode(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose) error {
	var query string
	if purpose == domain.PurposeLoginTwoFactor {
		query = `
			UPDATE users
			SET two_factor_code = NULL, two_factor_expires_at = NULL, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
		`
	} else {
		query = `
			UPDATE users
			SET verification_code = NULL, verification_code_expires_at = NULL, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
		`
	}
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// MarkEmailVerified sets the email_verified flag.
func (r *UsersRepository) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE users
		SET email_verified = true, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetTOTPSecret stores the TOTP secret for back-office MFA enrollment.
// Passing a nil secret with enabled=false disables MFA.
func (r *UsersRepository) SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret *string, enabled bool) error {
	query := `
		UPDATE users
		SET totp_secret = $2, mfa_enabled = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, userID, secret, enabled)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdatePassword changes a user's password hash.
func (r *UsersRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, userID, passwordHash)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SoftDelete soft-deletes a user.
func (r *UsersRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET deleted_at = NOW()
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
		return domain.ErrUserNotFound
	}
	return nil
}
