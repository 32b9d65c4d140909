package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/novamall/mall-backend/internal/domain"
)

// DefaultCodeTTL is how long an issued verification code stays valid.
const DefaultCodeTTL = 10 * time.Minute

const codeSpace = 1000000 // codes are 6 decimal digits

// CodeSender delivers a verification code to a recipient. Implementations
// own retries and queuing; the lifecycle manager makes exactly one send
// attempt per issued code.
type CodeSender interface {
	SendCode(to string, purpose domain.CodePurpose, code string) error
}

// CodeStore is the slice of the users repository the lifecycle manager
// needs: the stored code and expiry live on the user record itself.
type CodeStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	SetCode(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose, code string, expiresAt time.Time) error
	ClearCode(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose) error
}

// TwoFactorConfig holds configuration for the verification code lifecycle.
type TwoFactorConfig struct {
	CodeTTL time.Duration
}

// TwoFactorService manages issuance, verification, and clearing of the
// short-lived numeric codes used for registration email verification and
// login two-factor confirmation. At most one code is outstanding per
// (user, purpose); issuing again overwrites the previous code.
type TwoFactorService struct {
	config TwoFactorConfig
	store  CodeStore
	sender CodeSender

	// now is a test hook for expiry checks.
	now func() time.Time
}

// NewTwoFactorService creates a new verification code service.
func NewTwoFactorService(config TwoFactorConfig, store CodeStore, sender CodeSender) *TwoFactorService {
	if config.CodeTTL == 0 {
		config.CodeTTL = DefaultCodeTTL
	}
	return &TwoFactorService{
		config: config,
		store:  store,
		sender: sender,
		now:    time.Now,
	}
}

// Issue generates a fresh code for the purpose, persists it against the user
// (overwriting any prior code), and sends it to the user's email address.
// A delivery failure propagates to the caller; the code stays persisted.
func (s *TwoFactorService) Issue(ctx context.Context, user *domain.User, purpose domain.CodePurpose) error {
	code, err := GenerateCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	expiresAt := s.now().Add(s.config.CodeTTL)
	if err := s.store.SetCode(ctx, user.ID, purpose, code, expiresAt); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}

	if err := s.sender.SendCode(user.Email, purpose, code); err != nil {
		return fmt.Errorf("failed to send code: %w", err)
	}
	return nil
}

// Verify compares a submitted code against the stored one for the purpose.
// It fails closed: no stored code, no stored expiry, or a reached expiry
// instant all yield false. Comparison is exact string equality; a "42"
// submitted against a stored "000042" does not match. Verify never mutates
// the stored code; callers clear it explicitly after a successful use.
func (s *TwoFactorService) Verify(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose, submitted string) (bool, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}

	code, expiresAt := user.CodePair(purpose)
	if code == nil || expiresAt == nil {
		return false, nil
	}
	if !s.now().Before(*expiresAt) {
		return false, nil
	}
	return *code == submitted, nil
}

// Clear nulls the stored code and expiry for the purpose. Clearing an
// already-clear purpose is a no-op.
func (s *TwoFactorService) Clear(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose) error {
	return s.store.ClearCode(ctx, userID, purpose)
}

// GenerateCode produces a uniformly random 6-digit code, left-padded with
// zeros ("000042" for 42).
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
