package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/google/uuid"
	"github.com/novamall/mall-backend/internal/domain"
	"github.com/novamall/mall-backend/internal/repository"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod = 30
	qrSize     = 200
)

// MFAConfig contains configuration for the MFA service.
type MFAConfig struct {
	Issuer string // shown in authenticator apps
}

// MFAService handles authenticator-app TOTP for back-office accounts.
// Storefront owners and admins can enroll; the email code flow stays the
// second factor for everyone else.
type MFAService struct {
	config MFAConfig
	users  *repository.UsersRepository
}

// NewMFAService creates a new MFA service.
func NewMFAService(config MFAConfig, users *repository.UsersRepository) *MFAService {
	return &MFAService{config: config, users: users}
}

// MFASetup is returned from Setup for the enrollment screen.
type MFASetup struct {
	Secret     string
	OTPAuthURL string
	QRCode     string // data URI PNG
}

// Setup generates a TOTP secret for the user and stores it disabled until
// Enable confirms the user's authenticator produces matching codes.
func (s *MFAService) Setup(ctx context.Context, userID uuid.UUID) (*MFASetup, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, domain.ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.config.Issuer,
		AccountName: user.Email,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	var qrBuf bytes.Buffer
	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code image: %w", err)
	}
	if err := png.Encode(&qrBuf, img); err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	secret := key.Secret()
	if err := s.users.SetTOTPSecret(ctx, userID, &secret, false); err != nil {
		return nil, err
	}

	return &MFASetup{
		Secret:     secret,
		OTPAuthURL: key.URL(),
		QRCode:     fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(qrBuf.Bytes())),
	}, nil
}

// Enable turns MFA on after the user proves possession of the secret.
func (s *MFAService) Enable(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.MFAEnabled {
		return domain.ErrMFAAlreadyEnabled
	}
	if user.TOTPSecret == nil {
		return domain.ErrMFANotEnabled
	}
	if !totp.Validate(code, *user.TOTPSecret) {
		return domain.ErrInvalidMFACode
	}
	return s.users.SetTOTPSecret(ctx, userID, user.TOTPSecret, true)
}

// Disable removes the TOTP secret after a final code check.
func (s *MFAService) Disable(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.MFAEnabled || user.TOTPSecret == nil {
		return domain.ErrMFANotEnabled
	}
	if !totp.Validate(code, *user.TOTPSecret) {
		return domain.ErrInvalidMFACode
	}
	return s.users.SetTOTPSecret(ctx, userID, nil, false)
}

// VerifyTOTP checks a login code for an MFA-enabled account.
func (s *MFAService) VerifyTOTP(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.MFAEnabled || user.TOTPSecret == nil {
		return domain.ErrMFANotEnabled
	}
	if !totp.Validate(code, *user.TOTPSecret) {
		return domain.ErrInvalidMFACode
	}
	return nil
}
