package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/novamall/mall-backend/internal/domain"
)

// DefaultAccessTokenTTL is the default lifetime of an access token.
const DefaultAccessTokenTTL = 15 * time.Minute

// SessionConfig holds session token configuration.
type SessionConfig struct {
	AccessTokenTTL time.Duration
	JWTSecret      []byte
	Issuer         string
}

// SessionService issues and validates stateless JWT access tokens. A token
// is only handed out after the login two-factor code has been verified.
type SessionService struct {
	config SessionConfig
}

// NewSessionService creates a new session service.
func NewSessionService(config SessionConfig) *SessionService {
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}
	return &SessionService{config: config}
}

// AccessTokenTTL returns the access token TTL.
func (s *SessionService) AccessTokenTTL() time.Duration {
	return s.config.AccessTokenTTL
}

// AccessTokenClaims represents the claims in an access token.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email         string      `json:"email,omitempty"`
	EmailVerified bool        `json:"email_verified,omitempty"`
	Role          domain.Role `json:"role,omitempty"`
	MFAVerified   bool        `json:"mfa_verified,omitempty"`
}

// IssueAccessToken creates a signed access token for the user.
func (s *SessionService) IssueAccessToken(user *domain.User, mfaVerified bool) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    s.config.Issuer,
		},
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Role:          user.Role,
		MFAVerified:   mfaVerified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.JWTSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken parses and validates a token, returning its claims.
func (s *SessionService) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.JWTSecret, nil
	}, jwt.WithIssuer(s.config.Issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
