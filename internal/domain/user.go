package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role determines which parts of the back office a user can reach.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleStoreOwner Role = "store_owner"
	RoleAdmin      Role = "admin"
)

// CodePurpose selects which verification code field pair on the user record
// an operation reads or writes. Registration verification and login 2FA are
// independent flows; a code issued for one never affects the other.
type CodePurpose string

const (
	PurposeRegistration   CodePurpose = "registration_verification"
	PurposeLoginTwoFactor CodePurpose = "login_two_factor"
)

// User represents the account. The two verification code field pairs are
// owned by this record and mutated only through the users repository.
type User struct {
	ID            uuid.UUID
	Email         string
	EmailVerified bool
	Name          *string
	PasswordHash  string
	Role          Role

	VerificationCode          *string
	VerificationCodeExpiresAt *time.Time
	TwoFactorCode             *string
	TwoFactorExpiresAt        *time.Time

	TOTPSecret *string
	MFAEnabled bool

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// CodePair returns the stored code and expiry for the given purpose.
// Both are nil when no code is outstanding.
func (u *User) CodePair(purpose CodePurpose) (*string, *time.Time) {
	if purpose == PurposeLoginTwoFactor {
		return u.TwoFactorCode, u.TwoFactorExpiresAt
	}
	return u.VerificationCode, u.VerificationCodeExpiresAt
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsStoreOwner returns true if the user can manage a storefront.
func (u *User) IsStoreOwner() bool {
	return u.Role == RoleStoreOwner || u.Role == RoleAdmin
}
