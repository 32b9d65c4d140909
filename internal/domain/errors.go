package domain

import "errors"

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrEmailNotVerified   = errors.New("email not verified")
)

// Validation errors
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrWeakPassword = errors.New("password does not meet requirements")
)

// MFA errors
var (
	ErrMFANotEnabled     = errors.New("MFA is not enabled for this account")
	ErrMFAAlreadyEnabled = errors.New("MFA is already enabled")
	ErrInvalidMFACode    = errors.New("invalid MFA code")
)

// Catalog errors
var (
	ErrStorefrontNotFound = errors.New("storefront not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrSlugAlreadyExists  = errors.New("slug already in use")
)

// Cart and checkout errors
var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrCartEmpty        = errors.New("cart is empty")
	ErrOrderNotFound    = errors.New("order not found")
)
