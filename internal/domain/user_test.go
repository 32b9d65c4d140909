package domain

import (
	"testing"
	"time"
)

func TestUser_CodePair(t *testing.T) {
	regCode := "111111"
	regExpiry := time.Now().Add(10 * time.Minute)
	tfaCode := "222222"
	tfaExpiry := time.Now().Add(5 * time.Minute)

	user := &User{
		VerificationCode:          &regCode,
		VerificationCodeExpiresAt: &regExpiry,
		TwoFactorCode:             &tfaCode,
		TwoFactorExpiresAt:        &tfaExpiry,
	}

	code, expiry := user.CodePair(PurposeRegistration)
	if code == nil || *code != regCode {
		t.Errorf("CodePair(registration) code = %v, want %q", code, regCode)
	}
	if expiry == nil || !expiry.Equal(regExpiry) {
		t.Errorf("CodePair(registration) expiry = %v, want %v", expiry, regExpiry)
	}

	code, expiry = user.CodePair(PurposeLoginTwoFactor)
	if code == nil || *code != tfaCode {
		t.Errorf("CodePair(two-factor) code = %v, want %q", code, tfaCode)
	}
	if expiry == nil || !expiry.Equal(tfaExpiry) {
		t.Errorf("CodePair(two-factor) expiry = %v, want %v", expiry, tfaExpiry)
	}

	empty := &User{}
	if code, expiry := empty.CodePair(PurposeRegistration); code != nil || expiry != nil {
		t.Error("CodePair on empty user should return nils")
	}
}

func TestUser_Roles(t *testing.T) {
	tests := []struct {
		role        Role
		isAdmin     bool
		canOwnStore bool
	}{
		{RoleCustomer, false, false},
		{RoleStoreOwner, false, true},
		{RoleAdmin, true, true},
	}

	for _, tt := range tests {
		u := &User{Role: tt.role}
		if u.IsAdmin() != tt.isAdmin {
			t.Errorf("IsAdmin() for %q = %v, want %v", tt.role, u.IsAdmin(), tt.isAdmin)
		}
		if u.IsStoreOwner() != tt.canOwnStore {
			t.Errorf("IsStoreOwner() for %q = %v, want %v", tt.role, u.IsStoreOwner(), tt.canOwnStore)
		}
	}
}
