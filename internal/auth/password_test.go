package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/novamall/mall-backend/internal/domain"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "passw0rd", false},
		{"valid long", "a-much-longer-passw0rd-2026", false},
		{"too short", "pw1", true},
		{"no digit", "passwords", true},
		{"no letter", "12345678", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrWeakPassword) {
				t.Errorf("expected ErrWeakPassword, got %v", err)
			}
		})
	}
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct-horse-1")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash %q does not use the argon2id PHC format", hash)
	}

	if !VerifyPassword("correct-horse-1", hash) {
		t.Error("VerifyPassword() rejected the correct password")
	}
	if VerifyPassword("wrong-horse-1", hash) {
		t.Error("VerifyPassword() accepted a wrong password")
	}
	if VerifyPassword("correct-horse-1", "not-a-hash") {
		t.Error("VerifyPassword() accepted a malformed hash")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same-passw0rd")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	h2, err := HashPassword("same-passw0rd")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password are identical, salts are not random")
	}
}

func TestArgon2Parameters(t *testing.T) {
	if argon2Time != 1 {
		t.Errorf("argon2Time = %d, want 1", argon2Time)
	}
	if argon2Memory != 64*1024 {
		t.Errorf("argon2Memory = %d, want %d", argon2Memory, 64*1024)
	}
	if argon2Threads != 4 {
		t.Errorf("argon2Threads = %d, want 4", argon2Threads)
	}
	if argon2KeyLen != 32 {
		t.Errorf("argon2KeyLen = %d, want 32", argon2KeyLen)
	}
	if saltLen != 16 {
		t.Errorf("saltLen = %d, want 16", saltLen)
	}
}
