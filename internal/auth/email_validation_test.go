package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/novamall/mall-backend/internal/domain"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "test@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "test+tag@example.com",
			wantErr: false,
		},
		{
			name:    "uppercase is normalized",
			email:   "Shopper@Example.COM",
			wantErr: false,
		},
		{
			name:    "empty email",
			email:   "",
			wantErr: true,
		},
		{
			name:    "invalid - no @",
			email:   "invalid.com",
			wantErr: true,
		},
		{
			name:    "invalid - no domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "invalid - no local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "invalid - spaces inside",
			email:   "te st@example.com",
			wantErr: true,
		},
		{
			name:    "too long",
			email:   strings.Repeat("a", 250) + "@example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidEmail) {
				t.Errorf("expected ErrInvalidEmail, got %v", err)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Shopper@Example.COM", "shopper@example.com"},
		{"  padded@example.com  ", "padded@example.com"},
		{"already@example.com", "already@example.com"},
	}

	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
