package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/novamall/mall-backend/internal/auth"
	"github.com/novamall/mall-backend/internal/domain"
	"github.com/novamall/mall-backend/internal/httputil"
)

// Handler handles registration and login.
type Handler struct {
	logger    *slog.Logger
	passwords *auth.PasswordService
	codes     *auth.TwoFactorService
}

// NewHandler creates a new account handler.
func NewHandler(logger *slog.Logger, passwords *auth.PasswordService, codes *auth.TwoFactorService) *Handler {
	return &Handler{
		logger:    logger,
		passwords: passwords,
		codes:     codes,
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type StatusResponse struct {
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
	TwoFactorMethod string `json:"two_factor_method,omitempty"`
}

// Register creates an unverified account and sends a registration
// verification code to its email address.
// POST /v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.passwords.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidEmail):
			httputil.ValidationError(w, "validation failed", map[string]string{"email": "a valid email address is required"})
		case errors.Is(err, domain.ErrWeakPassword):
			httputil.ValidationError(w, "validation failed", map[string]string{"password": err.Error()})
		case errors.Is(err, domain.ErrUserAlreadyExists):
			httputil.ValidationError(w, "validation failed", map[string]string{"email": "email is already registered"})
		default:
			h.logger.Error("failed to register user", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	if err := h.codes.Issue(r.Context(), user, domain.PurposeRegistration); err != nil {
		// The account exists; the client can request a fresh code via
		// /v1/auth/send-verification.
		h.logger.Error("failed to send verification code", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "registered, but the verification code could not be sent")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	httputil.JSON(w, http.StatusCreated, StatusResponse{Status: "success", Message: "Registration successful. Check your email for a verification code."})
}

// Login checks credentials and starts the second factor: a TOTP prompt for
// MFA-enrolled accounts, an emailed code for everyone else. No token is
// issued until the second factor is verified.
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.passwords.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("failed to authenticate user", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "login failed")
		return
	}

	if !user.EmailVerified {
		httputil.Error(w, http.StatusForbidden, "email not verified")
		return
	}

	if user.MFAEnabled {
		httputil.JSON(w, http.StatusOK, StatusResponse{
			Status:          "success",
			Message:         "Enter the code from your authenticator app",
			TwoFactorMethod: "totp",
		})
		return
	}

	if err := h.codes.Issue(r.Context(), user, domain.PurposeLoginTwoFactor); err != nil {
		h.logger.Error("failed to send 2FA code", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to send 2FA code")
		return
	}

	h.logger.Info("2FA code sent for login", "user_id", user.ID)
	httputil.JSON(w, http.StatusOK, StatusResponse{
		Status:          "success",
		Message:         "2FA code sent to your email",
		TwoFactorMethod: "email",
	})
}
