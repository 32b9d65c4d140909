package mfa

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/novamall/mall-backend/internal/auth"
	"github.com/novamall/mall-backend/internal/domain"
	"github.com/novamall/mall-backend/internal/http/middleware"
	"github.com/novamall/mall-backend/internal/httputil"
	"github.com/novamall/mall-backend/internal/repository"
)

// Handler handles authenticator-app MFA enrollment and login verification.
type Handler struct {
	logger   *slog.Logger
	mfa      *auth.MFAService
	users    *repository.UsersRepository
	sessions *auth.SessionService
}

// NewHandler creates a new MFA handler.
func NewHandler(logger *slog.Logger, mfa *auth.MFAService, users *repository.UsersRepository, sessions *auth.SessionService) *Handler {
	return &Handler{
		logger:   logger,
		mfa:      mfa,
		users:    users,
		sessions: sessions,
	}
}

type CodeRequest struct {
	Code string `json:"code"`
}

type LoginVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type SetupResponse struct {
	Status     string `json:"status"`
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	QRCode     string `json:"qr_code"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type TokenResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Setup generates a TOTP secret for the authenticated user.
// POST /v1/auth/mfa/setup
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	setup, err := h.mfa.Setup(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrMFAAlreadyEnabled) {
			httputil.Error(w, http.StatusBadRequest, "MFA is already enabled")
			return
		}
		h.logger.Error("failed to set up MFA", "error", err, "user_id", userID)
		httputil.Error(w, http.StatusInternalServerError, "failed to set up MFA")
		return
	}

	httputil.JSON(w, http.StatusOK, SetupResponse{
		Status:     "success",
		Secret:     setup.Secret,
		OTPAuthURL: setup.OTPAuthURL,
		QRCode:     setup.QRCode,
	})
}

// Enable confirms enrollment with a first authenticator code.
// POST /v1/auth/mfa/enable
func (h *Handler) Enable(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "code is required")
		return
	}

	if err := h.mfa.Enable(r.Context(), userID, req.Code); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidMFACode):
			httputil.Error(w, http.StatusBadRequest, "invalid MFA code")
		case errors.Is(err, domain.ErrMFAAlreadyEnabled):
			httputil.Error(w, http.StatusBadRequest, "MFA is already enabled")
		case errors.Is(err, domain.ErrMFANotEnabled):
			httputil.Error(w, http.StatusBadRequest, "run MFA setup first")
		default:
			h.logger.Error("failed to enable MFA", "error", err, "user_id", userID)
			httputil.Error(w, http.StatusInternalServerError, "failed to enable MFA")
		}
		return
	}

	h.logger.Info("MFA enabled", "user_id", userID)
	httputil.JSON(w, http.StatusOK, StatusResponse{Status: "success", Message: "MFA enabled"})
}

// Disable turns MFA off after a final code check.
// POST /v1/auth/mfa/disable
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "code is required")
		return
	}

	if err := h.mfa.Disable(r.Context(), userID, req.Code); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidMFACode):
			httputil.Error(w, http.StatusBadRequest, "invalid MFA code")
		case errors.Is(err, domain.ErrMFANotEnabled):
			httputil.Error(w, http.StatusBadRequest, "MFA is not enabled")
		default:
			h.logger.Error("failed to disable MFA", "error", err, "user_id", userID)
			httputil.Error(w, http.StatusInternalServerError, "failed to disable MFA")
		}
		return
	}

	h.logger.Info("MFA disabled", "user_id", userID)
	httputil.JSON(w, http.StatusOK, StatusResponse{Status: "success", Message: "MFA disabled"})
}

// VerifyLogin completes a TOTP login and issues an access token.
// POST /v1/auth/mfa/verify
func (h *Handler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Code == "" {
		httputil.ValidationError(w, "validation failed", map[string]string{"email": "required", "code": "required"})
		return
	}

	user, err := h.users.GetByEmail(r.Context(), auth.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusBadRequest, "invalid MFA code")
			return
		}
		h.logger.Error("failed to look up user", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to verify MFA code")
		return
	}

	if err := h.mfa.VerifyTOTP(r.Context(), user.ID, req.Code); err != nil {
		if errors.Is(err, domain.ErrInvalidMFACode) || errors.Is(err, domain.ErrMFANotEnabled) {
			httputil.Error(w, http.StatusBadRequest, "invalid MFA code")
			return
		}
		h.logger.Error("failed to verify MFA code", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to verify MFA code")
		return
	}

	token, _, err := h.sessions.IssueAccessToken(user, true)
	if err != nil {
		h.logger.Error("failed to issue access token", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to complete login")
		return
	}

	h.logger.Info("MFA login completed", "user_id", user.ID)
	httputil.JSON(w, http.StatusOK, TokenResponse{
		Status:      "success",
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.sessions.AccessTokenTTL().Seconds()),
	})
}
