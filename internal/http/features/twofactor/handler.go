package twofactor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/novamall/mall-backend/internal/auth"
	"github.com/novamall/mall-backend/internal/domain"
	"github.com/novamall/mall-backend/internal/httputil"
)

// codeManager is the slice of auth.TwoFactorService the handler uses.
type codeManager interface {
	Issue(ctx context.Context, user *domain.User, purpose domain.CodePurpose) error
	Verify(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose, submitted string) (bool, error)
	Clear(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose) error
}

// userDirectory is the slice of repository.UsersRepository the handler uses.
type userDirectory interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	MarkEmailVerified(ctx context.Context, userID uuid.UUID) error
}

// Handler exposes the verification code flows over JSON.
type Handler struct {
	logger   *slog.Logger
	codes    codeManager
	users    userDirectory
	sessions *auth.SessionService
}

// NewHandler creates a new two-factor handler.
func NewHandler(logger *slog.Logger, codes codeManager, users userDirectory, sessions *auth.SessionService) *Handler {
	return &Handler{
		logger:   logger,
		codes:    codes,
		users:    users,
		sessions: sessions,
	}
}

type SendCodeRequest struct {
	Email string `json:"email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
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

func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SendVerification issues a registration verification code.
// POST /v1/auth/send-verification
func (h *Handler) SendVerification(w http.ResponseWriter, r *http.Request) {
	var req SendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		httputil.ValidationError(w, "validation failed", map[string]string{"email": "a valid email address is required"})
		return
	}

	user, err := h.users.GetByEmail(r.Context(), auth.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.ValidationError(w, "validation failed", map[string]string{"email": "email is not registered"})
			return
		}
		h.logger.Error("failed to look up user", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to send verification code")
		return
	}
	if user.EmailVerified {
		httputil.ValidationError(w, "validation failed", map[string]string{"email": "email is already verified"})
		return
	}

	if err := h.codes.Issue(r.Context(), user, domain.PurposeRegistration); err != nil {
		h.logger.Error("failed to issue verification code", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to send verification code")
		return
	}

	h.logger.Info("verification code sent", "user_id", user.ID)
	httputil.JSON(w, http.StatusOK, StatusResponse{Status: "success", Message: "Verification code sent successfully"})
}

// VerifyRegistration checks a registration code and marks the email verified.
// POST /v1/auth/verify
func (h *Handler) VerifyRegistration(w http.ResponseWriter, r *http.Request) {
	user, code, ok := h.decodeVerifyRequest(w, r)
	if !ok {
		return
	}

	valid, err := h.codes.Verify(r.Context(), user.ID, domain.PurposeRegistration, code)
	if err != nil {
		h.logger.Error("failed to verify code", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to verify code")
		return
	}
	if !valid {
		httputil.Error(w, http.StatusBadRequest, "invalid verification code")
		return
	}

	if err := h.users.MarkEmailVerified(r.Context(), user.ID); err != nil {
		h.logger.Error("failed to mark email verified", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to verify code")
		return
	}
	if err := h.codes.Clear(r.Context(), user.ID, domain.PurposeRegistration); err != nil {
		h.logger.Error("failed to clear verification code", "error", err, "user_id", user.ID)
	}

	h.logger.Info("email verified", "user_id", user.ID)
	httputil.JSON(w, http.StatusOK, StatusResponse{Status: "success", Message: "Code verified successfully"})
}

// SendTwoFactor issues a login two-factor code.
// POST /v1/auth/send-2fa-code
func (h *Handler) SendTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req SendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		httputil.ValidationError(w, "validation failed", map[string]string{"email": "a valid email address is required"})
		return
	}

	user, err := h.users.GetByEmail(r.Context(), auth.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.ValidationError(w, "validation failed", map[string]string{"email": "email is not registered"})
			return
		}
		h.logger.Error("failed to look up user", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to send 2FA code")
		return
	}

	if err := h.codes.Issue(r.Context(), user, domain.PurposeLoginTwoFactor); err != nil {
		h.logger.Error("failed to issue 2FA code", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to send 2FA code")
		return
	}

	h.logger.Info("2FA code sent", "user_id", user.ID)
	httputil.JSON(w, http.StatusOK, StatusResponse{Status: "success", Message: "2FA code sent successfully"})
}

// VerifyTwoFactor checks a login code and completes the login by issuing an
// access token.
// POST /v1/auth/verify-2fa
func (h *Handler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	user, code, ok := h.decodeVerifyRequest(w, r)
	if !ok {
		return
	}

	valid, err := h.codes.Verify(r.Context(), user.ID, domain.PurposeLoginTwoFactor, code)
	if err != nil {
		h.logger.Error("failed to verify 2FA code", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to verify 2FA code")
		return
	}
	if !valid {
		httputil.Error(w, http.StatusBadRequest, "invalid 2FA code")
		return
	}

	if err := h.codes.Clear(r.Context(), user.ID, domain.PurposeLoginTwoFactor); err != nil {
		h.logger.Error("failed to clear 2FA code", "error", err, "user_id", user.ID)
	}

	token, _, err := h.sessions.IssueAccessToken(user, false)
	if err != nil {
		h.logger.Error("failed to issue access token", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to complete login")
		return
	}

	h.logger.Info("login completed", "user_id", user.ID)
	httputil.JSON(w, http.StatusOK, TokenResponse{
		Status:      "success",
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.sessions.AccessTokenTTL().Seconds()),
	})
}

// decodeVerifyRequest parses and validates an {email, code} body and loads
// the user. Writes the error response itself when validation fails.
func (h *Handler) decodeVerifyRequest(w http.ResponseWriter, r *http.Request) (*domain.User, string, bool) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, "", false
	}

	fields := map[string]string{}
	if err := auth.ValidateEmail(req.Email); err != nil {
		fields["email"] = "a valid email address is required"
	}
	if !isSixDigits(req.Code) {
		fields["code"] = "code must be exactly 6 digits"
	}
	if len(fields) > 0 {
		httputil.ValidationError(w, "validation failed", fields)
		return nil, "", false
	}

	user, err := h.users.GetByEmail(r.Context(), auth.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.ValidationError(w, "validation failed", map[string]string{"email": "email is not registered"})
			return nil, "", false
		}
		h.logger.Error("failed to look up user", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to verify code")
		return nil, "", false
	}
	return user, req.Code, true
}
