package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/game1pro/accounts/internal/apperror"
	"github.com/game1pro/accounts/internal/service"
)

// RecoveryHandler serves the password-recovery routes.
type RecoveryHandler struct {
	recovery *service.RecoveryService
	logger   *slog.Logger
}

func NewRecoveryHandler(recovery *service.RecoveryService, logger *slog.Logger) *RecoveryHandler {
	return &RecoveryHandler{recovery: recovery, logger: logger}
}

// HandleForgotPassword mails a reset link to the account's email.
//
// HTTP: POST /api/v1/forgotpassword
func (h *RecoveryHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.recovery.Forgot(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password reset link sent to your email",
	})
}

// HandleVerifyResetOtp exchanges a gateway-checked code for a recovery
// token, for accounts that registered by phone and have no email to mail.
//
// HTTP: POST /api/v1/verify-reset-otp
func (h *RecoveryHandler) HandleVerifyResetOtp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Otp   string `json:"otp"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.recovery.IssueViaOtp(r.Context(), req.Phone, req.Otp)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Code verified",
		"token":   token,
	})
}

// HandleResetPassword redeems the raw token from the URL for a new
// password.
//
// HTTP: POST /api/v1/resetpassword/{token}
func (h *RecoveryHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, apperror.ValidationFailed("token", "reset token is required"))
		return
	}

	var req struct {
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.recovery.Redeem(r.Context(), token, req.NewPassword, req.ConfirmPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password reset successfully",
	})
}
