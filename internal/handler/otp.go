package handler

import (
	"log/slog"
	"net/http"

	"github.com/game1pro/accounts/internal/service"
)

// OtpHandler serves phone-based registration.
type OtpHandler struct {
	otp     *service.OtpService
	cookies CookieConfig
	logger  *slog.Logger
}

func NewOtpHandler(otp *service.OtpService, cookies CookieConfig, logger *slog.Logger) *OtpHandler {
	return &OtpHandler{otp: otp, cookies: cookies, logger: logger}
}

// HandleSendOtp starts a phone registration and dispatches the code.
//
// HTTP: POST /api/v1/send-otp
func (h *OtpHandler) HandleSendOtp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.otp.SendOtp(r.Context(), service.SendOtpInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Verification code sent",
	})
}

// HandleVerifyOtp checks the code and, on approval, creates the account
// and issues a session.
//
// HTTP: POST /api/v1/verify-otp
func (h *OtpHandler) HandleVerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Otp   string `json:"otp"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.otp.VerifyOtp(r.Context(), req.Phone, req.Otp)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Message: "User registered successfully",
		User:    result.Account,
		Token:   result.Token,
	})
}
