package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/game1pro/accounts/internal/apperror"
	"github.com/game1pro/accounts/internal/auth"
	"github.com/game1pro/accounts/internal/model"
	"github.com/game1pro/accounts/internal/service"
)

// maxAvatarSize bounds the multipart profile upload (5 MiB).
const maxAvatarSize = 5 << 20

// AccountHandler serves registration, login, and profile routes.
type AccountHandler struct {
	accounts *service.AccountService
	cookies  CookieConfig
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, cookies CookieConfig, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		cookies:  cookies,
		logger:   logger,
	}
}

// authResponse is the shape shared by every session-issuing endpoint.
type authResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	User    *model.Account `json:"user"`
	Token   string         `json:"token"`
}

// HandleRegister creates an account from email and password.
//
// HTTP: POST /api/v1/regis
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
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

// HandleLogin authenticates an email/password pair and issues a session.
//
// HTTP: POST /api/v1/loginUser
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		User:    result.Account,
		Token:   result.Token,
	})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /api/v1/logout
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, _ *http.Request) {
	h.cookies.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out successfully",
	})
}

// HandleProfile returns the authenticated account.
//
// HTTP: GET /api/v1/profile
func (h *AccountHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not authenticated"))
		return
	}

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    account,
	})
}

// HandleUpdateProfile applies profile mutations from a multipart form.
// Text fields: name, phone, address. File field: file (the avatar image).
//
// HTTP: PUT /api/v1/updateProfile
func (h *AccountHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not authenticated"))
		return
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		writeError(w, apperror.ValidationFailed("body", "a multipart form is required"))
		return
	}

	var input service.UpdateProfileInput
	if values, ok := r.MultipartForm.Value["name"]; ok && len(values) > 0 {
		input.Name = &values[0]
	}
	if values, ok := r.MultipartForm.Value["phone"]; ok && len(values) > 0 {
		input.Phone = &values[0]
	}
	if values, ok := r.MultipartForm.Value["address"]; ok && len(values) > 0 {
		input.Address = &values[0]
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxAvatarSize))
		if err != nil {
			writeError(w, apperror.ValidationFailed("file", "could not read uploaded file"))
			return
		}
		input.Avatar = data
		input.AvatarContentType = header.Header.Get("Content-Type")
	}

	account, err := h.accounts.UpdateProfile(r.Context(), accountID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Profile updated successfully",
		"user":    account,
	})
}
