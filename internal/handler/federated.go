package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/game1pro/accounts/internal/service"
)

const stateCookieName = "oauth_state"

// FederatedHandler runs the Google OAuth login flow.
type FederatedHandler struct {
	federated *service.FederatedService
	cookies   CookieConfig
	logger    *slog.Logger
}

func NewFederatedHandler(federated *service.FederatedService, cookies CookieConfig, logger *slog.Logger) *FederatedHandler {
	return &FederatedHandler{
		federated: federated,
		cookies:   cookies,
		logger:    logger,
	}
}

// HandleGoogleLogin redirects the browser to Google's consent page.
// The random state lands in a short-lived cookie and must round-trip
// through the callback.
//
// HTTP: GET /auth/google/login
func (h *FederatedHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.federated.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the flow: state check, code exchange,
// account resolution, session issuance.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
func (h *FederatedHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("google callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization", slog.String("error", errParam))
		http.Error(w, "authorization denied", http.StatusUnauthorized)
		return
	}

	result, err := h.federated.LoginWithGoogle(r.Context(), r.URL.Query().Get("code"))
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
