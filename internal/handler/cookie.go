package handler

import (
	"net/http"
	"time"

	"github.com/game1pro/accounts/internal/auth"
)

// CookieConfig is the deployment-specific shape of the session cookie.
// Secure and SameSite vary per environment (cross-site front end needs
// Secure + SameSite=None; local development typically runs Lax without
// TLS), so they are configuration rather than constants.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	TTL      time.Duration
}

// setSessionCookie delivers the token as an HttpOnly cookie. The token is
// also returned in the response body, so clients may choose cookie or
// Authorization-header transport.
func (c CookieConfig) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(c.TTL),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// clearSessionCookie re-issues the cookie empty and already expired.
// Sessions are stateless: a token issued before logout stays valid until
// its natural expiry if replayed, this only removes the browser's copy.
func (c CookieConfig) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}
