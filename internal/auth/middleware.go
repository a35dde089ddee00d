package auth

import (
	"context"
	"net/http"
	"strings"
)

// SessionCookieName is the cookie carrying the session token. The same token
// is also returned in login response bodies so header-based clients can send
// it as a bearer token instead.
const SessionCookieName = "token"

// contextKey is an unexported type used for context keys in this package.
// A package-private key type means only this package can read or write the
// account id in a request context, so no other package can collide with it.
type contextKey string

const accountIDKey contextKey = "accountID"

// RequireAuth is a middleware that enforces authentication on protected
// routes.
//
// It accepts the session token from the "token" HttpOnly cookie or from an
// "Authorization: Bearer" header, validates it, and stores the account id in
// the request context. If the token is missing or invalid it returns 401
// and stops the chain; there is no soft-fail path.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := extractAccountID(r, tokens)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"Please login to access this page."}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountIDFromContext retrieves the authenticated account's id from the
// request context. Returns ("", false) when the request is anonymous.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}

// extractAccountID reads the session token from the cookie or the
// Authorization header and validates it.
func extractAccountID(r *http.Request, tokens *TokenService) (string, error) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return tokens.Validate(cookie.Value)
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return tokens.Validate(token)
	}

	return "", http.ErrNoCookie
}
