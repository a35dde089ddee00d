// Package model defines the data structures used throughout the application.
package model

import "time"

// DefaultName is assigned to accounts that were created without a display name.
const DefaultName = "New User"

// Balance is the coin bookkeeping attached to every account.
//
// Total and Withdrawable are derived fields: Total = Earned + Purchased, and
// Withdrawable = floor(Total * 0.5). They are never written directly; the
// Normalize method recomputes them before every persist, so a stored account
// can never violate Withdrawable <= Total.
type Balance struct {
	Earned       int64 `json:"earned"       db:"coins_earned"`
	Purchased    int64 `json:"purchased"    db:"coins_purchased"`
	Withdrawable int64 `json:"withdrawable" db:"coins_withdrawable"`
	Total        int64 `json:"total"        db:"coins_total"`
}

// Account represents a registered user account.
//
// Identity can come through three channels: a unique email (direct
// registration and Google login), a phone number (OTP registration, NOT
// unique at the store level, see the repository docs), or a Google subject id
// bound on first federated login.
//
// PasswordHash and the reset-token fields never leave the server: they carry
// `json:"-"` so no handler can serialize them by accident.
//
// PublicID is the user-facing 8-digit account number. It is assigned by the
// repository on first save and regenerated on collision rather than failing.
type Account struct {
	ID            string  `json:"id"             db:"id"`
	PublicID      string  `json:"userId"         db:"public_id"`
	Name          string  `json:"name"           db:"name"`
	Email         string  `json:"email"          db:"email"`          // empty when registered by phone only
	Phone         string  `json:"phone"          db:"phone"`          // empty when registered by email only
	GoogleSubject string  `json:"-"              db:"google_subject"` // set only via federated login
	PasswordHash  string  `json:"-"              db:"password_hash"`
	Coins         Balance `json:"coins"`
	Address       string  `json:"address"    db:"address"`
	AvatarURL     string  `json:"profilePicture" db:"avatar_url"`
	IsAdmin       bool    `json:"isAdmin"        db:"is_admin"`

	// Both set or both zero: an account is never left with a dangling
	// half of a recovery token.
	ResetTokenHash      string    `json:"-" db:"reset_token_hash"`
	ResetTokenExpiresAt time.Time `json:"-" db:"reset_token_expires_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Normalize maintains the account invariants that must hold regardless of
// which code path is persisting: the default display name and the derived
// balance fields. Every mutating service operation calls this immediately
// before handing the account to the repository.
//
// This is deliberately a plain function over the struct (not a store hook) so
// the side effects are visible at each call site and testable in isolation.
func (a *Account) Normalize() {
	if a.Name == "" {
		a.Name = DefaultName
	}
	a.Coins.Total = a.Coins.Earned + a.Coins.Purchased
	a.Coins.Withdrawable = a.Coins.Total / 2
}

// HasPendingReset reports whether a recovery token is currently outstanding.
func (a *Account) HasPendingReset() bool {
	return a.ResetTokenHash != "" && !a.ResetTokenExpiresAt.IsZero()
}
