package repository

import (
	"context"
	"time"

	"github.com/game1pro/accounts/internal/model"
)

// AccountRepository is the durable credential store.
//
// Uniqueness contract: email is enforced unique at the store level and a
// violation surfaces as apperror.ErrConflict. Phone is deliberately NOT
// unique; callers that treat phone as an identity key must check
// GetByPhone before creating (see the resolution policy in the service
// layer). Lookups that find nothing return apperror.ErrNotFound.
type AccountRepository interface {
	// Create inserts a new account, assigning ID, PublicID, and timestamps.
	Create(ctx context.Context, account *model.Account) error

	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByPhone(ctx context.Context, phone string) (*model.Account, error)

	// GetByResetTokenDigest finds the account holding the given recovery
	// token digest with an expiry still in the future at now. An expired or
	// unknown digest is ErrNotFound; callers cannot distinguish the two.
	GetByResetTokenDigest(ctx context.Context, digest string, now time.Time) (*model.Account, error)

	// Update persists mutable profile and balance fields of an existing account.
	Update(ctx context.Context, account *model.Account) error

	// SetResetToken stores the recovery digest and expiry as a pair.
	SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error
	// ClearResetToken removes both recovery fields as a pair.
	ClearResetToken(ctx context.Context, id string) error

	// UpdatePassword replaces the stored password hash and clears any
	// outstanding recovery token in the same write, so a redeemed token can
	// never be replayed.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
