// Package service contains the business logic layer: validation, identity
// resolution, and orchestration between the credential store and the
// external collaborators (mail, SMS gateway, identity provider, blob host).
package service

import (
	"context"
	"errors"

	"github.com/game1pro/accounts/internal/apperror"
	"github.com/game1pro/accounts/internal/repository"
)

// IdentityChannel names the path an account's identity arrives through.
// Every creation flow declares its channel so the resolution policy below
// can apply the right uniqueness rule instead of each flow improvising one.
type IdentityChannel int

const (
	// ChannelEmail is direct registration with email and password.
	ChannelEmail IdentityChannel = iota
	// ChannelPhone is OTP-gated registration keyed by phone number.
	ChannelPhone
	// ChannelFederated is login asserted by the external identity provider.
	ChannelFederated
)

func (c IdentityChannel) String() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelPhone:
		return "phone"
	case ChannelFederated:
		return "federated"
	default:
		return "unknown"
	}
}

// resolutionPolicy centralizes the uniqueness rules across identity
// channels. Email uniqueness is enforced by the store itself; phone
// uniqueness is not, so the phone channel checks explicitly before
// creating. The federated channel resolves by email and therefore can
// never duplicate an existing email account.
type resolutionPolicy struct {
	repo repository.AccountRepository
}

// ensureCreatable reports whether a new account may be created for the
// given identity value on the given channel. It returns an
// apperror.ErrConflict error when the identity is already taken.
func (p resolutionPolicy) ensureCreatable(ctx context.Context, channel IdentityChannel, identity string) error {
	var err error
	switch channel {
	case ChannelPhone:
		_, err = p.repo.GetByPhone(ctx, identity)
	default:
		// Email and federated channels both key on email. The store's
		// unique index is the real guard; this pre-check just turns the
		// common case into a clean Conflict before any work is done.
		_, err = p.repo.GetByEmail(ctx, identity)
	}

	if err == nil {
		return apperror.Conflict("account", channel.String()+" already registered")
	}
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	return err
}
