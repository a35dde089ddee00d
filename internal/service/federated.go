package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/game1pro/accounts/internal/apperror"
	"github.com/game1pro/accounts/internal/auth"
	"github.com/game1pro/accounts/internal/model"
	"github.com/game1pro/accounts/internal/notify"
	"github.com/game1pro/accounts/internal/repository"
)

// GoogleVerifier exchanges an authorization code for a verified identity.
type GoogleVerifier interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GoogleIdentity, error)
}

// FederatedService maps verified Google identities onto local accounts.
type FederatedService struct {
	repo     repository.AccountRepository
	tokens   *auth.TokenService
	verifier GoogleVerifier
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewFederatedService(
	repo repository.AccountRepository,
	tokens *auth.TokenService,
	verifier GoogleVerifier,
	notifier notify.Notifier,
	logger *slog.Logger,
) *FederatedService {
	return &FederatedService{
		repo:     repo,
		tokens:   tokens,
		verifier: verifier,
		notifier: notifier,
		logger:   logger,
	}
}

// AuthURL returns the provider consent URL carrying state.
func (s *FederatedService) AuthURL(state string) string {
	return s.verifier.AuthURL(state)
}

// LoginWithGoogle exchanges the callback code for a verified identity and
// resolves it to a local account, creating one on first login.
//
// Resolution is by email. A brand-new account is created bound to the
// Google subject with no password hash; an existing account gains the
// subject binding only if it has none; a repeat login never rebinds. The
// welcome email goes out exactly when the account is new.
func (s *FederatedService) LoginWithGoogle(ctx context.Context, code string) (*AuthResult, error) {
	if code == "" {
		return nil, apperror.ValidationFailed("code", "authorization code is required")
	}

	identity, err := s.verifier.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.Unauthorized("could not verify identity with provider")
	}

	email := strings.TrimSpace(strings.ToLower(identity.Email))

	account, err := s.repo.GetByEmail(ctx, email)
	isNew := false
	switch {
	case err == nil:
		if account.GoogleSubject == "" {
			account.GoogleSubject = identity.Subject
			account.Normalize()
			if err := s.repo.Update(ctx, account); err != nil {
				return nil, err
			}
			s.logger.Info("google identity bound", "account_id", account.ID)
		}

	case errors.Is(err, apperror.ErrNotFound):
		account = &model.Account{
			Name:          identity.Name,
			Email:         email,
			GoogleSubject: identity.Subject,
			Coins:         model.Balance{Earned: SignupBonus},
		}
		account.Normalize()
		if err := s.repo.Create(ctx, account); err != nil {
			return nil, err
		}
		isNew = true
		s.logger.Info("account created via google",
			"account_id", account.ID,
			"public_id", account.PublicID)

	default:
		return nil, err
	}

	if isNew {
		if err := s.notifier.SendWelcome(ctx, account.Email, account.Name); err != nil {
			s.logger.Warn("welcome email failed", "account_id", account.ID, "error", err)
		}
	}

	token, err := s.tokens.Generate(account.ID)
	if err != nil {
		return nil, apperror.Internal("could not issue session", err)
	}
	return &AuthResult{Account: account, Token: token}, nil
}
