package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/game1pro/accounts/internal/apperror"
	"github.com/game1pro/accounts/internal/auth"
	"github.com/game1pro/accounts/internal/notify"
	"github.com/game1pro/accounts/internal/repository"
	"github.com/game1pro/accounts/internal/smsgateway"
)

// RecoveryService runs the password-recovery lifecycle: issue a single-use
// time-boxed token, deliver it out of band, and redeem it for a new
// password.
type RecoveryService struct {
	repo         repository.AccountRepository
	passwords    *auth.PasswordService
	notifier     notify.Notifier
	verifier     smsgateway.Verifier
	logger       *slog.Logger
	resetURLBase string
}

func NewRecoveryService(
	repo repository.AccountRepository,
	passwords *auth.PasswordService,
	notifier notify.Notifier,
	verifier smsgateway.Verifier,
	resetURLBase string,
	logger *slog.Logger,
) *RecoveryService {
	return &RecoveryService{
		repo:         repo,
		passwords:    passwords,
		notifier:     notifier,
		verifier:     verifier,
		resetURLBase: strings.TrimRight(resetURLBase, "/"),
		logger:       logger,
	}
}

// Forgot starts recovery for the account holding email. Only the token's
// digest is persisted; the raw value exists solely inside the mailed link.
//
// If the mail fails after the digest was stored, the stored fields are
// cleared again before the error surfaces, so a failed attempt never
// leaves a token behind that nobody received.
func (s *RecoveryService) Forgot(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	raw, digest, err := auth.NewRecoveryToken()
	if err != nil {
		return apperror.Internal("could not generate reset token", err)
	}

	expiresAt := time.Now().Add(auth.RecoveryTokenTTL)
	if err := s.repo.SetResetToken(ctx, account.ID, digest, expiresAt); err != nil {
		return err
	}

	resetURL := s.resetURLBase + "/" + raw
	if err := s.notifier.SendPasswordReset(ctx, account.Email, account.Name, resetURL); err != nil {
		if clearErr := s.repo.ClearResetToken(ctx, account.ID); clearErr != nil {
			s.logger.Error("failed to clear reset token after mail failure",
				"account_id", account.ID, "error", clearErr)
		}
		return apperror.Internal("could not send reset email", err)
	}

	s.logger.Info("recovery token issued", "account_id", account.ID)
	return nil
}

// Redeem exchanges a raw recovery token for a new password. The token is
// single use: the matching digest is cleared in the same write that stores
// the new password hash.
func (s *RecoveryService) Redeem(ctx context.Context, rawToken, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return apperror.ValidationFailed("confirmPassword", "passwords do not match")
	}
	if len(newPassword) < auth.MinPasswordLength {
		return apperror.ValidationFailed("password", "password must be at least 6 characters")
	}

	digest := auth.HashRecoveryToken(rawToken)
	account, err := s.repo.GetByResetTokenDigest(ctx, digest, time.Now())
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.Unauthorized("invalid or expired reset token")
		}
		return err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return apperror.Internal("could not process password", err)
	}

	if err := s.repo.UpdatePassword(ctx, account.ID, hash); err != nil {
		return err
	}

	s.logger.Info("password reset", "account_id", account.ID)
	return nil
}

// IssueViaOtp is the phone-gated recovery path: the caller proves phone
// ownership with a gateway-checked code and receives the raw recovery
// token directly in the response instead of over email.
func (s *RecoveryService) IssueViaOtp(ctx context.Context, phone, code string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || code == "" {
		return "", apperror.ValidationFailed("otp", "phone and code are required")
	}

	account, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		return "", err
	}

	ok, err := s.verifier.CheckCode(ctx, phone, code)
	if err != nil {
		return "", apperror.Internal("could not verify code", err)
	}
	if !ok {
		return "", apperror.Unauthorized("incorrect or expired code")
	}

	raw, digest, err := auth.NewRecoveryToken()
	if err != nil {
		return "", apperror.Internal("could not generate reset token", err)
	}

	expiresAt := time.Now().Add(auth.RecoveryTokenTTL)
	if err := s.repo.SetResetToken(ctx, account.ID, digest, expiresAt); err != nil {
		return "", err
	}

	s.logger.Info("recovery token issued via otp", "account_id", account.ID)
	return raw, nil
}
