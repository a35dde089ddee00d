package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/game1pro/accounts/internal/apperror"
	"github.com/game1pro/accounts/internal/auth"
	"github.com/game1pro/accounts/internal/model"
	"github.com/game1pro/accounts/internal/otp"
	"github.com/game1pro/accounts/internal/repository"
	"github.com/game1pro/accounts/internal/smsgateway"
)

// OtpTTL is the confirmation window for a pending phone registration.
const OtpTTL = 5 * time.Minute

// MinPhoneLength matches the local numbering plan (11 digits).
const MinPhoneLength = 11

// OtpService runs phone-based registration: send a code, park the pending
// registration, and create the account once the code checks out.
type OtpService struct {
	repo      repository.AccountRepository
	policy    resolutionPolicy
	pending   otp.Store
	verifier  smsgateway.Verifier
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func NewOtpService(
	repo repository.AccountRepository,
	pending otp.Store,
	verifier smsgateway.Verifier,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *OtpService {
	return &OtpService{
		repo:      repo,
		policy:    resolutionPolicy{repo: repo},
		pending:   pending,
		verifier:  verifier,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// SendOtpInput is the payload that starts a phone registration.
type SendOtpInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// SendOtp validates the registration, dispatches a code through the SMS
// gateway, and parks the registration until VerifyOtp. A repeat send for
// the same phone replaces the previous pending entry.
//
// The password is hashed before parking so the plaintext never reaches the
// pending store.
func (s *OtpService) SendOtp(ctx context.Context, input SendOtpInput) error {
	phone := strings.TrimSpace(input.Phone)
	if len(phone) < MinPhoneLength {
		return apperror.ValidationFailed("phone", "a valid phone number is required")
	}
	if len(input.Password) < auth.MinPasswordLength {
		return apperror.ValidationFailed("password", "password must be at least 6 characters")
	}

	if err := s.policy.ensureCreatable(ctx, ChannelPhone, phone); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return apperror.Internal("could not process password", err)
	}

	if err := s.verifier.SendCode(ctx, phone); err != nil {
		return apperror.Internal("could not send verification code", err)
	}

	entry := otp.Pending{
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(strings.ToLower(input.Email)),
		PasswordHash: hash,
		ExpiresAt:    time.Now().Add(OtpTTL),
	}
	if err := s.pending.Put(ctx, phone, entry); err != nil {
		return apperror.Internal("could not save pending registration", err)
	}

	s.logger.Info("otp sent", "phone", phone)
	return nil
}

// VerifyOtp checks the code against the gateway and, on approval, creates
// the account from the parked registration and issues a session.
//
// The pending entry is deleted before the account is created. If creation
// then fails, the flow restarts at SendOtp; the entry is never left behind
// for a code that already proved ownership once.
func (s *OtpService) VerifyOtp(ctx context.Context, phone, code string) (*AuthResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || code == "" {
		return nil, apperror.ValidationFailed("otp", "phone and code are required")
	}

	entry, err := s.pending.GetIfFresh(ctx, phone)
	if err != nil {
		switch {
		case errors.Is(err, otp.ErrNoPending):
			return nil, apperror.NotFound("pending registration", phone)
		case errors.Is(err, otp.ErrExpired):
			if delErr := s.pending.Delete(ctx, phone); delErr != nil {
				s.logger.Warn("failed to delete expired otp entry", "phone", phone, "error", delErr)
			}
			return nil, apperror.Unauthorized("verification code expired, request a new one")
		default:
			return nil, apperror.Internal("could not load pending registration", err)
		}
	}

	ok, err := s.verifier.CheckCode(ctx, phone, code)
	if err != nil {
		return nil, apperror.Internal("could not verify code", err)
	}
	if !ok {
		return nil, apperror.Unauthorized("incorrect verification code")
	}

	if err := s.pending.Delete(ctx, phone); err != nil {
		return nil, apperror.Internal("could not consume pending registration", err)
	}

	account := &model.Account{
		Name:         entry.Name,
		Email:        entry.Email,
		Phone:        phone,
		PasswordHash: entry.PasswordHash,
		Coins:        model.Balance{Earned: SignupBonus},
	}
	account.Normalize()

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		"account_id", account.ID,
		"public_id", account.PublicID,
		"channel", ChannelPhone.String())

	token, err := s.tokens.Generate(account.ID)
	if err != nil {
		return nil, apperror.Internal("could not issue session", err)
	}
	return &AuthResult{Account: account, Token: token}, nil
}
