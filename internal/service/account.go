package service

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/game1pro/accounts/internal/apperror"
	"github.com/game1pro/accounts/internal/auth"
	"github.com/game1pro/accounts/internal/blob"
	"github.com/game1pro/accounts/internal/model"
	"github.com/game1pro/accounts/internal/notify"
	"github.com/game1pro/accounts/internal/repository"
)

// SignupBonus is the earned-coin credit granted to every new account.
const SignupBonus = 100

// AuthResult pairs an account with a freshly issued session token.
type AuthResult struct {
	Account *model.Account
	Token   string
}

// AccountService handles registration, credential login, and profile
// management.
type AccountService struct {
	repo      repository.AccountRepository
	policy    resolutionPolicy
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	notifier  notify.Notifier
	uploader  blob.Uploader
	logger    *slog.Logger
}

func NewAccountService(
	repo repository.AccountRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	notifier notify.Notifier,
	uploader blob.Uploader,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		repo:      repo,
		policy:    resolutionPolicy{repo: repo},
		passwords: passwords,
		tokens:    tokens,
		notifier:  notifier,
		uploader:  uploader,
		logger:    logger,
	}
}

// RegisterInput is the payload for direct email registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates an account over the email channel and issues a session.
//
// The welcome email is best effort: the account exists and the session is
// valid whether or not the mail went out, so a mail failure is logged and
// swallowed rather than failing the registration.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(input.Password) < auth.MinPasswordLength {
		return nil, apperror.ValidationFailed("password", "password must be at least 6 characters")
	}

	if err := s.policy.ensureCreatable(ctx, ChannelEmail, email); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, apperror.Internal("could not process password", err)
	}

	account := &model.Account{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Coins:        model.Balance{Earned: SignupBonus},
	}
	account.Normalize()

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		"account_id", account.ID,
		"public_id", account.PublicID,
		"channel", ChannelEmail.String())

	if err := s.notifier.SendWelcome(ctx, account.Email, account.Name); err != nil {
		s.logger.Warn("welcome email failed", "account_id", account.ID, "error", err)
	}

	return s.issueSession(account)
}

// Login authenticates an email/password pair.
//
// An unknown email is NotFound and a wrong password is Unauthorized. The
// two are deliberately distinguishable, matching the product's signup
// funnel (the front end redirects unknown emails to registration).
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("credentials", "email and password are required")
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("incorrect password")
	}

	s.logger.Info("login", "account_id", account.ID)
	return s.issueSession(account)
}

// GetByID returns an account by its internal id.
func (s *AccountService) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfileInput carries the optional profile mutations. Nil string
// fields are left untouched; Avatar, when non-empty, is uploaded to the
// blob host and the resulting URL replaces the current one.
type UpdateProfileInput struct {
	Name    *string
	Phone   *string
	Address *string

	Avatar            []byte
	AvatarContentType string
}

func (in UpdateProfileInput) empty() bool {
	return in.Name == nil && in.Phone == nil && in.Address == nil && len(in.Avatar) == 0
}

// UpdateProfile applies the given mutations to the account.
//
// The avatar upload happens before any field is persisted: if the blob
// host rejects the image the whole update fails and the stored profile is
// untouched.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, input UpdateProfileInput) (*model.Account, error) {
	if input.empty() {
		return nil, apperror.ValidationFailed("profile", "at least one field is required")
	}

	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if len(input.Avatar) > 0 {
		url, err := s.uploader.Upload(ctx, input.Avatar, input.AvatarContentType)
		if err != nil {
			return nil, apperror.Internal("could not store profile picture", err)
		}
		account.AvatarURL = url
	}

	if input.Name != nil {
		account.Name = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		account.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		account.Address = strings.TrimSpace(*input.Address)
	}

	account.Normalize()
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", "account_id", account.ID)
	return account, nil
}

func (s *AccountService) issueSession(account *model.Account) (*AuthResult, error) {
	token, err := s.tokens.Generate(account.ID)
	if err != nil {
		return nil, apperror.Internal("could not issue session", err)
	}
	return &AuthResult{Account: account, Token: token}, nil
}
