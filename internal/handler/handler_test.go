package handler_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/game1pro/accounts/internal/apperror"
	"github.com/game1pro/accounts/internal/auth"
	"github.com/game1pro/accounts/internal/handler"
	"github.com/game1pro/accounts/internal/model"
	"github.com/game1pro/accounts/internal/notify"
	"github.com/game1pro/accounts/internal/otp"
	"github.com/game1pro/accounts/internal/service"
)

// In-memory collaborators for exercising the handlers through real
// services without a database, mail relay, or blob host.

type memRepo struct {
	accounts map[string]*model.Account
	nextID   int
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: make(map[string]*model.Account)}
}

func (m *memRepo) Create(_ context.Context, account *model.Account) error {
	for _, a := range m.accounts {
		if account.Email != "" && a.Email == account.Email {
			return apperror.Conflict("account", "email already registered")
		}
	}
	m.nextID++
	account.ID = fmt.Sprintf("acct-%d", m.nextID)
	account.PublicID = fmt.Sprintf("%08d", 10000000+m.nextID)
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	stored := *account
	m.accounts[account.ID] = &stored
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	result := *a
	return &result, nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email && email != "" {
			result := *a
			return &result, nil
		}
	}
	return nil, apperror.NotFound("account", email)
}

func (m *memRepo) GetByPhone(_ context.Context, phone string) (*model.Account, error) {
	for _, a := range m.accounts {
		if a.Phone == phone && phone != "" {
			result := *a
			return &result, nil
		}
	}
	return nil, apperror.NotFound("account", phone)
}

func (m *memRepo) GetByResetTokenDigest(_ context.Context, digest string, now time.Time) (*model.Account, error) {
	for _, a := range m.accounts {
		if a.ResetTokenHash == digest && a.ResetTokenExpiresAt.After(now) {
			result := *a
			return &result, nil
		}
	}
	return nil, apperror.NotFound("account", digest)
}

func (m *memRepo) Update(_ context.Context, account *model.Account) error {
	if _, ok := m.accounts[account.ID]; !ok {
		return apperror.NotFound("account", account.ID)
	}
	stored := *account
	m.accounts[account.ID] = &stored
	return nil
}

func (m *memRepo) SetResetToken(_ context.Context, id, digest string, expiresAt time.Time) error {
	a, ok := m.accounts[id]
	if !ok {
		return apperror.NotFound("account", id)
	}
	a.ResetTokenHash = digest
	a.ResetTokenExpiresAt = expiresAt
	return nil
}

func (m *memRepo) ClearResetToken(_ context.Context, id string) error {
	a, ok := m.accounts[id]
	if !ok {
		return apperror.NotFound("account", id)
	}
	a.ResetTokenHash = ""
	a.ResetTokenExpiresAt = time.Time{}
	return nil
}

func (m *memRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	a, ok := m.accounts[id]
	if !ok {
		return apperror.NotFound("account", id)
	}
	a.PasswordHash = passwordHash
	a.ResetTokenHash = ""
	a.ResetTokenExpiresAt = time.Time{}
	return nil
}

type memNotifier struct {
	resetURLs []string
}

var _ notify.Notifier = (*memNotifier)(nil)

func (n *memNotifier) SendWelcome(_ context.Context, _, _ string) error { return nil }

func (n *memNotifier) SendPasswordReset(_ context.Context, _, _, resetURL string) error {
	n.resetURLs = append(n.resetURLs, resetURL)
	return nil
}

type memUploader struct{}

func (memUploader) Upload(_ context.Context, _ []byte, _ string) (string, error) {
	return "https://cdn.example.com/avatar.png", nil
}

type memVerifier struct {
	approve bool
}

func (m *memVerifier) SendCode(_ context.Context, _ string) error { return nil }

func (m *memVerifier) CheckCode(_ context.Context, _, _ string) (bool, error) {
	return m.approve, nil
}

type memOtpStore struct {
	entries map[string]otp.Pending
}

func newMemOtpStore() *memOtpStore {
	return &memOtpStore{entries: make(map[string]otp.Pending)}
}

func (m *memOtpStore) Put(_ context.Context, phone string, pending otp.Pending) error {
	m.entries[phone] = pending
	return nil
}

func (m *memOtpStore) GetIfFresh(_ context.Context, phone string) (otp.Pending, error) {
	pending, ok := m.entries[phone]
	if !ok {
		return otp.Pending{}, otp.ErrNoPending
	}
	if time.Now().After(pending.ExpiresAt) {
		return otp.Pending{}, otp.ErrExpired
	}
	return pending, nil
}

func (m *memOtpStore) Delete(_ context.Context, phone string) error {
	delete(m.entries, phone)
	return nil
}

// testEnv wires real services over the in-memory collaborators.
type testEnv struct {
	repo     *memRepo
	notifier *memNotifier
	verifier *memVerifier
	tokens   *auth.TokenService

	account  *handler.AccountHandler
	recovery *handler.RecoveryHandler
	otp      *handler.OtpHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := auth.NewTokenService("handler-test-secret-key", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)
	repo := newMemRepo()
	notifier := &memNotifier{}
	verifier := &memVerifier{approve: true}

	cookies := handler.CookieConfig{
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		TTL:      time.Hour,
	}

	accounts := service.NewAccountService(repo, passwords, tokens, notifier, memUploader{}, logger)
	recovery := service.NewRecoveryService(repo, passwords, notifier, verifier, "https://app.example.com/resetpassword", logger)
	otps := service.NewOtpService(repo, newMemOtpStore(), verifier, passwords, tokens, logger)

	return &testEnv{
		repo:     repo,
		notifier: notifier,
		verifier: verifier,
		tokens:   tokens,
		account:  handler.NewAccountHandler(accounts, cookies, logger),
		recovery: handler.NewRecoveryHandler(recovery, logger),
		otp:      handler.NewOtpHandler(otps, cookies, logger),
	}
}
