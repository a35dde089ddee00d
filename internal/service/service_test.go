package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/game1pro/accounts/internal/apperror"
	"github.com/game1pro/accounts/internal/auth"
	"github.com/game1pro/accounts/internal/model"
)

// Shared fakes for the service tests. mockAccountRepo implements
// repository.AccountRepository in memory; the collaborator fakes record
// calls and can be told to fail.

type mockAccountRepo struct {
	accounts map[string]*model.Account
	nextID   int

	createErr error
	updateErr error
}

func newMockRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[string]*model.Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, account *model.Account) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, a := range m.accounts {
		if account.Email != "" && a.Email == account.Email {
			return apperror.Conflict("account", "email already registered")
		}
	}
	m.nextID++
	account.ID = fmt.Sprintf("mock-%d", m.nextID)
	account.PublicID = fmt.Sprintf("%08d", 10000000+m.nextID)
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	stored := *account
	m.accounts[account.ID] = &stored
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	result := *a
	return &result, nil
}

func (m *mockAccountRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email && email != "" {
			result := *a
			return &result, nil
		}
	}
	return nil, apperror.NotFound("account", email)
}

func (m *mockAccountRepo) GetByPhone(_ context.Context, phone string) (*model.Account, error) {
	for _, a := range m.accounts {
		if a.Phone == phone && phone != "" {
			result := *a
			return &result, nil
		}
	}
	return nil, apperror.NotFound("account", phone)
}

func (m *mockAccountRepo) GetByResetTokenDigest(_ context.Context, digest string, now time.Time) (*model.Account, error) {
	for _, a := range m.accounts {
		if a.ResetTokenHash == digest && a.ResetTokenExpiresAt.After(now) {
			result := *a
			return &result, nil
		}
	}
	return nil, apperror.NotFound("account", digest)
}

func (m *mockAccountRepo) Update(_ context.Context, account *model.Account) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.accounts[account.ID]; !ok {
		return apperror.NotFound("account", account.ID)
	}
	stored := *account
	m.accounts[account.ID] = &stored
	return nil
}

func (m *mockAccountRepo) SetResetToken(_ context.Context, id, digest string, expiresAt time.Time) error {
	a, ok := m.accounts[id]
	if !ok {
		return apperror.NotFound("account", id)
	}
	a.ResetTokenHash = digest
	a.ResetTokenExpiresAt = expiresAt
	return nil
}

func (m *mockAccountRepo) ClearResetToken(_ context.Context, id string) error {
	a, ok := m.accounts[id]
	if !ok {
		return apperror.NotFound("account", id)
	}
	a.ResetTokenHash = ""
	a.ResetTokenExpiresAt = time.Time{}
	return nil
}

func (m *mockAccountRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	a, ok := m.accounts[id]
	if !ok {
		return apperror.NotFound("account", id)
	}
	a.PasswordHash = passwordHash
	a.ResetTokenHash = ""
	a.ResetTokenExpiresAt = time.Time{}
	return nil
}

// fakeNotifier records sends and optionally fails.
type fakeNotifier struct {
	welcomes  []string
	resetURLs []string
	sendErr   error
}

func (f *fakeNotifier) SendWelcome(_ context.Context, email, _ string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.welcomes = append(f.welcomes, email)
	return nil
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, _, _, resetURL string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.resetURLs = append(f.resetURLs, resetURL)
	return nil
}

// fakeVerifier is the SMS gateway stand-in. approve controls CheckCode.
type fakeVerifier struct {
	sent     []string
	approve  bool
	sendErr  error
	checkErr error
}

func (f *fakeVerifier) SendCode(_ context.Context, phone string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, phone)
	return nil
}

func (f *fakeVerifier) CheckCode(_ context.Context, _, _ string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.approve, nil
}

// fakeUploader returns a fixed URL or fails.
type fakeUploader struct {
	url       string
	uploadErr error
	uploads   int
}

func (f *fakeUploader) Upload(_ context.Context, _ []byte, _ string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads++
	return f.url, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return tokens
}

var errBoom = errors.New("boom")
