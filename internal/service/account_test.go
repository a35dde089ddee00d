package service

import (
	"context"
	"errors"
	"testing"

	"github.com/game1pro/accounts/internal/apperror"
	"github.com/game1pro/accounts/internal/auth"
	"github.com/game1pro/accounts/internal/model"
)

func newTestAccountService(t *testing.T) (*AccountService, *mockAccountRepo, *fakeNotifier, *fakeUploader) {
	t.Helper()
	repo := newMockRepo()
	notifier := &fakeNotifier{}
	uploader := &fakeUploader{url: "https://cdn.example.com/avatar.png"}
	svc := NewAccountService(
		repo,
		auth.NewPasswordServiceForTest(4),
		testTokenService(t),
		notifier,
		uploader,
		testLogger(),
	)
	return svc, repo, notifier, uploader
}

func register(t *testing.T, svc *AccountService, email, password string) *AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Test",
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return result
}

func TestRegister(t *testing.T) {
	svc, _, notifier, _ := newTestAccountService(t)

	result := register(t, svc, "alice@example.com", "secret1")

	if result.Token == "" {
		t.Error("Register() returned empty session token")
	}
	if result.Account.PasswordHash == "" {
		t.Error("Register() stored no password hash")
	}
	if result.Account.PasswordHash == "secret1" {
		t.Error("Register() stored the plaintext password")
	}
	if result.Account.Coins.Earned != SignupBonus {
		t.Errorf("Coins.Earned = %d, want %d", result.Account.Coins.Earned, SignupBonus)
	}
	if result.Account.Coins.Total != 100 || result.Account.Coins.Withdrawable != 50 {
		t.Errorf("Coins = %+v, want total 100 withdrawable 50", result.Account.Coins)
	}
	if len(notifier.welcomes) != 1 || notifier.welcomes[0] != "alice@example.com" {
		t.Errorf("welcomes = %v, want one to alice@example.com", notifier.welcomes)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestAccountService(t)
	register(t, svc, "dupe@example.com", "secret1")

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Second",
		Email:    "dupe@example.com",
		Password: "secret2",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Register() error = %v, want ErrConflict", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _, _ := newTestAccountService(t)

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"missing email", RegisterInput{Password: "secret1"}},
		{"malformed email", RegisterInput{Email: "not-an-email", Password: "secret1"}},
		{"short password", RegisterInput{Email: "a@x.com", Password: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegister_MailFailureDoesNotFailRegistration(t *testing.T) {
	svc, _, notifier, _ := newTestAccountService(t)
	notifier.sendErr = errBoom

	result, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Mailless",
		Email:    "mailless@example.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Register() error = %v, want nil despite mail failure", err)
	}
	if result.Token == "" {
		t.Error("Register() returned empty session token")
	}
}

func TestLogin(t *testing.T) {
	svc, _, _, _ := newTestAccountService(t)
	created := register(t, svc, "a@x.com", "abcdef")

	result, err := svc.Login(context.Background(), "a@x.com", "abcdef")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Account.ID != created.Account.ID {
		t.Errorf("Login() account = %q, want %q", result.Account.ID, created.Account.ID)
	}
	if result.Token == "" {
		t.Error("Login() returned empty session token")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _, _ := newTestAccountService(t)
	register(t, svc, "a@x.com", "abcdef")

	_, err := svc.Login(context.Background(), "a@x.com", "wrong")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Login() error = %v, want ErrUnauthorized", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestAccountService(t)

	// Unknown email is NotFound, not Unauthorized; the front end routes
	// it to the signup funnel.
	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Login() error = %v, want ErrNotFound", err)
	}
}

func TestLogin_SessionRoundTrip(t *testing.T) {
	svc, _, _, _ := newTestAccountService(t)
	tokens := testTokenService(t)

	created := register(t, svc, "session@example.com", "secret1")

	accountID, err := tokens.Validate(created.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if accountID != created.Account.ID {
		t.Errorf("Validate() subject = %q, want %q", accountID, created.Account.ID)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, repo, _, _ := newTestAccountService(t)
	created := register(t, svc, "profile@example.com", "secret1")

	name := "Renamed"
	address := "Chittagong"
	updated, err := svc.UpdateProfile(context.Background(), created.Account.ID, UpdateProfileInput{
		Name:    &name,
		Address: &address,
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Name != "Renamed" || updated.Address != "Chittagong" {
		t.Errorf("updated = %+v, want renamed with address", updated)
	}

	stored, _ := repo.GetByID(context.Background(), created.Account.ID)
	if stored.Name != "Renamed" {
		t.Errorf("stored Name = %q, want %q", stored.Name, "Renamed")
	}
}

func TestUpdateProfile_NoFields(t *testing.T) {
	svc, _, _, _ := newTestAccountService(t)
	created := register(t, svc, "empty@example.com", "secret1")

	_, err := svc.UpdateProfile(context.Background(), created.Account.ID, UpdateProfileInput{})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpdateProfile() error = %v, want ErrValidation", err)
	}
}

func TestUpdateProfile_AvatarUpload(t *testing.T) {
	svc, _, _, uploader := newTestAccountService(t)
	created := register(t, svc, "avatar@example.com", "secret1")

	updated, err := svc.UpdateProfile(context.Background(), created.Account.ID, UpdateProfileInput{
		Avatar:            []byte("fake-png-bytes"),
		AvatarContentType: "image/png",
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.AvatarURL != uploader.url {
		t.Errorf("AvatarURL = %q, want %q", updated.AvatarURL, uploader.url)
	}
	if uploader.uploads != 1 {
		t.Errorf("uploads = %d, want 1", uploader.uploads)
	}
}

func TestUpdateProfile_UploadFailureFailsWholeUpdate(t *testing.T) {
	svc, repo, _, uploader := newTestAccountService(t)
	created := register(t, svc, "failup@example.com", "secret1")
	uploader.uploadErr = errBoom

	name := "ShouldNotStick"
	_, err := svc.UpdateProfile(context.Background(), created.Account.ID, UpdateProfileInput{
		Name:   &name,
		Avatar: []byte("bytes"),
	})
	if !errors.Is(err, apperror.ErrInternal) {
		t.Fatalf("UpdateProfile() error = %v, want ErrInternal", err)
	}

	stored, _ := repo.GetByID(context.Background(), created.Account.ID)
	if stored.Name == "ShouldNotStick" {
		t.Error("UpdateProfile() partially applied fields despite upload failure")
	}
	if stored.AvatarURL != "" {
		t.Errorf("AvatarURL = %q, want empty", stored.AvatarURL)
	}
}

func TestUpdateProfile_RecomputesBalance(t *testing.T) {
	svc, repo, _, _ := newTestAccountService(t)
	created := register(t, svc, "coins@example.com", "secret1")

	// Corrupt the derived fields in the store, then trigger any update.
	stored := repo.accounts[created.Account.ID]
	stored.Coins = model.Balance{Earned: 200, Purchased: 100, Total: 999, Withdrawable: 999}

	name := "Trigger"
	updated, err := svc.UpdateProfile(context.Background(), created.Account.ID, UpdateProfileInput{Name: &name})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Coins.Total != 300 || updated.Coins.Withdrawable != 150 {
		t.Errorf("Coins = %+v, want total 300 withdrawable 150", updated.Coins)
	}
}
