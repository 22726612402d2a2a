package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/ratul/farmer-helper/internal/apperror"
	"github.com/ratul/farmer-helper/internal/auth"
	"github.com/ratul/farmer-helper/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// A hand-written fake (not a mock framework) keeps tests easy to read — you
// can see exactly what the store does, including the unique-email check.
type fakeUserRepo struct {
	users   map[string]*model.User // keyed by internal ID
	byEmail map[string]*model.User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
		nextID:  1,
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if _, taken := f.byEmail[user.Email]; taken {
		return apperror.Conflict("User with this email already exists.")
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	copied := *user
	f.users[user.ID] = &copied
	f.byEmail[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("User")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("User")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	stored, ok := f.users[user.ID]
	if !ok {
		return apperror.NotFound("User")
	}
	if other, taken := f.byEmail[user.Email]; taken && other.ID != user.ID {
		return apperror.Conflict("User with this email already exists.")
	}
	delete(f.byEmail, stored.Email)
	*stored = *user
	f.byEmail[stored.Email] = stored
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	stored, ok := f.users[id]
	if !ok {
		return apperror.NotFound("User")
	}
	stored.PasswordHash = passwordHash
	return nil
}

// newTestAccountService returns an AccountService wired with the fake repo.
// bcrypt runs at MinCost so each test stays fast.
func newTestAccountService(t *testing.T, repo *fakeUserRepo) *AccountService {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewAccountService(repo, tokens, passwords, logger)
}

func registerAna(t *testing.T, svc *AccountService) *AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), RegisterInput{
		Fullname: "Ana",
		Email:    "a@x.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return result
}

// =========================================================================
// REGISTER TESTS
// =========================================================================

func TestRegister(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAccountService(t, repo)

	result := registerAna(t, svc)

	if result.User.ID == "" {
		t.Error("Register() did not assign a user ID")
	}
	if result.Token == "" {
		t.Error("Register() did not issue a token")
	}
	if result.User.Location != "" || result.User.FarmSize != 0 {
		t.Errorf("defaults: location=%q farmsize=%v, want empty/0",
			result.User.Location, result.User.FarmSize)
	}
	// The stored secret must be a hash, never the plaintext
	stored := repo.byEmail["a@x.com"]
	if stored.PasswordHash == "secret1" {
		t.Fatal("Register() stored the plaintext password")
	}
	if stored.PasswordHash == "" {
		t.Fatal("Register() stored an empty password hash")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAccountService(t, repo)

	registerAna(t, svc)
	originalHash := repo.byEmail["a@x.com"].PasswordHash

	_, err := svc.Register(context.Background(), RegisterInput{
		Fullname: "Impostor",
		Email:    "a@x.com",
		Password: "different",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Register() error = %v, want ErrConflict", err)
	}

	// The existing record is untouched
	if repo.byEmail["a@x.com"].Fullname != "Ana" {
		t.Error("duplicate registration altered the existing user")
	}
	if repo.byEmail["a@x.com"].PasswordHash != originalHash {
		t.Error("duplicate registration altered the stored hash")
	}
}

func TestRegister_ThenLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAccountService(t, repo)

	reg := registerAna(t, svc)

	login, err := svc.Login(context.Background(), "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login() after Register() error = %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Errorf("Login() user ID = %q, want %q", login.User.ID, reg.User.ID)
	}
	if login.Token == "" {
		t.Error("Login() did not issue a token")
	}
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin_UniformInvalidCredentials(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAccountService(t, repo)
	registerAna(t, svc)

	// Unknown email and wrong password must be byte-identical errors — the
	// response may not reveal whether an account exists.
	_, errUnknown := svc.Login(context.Background(), "nobody@x.com", "whatever")
	_, errWrongPw := svc.Login(context.Background(), "a@x.com", "wrong")

	if !errors.Is(errUnknown, apperror.ErrInvalidCredentials) {
		t.Fatalf("unknown email error = %v, want ErrInvalidCredentials", errUnknown)
	}
	if !errors.Is(errWrongPw, apperror.ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v, want ErrInvalidCredentials", errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("credential errors differ: %q vs %q", errUnknown.Error(), errWrongPw.Error())
	}
}

func TestLogin_IssuesFreshToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAccountService(t, repo)
	registerAna(t, svc)

	first, err := svc.Login(context.Background(), "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if first.Token == "" {
		t.Fatal("Login() returned an empty token")
	}
}

// =========================================================================
// PROFILE TESTS
// =========================================================================

func TestGetProfile_NotFound(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAccountService(t, repo)

	// A syntactically valid identity whose record is gone
	_, err := svc.GetProfile(context.Background(), "user-999")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProfile() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateProfile_PartialUpdate(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAccountService(t, repo)
	reg := registerAna(t, svc)

	loc := "Nashik"
	updated, err := svc.UpdateProfile(context.Background(), reg.User.ID, ProfileUpdate{
		Location: &loc,
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	// Provided field changed; omitted fields untouched
	if updated.Location != "Nashik" {
		t.Errorf("Location = %q, want %q", updated.Location, "Nashik")
	}
	if updated.Fullname != "Ana" {
		t.Errorf("Fullname = %q, want unchanged %q", updated.Fullname, "Ana")
	}
	if updated.Email != "a@x.com" {
		t.Errorf("Email = %q, want unchanged %q", updated.Email, "a@x.com")
	}
}

func TestUpdateProfile_ExplicitZeroIsApplied(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAccountService(t, repo)

	result, err := svc.Register(context.Background(), RegisterInput{
		Fullname: "Ana",
		Email:    "a@x.com",
		Password: "secret1",
		Location: "Pune",
		FarmSize: 3,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// nil means "leave alone"; a pointer to the zero value means "set to zero"
	emptyLoc := ""
	zeroSize := 0.0
	updated, err := svc.UpdateProfile(context.Background(), result.User.ID, ProfileUpdate{
		Location: &emptyLoc,
		FarmSize: &zeroSize,
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Location != "" {
		t.Errorf("Location = %q, want cleared", updated.Location)
	}
	if updated.FarmSize != 0 {
		t.Errorf("FarmSize = %v, want 0", updated.FarmSize)
	}
}

// =========================================================================
// CHANGE PASSWORD TESTS
// =========================================================================

func TestChangePassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAccountService(t, repo)
	reg := registerAna(t, svc)

	err := svc.ChangePassword(context.Background(), reg.User.ID, "secret1", "secret2")
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	// Old password no longer logs in; new one does
	if _, err := svc.Login(context.Background(), "a@x.com", "secret1"); !errors.Is(err, apperror.ErrInvalidCredentials) {
		t.Errorf("Login() with old password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "a@x.com", "secret2"); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAccountService(t, repo)
	reg := registerAna(t, svc)

	err := svc.ChangePassword(context.Background(), reg.User.ID, "wrong", "secret2")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("ChangePassword() error = %v, want ErrUnauthorized", err)
	}
}

func TestChangePassword_SamePassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAccountService(t, repo)
	reg := registerAna(t, svc)

	err := svc.ChangePassword(context.Background(), reg.User.ID, "secret1", "secret1")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ChangePassword() error = %v, want ErrValidation", err)
	}

	// And the stored hash still verifies the original password
	if _, err := svc.Login(context.Background(), "a@x.com", "secret1"); err != nil {
		t.Errorf("Login() after rejected change error = %v", err)
	}
}

func TestChangePassword_KeepsEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAccountService(t, repo)
	reg := registerAna(t, svc)

	if err := svc.ChangePassword(context.Background(), reg.User.ID, "secret1", "secret2"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	user, err := svc.GetProfile(context.Background(), reg.User.ID)
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if user.Email != "a@x.com" {
		t.Errorf("Email = %q after password change, want unchanged", user.Email)
	}
}
