// Package service — account business logic.
//
// AccountService is the business layer for registration, login, and profile
// management. It sits between the HTTP handlers and the repository/auth
// utilities:
//
//	handlers (HTTP) → AccountService (business rules) → UserRepository (DB)
//	                ↘ TokenService (JWT) / PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Enforce the credential rules: unique email, hashed secrets, uniform
//     invalid-credentials responses
//   - Issue a token on register/login (never on password change — outstanding
//     tokens stay valid until natural expiry)
//   - Stay free of HTTP concerns so it tests with fakes
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ratul/farmer-helper/internal/apperror"
	"github.com/ratul/farmer-helper/internal/auth"
	"github.com/ratul/farmer-helper/internal/model"
	"github.com/ratul/farmer-helper/internal/repository"
)

// AccountService handles account operations.
type AccountService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAccountService creates an AccountService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAccountService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// shape the response in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput carries the validated registration fields.
// Location and FarmSize are optional and default to ""/0.
type RegisterInput struct {
	Fullname string
	Email    string
	Password string
	Location string
	FarmSize float64
}

// ProfileUpdate carries the fields of an UpdateProfile call.
//
// Each field is a pointer: nil means "leave unchanged", a non-nil value is an
// explicit set — including an empty location or a zero farm size. This is
// what lets a user clear a field, which a truthiness check would swallow.
type ProfileUpdate struct {
	Fullname *string
	Email    *string
	Location *string
	FarmSize *float64
}

// Register creates a new account and issues its first token.
//
// The GetByEmail pre-check gives a friendly conflict message for the common
// case; the UNIQUE index in the repository is what actually decides a
// concurrent duplicate registration, and it reports the same conflict.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperror.Conflict("User with this email already exists.")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/account: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/account: hashing password: %w", err)
	}

	user := &model.User{
		Fullname:     in.Fullname,
		Email:        in.Email,
		PasswordHash: hash,
		Location:     in.Location,
		FarmSize:     in.FarmSize,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials and issues a fresh token.
//
// An unknown email and a wrong password return the identical error — the
// response must not reveal whether an account exists. Each successful login
// mints a new token; prior tokens are neither reused nor extended.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/account: looking up user: %w", err)
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		return nil, apperror.InvalidCredentials()
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// GetProfile returns the user record for a verified identity.
// A valid token whose user row has been removed yields not-found.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies the provided fields and returns the updated record.
// Omitted (nil) fields keep their stored values; email changes go through the
// same uniqueness enforcement as registration.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.Fullname != nil {
		user.Fullname = *upd.Fullname
	}
	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if upd.Location != nil {
		user.Location = *upd.Location
	}
	if upd.FarmSize != nil {
		user.FarmSize = *upd.FarmSize
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// ChangePassword verifies the old password and stores a hash of the new one.
//
// The "must differ" rule is checked by verifying the OLD plaintext against the
// hash of the NEW plaintext — sound given the hasher's verify contract, and it
// avoids keeping both plaintexts around longer than the two calls.
//
// No token is issued or revoked: the email (identity) is untouched and
// existing tokens remain valid until they expire.
func (s *AccountService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.passwords.Verify(user.PasswordHash, oldPassword) {
		return apperror.Unauthorized("Old password is incorrect.")
	}

	newHash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/account: hashing new password: %w", err)
	}

	if s.passwords.Verify(newHash, oldPassword) {
		return apperror.ValidationFailed("newPassword",
			"New password must be different from the old password.")
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return err
	}

	s.logger.Info("password changed", slog.String("userID", userID))

	return nil
}
