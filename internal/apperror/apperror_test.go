package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", NotFound("User"), ErrNotFound},
		{"validation", ValidationFailed("email", "email required"), ErrValidation},
		{"conflict", Conflict("User with this email already exists."), ErrConflict},
		{"invalid credentials", InvalidCredentials(), ErrInvalidCredentials},
		{"unauthorized", Unauthorized("Old password is incorrect."), ErrUnauthorized},
		{"upstream", Upstream("ML service unavailable", nil), ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false, want true", tt.err)
			}
		})
	}
}

func TestSentinelMatchingThroughWrapping(t *testing.T) {
	// Services wrap AppErrors with context; errors.Is must still match.
	wrapped := fmt.Errorf("service/account: %w", NotFound("User"))
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("wrapped AppError no longer matches ErrNotFound")
	}

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As failed to extract *AppError from wrapped chain")
	}
	if appErr.Message != "User not found" {
		t.Errorf("Message = %q, want %q", appErr.Message, "User not found")
	}
}

func TestInvalidCredentialsMessageIsUniform(t *testing.T) {
	// The same message for "no such user" and "wrong password" is a contract,
	// not a coincidence — both call sites use this constructor.
	a := InvalidCredentials()
	b := InvalidCredentials()
	if a.Message != b.Message {
		t.Errorf("InvalidCredentials messages differ: %q vs %q", a.Message, b.Message)
	}
	if a.Message != "Invalid email or password." {
		t.Errorf("Message = %q, want %q", a.Message, "Invalid email or password.")
	}
}

func TestUpstreamPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("ML service unavailable", cause)

	if !errors.Is(err, ErrUpstream) {
		t.Error("Upstream error does not match ErrUpstream")
	}
	if !errors.Is(err, cause) {
		t.Error("Upstream error lost its cause")
	}
}

func TestValidationFailedCarriesField(t *testing.T) {
	err := ValidationFailed("newPassword", "New password must be different from the old password.")
	if err.Field != "newPassword" {
		t.Errorf("Field = %q, want %q", err.Field, "newPassword")
	}
	if err.Error() != "New password must be different from the old password." {
		t.Errorf("Error() = %q", err.Error())
	}
}
