package repository

import (
	"context"

	"github.com/ratul/farmer-helper/internal/model"
)

// UserRepository is the credential store: the only persisted entity in the
// system. Implementations must enforce email uniqueness at insert/update time
// — that constraint is the authoritative race-resolution point for concurrent
// duplicate registrations, so Create/Update return apperror.ErrConflict when
// it is violated.
type UserRepository interface {
	// Create inserts a new user, filling in ID, CreatedAt, and UpdatedAt.
	Create(ctx context.Context, user *model.User) error

	// GetByID returns the user with the given internal ID, or
	// apperror.ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.User, error)

	// GetByEmail returns the user with the given email (exact match), or
	// apperror.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// UpdateProfile overwrites the profile fields (fullname, email, location,
	// farm size) of an existing user and refreshes UpdatedAt.
	UpdateProfile(ctx context.Context, user *model.User) error

	// UpdatePassword replaces the stored password hash for the given user.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
