package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/ratul/farmer-helper/internal/apperror"
	"github.com/ratul/farmer-helper/internal/model"
	"github.com/ratul/farmer-helper/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// userColumns is the column list shared by every SELECT in this file, in the
// order scanUser reads them.
const userColumns = `id, fullname, email, password_hash, location, farm_size, created_at, updated_at`

// Create inserts a new user, generating the ID and timestamps.
//
// A duplicate email surfaces as the UNIQUE constraint firing, which we
// translate to apperror.ErrConflict. The service layer also pre-checks with
// GetByEmail for a friendly message, but this translation is what makes the
// concurrent-registration race safe: whichever insert loses still gets a
// conflict, never a raw driver error.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, fullname, email, password_hash, location, farm_size, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Fullname,
		user.Email,
		user.PasswordHash,
		user.Location,
		user.FarmSize,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User with this email already exists.")
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email (exact, case-sensitive match — the
// same comparison the UNIQUE index performs).
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpdateProfile overwrites the mutable profile fields of an existing user.
// The caller (service layer) decides which fields change; this method writes
// whatever is in the struct. Changing email can violate the UNIQUE index,
// which comes back as a conflict just like on Create.
func (db *DB) UpdateProfile(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET fullname = ?, email = ?, location = ?, farm_size = ?, updated_at = ?
		 WHERE id = ?`,
		user.Fullname,
		user.Email,
		user.Location,
		user.FarmSize,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User with this email already exists.")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	return requireRowAffected(res, "User")
}

// UpdatePassword replaces the stored hash. The email (identity) is untouched
// — password change never mutates any other column.
func (db *DB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", id, err)
	}

	return requireRowAffected(res, "User")
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Fullname,
		&u.Email,
		&u.PasswordHash,
		&u.Location,
		&u.FarmSize,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// requireRowAffected turns a zero-row UPDATE into a not-found error, so a
// stale token whose user row has disappeared maps to 404 rather than a silent
// success.
func requireRowAffected(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource)
	}
	return nil
}

// isUniqueViolation detects the SQLite UNIQUE constraint error.
// modernc.org/sqlite wraps SQLITE_CONSTRAINT_UNIQUE in its own error type;
// matching on the stable message text avoids depending on driver internals.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
