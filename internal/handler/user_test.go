package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ratul/farmer-helper/internal/auth"
	"github.com/ratul/farmer-helper/internal/repository/sqlite"
	"github.com/ratul/farmer-helper/internal/service"
)

// newUserHandler builds a UserHandler on a real AccountService backed by a
// temp-dir SQLite store, registers one account, and returns the handler with
// the account's ID. Requests get their identity via ContextWithUserID instead
// of going through the middleware — the auth gate has its own tests.
func newUserHandler(t *testing.T) (*UserHandler, string) {
	t.Helper()

	logger := testLogger()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)

	accounts := service.NewAccountService(db, tokens, passwords, logger)
	result, err := accounts.Register(context.Background(), service.RegisterInput{
		Fullname: "Ana",
		Email:    "a@x.com",
		Password: "secret1",
		Location: "Pune",
		FarmSize: 2.5,
	})
	require.NoError(t, err)

	return NewUserHandler(accounts, logger), result.User.ID
}

func authedRequest(method, path, userID, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(auth.ContextWithUserID(req.Context(), userID))
}

// =========================================================================
// GET PROFILE TESTS
// =========================================================================

func TestHandleGetProfile(t *testing.T) {
	h, userID := newUserHandler(t)

	rec := httptest.NewRecorder()
	h.HandleGetProfile(rec, authedRequest(http.MethodGet, "/api/user/profile", userID, ""))

	require.Equal(t, http.StatusOK, rec.Code)

	var profile map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, userID, profile["_id"])
	assert.Equal(t, "Ana", profile["fullname"])
	assert.Equal(t, "Pune", profile["location"])
	assert.Equal(t, 2.5, profile["farmsize"])
	assert.NotContains(t, profile, "password_hash")
}

func TestHandleGetProfile_NoIdentity(t *testing.T) {
	h, _ := newUserHandler(t)

	// A request that skipped the auth gate carries no userID
	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	rec := httptest.NewRecorder()
	h.HandleGetProfile(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =========================================================================
// UPDATE PROFILE TESTS
// =========================================================================

func TestHandleUpdateProfile(t *testing.T) {
	h, userID := newUserHandler(t)

	rec := httptest.NewRecorder()
	h.HandleUpdateProfile(rec, authedRequest(http.MethodPut, "/api/user/profile", userID,
		`{"location":"Nashik"}`))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp updateProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "User profile updated successfully.", resp.Message)
	assert.Equal(t, "Nashik", resp.User.Location)
	assert.Equal(t, "Ana", resp.User.Fullname, "omitted field changed")
	assert.Equal(t, 2.5, resp.User.FarmSize, "omitted field changed")
}

func TestHandleUpdateProfile_ExplicitZeroClearsFields(t *testing.T) {
	h, userID := newUserHandler(t)

	// Explicit "" and 0 overwrite; this is not the same as omitting the keys
	rec := httptest.NewRecorder()
	h.HandleUpdateProfile(rec, authedRequest(http.MethodPut, "/api/user/profile", userID,
		`{"location":"","farmsize":0}`))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp updateProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "", resp.User.Location)
	assert.Equal(t, 0.0, resp.User.FarmSize)
}

func TestHandleUpdateProfile_BadJSON(t *testing.T) {
	h, userID := newUserHandler(t)

	rec := httptest.NewRecorder()
	h.HandleUpdateProfile(rec, authedRequest(http.MethodPut, "/api/user/profile", userID,
		`{not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =========================================================================
// CHANGE PASSWORD TESTS
// =========================================================================

func TestHandleChangePassword(t *testing.T) {
	h, userID := newUserHandler(t)

	rec := httptest.NewRecorder()
	h.HandleChangePassword(rec, authedRequest(http.MethodPut, "/api/user/password", userID,
		`{"oldPassword":"secret1","newPassword":"secret2"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password changed successfully.")
}

func TestHandleChangePassword_MissingFields(t *testing.T) {
	h, userID := newUserHandler(t)

	rec := httptest.NewRecorder()
	h.HandleChangePassword(rec, authedRequest(http.MethodPut, "/api/user/password", userID,
		`{"oldPassword":"secret1"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Both old and new passwords are required.")
}

func TestHandleChangePassword_SameAsOld(t *testing.T) {
	h, userID := newUserHandler(t)

	rec := httptest.NewRecorder()
	h.HandleChangePassword(rec, authedRequest(http.MethodPut, "/api/user/password", userID,
		`{"oldPassword":"secret1","newPassword":"secret1"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "different")
}
