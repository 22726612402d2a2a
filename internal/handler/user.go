package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ratul/farmer-helper/internal/apperror"
	"github.com/ratul/farmer-helper/internal/auth"
	"github.com/ratul/farmer-helper/internal/service"
)

// UserHandler serves the bearer-protected profile endpoints. Every method
// reads the authenticated identity that RequireAuth placed in the request
// context — there is no user ID in the URL.
type UserHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(accounts *service.AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

// HandleGetProfile returns the caller's full profile, secret excluded (the
// model's hash field never serializes).
//
// HTTP: GET /api/user/profile
//
// 404 if the token is valid but the user record no longer exists.
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	user, err := h.accounts.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// updateProfileRequest uses pointer fields so that an omitted key, an
// explicit empty string, and an explicit zero are three different inputs:
// nil leaves the stored value alone, anything else overwrites it. A farmer
// can clear their location or set farm size to 0.
type updateProfileRequest struct {
	Fullname *string  `json:"fullname"`
	Email    *string  `json:"email"`
	Location *string  `json:"location"`
	FarmSize *float64 `json:"farmsize"`
}

type updatedProfile struct {
	ID       string  `json:"_id"`
	Fullname string  `json:"fullname"`
	Email    string  `json:"email"`
	Location string  `json:"location"`
	FarmSize float64 `json:"farmsize"`
}

type updateProfileResponse struct {
	Message string         `json:"message"`
	User    updatedProfile `json:"user"`
}

// HandleUpdateProfile overwrites the provided profile fields.
//
// HTTP: PUT /api/user/profile
// REQUEST BODY: {"fullname"?, "email"?, "location"?, "farmsize"?}
//
// Changing email re-runs the uniqueness check; a taken address is a 400
// conflict just like at registration.
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body"))
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
		Fullname: req.Fullname,
		Email:    req.Email,
		Location: req.Location,
		FarmSize: req.FarmSize,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updateProfileResponse{
		Message: "User profile updated successfully.",
		User: updatedProfile{
			ID:       user.ID,
			Fullname: user.Fullname,
			Email:    user.Email,
			Location: user.Location,
			FarmSize: user.FarmSize,
		},
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// HandleChangePassword verifies the old password and stores the new one.
//
// HTTP: PUT /api/user/password
//
// 401 when the old password is wrong, 400 when the new one doesn't differ.
// The response carries no token: outstanding tokens keep working until they
// expire.
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, apperror.ValidationFailed("",
			"Both old and new passwords are required."))
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed successfully.",
	})
}
