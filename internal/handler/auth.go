package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ratul/farmer-helper/internal/apperror"
	"github.com/ratul/farmer-helper/internal/service"
)

// validate checks the `validate` struct tags on request DTOs. A single
// instance is the library's intended usage — it caches struct metadata.
var validate = validator.New()

// AuthHandler serves the unauthenticated account endpoints: registration and
// login. Both delegate to AccountService and shape its AuthResult into the
// wire format the frontend expects.
type AuthHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(accounts *service.AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

// registerRequest is the registration payload. Location and farm size are
// optional and default to ""/0.
type registerRequest struct {
	Fullname string  `json:"fullname" validate:"required"`
	Email    string  `json:"email"    validate:"required"`
	Password string  `json:"password" validate:"required"`
	Location string  `json:"location"`
	FarmSize float64 `json:"farmsize"`
}

// registerResponse echoes the created profile (never the secret) plus the
// first issued token.
type registerResponse struct {
	Message  string  `json:"message"`
	ID       string  `json:"_id"`
	Fullname string  `json:"fullname"`
	Email    string  `json:"email"`
	Location string  `json:"location"`
	FarmSize float64 `json:"farmsize"`
	Token    string  `json:"token"`
}

// HandleRegister creates a new account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"fullname":..., "email":..., "password":..., "location"?, "farmsize"?}
//
// 201 on success; 400 when required fields are missing or the email is taken.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, apperror.ValidationFailed("",
			"Fullname, email, and password are required."))
		return
	}

	result, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Fullname: req.Fullname,
		Email:    req.Email,
		Password: req.Password,
		Location: req.Location,
		FarmSize: req.FarmSize,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message:  "User registered successfully.",
		ID:       result.User.ID,
		Fullname: result.User.Fullname,
		Email:    result.User.Email,
		Location: result.User.Location,
		FarmSize: result.User.FarmSize,
		Token:    result.Token,
	})
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// loginResponse carries the session identity. Name mirrors the stored
// fullname; ProfilePicture is reserved for a future avatar feature and is
// always empty today.
type loginResponse struct {
	Message        string `json:"message"`
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture"`
	Token          string `json:"token"`
}

// HandleLogin authenticates an existing account and issues a fresh token.
//
// HTTP: POST /api/auth/login
//
// An unknown email and a wrong password both return 400 with the identical
// body — the response must not reveal whether an account exists.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, apperror.ValidationFailed("",
			"Email and password are required."))
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "User logged in successfully.",
		ID:      result.User.ID,
		Name:    result.User.Fullname,
		Email:   result.User.Email,
		Token:   result.Token,
	})
}
