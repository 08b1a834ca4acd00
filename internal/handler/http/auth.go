package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/sessioncookie"
	"github.com/utafrali/storefront/pkg/validator"
)

// AuthHandler handles login, signup and logout.
type AuthHandler struct {
	gate     SessionGate
	accounts Accounts
	cookies  *sessioncookie.Manager
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(gate SessionGate, accounts Accounts, cookies *sessioncookie.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{gate: gate, accounts: accounts, cookies: cookies, logger: orDefault(logger)}
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/auth/login. Surrounding whitespace is trimmed from
// the email before the exact-match lookup in Gate.Authenticate; the password
// is passed through untouched.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: "invalid request body",
			Code:  "INVALID_INPUT",
		})
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.gate.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	session, err := h.gate.IssueSession(user)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.Write(w, session.Token, session.ExpiresAt)
	h.logger.InfoContext(r.Context(), "user logged in", slog.Int64("user_id", user.ID))
	httputil.WriteSuccess(w, nil)
}

// Signup handles POST /actions/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	input := service.SignupInput{
		Email:           r.PostFormValue("email"),
		Name:            r.PostFormValue("name"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
		Phone:           r.PostFormValue("phone"),
		Address:         r.PostFormValue("address"),
	}

	if _, err := h.accounts.Signup(r.Context(), input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, nil)
}

// Logout handles POST /actions/auth/logout. Tokens are not revoked; the
// cookie is simply dropped.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	httputil.WriteSuccess(w, nil)
}
