package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// AccountHandler serves the signed-in user's profile.
type AccountHandler struct {
	accounts Accounts
	logger   *slog.Logger
}

// NewAccountHandler creates a new account HTTP handler.
func NewAccountHandler(accounts Accounts, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: orDefault(logger)}
}

// Me handles GET /api/me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Profile(r.Context(), currentUserID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, user)
}

// UpdateProfile handles POST /actions/profile/update
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	input := service.ProfileInput{
		Name:  r.PostFormValue("name"),
		Phone: r.PostFormValue("phone"),
	}
	if _, err := h.accounts.UpdateProfile(r.Context(), currentUserID(r), input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, nil)
}
