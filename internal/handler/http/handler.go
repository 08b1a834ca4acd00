package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
)

// maxBodyBytes caps JSON and form request bodies.
const maxBodyBytes = 1 << 20

// SessionGate resolves session cookies and checks login credentials.
type SessionGate interface {
	ResolveUser(ctx context.Context, token string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	IssueSession(user *domain.User) (*domain.Session, error)
}

// Accounts is the signup and profile service.
type Accounts interface {
	Signup(ctx context.Context, input service.SignupInput) (*domain.User, error)
	Profile(ctx context.Context, userID int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID int64, input service.ProfileInput) (*domain.User, error)
}

// Addresses is the address book service.
type Addresses interface {
	List(ctx context.Context, userID int64) ([]domain.Address, error)
	Add(ctx context.Context, userID int64, fields domain.AddressFields, isDefault bool) (*domain.Address, error)
	Update(ctx context.Context, userID, addressID int64, fields domain.AddressFields, isDefault bool) (*domain.Address, error)
	Delete(ctx context.Context, userID, addressID int64) error
	SetDefault(ctx context.Context, userID, addressID int64) (*domain.Address, error)
}

// parseForm reads a form-encoded body. On failure it writes a 400 and
// returns false.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: "invalid form body",
			Code:  "INVALID_INPUT",
		})
		return false
	}
	return true
}

// formBool reports whether a form flag is the literal "true".
func formBool(r *http.Request, key string) bool {
	return strings.TrimSpace(r.PostFormValue(key)) == "true"
}

func addressFieldsFromForm(r *http.Request) domain.AddressFields {
	return domain.AddressFields{
		AddressLine1: r.PostFormValue("addressLine1"),
		AddressLine2: r.PostFormValue("addressLine2"),
		City:         r.PostFormValue("city"),
		PostalCode:   r.PostFormValue("postalCode"),
	}
}

// currentUserID returns the session user. Routes behind RequireUser always
// have one.
func currentUserID(r *http.Request) int64 {
	id, _ := middleware.UserIDFromContext(r.Context())
	return id
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
