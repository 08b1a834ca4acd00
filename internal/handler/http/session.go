package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/sessioncookie"
)

// Session resolves the session cookie into the request's user id. A missing,
// invalid or expired cookie leaves the request anonymous; the latter two also
// clear the cookie. Only store failures end the request.
func Session(gate SessionGate, cookies *sessioncookie.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = orDefault(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := sessioncookie.Read(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := gate.ResolveUser(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, r, err, logger)
				return
			}
			if user == nil {
				cookies.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := middleware.WithUserID(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
