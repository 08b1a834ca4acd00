package middleware

import (
	"context"
	"net/http"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// WithUserID returns a context carrying the authenticated user's id. The
// session middleware calls it once a session cookie resolves to a user. The
// id is also recorded for log enrichment.
func WithUserID(ctx context.Context, id int64) context.Context {
	ctx = logger.WithUserID(ctx, id)
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the authenticated user's id from the request
// context. The boolean is false for anonymous requests.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

// RequireUser rejects anonymous requests with 401 before they reach next.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: "login required",
				Code:  "UNAUTHORIZED",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
