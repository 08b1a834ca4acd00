// Package sessioncookie centralizes the session cookie: one name, one set of
// attributes, and matching write/clear helpers.
package sessioncookie

import (
	"net/http"
	"strings"
	"time"
)

// Name is the canonical session cookie name.
const Name = "session"

// Manager writes and clears the session cookie. Secure is on in production.
type Manager struct {
	Secure bool
	now    func() time.Time
}

// New returns a Manager. Pass secure=true when serving over HTTPS.
func New(secure bool) *Manager {
	return &Manager{Secure: secure, now: time.Now}
}

// Read returns the trimmed session cookie value when present.
func Read(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(Name)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// Write sets the session cookie so that it expires together with the token.
func (m *Manager) Write(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    token,
		Path:     "/",
		MaxAge:   m.maxAgeUntil(expiresAt),
		Expires:  expiresAt.UTC(),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) maxAgeUntil(exp time.Time) int {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	sec := int(exp.Sub(now()).Round(time.Second).Seconds())
	if sec <= 0 {
		// MaxAge 0 would mean "no Max-Age attribute"; expire it instead.
		return -1
	}
	return sec
}
