package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig controls which browser origins may call the API. The session
// cookie only travels cross-origin when AllowCredentials is set and the
// origin is listed explicitly.
type CORSConfig struct {
	// AllowedOrigins lists exact origins. "*" admits any origin.
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	MaxAge           int
	AllowCredentials bool
	// Environment "development" admits any origin regardless of the list.
	Environment string
}

// DefaultCORSConfig is open to every origin for local development. The
// storefront only serves GET and POST.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", CorrelationHeader},
		ExposedHeaders: []string{CorrelationHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:         600,
		Environment:    "development",
	}
}

// originPolicy decides the Access-Control-Allow-Origin value for a request
// origin. An empty result means the header is omitted.
type originPolicy struct {
	any     bool
	allowed map[string]struct{}
}

func (p originPolicy) allow(origin string) (value string, vary bool) {
	switch {
	case p.any:
		// Browsers refuse "*" on credentialed requests, so a wildcard never
		// exposes cookie-authenticated responses.
		return "*", false
	case origin == "":
		return "", false
	}
	if _, ok := p.allowed[origin]; ok {
		return origin, true
	}
	return "", false
}

// CORS sets the CORS response headers and answers preflight OPTIONS requests
// with 204 without calling next.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	defaults := DefaultCORSConfig()
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = defaults.AllowedMethods
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = defaults.AllowedHeaders
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaults.MaxAge
	}

	policy := originPolicy{
		any:     cfg.Environment == "development",
		allowed: make(map[string]struct{}, len(cfg.AllowedOrigins)),
	}
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			policy.any = true
			continue
		}
		policy.allowed[o] = struct{}{}
	}

	static := map[string]string{
		"Access-Control-Allow-Methods": strings.Join(cfg.AllowedMethods, ", "),
		"Access-Control-Allow-Headers": strings.Join(cfg.AllowedHeaders, ", "),
		"Access-Control-Max-Age":       strconv.Itoa(cfg.MaxAge),
	}
	if len(cfg.ExposedHeaders) > 0 {
		static["Access-Control-Expose-Headers"] = strings.Join(cfg.ExposedHeaders, ", ")
	}
	if cfg.AllowCredentials {
		static["Access-Control-Allow-Credentials"] = "true"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if value, vary := policy.allow(r.Header.Get("Origin")); value != "" {
				h.Set("Access-Control-Allow-Origin", value)
				if vary {
					h.Add("Vary", "Origin")
				}
			}
			for k, v := range static {
				h.Set(k, v)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
