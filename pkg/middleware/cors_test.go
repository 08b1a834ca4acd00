package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(cfg CORSConfig, method, origin string) (*httptest.ResponseRecorder, bool) {
	called := false
	h := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/api/addresses", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, called
}

func TestCORS_AllowOrigin(t *testing.T) {
	shop := []string{"https://shop.example", "https://admin.shop.example"}

	tests := []struct {
		name       string
		cfg        CORSConfig
		origin     string
		wantOrigin string
		wantVary   bool
	}{
		{
			name:       "development admits anyone",
			cfg:        CORSConfig{AllowedOrigins: shop, Environment: "development"},
			origin:     "https://elsewhere.example",
			wantOrigin: "*",
		},
		{
			name:       "explicit wildcard in production",
			cfg:        CORSConfig{AllowedOrigins: []string{"*"}, Environment: "production"},
			origin:     "https://elsewhere.example",
			wantOrigin: "*",
		},
		{
			name:       "wildcard without origin header",
			cfg:        CORSConfig{AllowedOrigins: []string{"*"}},
			wantOrigin: "*",
		},
		{
			name:       "wildcard with credentials never echoes origin",
			cfg:        CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true, Environment: "production"},
			origin:     "https://evil.example",
			wantOrigin: "*",
		},
		{
			name:       "development with credentials never echoes origin",
			cfg:        CORSConfig{AllowedOrigins: shop, AllowCredentials: true, Environment: "development"},
			origin:     "https://evil.example",
			wantOrigin: "*",
		},
		{
			name:       "listed origin with credentials",
			cfg:        CORSConfig{AllowedOrigins: shop, AllowCredentials: true, Environment: "production"},
			origin:     "https://shop.example",
			wantOrigin: "https://shop.example",
			wantVary:   true,
		},
		{
			name:       "listed origin",
			cfg:        CORSConfig{AllowedOrigins: shop, Environment: "production"},
			origin:     "https://admin.shop.example",
			wantOrigin: "https://admin.shop.example",
			wantVary:   true,
		},
		{
			name:       "list entries are trimmed",
			cfg:        CORSConfig{AllowedOrigins: []string{" https://shop.example "}, Environment: "production"},
			origin:     "https://shop.example",
			wantOrigin: "https://shop.example",
			wantVary:   true,
		},
		{
			name:   "unlisted origin",
			cfg:    CORSConfig{AllowedOrigins: shop, Environment: "production"},
			origin: "https://evil.example",
		},
		{
			name: "no origin header in production",
			cfg:  CORSConfig{AllowedOrigins: shop, Environment: "production"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, called := corsRequest(tt.cfg, http.MethodGet, tt.origin)

			assert.True(t, called)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantVary {
				assert.Equal(t, "Origin", rec.Header().Get("Vary"))
			} else {
				assert.Empty(t, rec.Header().Get("Vary"))
			}
		})
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	rec, called := corsRequest(DefaultCORSConfig(), http.MethodOptions, "https://shop.example")

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Accept, Content-Type, X-Correlation-ID", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_CustomHeaders(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins:   []string{"https://shop.example"},
		AllowedMethods:   []string{"POST"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Remaining"},
		MaxAge:           60,
		AllowCredentials: true,
		Environment:      "production",
	}
	rec, _ := corsRequest(cfg, http.MethodPost, "https://shop.example")

	assert.Equal(t, "POST", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "X-RateLimit-Remaining", rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "60", rec.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_NoCredentialsHeaderByDefault(t *testing.T) {
	rec, _ := corsRequest(CORSConfig{AllowedOrigins: []string{"*"}}, http.MethodGet, "https://shop.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Empty(t, rec.Header().Get("Access-Control-Expose-Headers"))
}
