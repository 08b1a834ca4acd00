// Package ratelimit implements a Redis fixed-window request limiter.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/pkg/httputil"
)

// incrExpire atomically counts a hit and starts the window on the first one.
// It returns {count, remaining window in ms}.
var incrExpire = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// Result describes one counted hit.
type Result struct {
	Limit     int
	Count     int
	Remaining int
	ResetIn   time.Duration
}

// Allowed reports whether the hit fits in the window.
func (r Result) Allowed() bool {
	return r.Count <= r.Limit
}

// Limiter counts hits per key in fixed windows.
type Limiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
	logger *slog.Logger
}

// New returns a Limiter. A nil client, or a non-positive limit or window,
// yields a limiter that admits everything.
func New(rdb redis.Scripter, limit int, window time.Duration, prefix string, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{rdb: rdb, limit: limit, window: window, prefix: prefix, logger: logger}
}

func (l *Limiter) enabled() bool {
	return l != nil && l.rdb != nil && l.limit > 0 && l.window > 0
}

// Allow counts one hit for key.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	if !l.enabled() {
		return Result{Limit: l.limitOrZero()}, nil
	}

	raw, err := incrExpire.Run(ctx, l.rdb, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("count hit for %s: %w", key, err)
	}
	if len(raw) != 2 {
		return Result{}, fmt.Errorf("count hit for %s: unexpected reply %v", key, raw)
	}

	count := int(raw[0])
	res := Result{Limit: l.limit, Count: count, Remaining: max(l.limit-count, 0)}
	if raw[1] > 0 {
		res.ResetIn = time.Duration(raw[1]) * time.Millisecond
	}
	return res, nil
}

func (l *Limiter) limitOrZero() int {
	if l == nil {
		return 0
	}
	return l.limit
}

// KeyFunc derives the limiter key from a request.
type KeyFunc func(r *http.Request) string

// KeyByIPAndPath limits each client address per route path.
func KeyByIPAndPath(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || ip == "" {
		ip = r.RemoteAddr
	}
	if ip == "" {
		ip = "unknown"
	}
	return "path:" + r.URL.Path + ":ip:" + ip
}

// Middleware rejects requests over the limit with 429. Redis failures are
// logged and the request is let through.
func (l *Limiter) Middleware(keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !l.enabled() || keyFn == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), keyFn(r))
			if err != nil {
				l.logger.WarnContext(r.Context(), "rate limiter unavailable, allowing request",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			resetSec := int((res.ResetIn + time.Second - 1) / time.Second)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSec))

			if !res.Allowed() {
				if resetSec > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(resetSec))
				}
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Response{
					Error: "too many attempts, try again later",
					Code:  "RATE_LIMITED",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
