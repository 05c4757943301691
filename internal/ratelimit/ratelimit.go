// Package ratelimit implements a fixed-window request counter keyed by
// client address. A key's window opens at its first counted request and
// closes exactly one window later.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Backend names
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultMessage is the plain-text body of a rejected request.
const DefaultMessage = "Too many requests from this IP, please try again later."

// Decision is the limiter's answer for one request.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the current window for the key ends.
	ResetAt time.Time
}

// RetryAfter returns how long the caller should wait, rounded up to whole
// seconds and never below one.
func (d Decision) RetryAfter(now time.Time) int {
	wait := d.ResetAt.Sub(now)
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter counts requests per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// KeyFunc extracts a key from an HTTP request for rate limiting.
type KeyFunc func(r *http.Request) string

// IPKeyFunc returns the client IP from RemoteAddr. Run it behind
// chi's RealIP middleware when the service sits behind a proxy.
func IPKeyFunc(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Config configures the rate limit middleware.
type Config struct {
	// KeyFunc defaults to IPKeyFunc.
	KeyFunc KeyFunc

	// Message defaults to DefaultMessage.
	Message string

	// OnLimited is called after a request has been rejected.
	OnLimited func(r *http.Request, key string)

	// OnError is called when the limiter fails; the request is let through.
	OnError func(r *http.Request, err error)

	// Now defaults to time.Now.
	Now func() time.Time
}

// Middleware returns HTTP middleware that applies limiter to every request.
func Middleware(limiter Limiter, cfg Config) func(http.Handler) http.Handler {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPKeyFunc
	}
	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.KeyFunc(r)

			d, err := limiter.Allow(r.Context(), key)
			if err != nil {
				if cfg.OnError != nil {
					cfg.OnError(r, err)
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				if cfg.OnLimited != nil {
					cfg.OnLimited(r, key)
				}
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter(cfg.Now())))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(cfg.Message))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func validate(max int, window time.Duration) error {
	if max <= 0 {
		return fmt.Errorf("rate limit max must be positive, got %d", max)
	}
	if window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %s", window)
	}
	return nil
}

// ParseBackend normalizes a backend name.
func ParseBackend(s string) (string, error) {
	switch b := strings.ToLower(strings.TrimSpace(s)); b {
	case BackendMemory, BackendRedis:
		return b, nil
	default:
		return "", fmt.Errorf("unknown rate limit backend %q (want memory or redis)", s)
	}
}
