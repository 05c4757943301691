// Package lookup asks a remote reputation service whether a mail domain
// is disposable.
package lookup

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider names
const (
	ProviderMailinator = "mailinator"
	ProviderSendGrid   = "sendgrid"
)

// Checker reports whether a domain is disposable.
type Checker interface {
	Name() string
	IsDisposable(ctx context.Context, domain string) (bool, error)
}

// FailurePolicy decides what a failed lookup means for the request.
type FailurePolicy string

const (
	// PolicyOpen treats a failed lookup as "not disposable".
	PolicyOpen FailurePolicy = "open"
	// PolicyClosed fails the request when the lookup fails.
	PolicyClosed FailurePolicy = "closed"
)

// ParseFailurePolicy parses "open" or "closed", case-insensitively.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyOpen, PolicyClosed:
		return p, nil
	default:
		return "", fmt.Errorf("unknown disposable failure policy %q (want open or closed)", s)
	}
}

// Error is returned when the remote service could not be reached or
// answered with something unusable.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return e.Provider + " lookup failed: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config selects and configures a Checker.
type Config struct {
	Provider string

	MailinatorAPIKey string
	MailinatorAPIURL string

	SendGridAPIKey  string
	SendGridAPIHost string

	// HTTPClient is optional; a client with Timeout is built when nil.
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New returns the configured Checker, or nil when the selected provider
// has no credential. A nil Checker means the lookup step is skipped.
func New(cfg Config) (Checker, error) {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderMailinator:
		if cfg.MailinatorAPIKey == "" {
			return nil, nil
		}
		return NewMailinator(cfg.MailinatorAPIURL, cfg.MailinatorAPIKey, client), nil
	case ProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, nil
		}
		return NewSendGrid(cfg.SendGridAPIHost, cfg.SendGridAPIKey, client), nil
	default:
		return nil, fmt.Errorf("unknown disposable provider %q", cfg.Provider)
	}
}
