// Package simulate performs simulated verification against a Mailosaur
// test-mailbox server. No mail is ever sent.
package simulate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/rest"
)

const (
	DefaultAPIURL = "https://mailosaur.com"
	DefaultDomain = "mailosaur.net"
)

// errEmptyServer is reported when Mailosaur answers without a server record
var errEmptyServer = errors.New("Invalid domain according to Mailosaur.")

// Simulation is the result of a successful connectivity check.
type Simulation struct {
	TestEmailAddress string
	Namespace        string
	ServerName       string
	Domain           string
}

// Simulator runs the verification simulation for a domain.
type Simulator interface {
	Simulate(ctx context.Context, domain string) (*Simulation, error)
}

// Error wraps a failed simulation. Its message is the upstream message
// so it can be shown to the caller as is.
type Error struct {
	Err error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Config configures the Mailosaur simulator.
type Config struct {
	APIKey   string
	ServerID string
	APIURL   string
	Domain   string

	HTTPClient *http.Client
	Timeout    time.Duration
}

// Configured reports whether both the key and the server id are set.
func (c Config) Configured() bool {
	return c.APIKey != "" && c.ServerID != ""
}

// New returns a Mailosaur simulator, or nil when it is unconfigured.
func New(cfg Config) Simulator {
	if !cfg.Configured() {
		return nil
	}
	return NewMailosaur(cfg)
}

type mailosaurServer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type mailosaurError struct {
	Message   string `json:"message"`
	ErrorType string `json:"type"`
}

// Mailosaur checks that a Mailosaur server is reachable with the
// configured credentials.
type Mailosaur struct {
	cfg    Config
	client *rest.Client
	token  func() string
}

// NewMailosaur creates a Mailosaur simulator.
func NewMailosaur(cfg Config) *Mailosaur {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Mailosaur{
		cfg:    cfg,
		client: &rest.Client{HTTPClient: httpClient},
		token:  NewToken,
	}
}

// NewToken returns a 32 character hex token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Simulate fetches the configured server and mints a test address in its
// namespace.
func (m *Mailosaur) Simulate(ctx context.Context, domain string) (*Simulation, error) {
	auth := base64.StdEncoding.EncodeToString([]byte(m.cfg.APIKey + ":"))
	request := rest.Request{
		Method:  rest.Get,
		BaseURL: strings.TrimRight(m.cfg.APIURL, "/") + "/api/servers/" + url.PathEscape(m.cfg.ServerID),
		Headers: map[string]string{
			"Authorization": "Basic " + auth,
			"Accept":        "application/json",
		},
	}

	response, err := m.client.SendWithContext(ctx, request)
	if err != nil {
		return nil, &Error{Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		var apiErr mailosaurError
		if json.Unmarshal([]byte(response.Body), &apiErr) == nil && apiErr.Message != "" {
			return nil, &Error{Err: errors.New(apiErr.Message)}
		}
		return nil, &Error{Err: fmt.Errorf("mailosaur: unexpected status %d", response.StatusCode)}
	}

	var server *mailosaurServer
	if err := json.Unmarshal([]byte(response.Body), &server); err != nil || server == nil {
		return nil, &Error{Err: errEmptyServer}
	}

	namespace := m.cfg.ServerID + "." + m.cfg.Domain
	return &Simulation{
		TestEmailAddress: "test-" + m.token() + "@" + namespace,
		Namespace:        namespace,
		ServerName:       server.Name,
		Domain:           domain,
	}, nil
}
