package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
)

// DefaultMailinatorURL is the Mailinator domain reputation endpoint.
const DefaultMailinatorURL = "https://api.mailinator.com/api/v2/domain"

type mailinatorResponse struct {
	Disposable bool `json:"disposable"`
}

// Mailinator checks domains against the Mailinator domain API.
type Mailinator struct {
	apiURL string
	apiKey string
	client *rest.Client
}

// NewMailinator creates a Mailinator checker.
func NewMailinator(apiURL, apiKey string, httpClient *http.Client) *Mailinator {
	if apiURL == "" {
		apiURL = DefaultMailinatorURL
	}
	return &Mailinator{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &rest.Client{HTTPClient: httpClient},
	}
}

func (m *Mailinator) Name() string { return ProviderMailinator }

// IsDisposable returns the service's verdict for domain.
func (m *Mailinator) IsDisposable(ctx context.Context, domain string) (bool, error) {
	request := rest.Request{
		Method:  rest.Get,
		BaseURL: m.apiURL,
		Headers: map[string]string{"Accept": "application/json"},
		QueryParams: map[string]string{
			"domain": domain,
			"key":    m.apiKey,
		},
	}

	response, err := m.client.SendWithContext(ctx, request)
	if err != nil {
		return false, &Error{Provider: ProviderMailinator, Err: err}
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return false, &Error{Provider: ProviderMailinator, Err: fmt.Errorf("unexpected status %d", response.StatusCode)}
	}

	var payload mailinatorResponse
	if err := json.Unmarshal([]byte(response.Body), &payload); err != nil {
		return false, &Error{Provider: ProviderMailinator, Err: fmt.Errorf("unmarshal error: %w", err)}
	}

	return payload.Disposable, nil
}
