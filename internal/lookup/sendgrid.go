package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
)

// DefaultSendGridHost is the SendGrid API host.
const DefaultSendGridHost = "https://api.sendgrid.com"

type sendGridValidationResponse struct {
	Result struct {
		Email   string `json:"email"`
		Verdict string `json:"verdict"`
		Checks  struct {
			Domain struct {
				IsSuspectedDisposableAddress bool `json:"is_suspected_disposable_address"`
			} `json:"domain"`
		} `json:"checks"`
	} `json:"result"`
}

// SendGrid checks domains through the SendGrid email validation API by
// validating the domain's postmaster address.
type SendGrid struct {
	apiHost string
	apiKey  string
	client  *rest.Client
}

// NewSendGrid creates a SendGrid checker.
func NewSendGrid(apiHost, apiKey string, httpClient *http.Client) *SendGrid {
	if apiHost == "" {
		apiHost = DefaultSendGridHost
	}
	return &SendGrid{
		apiHost: apiHost,
		apiKey:  apiKey,
		client:  &rest.Client{HTTPClient: httpClient},
	}
}

func (s *SendGrid) Name() string { return ProviderSendGrid }

// IsDisposable returns whether SendGrid suspects domain to be disposable.
func (s *SendGrid) IsDisposable(ctx context.Context, domain string) (bool, error) {
	body, err := json.Marshal(map[string]string{
		"email":  "postmaster@" + domain,
		"source": "emailvalidate",
	})
	if err != nil {
		return false, &Error{Provider: ProviderSendGrid, Err: err}
	}

	request := sendgrid.GetRequest(s.apiKey, "/v3/validations/email", s.apiHost)
	request.Method = rest.Post
	request.Body = body

	response, err := s.client.SendWithContext(ctx, request)
	if err != nil {
		return false, &Error{Provider: ProviderSendGrid, Err: fmt.Errorf("sendgrid api error: %w", err)}
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return false, &Error{Provider: ProviderSendGrid, Err: fmt.Errorf("unexpected status %d", response.StatusCode)}
	}

	var payload sendGridValidationResponse
	if err := json.Unmarshal([]byte(response.Body), &payload); err != nil {
		return false, &Error{Provider: ProviderSendGrid, Err: fmt.Errorf("sendgrid unmarshal error: %w", err)}
	}

	return payload.Result.Checks.Domain.IsSuspectedDisposableAddress, nil
}
