package verifier

import (
	"net/http"
	"time"

	"github.com/nephila016/emailvalidate/internal/classifier"
)

// Outcome is the terminal state of one pipeline run
type Outcome string

const (
	OutcomeValid              Outcome = "VALID"
	OutcomeInvalidFormat      Outcome = "INVALID_FORMAT"
	OutcomeBlacklisted        Outcome = "BLACKLISTED"
	OutcomeDisposableDomain   Outcome = "DISPOSABLE_DOMAIN"
	OutcomeLookupFailed       Outcome = "LOOKUP_FAILED"
	OutcomeVerificationFailed Outcome = "VERIFICATION_FAILED"
	OutcomeMisconfigured      Outcome = "MISCONFIGURED"
)

// Response messages
const (
	MessageValid         = "Email format is valid."
	MessageInvalidFormat = "Invalid email format."
	MessageBlacklisted   = "Email contains blacklisted keywords."
	MessageDisposable    = "Domain is associated with a disposable or fake email service."
	MessageFailed        = "Email validation failed."
	MessageMisconfigured = "Server configuration error: API keys missing."
)

// Response is the body returned to callers of the validation endpoint.
type Response struct {
	Valid   bool    `json:"valid"`
	Message string  `json:"message"`
	Details Details `json:"details"`
}

// Details renders as the accepted fields, as {"error": ...}, or as {}.
type Details struct {
	*Accepted
	Error string `json:"error,omitempty"`
}

// Accepted holds the details of an address that passed every check.
type Accepted struct {
	classifier.Result
	TestEmailAddress    *string `json:"test_email_address"`
	SimulatedValidation bool    `json:"simulated_validation"`
}

// Result contains the complete outcome of one pipeline run
type Result struct {
	Email          string             `json:"email"`
	Outcome        Outcome            `json:"outcome"`
	Response       Response           `json:"response"`
	Classification *classifier.Result `json:"classification,omitempty"`
	LookupDegraded bool               `json:"lookup_degraded"`
	LatencyMs      int64              `json:"latency_ms"`
	CheckedAt      time.Time          `json:"checked_at"`

	// Err is the reason for any outcome other than VALID
	Err error `json:"-"`
}

// Valid reports whether the address was accepted
func (r *Result) Valid() bool {
	return r.Outcome == OutcomeValid
}

// StatusCode returns the HTTP status for the result
func (r *Result) StatusCode() int {
	if r.Outcome == OutcomeMisconfigured {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

// Category returns the display category, or "" when the address was
// rejected before classification.
func (r *Result) Category() string {
	if r.Classification == nil {
		return ""
	}
	return r.Classification.Category()
}

// TestEmailAddress returns the simulated test address, if any
func (r *Result) TestEmailAddress() string {
	if a := r.Response.Details.Accepted; a != nil && a.TestEmailAddress != nil {
		return *a.TestEmailAddress
	}
	return ""
}

// SimulatedValidation reports whether a verification simulation ran
func (r *Result) SimulatedValidation() bool {
	a := r.Response.Details.Accepted
	return a != nil && a.SimulatedValidation
}

// ErrorString returns the error text or ""
func (r *Result) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Summary returns a human-readable summary
func (r *Result) Summary() string {
	switch r.Outcome {
	case OutcomeValid:
		if r.LookupDegraded {
			return "Accepted (disposable lookup unavailable)"
		}
		return "Accepted as " + r.Category()
	case OutcomeLookupFailed, OutcomeVerificationFailed:
		return r.Response.Message + " " + r.ErrorString()
	default:
		return r.Response.Message
	}
}

func (r *Result) reject(outcome Outcome, message string, err error) *Result {
	r.Outcome = outcome
	r.Err = err
	r.Response = Response{Valid: false, Message: message}
	return r
}

func (r *Result) fail(outcome Outcome, err error) *Result {
	r.Outcome = outcome
	r.Err = err
	r.Response = Response{
		Valid:   false,
		Message: MessageFailed,
		Details: Details{Error: err.Error()},
	}
	return r
}

func (r *Result) accept(details *Accepted) *Result {
	r.Outcome = OutcomeValid
	r.Err = nil
	r.Response = Response{
		Valid:   true,
		Message: MessageValid,
		Details: Details{Accepted: details},
	}
	return r
}
