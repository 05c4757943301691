package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nephila016/emailvalidate/internal/lookup"
	"github.com/nephila016/emailvalidate/internal/simulate"
)

type fakeChecker struct {
	disposable bool
	err        error
	calls      int
	domains    []string
}

func (f *fakeChecker) Name() string { return "fake" }

func (f *fakeChecker) IsDisposable(ctx context.Context, domain string) (bool, error) {
	f.calls++
	f.domains = append(f.domains, domain)
	return f.disposable, f.err
}

type fakeSimulator struct {
	err   error
	calls int
}

func (f *fakeSimulator) Simulate(ctx context.Context, domain string) (*simulate.Simulation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &simulate.Simulation{
		TestEmailAddress: "test-0123456789abcdef0123456789abcdef@srv.mailosaur.net",
		Namespace:        "srv.mailosaur.net",
		Domain:           domain,
	}, nil
}

func marshal(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestValidate_FormatAndBlacklistMakeNoRemoteCalls(t *testing.T) {
	checker := &fakeChecker{}
	sim := &fakeSimulator{}
	p := New(Config{Lookup: checker, Simulator: sim})

	testCases := []struct {
		email   string
		outcome Outcome
		message string
		err     error
	}{
		{"plainaddress", OutcomeInvalidFormat, MessageInvalidFormat, ErrInvalidFormat},
		{"user@nodot", OutcomeInvalidFormat, MessageInvalidFormat, ErrInvalidFormat},
		{"user..x@example.com", OutcomeInvalidFormat, MessageInvalidFormat, ErrInvalidFormat},
		{"test@example.com", OutcomeBlacklisted, MessageBlacklisted, ErrBlacklisted},
		{"MyFakeAccount@company.io", OutcomeBlacklisted, MessageBlacklisted, ErrBlacklisted},
		{"noreply@company.io", OutcomeBlacklisted, MessageBlacklisted, ErrBlacklisted},
	}

	for _, tc := range testCases {
		t.Run(tc.email, func(t *testing.T) {
			res := p.Validate(context.Background(), tc.email)
			assert.Equal(t, tc.outcome, res.Outcome)
			assert.False(t, res.Response.Valid)
			assert.Equal(t, tc.message, res.Response.Message)
			assert.True(t, errors.Is(res.Err, tc.err))
			assert.Equal(t, http.StatusOK, res.StatusCode())
			assert.Equal(t, map[string]any{}, marshal(t, res.Response)["details"])
		})
	}

	assert.Zero(t, checker.calls)
	assert.Zero(t, sim.calls)
}

func TestValidate_Accepted(t *testing.T) {
	testCases := []struct {
		email      string
		free       bool
		disposable bool
		role       bool
		domain     string
		category   string
	}{
		{"jane@gmail.com", true, false, false, "gmail.com", "Free Email"},
		{"admin@acme.io", false, false, true, "acme.io", "Role-Based Email"},
		{"diptangshu@example.org", false, false, false, "example.org", "Custom Email"},
		{"Jane@MAILINATOR.com", false, true, false, "mailinator.com", "Disposable Email"},
	}

	for _, tc := range testCases {
		t.Run(tc.email, func(t *testing.T) {
			sim := &fakeSimulator{}
			p := New(Config{Simulator: sim})
			res := p.Validate(context.Background(), tc.email)

			require.Equal(t, OutcomeValid, res.Outcome)
			assert.True(t, res.Response.Valid)
			assert.Equal(t, MessageValid, res.Response.Message)
			assert.Equal(t, tc.category, res.Category())
			assert.Equal(t, 1, sim.calls)

			details := marshal(t, res.Response)["details"].(map[string]any)
			assert.Equal(t, tc.free, details["isFreeEmail"])
			assert.Equal(t, tc.disposable, details["isDisposableEmail"])
			assert.Equal(t, tc.role, details["isRoleBasedEmail"])
			assert.Equal(t, tc.domain, details["domain"])
			assert.Equal(t, true, details["simulated_validation"])
			assert.Regexp(t, `^test-[0-9a-f]{32}@srv\.mailosaur\.net$`, details["test_email_address"])
			assert.NotContains(t, details, "error")
		})
	}
}

func TestValidate_NoSimulatorConfigured(t *testing.T) {
	p := New(Config{})
	res := p.Validate(context.Background(), "diptangshu@example.org")

	require.Equal(t, OutcomeValid, res.Outcome)
	details := marshal(t, res.Response)["details"].(map[string]any)
	assert.Equal(t, false, details["simulated_validation"])
	assert.Contains(t, details, "test_email_address")
	assert.Nil(t, details["test_email_address"])
	assert.Equal(t, "", res.TestEmailAddress())
	assert.False(t, res.SimulatedValidation())
}

func TestValidate_RequireVerificationWithoutCredentials(t *testing.T) {
	checker := &fakeChecker{}
	p := New(Config{Lookup: checker, RequireVerification: true})

	res := p.Validate(context.Background(), "diptangshu@example.org")
	assert.Equal(t, OutcomeMisconfigured, res.Outcome)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode())
	assert.Equal(t, MessageMisconfigured, res.Response.Message)
	assert.True(t, errors.Is(res.Err, ErrMissingCredentials))
	assert.Zero(t, checker.calls)

	// format errors still win over configuration problems
	res = p.Validate(context.Background(), "nope")
	assert.Equal(t, OutcomeInvalidFormat, res.Outcome)
}

func TestValidate_DisposableLookup(t *testing.T) {
	checker := &fakeChecker{disposable: true}
	sim := &fakeSimulator{}
	p := New(Config{Lookup: checker, Simulator: sim})

	res := p.Validate(context.Background(), "jane@Throwaway.io")
	assert.Equal(t, OutcomeDisposableDomain, res.Outcome)
	assert.Equal(t, MessageDisposable, res.Response.Message)
	assert.False(t, res.Response.Valid)
	assert.Equal(t, []string{"throwaway.io"}, checker.domains)
	assert.Zero(t, sim.calls, "simulation must not run after a rejection")
}

func TestValidate_LookupFailurePolicy(t *testing.T) {
	lookupErr := &lookup.Error{Provider: "fake", Err: errors.New("connection refused")}

	t.Run("open", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		sim := &fakeSimulator{}
		p := New(Config{
			Lookup:       &fakeChecker{err: lookupErr},
			Simulator:    sim,
			Logger:       zap.New(core),
			RedactEmails: true,
		})

		res := p.Validate(WithClientAddr(context.Background(), "10.0.0.1"), "jane.doe@acme.io")
		assert.Equal(t, OutcomeValid, res.Outcome)
		assert.True(t, res.LookupDegraded)
		assert.Equal(t, 1, sim.calls)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Contains(t, entry.Message, "disposable lookup unavailable")
		assert.Equal(t, "ja***@acme.io", entry.ContextMap()["email"])
		assert.Equal(t, "10.0.0.1", entry.ContextMap()["ip"])
	})

	t.Run("closed", func(t *testing.T) {
		sim := &fakeSimulator{}
		p := New(Config{
			Lookup:        &fakeChecker{err: errors.New("timeout")},
			FailurePolicy: lookup.PolicyClosed,
			Simulator:     sim,
		})

		res := p.Validate(context.Background(), "jane.doe@acme.io")
		assert.Equal(t, OutcomeLookupFailed, res.Outcome)
		assert.Equal(t, MessageFailed, res.Response.Message)
		assert.Equal(t, "fake lookup failed: timeout", res.Response.Details.Error)
		assert.Zero(t, sim.calls)

		var lerr *lookup.Error
		assert.True(t, errors.As(res.Err, &lerr))
	})
}

func TestValidate_VerificationFailure(t *testing.T) {
	p := New(Config{Simulator: &fakeSimulator{err: &simulate.Error{Err: errors.New("Authentication failed")}}})

	res := p.Validate(context.Background(), "jane@gmail.com")
	assert.Equal(t, OutcomeVerificationFailed, res.Outcome)
	assert.False(t, res.Response.Valid)

	body := marshal(t, res.Response)
	assert.Equal(t, MessageFailed, body["message"])
	assert.Equal(t, map[string]any{"error": "Authentication failed"}, body["details"])
}

func TestValidate_DomainRoundTrip(t *testing.T) {
	p := New(Config{})
	for _, email := range []string{"A@B.CO", "first.last@Sub.Domain.Org", "x+y@gmail.com"} {
		res := p.Validate(context.Background(), email)
		require.Equal(t, OutcomeValid, res.Outcome, email)
		at := len(email) - len(res.Classification.Domain)
		assert.Equal(t, res.Classification.Domain, res.Response.Details.Domain)
		assert.Equal(t, strings.ToLower(email[at:]), res.Response.Details.Domain)
	}
}

func TestCheckDomain(t *testing.T) {
	p := New(Config{Lookup: &fakeChecker{disposable: true}})
	res := p.CheckDomain(context.Background(), " Mailinator.com ")
	assert.Equal(t, "mailinator.com", res.Domain)
	assert.True(t, res.IsDisposable)
	assert.True(t, res.LookupChecked)
	assert.True(t, res.LookupDisposable)
	assert.Equal(t, "fake", res.LookupProvider)

	p = New(Config{Lookup: &fakeChecker{err: errors.New("down")}})
	res = p.CheckDomain(context.Background(), "gmial.com")
	assert.False(t, res.LookupChecked)
	assert.Equal(t, "gmail.com", res.Suggestion)
	assert.Contains(t, res.Error, "down")
}
