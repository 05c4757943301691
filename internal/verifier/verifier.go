package verifier

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nephila016/emailvalidate/internal/classifier"
	"github.com/nephila016/emailvalidate/internal/logging"
	"github.com/nephila016/emailvalidate/internal/lookup"
	"github.com/nephila016/emailvalidate/internal/simulate"
)

// DefaultTimeout bounds each outbound call
const DefaultTimeout = 8 * time.Second

// Config holds pipeline configuration
type Config struct {
	Lists     *classifier.Lists
	Blacklist *classifier.Blacklist

	// Lookup is skipped when nil
	Lookup        lookup.Checker
	FailurePolicy lookup.FailurePolicy

	// Simulator is skipped when nil, unless RequireVerification is set
	Simulator           simulate.Simulator
	RequireVerification bool

	Timeout      time.Duration
	Logger       *zap.Logger
	RedactEmails bool
}

// Pipeline runs format, blacklist, classification, disposable lookup and
// verification simulation in that order. It holds no per-request state
// and is safe for concurrent use.
type Pipeline struct {
	config Config
	logger *zap.Logger
}

// New creates a new Pipeline
func New(config Config) *Pipeline {
	if config.Lists == nil {
		config.Lists = classifier.DefaultLists()
	}
	if config.Blacklist == nil {
		config.Blacklist = classifier.DefaultBlacklist()
	}
	if config.FailurePolicy == "" {
		config.FailurePolicy = lookup.PolicyOpen
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{config: config, logger: logger}
}

type clientAddrKey struct{}

// WithClientAddr attaches the caller's address for audit logging
func WithClientAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientAddrKey{}, addr)
}

// ClientAddr returns the address set by WithClientAddr, or ""
func ClientAddr(ctx context.Context) string {
	addr, _ := ctx.Value(clientAddrKey{}).(string)
	return addr
}

// Validate performs complete validation of one address. It never returns
// nil and never panics on remote failures; every failure is mapped to an
// Outcome.
func (p *Pipeline) Validate(ctx context.Context, email string) *Result {
	start := time.Now()
	result := &Result{
		Email:     strings.TrimSpace(email),
		CheckedAt: start.UTC(),
	}
	defer func() {
		result.LatencyMs = time.Since(start).Milliseconds()
	}()

	log := p.logger.With(
		zap.String("email", p.redact(result.Email)),
		zap.String("ip", ClientAddr(ctx)),
	)

	// Format
	localPart, domain, ok := ValidateSyntax(email)
	if !ok {
		log.Debug("format check failed")
		return result.reject(OutcomeInvalidFormat, MessageInvalidFormat, ErrInvalidFormat)
	}
	if suggestion := SuggestTypoFix(domain); suggestion != "" {
		log.Debug("possible domain typo", zap.String("domain", domain), zap.String("suggestion", suggestion))
	}

	// Blacklist
	if pattern, hit := p.config.Blacklist.Match(localPart); hit {
		log.Info("blacklisted keyword rejected", zap.String("pattern", pattern))
		return result.reject(OutcomeBlacklisted, MessageBlacklisted, ErrBlacklisted)
	}

	if p.config.RequireVerification && p.config.Simulator == nil {
		log.Error("Mailosaur API key or server ID missing")
		return result.reject(OutcomeMisconfigured, MessageMisconfigured, ErrMissingCredentials)
	}

	// Classify
	classification := classifier.Classify(p.config.Lists, domain, localPart)
	result.Classification = &classification

	// Disposable lookup
	if checker := p.config.Lookup; checker != nil {
		disposable, err := p.lookupDomain(ctx, checker, domain)
		switch {
		case err != nil && p.config.FailurePolicy == lookup.PolicyClosed:
			log.Error("disposable lookup failed", zap.String("provider", checker.Name()), zap.Error(err))
			return result.fail(OutcomeLookupFailed, err)
		case err != nil:
			log.Error("disposable lookup unavailable, treating domain as not disposable",
				zap.String("provider", checker.Name()), zap.Error(err))
			result.LookupDegraded = true
		case disposable:
			log.Info("disposable domain rejected", zap.String("domain", domain), zap.String("provider", checker.Name()))
			return result.reject(OutcomeDisposableDomain, MessageDisposable, ErrDisposableDomain)
		}
	}

	accepted := &Accepted{Result: classification}

	// Verification simulation
	if sim := p.config.Simulator; sim != nil {
		simulation, err := p.simulate(ctx, sim, domain)
		if err != nil {
			log.Error("verification simulation failed", zap.Error(err))
			return result.fail(OutcomeVerificationFailed, err)
		}
		address := simulation.TestEmailAddress
		accepted.TestEmailAddress = &address
		accepted.SimulatedValidation = true
	}

	log.Debug("email accepted", zap.String("category", classification.Category()))
	return result.accept(accepted)
}

func (p *Pipeline) lookupDomain(ctx context.Context, checker lookup.Checker, domain string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	disposable, err := checker.IsDisposable(ctx, domain)
	if err != nil {
		var lerr *lookup.Error
		if !errors.As(err, &lerr) {
			err = &lookup.Error{Provider: checker.Name(), Err: err}
		}
		return false, err
	}
	return disposable, nil
}

func (p *Pipeline) simulate(ctx context.Context, sim simulate.Simulator, domain string) (*simulate.Simulation, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	simulation, err := sim.Simulate(ctx, domain)
	if err != nil {
		var serr *simulate.Error
		if !errors.As(err, &serr) {
			err = &simulate.Error{Err: err}
		}
		return nil, err
	}
	return simulation, nil
}

func (p *Pipeline) redact(email string) string {
	if !p.config.RedactEmails {
		return email
	}
	return logging.RedactEmail(email)
}

// CheckDomain checks domain-level information: the static lists plus the
// remote disposable lookup when one is configured.
func (p *Pipeline) CheckDomain(ctx context.Context, domain string) *DomainResult {
	domain = strings.ToLower(strings.TrimSpace(domain))
	classification := classifier.Classify(p.config.Lists, domain, "")

	result := &DomainResult{
		Domain:         domain,
		IsFreeProvider: classification.IsFreeEmail,
		IsDisposable:   classification.IsDisposableEmail,
		Suggestion:     SuggestTypoFix(domain),
	}

	checker := p.config.Lookup
	if checker == nil {
		return result
	}

	result.LookupProvider = checker.Name()
	disposable, err := p.lookupDomain(ctx, checker, domain)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.LookupChecked = true
	result.LookupDisposable = disposable
	return result
}

// DomainResult contains domain-level check results
type DomainResult struct {
	Domain           string `json:"domain"`
	IsFreeProvider   bool   `json:"is_free_provider"`
	IsDisposable     bool   `json:"is_disposable"`
	Suggestion       string `json:"suggestion,omitempty"`
	LookupProvider   string `json:"lookup_provider,omitempty"`
	LookupChecked    bool   `json:"lookup_checked"`
	LookupDisposable bool   `json:"lookup_disposable"`
	Error            string `json:"error,omitempty"`
}
