package verifier

import "errors"

// Rejection reasons recorded on Result.Err. Remote failures are carried as
// *lookup.Error or *simulate.Error instead.
var (
	ErrInvalidFormat      = errors.New("invalid email format")
	ErrBlacklisted        = errors.New("email contains blacklisted keywords")
	ErrDisposableDomain   = errors.New("domain is disposable")
	ErrMissingCredentials = errors.New("verification credentials missing")
)
