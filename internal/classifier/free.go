package classifier

import (
	"strings"
)

// Free email provider domains
var defaultFreeProviders = []string{
	"gmail.com",
	"yahoo.com",
	"hotmail.com",
	"outlook.com",
	"aol.com",
}

// Disposable (temporary inbox) domains
var defaultDisposableProviders = []string{
	"mailinator.com",
	"tempmail.com",
	"guerrillamail.com",
	"10minutemail.com",
}

// IsFreeProvider checks if domain is a free email provider
func (l *Lists) IsFreeProvider(domain string) bool {
	_, ok := l.free[strings.ToLower(domain)]
	return ok
}

// IsDisposable checks if domain is on the static disposable list
func (l *Lists) IsDisposable(domain string) bool {
	_, ok := l.disposable[strings.ToLower(domain)]
	return ok
}

// FreeProviderCount returns the number of free providers in the list
func (l *Lists) FreeProviderCount() int {
	return len(l.free)
}

// DisposableCount returns the number of disposable domains in the list
func (l *Lists) DisposableCount() int {
	return len(l.disposable)
}
