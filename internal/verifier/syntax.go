package verifier

import (
	"regexp"
	"strings"
)

// local@domain.tld with a letters-only TLD of at least two characters
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[a-zA-Z]{2,}$`)

// Loose shape used by the HTTP layer to reject obvious garbage with a 400
// before the pipeline runs.
var basicRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateSyntax checks if the email has valid syntax. On success the
// local part and domain are returned lower-cased.
func ValidateSyntax(email string) (localPart, domain string, valid bool) {
	email = strings.TrimSpace(email)

	if !emailRegex.MatchString(email) {
		return "", "", false
	}

	// No consecutive dots anywhere
	if strings.Contains(email, "..") {
		return "", "", false
	}

	at := strings.IndexByte(email, '@')
	localPart = strings.ToLower(email[:at])
	domain = strings.ToLower(email[at+1:])

	// Domain must contain at least one dot
	if !strings.Contains(domain, ".") {
		return "", "", false
	}

	return localPart, domain, true
}

// IsBasicAddress reports whether s looks like x@y.z at all.
func IsBasicAddress(s string) bool {
	return basicRegex.MatchString(strings.TrimSpace(s))
}

// NormalizeEmail normalizes an email address
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.ToLower(email)
	return email
}

// Common misspellings of the large free providers
var typoMap = map[string]string{
	"gmial.com":   "gmail.com",
	"gmai.com":    "gmail.com",
	"gmaill.com":  "gmail.com",
	"gamil.com":   "gmail.com",
	"gnail.com":   "gmail.com",
	"yaho.com":    "yahoo.com",
	"yahooo.com":  "yahoo.com",
	"hotmal.com":  "hotmail.com",
	"hotmial.com": "hotmail.com",
	"outlok.com":  "outlook.com",
	"outllok.com": "outlook.com",
	"aol.co":      "aol.com",
}

// SuggestTypoFix suggests corrections for common domain typos
func SuggestTypoFix(domain string) string {
	return typoMap[strings.ToLower(domain)]
}
