package classifier

import "strings"

// Keywords that mark obviously synthetic addresses
var defaultBlacklist = []string{
	"invalid",
	"test",
	"fake",
	"demo",
	"noreply",
	"example",
	"temp",
}

// Blacklist rejects local parts that contain any of its patterns.
type Blacklist struct {
	patterns []string
}

// NewBlacklist builds a Blacklist from raw patterns.
func NewBlacklist(patterns []string) *Blacklist {
	return &Blacklist{patterns: normalize(patterns)}
}

// DefaultBlacklist returns the built-in blacklist.
func DefaultBlacklist() *Blacklist {
	return NewBlacklist(defaultBlacklist)
}

// Match reports the first pattern found anywhere in localPart,
// ignoring case.
func (b *Blacklist) Match(localPart string) (string, bool) {
	localPart = strings.ToLower(localPart)
	for _, p := range b.patterns {
		if strings.Contains(localPart, p) {
			return p, true
		}
	}
	return "", false
}

// Patterns returns a copy of the configured patterns.
func (b *Blacklist) Patterns() []string {
	return append([]string(nil), b.patterns...)
}
