package classifier

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lists holds the reference sets used by Classify. A Lists value is built
// once at startup and only read afterwards, so it is safe to share
// between goroutines.
type Lists struct {
	free         map[string]struct{}
	disposable   map[string]struct{}
	rolePrefixes []string
}

// NewLists builds Lists from raw entries. Entries are trimmed and
// lower-cased; blanks and duplicates are dropped.
func NewLists(free, disposable, rolePrefixes []string) *Lists {
	return &Lists{
		free:         toSet(free),
		disposable:   toSet(disposable),
		rolePrefixes: normalize(rolePrefixes),
	}
}

// DefaultLists returns the built-in reference lists.
func DefaultLists() *Lists {
	return NewLists(defaultFreeProviders, defaultDisposableProviders, defaultRolePrefixes)
}

// File is the on-disk layout of a lists override file. Sections that are
// absent keep their built-in defaults; an explicitly empty section
// disables that check.
type File struct {
	FreeProviders       *[]string `yaml:"free_providers"`
	DisposableProviders *[]string `yaml:"disposable_providers"`
	RolePrefixes        *[]string `yaml:"role_prefixes"`
	Blacklist           *[]string `yaml:"blacklist"`
}

// Load returns the lists and blacklist to use. An empty path yields the
// defaults.
func Load(path string) (*Lists, *Blacklist, error) {
	if path == "" {
		return DefaultLists(), DefaultBlacklist(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read lists file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, nil, fmt.Errorf("failed to parse lists file %s: %w", path, err)
	}

	lists := NewLists(
		orDefault(f.FreeProviders, defaultFreeProviders),
		orDefault(f.DisposableProviders, defaultDisposableProviders),
		orDefault(f.RolePrefixes, defaultRolePrefixes),
	)
	blacklist := NewBlacklist(orDefault(f.Blacklist, defaultBlacklist))

	return lists, blacklist, nil
}

// Export returns the effective lists in File form for dumping.
func Export(l *Lists, b *Blacklist) File {
	free := setKeys(l.free)
	disposable := setKeys(l.disposable)
	roles := append([]string(nil), l.rolePrefixes...)
	patterns := b.Patterns()
	return File{
		FreeProviders:       &free,
		DisposableProviders: &disposable,
		RolePrefixes:        &roles,
		Blacklist:           &patterns,
	}
}

func orDefault(v *[]string, def []string) []string {
	if v == nil {
		return def
	}
	return *v
}

func normalize(entries []string) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

func toSet(entries []string) map[string]struct{} {
	norm := normalize(entries)
	set := make(map[string]struct{}, len(norm))
	for _, e := range norm {
		set[e] = struct{}{}
	}
	return set
}

func setKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
