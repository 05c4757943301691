package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	lists := DefaultLists()

	testCases := []struct {
		name       string
		domain     string
		localPart  string
		free       bool
		disposable bool
		role       bool
		category   string
	}{
		{"free provider", "gmail.com", "jane", true, false, false, CategoryFree},
		{"disposable provider", "mailinator.com", "jane", false, true, false, CategoryDisposable},
		{"role account", "acme.io", "admin", false, false, true, CategoryRoleBased},
		{"role prefix without separator", "acme.io", "admin2", false, false, true, CategoryRoleBased},
		{"role prefix longer word", "acme.io", "administrator", false, false, true, CategoryRoleBased},
		{"custom", "example.org", "diptangshu", false, false, false, CategoryCustom},
		{"mixed case input", "GMail.COM", "Support", true, false, true, CategoryFree},
		{"role prefix not at start", "acme.io", "myadmin", false, false, false, CategoryCustom},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := Classify(lists, tc.domain, tc.localPart)
			assert.Equal(t, tc.free, res.IsFreeEmail)
			assert.Equal(t, tc.disposable, res.IsDisposableEmail)
			assert.Equal(t, tc.role, res.IsRoleBasedEmail)
			assert.Equal(t, tc.category, res.Category())
		})
	}
}

func TestClassify_DomainIsLowerCased(t *testing.T) {
	res := Classify(DefaultLists(), "Example.ORG", "x")
	assert.Equal(t, "example.org", res.Domain)
}

func TestClassify_Deterministic(t *testing.T) {
	lists := DefaultLists()
	first := Classify(lists, "outlook.com", "sales-team")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Classify(lists, "outlook.com", "sales-team"))
	}
}

func TestClassify_OverlappingLists(t *testing.T) {
	lists := NewLists([]string{"both.com"}, []string{"both.com"}, nil)
	res := Classify(lists, "both.com", "someone")
	assert.True(t, res.IsFreeEmail)
	assert.True(t, res.IsDisposableEmail)
	assert.False(t, res.IsRoleBasedEmail)
}

func TestBlacklist_Match(t *testing.T) {
	b := DefaultBlacklist()

	testCases := []struct {
		localPart string
		pattern   string
		match     bool
	}{
		{"test", "test", true},
		{"mytestuser", "test", true},
		{"FAKE.person", "fake", true},
		{"no-reply", "", false},
		{"noreply", "noreply", true},
		{"temporary", "temp", true},
		{"diptangshu", "", false},
		{"jane.doe", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.localPart, func(t *testing.T) {
			pattern, ok := b.Match(tc.localPart)
			assert.Equal(t, tc.match, ok)
			assert.Equal(t, tc.pattern, pattern)
		})
	}
}

func TestNewLists_NormalizesEntries(t *testing.T) {
	lists := NewLists([]string{" Gmail.com ", "gmail.com", ""}, nil, []string{"Admin", "admin"})
	assert.Equal(t, 1, lists.FreeProviderCount())
	assert.Equal(t, 0, lists.DisposableCount())
	assert.Equal(t, 1, lists.RolePrefixCount())
	assert.True(t, lists.IsFreeProvider("GMAIL.COM"))
}

func TestLoad_Defaults(t *testing.T) {
	lists, blacklist, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, len(defaultFreeProviders), lists.FreeProviderCount())
	assert.Equal(t, len(defaultDisposableProviders), lists.DisposableCount())
	assert.Equal(t, len(defaultRolePrefixes), lists.RolePrefixCount())
	assert.Equal(t, defaultBlacklist, blacklist.Patterns())
}

func TestLoad_FileOverridesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.yaml")
	content := `
free_providers:
  - proton.me
role_prefixes: []
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lists, blacklist, err := Load(path)
	require.NoError(t, err)

	assert.True(t, lists.IsFreeProvider("proton.me"))
	assert.False(t, lists.IsFreeProvider("gmail.com"))
	// untouched section keeps defaults
	assert.True(t, lists.IsDisposable("mailinator.com"))
	// explicitly empty section disables the check
	assert.False(t, lists.IsRoleAccount("admin"))
	assert.Equal(t, defaultBlacklist, blacklist.Patterns())
}

func TestLoad_Errors(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("free_providers: {nope"), 0o644))
	_, _, err = Load(path)
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	f := Export(DefaultLists(), DefaultBlacklist())
	require.NotNil(t, f.FreeProviders)
	assert.Contains(t, *f.FreeProviders, "gmail.com")
	assert.Equal(t, defaultRolePrefixes, *f.RolePrefixes)
	assert.Equal(t, defaultBlacklist, *f.Blacklist)
}
