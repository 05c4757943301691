package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nephila016/emailvalidate/internal/config"
	"github.com/nephila016/emailvalidate/internal/ratelimit"
	"github.com/nephila016/emailvalidate/internal/verifier"
)

func testConfig() *config.Config {
	return &config.Config{
		Lookup: config.LookupConfig{
			Provider:      "mailinator",
			FailurePolicy: "open",
			Timeout:       time.Second,
		},
		RateLimit: config.RateLimitConfig{
			Max:     2,
			Window:  time.Minute,
			Backend: ratelimit.BackendMemory,
		},
		RedactEmails: true,
	}
}

func TestBuildPipeline_NoCredentials(t *testing.T) {
	p, err := buildPipeline(testConfig(), zap.NewNop())
	require.NoError(t, err)

	r := p.Validate(context.Background(), "jane@gmail.com")
	assert.Equal(t, verifier.OutcomeValid, r.Outcome)
	assert.False(t, r.SimulatedValidation())
}

func TestBuildPipeline_RequireVerification(t *testing.T) {
	c := testConfig()
	c.Mailosaur.RequireVerification = true

	p, err := buildPipeline(c, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, verifier.OutcomeMisconfigured, p.Validate(context.Background(), "jane@gmail.com").Outcome)
}

func TestBuildPipeline_ListsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blacklist: [jane]\n"), 0o644))

	c := testConfig()
	c.ListsFile = path
	p, err := buildPipeline(c, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, verifier.OutcomeBlacklisted, p.Validate(context.Background(), "jane@gmail.com").Outcome)

	c.ListsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = buildPipeline(c, zap.NewNop())
	assert.Error(t, err)
}

func TestBuildLimiter_Memory(t *testing.T) {
	rl, backend, err := buildLimiter(context.Background(), testConfig().RateLimit, zap.NewNop())
	require.NoError(t, err)
	defer rl.Close()
	assert.Equal(t, ratelimit.BackendMemory, backend)

	for i := 0; i < 2; i++ {
		d, err := rl.Allow(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := rl.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestBuildLimiter_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	c := testConfig().RateLimit
	c.Backend = "Redis"
	c.RedisAddr = mr.Addr()

	rl, backend, err := buildLimiter(context.Background(), c, zap.NewNop())
	require.NoError(t, err)
	defer rl.Close()
	assert.Equal(t, ratelimit.BackendRedis, backend)

	d, err := rl.Allow(context.Background(), "198.51.100.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Limit-d.Remaining)
}

func TestBuildLimiter_UnknownBackend(t *testing.T) {
	c := testConfig().RateLimit
	c.Backend = "memcached"
	_, _, err := buildLimiter(context.Background(), c, zap.NewNop())
	assert.Error(t, err)
}

func TestLogEmail(t *testing.T) {
	c := testConfig()
	assert.Equal(t, "ja***@gmail.com", logEmail(c, "jane@gmail.com"))

	c.RedactEmails = false
	assert.Equal(t, "jane@gmail.com", logEmail(c, "jane@gmail.com"))

	assert.Equal(t, "ja***@gmail.com", logEmail(nil, "jane@gmail.com"))
}

func TestLoadEmails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.txt")
	require.NoError(t, os.WriteFile(path, []byte("# signups\njane@gmail.com\n\n  bob@acme.io  \n"), 0o644))

	emails, err := loadEmails(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@gmail.com", "bob@acme.io"}, emails)

	_, err = loadEmails(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
