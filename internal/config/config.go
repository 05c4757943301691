// Package config loads service configuration from defaults, an optional
// config file, .env, environment variables and command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nephila016/emailvalidate/internal/logging"
	"github.com/nephila016/emailvalidate/internal/lookup"
	"github.com/nephila016/emailvalidate/internal/ratelimit"
)

// LookupConfig configures the remote disposable-domain lookup.
type LookupConfig struct {
	Provider         string        `mapstructure:"disposable_provider"`
	FailurePolicy    string        `mapstructure:"disposable_failure_policy"`
	MailinatorAPIKey string        `mapstructure:"mailinator_api_key"`
	MailinatorAPIURL string        `mapstructure:"mailinator_api_url"`
	SendGridAPIKey   string        `mapstructure:"sendgrid_api_key"`
	SendGridAPIHost  string        `mapstructure:"sendgrid_api_host"`
	Timeout          time.Duration `mapstructure:"lookup_timeout"`
}

// MailosaurConfig configures the verification simulation.
type MailosaurConfig struct {
	APIKey              string `mapstructure:"mailosaur_api_key"`
	ServerID            string `mapstructure:"mailosaur_server_id"`
	APIURL              string `mapstructure:"mailosaur_api_url"`
	Domain              string `mapstructure:"mailosaur_domain"`
	RequireVerification bool   `mapstructure:"require_verification"`
}

// RateLimitConfig configures the validation endpoint's rate limit.
type RateLimitConfig struct {
	Max     int           `mapstructure:"rate_limit_max"`
	Window  time.Duration `mapstructure:"rate_limit_window"`
	Backend string        `mapstructure:"rate_limit_backend"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// CORSConfig groups CORS behavior.
type CORSConfig struct {
	EnableCORS         bool     `mapstructure:"enable_cors"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// Config is the complete service configuration.
type Config struct {
	Port     int    `mapstructure:"port"`
	Env      string `mapstructure:"env"`       // "dev" | "prod"
	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error …

	Lookup    LookupConfig    `mapstructure:",squash"`
	Mailosaur MailosaurConfig `mapstructure:",squash"`
	RateLimit RateLimitConfig `mapstructure:",squash"`
	CORS      CORSConfig      `mapstructure:",squash"`

	ListsFile           string        `mapstructure:"lists_file"`
	StaticDir           string        `mapstructure:"static_dir"`
	RedactEmails        bool          `mapstructure:"redact_emails"`
	TrustProxy          bool          `mapstructure:"trust_proxy"`
	MaxRequestBodyBytes int64         `mapstructure:"max_request_body_bytes"`
	ShutdownTimeout     time.Duration `mapstructure:"shutdown_timeout"`
}

// LoadDotEnv loads .env from the working directory if present. Variables
// already set in the environment win.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load builds a Config from v. Env vars are the upper-cased keys
// (PORT, MAILOSAUR_API_KEY, ...). Precedence, highest first: flags bound
// on v, environment, config file, defaults.
func Load(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, k := range allKeys() {
		_ = v.BindEnv(k, strings.ToUpper(k))
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.Env != "dev" && c.Env != "prod" {
		errs = append(errs, fmt.Errorf("env must be dev or prod, got %q", c.Env))
	}
	if !logging.IsValidLogLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("invalid log_level %q", c.LogLevel))
	}

	switch strings.ToLower(c.Lookup.Provider) {
	case lookup.ProviderMailinator, lookup.ProviderSendGrid:
	default:
		errs = append(errs, fmt.Errorf("unknown disposable_provider %q (want mailinator or sendgrid)", c.Lookup.Provider))
	}
	if _, err := lookup.ParseFailurePolicy(c.Lookup.FailurePolicy); err != nil {
		errs = append(errs, err)
	}
	if c.Lookup.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("lookup_timeout must be positive, got %s", c.Lookup.Timeout))
	}

	if c.RateLimit.Max <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit_max must be positive, got %d", c.RateLimit.Max))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit_window must be positive, got %s", c.RateLimit.Window))
	}
	if _, err := ratelimit.ParseBackend(c.RateLimit.Backend); err != nil {
		errs = append(errs, err)
	}
	if c.MaxRequestBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("max_request_body_bytes must not be negative"))
	}

	return errors.Join(errs...)
}

// Dump returns a pretty, redacted JSON string of the config for debugging.
func (c Config) Dump() string {
	cp := c
	cp.Lookup.MailinatorAPIKey = redact(cp.Lookup.MailinatorAPIKey)
	cp.Lookup.SendGridAPIKey = redact(cp.Lookup.SendGridAPIKey)
	cp.Mailosaur.APIKey = redact(cp.Mailosaur.APIKey)
	cp.RateLimit.RedisPassword = redact(cp.RateLimit.RedisPassword)
	b, _ := json.MarshalIndent(cp, "", "  ")
	return string(b)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")

	v.SetDefault("disposable_provider", lookup.ProviderMailinator)
	v.SetDefault("disposable_failure_policy", string(lookup.PolicyOpen))
	v.SetDefault("mailinator_api_key", "")
	v.SetDefault("mailinator_api_url", lookup.DefaultMailinatorURL)
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("sendgrid_api_host", lookup.DefaultSendGridHost)
	v.SetDefault("lookup_timeout", 8*time.Second)

	v.SetDefault("mailosaur_api_key", "")
	v.SetDefault("mailosaur_server_id", "")
	v.SetDefault("mailosaur_api_url", "https://mailosaur.com")
	v.SetDefault("mailosaur_domain", "mailosaur.net")
	v.SetDefault("require_verification", false)

	v.SetDefault("rate_limit_max", 10)
	v.SetDefault("rate_limit_window", 60*time.Second)
	v.SetDefault("rate_limit_backend", ratelimit.BackendMemory)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("enable_cors", true)
	v.SetDefault("cors_allowed_origins", []string{"*"})

	v.SetDefault("lists_file", "")
	v.SetDefault("static_dir", "public")
	v.SetDefault("redact_emails", true)
	v.SetDefault("trust_proxy", false)
	v.SetDefault("max_request_body_bytes", int64(100<<10))
	v.SetDefault("shutdown_timeout", 10*time.Second)
}

func allKeys() []string {
	return []string{
		"port", "env", "log_level",
		"disposable_provider", "disposable_failure_policy",
		"mailinator_api_key", "mailinator_api_url",
		"sendgrid_api_key", "sendgrid_api_host", "lookup_timeout",
		"mailosaur_api_key", "mailosaur_server_id", "mailosaur_api_url", "mailosaur_domain",
		"require_verification",
		"rate_limit_max", "rate_limit_window", "rate_limit_backend",
		"redis_addr", "redis_password", "redis_db",
		"enable_cors", "cors_allowed_origins",
		"lists_file", "static_dir", "redact_emails", "trust_proxy",
		"max_request_body_bytes", "shutdown_timeout",
	}
}
