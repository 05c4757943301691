package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nephila016/emailvalidate/internal/classifier"
	"github.com/nephila016/emailvalidate/internal/config"
	"github.com/nephila016/emailvalidate/internal/logging"
	"github.com/nephila016/emailvalidate/internal/lookup"
	"github.com/nephila016/emailvalidate/internal/ratelimit"
	"github.com/nephila016/emailvalidate/internal/simulate"
	"github.com/nephila016/emailvalidate/internal/verifier"
)

// bindFlag binds a cobra flag to a config key so the flag wins over env
// and config file when it is set.
func bindFlag(f *pflag.Flag, key string) {
	if f == nil {
		panic("bindFlag: unknown flag for key " + key)
	}
	if err := viper.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

// buildPipeline assembles the validation pipeline from the loaded config.
func buildPipeline(c *config.Config, log *zap.Logger) (*verifier.Pipeline, error) {
	lists, blacklist, err := classifier.Load(c.ListsFile)
	if err != nil {
		return nil, err
	}

	checker, err := lookup.New(lookup.Config{
		Provider:         c.Lookup.Provider,
		MailinatorAPIKey: c.Lookup.MailinatorAPIKey,
		MailinatorAPIURL: c.Lookup.MailinatorAPIURL,
		SendGridAPIKey:   c.Lookup.SendGridAPIKey,
		SendGridAPIHost:  c.Lookup.SendGridAPIHost,
		Timeout:          c.Lookup.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if checker == nil {
		log.Warn("no disposable lookup credential configured; remote lookup disabled",
			zap.String("provider", c.Lookup.Provider))
	}

	policy, err := lookup.ParseFailurePolicy(c.Lookup.FailurePolicy)
	if err != nil {
		return nil, err
	}

	sim := simulate.New(simulate.Config{
		APIKey:   c.Mailosaur.APIKey,
		ServerID: c.Mailosaur.ServerID,
		APIURL:   c.Mailosaur.APIURL,
		Domain:   c.Mailosaur.Domain,
		Timeout:  c.Lookup.Timeout,
	})
	if sim == nil {
		if c.Mailosaur.RequireVerification {
			log.Error("require_verification is set but Mailosaur credentials are missing; validations will fail")
		} else {
			log.Warn("Mailosaur credentials missing; verification simulation disabled")
		}
	}

	return verifier.New(verifier.Config{
		Lists:               lists,
		Blacklist:           blacklist,
		Lookup:              checker,
		FailurePolicy:       policy,
		Simulator:           sim,
		RequireVerification: c.Mailosaur.RequireVerification,
		Timeout:             c.Lookup.Timeout,
		Logger:              log,
		RedactEmails:        c.RedactEmails,
	}), nil
}

// logEmail returns email as it may appear in logs under c.
func logEmail(c *config.Config, email string) string {
	if c != nil && !c.RedactEmails {
		return email
	}
	return logging.RedactEmail(email)
}

// limiter is a ratelimit.Limiter with resources to release on shutdown.
type limiter interface {
	ratelimit.Limiter
	Close() error
}

type redisLimiter struct {
	*ratelimit.Redis
	client *redis.Client
}

func (l redisLimiter) Close() error {
	return l.client.Close()
}

// buildLimiter returns the configured rate limiter backend.
func buildLimiter(ctx context.Context, c config.RateLimitConfig, log *zap.Logger) (limiter, string, error) {
	backend, err := ratelimit.ParseBackend(c.Backend)
	if err != nil {
		return nil, "", err
	}

	switch backend {
	case ratelimit.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			// requests still pass; the middleware fails open
			log.Warn("redis unreachable at startup", zap.String("addr", c.RedisAddr), zap.Error(err))
		}

		rl, err := ratelimit.NewRedis(client, c.Max, c.Window, "")
		if err != nil {
			_ = client.Close()
			return nil, "", err
		}
		return redisLimiter{Redis: rl, client: client}, backend, nil

	default:
		m, err := ratelimit.NewMemory(c.Max, c.Window)
		if err != nil {
			return nil, "", err
		}
		return m, backend, nil
	}
}

// describeLookup renders the lookup setup for console banners.
func describeLookup(c *config.Config) string {
	provider := strings.ToLower(c.Lookup.Provider)
	key := c.Lookup.MailinatorAPIKey
	if provider == lookup.ProviderSendGrid {
		key = c.Lookup.SendGridAPIKey
	}
	if key == "" {
		return fmt.Sprintf("%s (disabled, no API key)", provider)
	}
	return fmt.Sprintf("%s (failure policy %s)", provider, c.Lookup.FailurePolicy)
}
