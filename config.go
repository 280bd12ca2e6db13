package courtgate

import (
	"errors"
	"time"
)

// TokenConfig controls bearer-token issuance.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// SessionConfig controls the cookie-session store.
type SessionConfig struct {
	RedisPrefix      string
	Lifetime         time.Duration
	RefreshThreshold time.Duration
	CookieName       string
}

// PasswordConfig tunes the Argon2id hasher.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// RatePolicy is one action's fixed-window budget.
type RatePolicy struct {
	MaxAttempts int
	Window      time.Duration
}

// RateLimitConfig maps action names to budgets. Actions absent from the
// table are unlimited.
type RateLimitConfig struct {
	Policies map[string]RatePolicy
}

// StorageRetryConfig bounds the gateway's retries on storage outages.
// Only StorageUnavailable is ever retried.
type StorageRetryConfig struct {
	Attempts int
	Backoff  time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles prometheus counter updates.
type MetricsConfig struct {
	Enabled bool
}

// Config is the full gateway configuration. Obtain a baseline from
// [DefaultConfig] and override what differs.
type Config struct {
	Token        TokenConfig
	Session      SessionConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	StorageRetry StorageRetryConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

// DefaultConfig returns the stock configuration: 24h access tokens, 30d
// refresh tokens, 1h sessions sliding at 5m remaining, and the default
// rate policy table. The token secret has no default and must be set.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:     "courtgate",
			AccessTTL:  24 * time.Hour,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		Session: SessionConfig{
			RedisPrefix:      "cgs",
			Lifetime:         time.Hour,
			RefreshThreshold: 5 * time.Minute,
			CookieName:       "cg_session",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		RateLimit: RateLimitConfig{
			Policies: map[string]RatePolicy{
				"login":        {MaxAttempts: 5, Window: 15 * time.Minute},
				"profile_read": {MaxAttempts: 60, Window: time.Hour},
				"search":       {MaxAttempts: 100, Window: time.Hour},
				"create":       {MaxAttempts: 30, Window: time.Hour},
				"upload":       {MaxAttempts: 10, Window: time.Hour},
			},
		},
		StorageRetry: StorageRetryConfig{
			Attempts: 2,
			Backoff:  50 * time.Millisecond,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the gateway cannot run safely with.
func (c Config) Validate() error {
	if len(c.Token.Secret) < 32 {
		return errors.New("token secret must be at least 32 bytes")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Session.Lifetime <= 0 {
		return errors.New("session lifetime must be positive")
	}
	if c.Session.RefreshThreshold <= 0 || c.Session.RefreshThreshold >= c.Session.Lifetime {
		return errors.New("session refresh threshold must be positive and below the lifetime")
	}
	if c.Session.CookieName == "" {
		return errors.New("session cookie name required")
	}
	for name, p := range c.RateLimit.Policies {
		if p.MaxAttempts <= 0 || p.Window <= 0 {
			return errors.New("invalid rate policy for action " + name)
		}
	}
	if c.StorageRetry.Attempts < 0 || c.StorageRetry.Backoff < 0 {
		return errors.New("invalid storage retry configuration")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.Token.Secret = append([]byte(nil), c.Token.Secret...)
	if c.RateLimit.Policies != nil {
		out.RateLimit.Policies = make(map[string]RatePolicy, len(c.RateLimit.Policies))
		for k, v := range c.RateLimit.Policies {
			out.RateLimit.Policies[k] = v
		}
	}
	return out
}
