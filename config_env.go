package courtgate

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FromEnv builds a Config from environment variables prefixed COURTGATE_,
// loading a .env file first when one is present. Unset keys fall back to
// [DefaultConfig]; the secret (COURTGATE_TOKEN_SECRET) has no default.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("courtgate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	base := DefaultConfig()

	v.SetDefault("token.issuer", base.Token.Issuer)
	v.SetDefault("token.access_ttl", base.Token.AccessTTL)
	v.SetDefault("token.refresh_ttl", base.Token.RefreshTTL)
	v.SetDefault("token.leeway", base.Token.Leeway)
	v.SetDefault("session.redis_prefix", base.Session.RedisPrefix)
	v.SetDefault("session.lifetime", base.Session.Lifetime)
	v.SetDefault("session.refresh_threshold", base.Session.RefreshThreshold)
	v.SetDefault("session.cookie_name", base.Session.CookieName)
	v.SetDefault("password.memory", base.Password.Memory)
	v.SetDefault("password.time", base.Password.Time)
	v.SetDefault("password.parallelism", uint(base.Password.Parallelism))
	v.SetDefault("password.salt_length", base.Password.SaltLength)
	v.SetDefault("password.key_length", base.Password.KeyLength)
	v.SetDefault("storage_retry.attempts", base.StorageRetry.Attempts)
	v.SetDefault("storage_retry.backoff", base.StorageRetry.Backoff)
	v.SetDefault("audit.enabled", base.Audit.Enabled)
	v.SetDefault("audit.buffer_size", base.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", base.Audit.DropIfFull)
	v.SetDefault("metrics.enabled", base.Metrics.Enabled)

	cfg := base
	cfg.Token.Secret = []byte(v.GetString("token.secret"))
	cfg.Token.Issuer = v.GetString("token.issuer")
	cfg.Token.AccessTTL = v.GetDuration("token.access_ttl")
	cfg.Token.RefreshTTL = v.GetDuration("token.refresh_ttl")
	cfg.Token.Leeway = v.GetDuration("token.leeway")
	cfg.Session.RedisPrefix = v.GetString("session.redis_prefix")
	cfg.Session.Lifetime = v.GetDuration("session.lifetime")
	cfg.Session.RefreshThreshold = v.GetDuration("session.refresh_threshold")
	cfg.Session.CookieName = v.GetString("session.cookie_name")
	cfg.Password.Memory = v.GetUint32("password.memory")
	cfg.Password.Time = v.GetUint32("password.time")
	cfg.Password.Parallelism = uint8(v.GetUint("password.parallelism"))
	cfg.Password.SaltLength = v.GetUint32("password.salt_length")
	cfg.Password.KeyLength = v.GetUint32("password.key_length")
	cfg.StorageRetry.Attempts = v.GetInt("storage_retry.attempts")
	cfg.StorageRetry.Backoff = v.GetDuration("storage_retry.backoff")
	cfg.Audit.Enabled = v.GetBool("audit.enabled")
	cfg.Audit.BufferSize = v.GetInt("audit.buffer_size")
	cfg.Audit.DropIfFull = v.GetBool("audit.drop_if_full")
	cfg.Metrics.Enabled = v.GetBool("metrics.enabled")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
