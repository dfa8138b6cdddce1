package config

import (
	"os"
	"strings"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration, read from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Tenant   TenantConfig
	Audit    AuditConfig
	Outbox   OutboxConfig
	Notifx   NotifxConfig
	Storage  StorageConfig
}

// Load parses the process environment.
func Load() (*Config, error) {
	environ := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}
	return LoadFrom(environ)
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, errx.Wrap(err, "failed to parse configuration", errx.TypeConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that env tags cannot express. Signing key strength is
// checked by the token issuer itself.
func (c *Config) Validate() error {
	switch {
	case c.Audit.QueueCapacity <= 0:
		return invalid("AUDIT_QUEUE_CAPACITY must be positive")
	case c.Audit.BatchSize <= 0 || c.Audit.BatchSize > MaxAuditBatchSize:
		return invalid("AUDIT_BATCH_SIZE must be between 1 and 5000").WithDetail("value", c.Audit.BatchSize)
	case c.Outbox.BatchSize <= 0:
		return invalid("OUTBOX_BATCH_SIZE must be positive")
	case c.Outbox.MaxRetries <= 0:
		return invalid("OUTBOX_MAX_RETRIES must be positive")
	case c.Outbox.Interval <= 0:
		return invalid("OUTBOX_INTERVAL must be positive")
	case c.Auth.AccessTokenMinutes <= 0:
		return invalid("AUTH_ACCESS_TOKEN_MINUTES must be positive")
	case c.Auth.RefreshTokenDays <= 0:
		return invalid("AUTH_REFRESH_TOKEN_DAYS must be positive")
	}

	if c.Storage.Mode != "local" && c.Storage.Mode != "s3" {
		return invalid("STORAGE_MODE must be local or s3").WithDetail("value", c.Storage.Mode)
	}
	return nil
}

func invalid(msg string) *errx.Error {
	return errx.New(msg, errx.TypeConfiguration)
}
