package config

import "time"

// AuthConfig configures token issuance and password hashing.
type AuthConfig struct {
	SigningKey         string `env:"AUTH_SIGNING_KEY"`
	Issuer             string `env:"AUTH_ISSUER"`
	Audience           string `env:"AUTH_AUDIENCE"`
	AccessTokenMinutes int    `env:"AUTH_ACCESS_TOKEN_MINUTES" envDefault:"30"`
	RefreshTokenDays   int    `env:"AUTH_REFRESH_TOKEN_DAYS" envDefault:"7"`
	BcryptCost         int    `env:"AUTH_BCRYPT_COST" envDefault:"12"`
}

func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenMinutes) * time.Minute
}

func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenDays) * 24 * time.Hour
}

// TenantConfig configures tenant lookups. A zero CacheTTL disables the Redis
// read-through cache.
type TenantConfig struct {
	CacheTTL time.Duration `env:"TENANT_CACHE_TTL" envDefault:"30s"`
}
