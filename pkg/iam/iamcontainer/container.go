package iamcontainer

import (
	"github.com/alebhayan/King-Laminaat/pkg/config"
	"github.com/alebhayan/King-Laminaat/pkg/iam/auth"
	"github.com/alebhayan/King-Laminaat/pkg/iam/auth/authsrv"
	"github.com/alebhayan/King-Laminaat/pkg/iam/tenant"
	"github.com/alebhayan/King-Laminaat/pkg/iam/tenant/tenantinfra"
	"github.com/alebhayan/King-Laminaat/pkg/iam/user/userinfra"
	"github.com/alebhayan/King-Laminaat/pkg/iam/user/usersrv"
	"github.com/alebhayan/King-Laminaat/pkg/logx"
	"github.com/alebhayan/King-Laminaat/pkg/outbox"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis redis.Cmdable
	Cfg   *config.Config

	// Auditor and Events are owned by cmd/ so their background consumers
	// share the process lifecycle.
	Auditor authsrv.SecurityAuditor
	Events  *outbox.Writer
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// ---------------------------------------------------------------------------

type Container struct {
	TokenIssuer *auth.TokenIssuer
	TenantGate  *auth.TenantGate

	AuthService *authsrv.AuthService
	UserService *usersrv.UserService

	AuthHandlers    *authsrv.AuthHandlers
	TokenMiddleware *auth.TokenMiddleware
	RateLimiter     *auth.RateLimiter
}

// New constructs the IAM dependency graph: repos, then services, then
// handlers and middleware. It fails on an unusable signing configuration.
func New(deps Deps) (*Container, error) {
	logx.Info("🔧 Initializing IAM container...")

	c := &Container{}

	// ── Repositories ─────────────────────────────────────────────────────

	var tenantRepo tenant.Repository = tenantinfra.NewPostgresTenantRepository(deps.DB)
	if ttl := deps.Cfg.Tenant.CacheTTL; ttl > 0 && deps.Redis != nil {
		tenantRepo = tenantinfra.NewCachedTenantRepository(tenantRepo, deps.Redis, ttl)
		logx.Infof("  ✅ Tenant cache enabled (ttl: %s)", ttl)
	}
	userRepo := userinfra.NewPostgresUserRepository(deps.DB)
	hasher := userinfra.NewBcryptPasswordHasher(deps.Cfg.Auth.BcryptCost)

	// ── Token issuance and validation ────────────────────────────────────

	issuer, err := auth.NewTokenIssuer(auth.IssuerConfig{
		SigningKey:      []byte(deps.Cfg.Auth.SigningKey),
		Issuer:          deps.Cfg.Auth.Issuer,
		Audience:        deps.Cfg.Auth.Audience,
		AccessTokenTTL:  deps.Cfg.Auth.AccessTokenTTL(),
		RefreshTokenTTL: deps.Cfg.Auth.RefreshTokenTTL(),
	})
	if err != nil {
		return nil, err
	}
	c.TokenIssuer = issuer
	c.TenantGate = auth.NewTenantGate(tenantRepo)

	validator, err := auth.NewValidator(c.TenantGate, userRepo, hasher)
	if err != nil {
		return nil, err
	}

	// ── Domain services ──────────────────────────────────────────────────

	c.AuthService = authsrv.NewAuthService(validator, issuer, userRepo, deps.Auditor)
	c.UserService = usersrv.NewUserService(deps.DB, userRepo, c.TenantGate, hasher, deps.Events)

	// ── Handlers and middleware ──────────────────────────────────────────

	c.TokenMiddleware = auth.NewTokenMiddleware(issuer)
	if deps.Cfg.Server.RateLimitRPS > 0 {
		c.RateLimiter = auth.NewRateLimiter(deps.Cfg.Server.RateLimitRPS, deps.Cfg.Server.RateLimitBurst)
	}
	c.AuthHandlers = authsrv.NewAuthHandlers(c.AuthService, c.UserService, c.TokenMiddleware, c.RateLimiter)

	logx.Info("✅ IAM container initialized")
	return c, nil
}

// RegisterRoutes mounts the IAM HTTP surface.
func (c *Container) RegisterRoutes(router fiber.Router) {
	c.AuthHandlers.RegisterRoutes(router)
}
