package auth

import (
	"strings"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/iam"
	"github.com/alebhayan/King-Laminaat/pkg/idx"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// Request headers understood by the auth surface.
const (
	HeaderTenantID      = "X-Tenant-ID"
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID"
)

const accessTokenLocal = "access_token"

// RequestContextMiddleware builds the kernel.RequestContext of each request
// from its headers. A correlation id is generated when the client sent none
// and echoed back in the response.
func RequestContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := strings.TrimSpace(c.Get(HeaderCorrelationID))
		if correlationID == "" {
			correlationID = idx.New()
		}
		c.Set(HeaderCorrelationID, correlationID)

		traceID := c.Get(HeaderRequestID)
		if traceID == "" {
			if v, ok := c.Locals("requestid").(string); ok {
				traceID = v
			}
		}

		c.Locals(kernel.RequestContextKey, kernel.RequestContext{
			TenantID:      kernel.NewTenantID(c.Get(HeaderTenantID)),
			CorrelationID: correlationID,
			TraceID:       traceID,
			IP:            c.IP(),
			UserAgent:     c.Get(fiber.HeaderUserAgent),
		})
		return c.Next()
	}
}

// RequestContextFrom returns the context stored by RequestContextMiddleware,
// or one built from the headers if the middleware did not run.
func RequestContextFrom(c *fiber.Ctx) kernel.RequestContext {
	if rc, ok := c.Locals(kernel.RequestContextKey).(kernel.RequestContext); ok {
		return rc
	}
	return kernel.RequestContext{
		TenantID: kernel.NewTenantID(c.Get(HeaderTenantID)),
		TraceID:  c.Get(HeaderRequestID),
		IP:       c.IP(),
	}
}

// AuthContextFrom returns the authenticated caller, or nil.
func AuthContextFrom(c *fiber.Ctx) *kernel.AuthContext {
	ac, _ := c.Locals(kernel.AuthContextKey).(*kernel.AuthContext)
	return ac
}

// AccessTokenFrom returns the bearer token accepted by Authenticate.
func AccessTokenFrom(c *fiber.Ctx) string {
	t, _ := c.Locals(accessTokenLocal).(string)
	return t
}

// TokenMiddleware authenticates bearer access tokens.
type TokenMiddleware struct {
	issuer *TokenIssuer
}

func NewTokenMiddleware(issuer *TokenIssuer) *TokenMiddleware {
	return &TokenMiddleware{issuer: issuer}
}

// Authenticate requires a valid bearer token issued for the request's
// tenant, then binds the caller to the request context.
func (m *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return Unauthorized(c)
		}

		claims, err := m.issuer.ValidateAccessToken(token)
		if err != nil {
			return Unauthorized(c)
		}

		rc := RequestContextFrom(c)
		if !rc.TenantID.IsEmpty() && rc.TenantID != claims.TenantID {
			return Unauthorized(c)
		}
		rc.TenantID = claims.TenantID
		rc = rc.WithUser(claims.Subject)

		c.Locals(kernel.RequestContextKey, rc)
		c.Locals(accessTokenLocal, token)
		c.Locals(kernel.AuthContextKey, &kernel.AuthContext{
			UserID:   claims.Subject,
			TenantID: claims.TenantID,
			Email:    claims.Email,
			Name:     claims.DisplayName,
			Roles:    claims.Roles,
			TokenID:  claims.TokenID,
		})
		return c.Next()
	}
}

// RequireRole must run after Authenticate.
func (m *TokenMiddleware) RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ac := AuthContextFrom(c)
		if !ac.IsValid() {
			return Unauthorized(c)
		}
		if !ac.HasRole(role) {
			return iam.ErrAccessDenied().WithDetail("role", role)
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Unauthorized writes the single response body used for every auth failure.
func Unauthorized(c *fiber.Ctx) error {
	resp := ErrUnauthorized().ToHTTPResponse()
	return c.Status(fiber.StatusUnauthorized).JSON(errx.HTTPErrorResponse{
		Code:       resp.Code,
		Message:    resp.Message,
		StatusCode: resp.StatusCode,
		RequestID:  RequestContextFrom(c).TraceID,
	})
}
