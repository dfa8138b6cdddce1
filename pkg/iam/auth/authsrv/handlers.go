package authsrv

import (
	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/iam/auth"
	"github.com/alebhayan/King-Laminaat/pkg/iam/user/usersrv"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
)

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(1, 254)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 1024)),
	)
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required, validation.Length(1, 512)),
		validation.Field(&r.AccessToken, validation.Length(0, 8192)),
	)
}

// AuthHandlers exposes AuthService and self-registration over HTTP.
type AuthHandlers struct {
	service    *AuthService
	users      *usersrv.UserService
	middleware *auth.TokenMiddleware
	limiter    *auth.RateLimiter
}

func NewAuthHandlers(service *AuthService, users *usersrv.UserService, middleware *auth.TokenMiddleware, limiter *auth.RateLimiter) *AuthHandlers {
	return &AuthHandlers{service: service, users: users, middleware: middleware, limiter: limiter}
}

// RegisterRoutes mounts /auth/*. The caller installs
// auth.RequestContextMiddleware before this group.
func (h *AuthHandlers) RegisterRoutes(router fiber.Router) {
	g := router.Group("/auth")
	if h.limiter != nil {
		g.Use(h.limiter.Middleware())
	}

	g.Post("/token", h.Token)
	g.Post("/refresh", h.Refresh)
	g.Post("/register", h.Register)
	g.Post("/revoke", h.middleware.Authenticate(), h.Revoke)
	g.Get("/me", h.middleware.Authenticate(), h.Me)
}

// Token handles POST /auth/token.
func (h *AuthHandlers) Token(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil || req.Validate() != nil {
		return auth.Unauthorized(c)
	}

	pair, err := h.service.Login(c.UserContext(), auth.RequestContextFrom(c), req)
	if err != nil {
		return authError(c, err)
	}
	return c.JSON(pair)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.Validate() != nil {
		return auth.Unauthorized(c)
	}

	pair, err := h.service.Refresh(c.UserContext(), auth.RequestContextFrom(c), req)
	if err != nil {
		return authError(c, err)
	}
	return c.JSON(pair)
}

// Revoke handles POST /auth/revoke.
func (h *AuthHandlers) Revoke(c *fiber.Ctx) error {
	if err := h.service.Revoke(c.UserContext(), auth.RequestContextFrom(c), auth.AccessTokenFrom(c)); err != nil {
		return authError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Register handles POST /auth/register.
func (h *AuthHandlers) Register(c *fiber.Ctx) error {
	var req usersrv.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("Malformed request body", errx.TypeValidation)
	}

	p, err := h.users.Register(c.UserContext(), auth.RequestContextFrom(c), req)
	if err != nil {
		if auth.IsAuthFailure(err) {
			return auth.Unauthorized(c)
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":             p.ID,
		"email":          p.Email,
		"displayName":    p.DisplayName,
		"emailConfirmed": p.EmailConfirmed,
	})
}

// Me handles GET /auth/me.
func (h *AuthHandlers) Me(c *fiber.Ctx) error {
	return c.JSON(auth.AuthContextFrom(c))
}

// authError hides every auth failure behind the generic 401 and lets the
// global error handler render anything else.
func authError(c *fiber.Ctx, err error) error {
	if auth.IsAuthFailure(err) {
		return auth.Unauthorized(c)
	}
	return err
}
