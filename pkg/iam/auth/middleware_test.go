package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/iam/auth"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

type brokenEntropy struct{}

func (brokenEntropy) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestIssueFailsWhenEntropyFails(t *testing.T) {
	iss := newIssuer(t, auth.WithEntropy(brokenEntropy{}))
	pair, err := iss.Issue("u-1", auth.ClaimSet{}, kernel.RequestContext{TenantID: "acme"})
	if err == nil {
		t.Fatalf("expected an error, got pair %+v", pair)
	}
	if pair.AccessToken != "" || pair.RefreshToken != "" {
		t.Fatalf("no tokens may be returned on failure: %+v", pair)
	}
}

func newRoleApp(iss *auth.TokenIssuer) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(errx.StatusOf(err)).JSON(errx.ResponseFor(err))
		},
	})
	app.Use(auth.RequestContextMiddleware())
	mw := auth.NewTokenMiddleware(iss)
	app.Get("/admin", mw.Authenticate(), mw.RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func TestRequireRole(t *testing.T) {
	iss := newIssuer(t)
	app := newRoleApp(iss)

	token := func(roles ...string) string {
		pair, err := iss.Issue("u-1", auth.ClaimSet{Roles: roles}, kernel.RequestContext{TenantID: "acme"})
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		return pair.AccessToken
	}

	cases := []struct {
		name   string
		bearer string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"missing role", token("viewer"), http.StatusForbidden},
		{"has role", token("viewer", "admin"), http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(auth.HeaderTenantID, "acme")
		if tc.bearer != "" {
			req.Header.Set("Authorization", "Bearer "+tc.bearer)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: app.Test: %v", tc.name, err)
		}
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: status %d, want %d", tc.name, resp.StatusCode, tc.want)
		}
	}
}
