package tenant

import (
	"context"
	"net/http"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
)

// Tenant is the isolation boundary every auth operation is evaluated in.
type Tenant struct {
	ID               kernel.TenantID `json:"id"`
	Name             string          `json:"name"`
	Active           bool            `json:"active"`
	ValidUpto        *time.Time      `json:"valid_upto,omitempty"`
	ConnectionString string          `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
}

// IsUsable reports whether the tenant is active and not past its cutoff at now.
func (t *Tenant) IsUsable(now time.Time) bool {
	if t == nil || !t.Active {
		return false
	}
	return t.ValidUpto == nil || !now.After(*t.ValidUpto)
}

// Repository is the read contract the auth flow depends on.
type Repository interface {
	FindByID(ctx context.Context, id kernel.TenantID) (*Tenant, error)
}

var ErrRegistry = errx.NewRegistry("TENANT")

var (
	CodeTenantNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Tenant not found")
)

func ErrTenantNotFound() *errx.Error {
	return ErrRegistry.New(CodeTenantNotFound)
}
