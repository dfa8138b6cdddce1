package auth

import (
	"context"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/iam/tenant"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/alebhayan/King-Laminaat/pkg/logx"
)

// TenantGate admits a tenant only when it exists, is active and is not past
// its validity cutoff. Every failure, including a lookup error, is a
// TenantInvalid.
type TenantGate struct {
	tenants tenant.Repository
	now     func() time.Time
}

func NewTenantGate(tenants tenant.Repository) *TenantGate {
	return &TenantGate{tenants: tenants, now: time.Now}
}

func (g *TenantGate) Check(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	if id.IsEmpty() {
		return nil, ErrTenantInvalid(ReasonTenantMissing)
	}

	t, err := g.tenants.FindByID(ctx, id)
	if err != nil {
		if errx.IsCode(err, tenant.CodeTenantNotFound) {
			return nil, ErrTenantInvalid(ReasonTenantMissing).WithDetail("tenant_id", id.String())
		}
		logx.WithFields(logx.Fields{"tenant_id": id.String()}).
			WithError(err).
			Error("tenant lookup failed, denying")
		return nil, ErrTenantInvalid(ReasonTenantLookupFailed).WithCause(err)
	}
	if t == nil {
		return nil, ErrTenantInvalid(ReasonTenantMissing).WithDetail("tenant_id", id.String())
	}

	switch now := g.now(); {
	case !t.Active:
		return nil, ErrTenantInvalid(ReasonTenantInactive).WithDetail("tenant_id", id.String())
	case !t.IsUsable(now):
		return nil, ErrTenantInvalid(ReasonTenantExpired).WithDetail("tenant_id", id.String())
	}
	return t, nil
}
