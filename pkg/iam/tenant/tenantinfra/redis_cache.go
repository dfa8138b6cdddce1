package tenantinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/iam/tenant"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/alebhayan/King-Laminaat/pkg/logx"
	"github.com/redis/go-redis/v9"
)

// CachedTenantRepository is a Redis cache in front of another repository
// that only remembers tenants the gate would reject: inactive or past their
// cutoff. Usable tenants are always read from the wrapped repository, so a
// deactivation takes effect on the next lookup. A reactivated tenant stays
// rejected for at most ttl. Redis failures fall through to the wrapped
// repository.
type CachedTenantRepository struct {
	next tenant.Repository
	rdb  redis.Cmdable
	ttl  time.Duration
	now  func() time.Time
}

func NewCachedTenantRepository(next tenant.Repository, rdb redis.Cmdable, ttl time.Duration) *CachedTenantRepository {
	return &CachedTenantRepository{next: next, rdb: rdb, ttl: ttl, now: time.Now}
}

func tenantKey(id kernel.TenantID) string { return fmt.Sprintf("tenant:v1:%s", id) }

func (r *CachedTenantRepository) FindByID(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	raw, err := r.rdb.Get(ctx, tenantKey(id)).Bytes()
	switch {
	case err == nil:
		var cached cachedTenant
		if jerr := json.Unmarshal(raw, &cached); jerr == nil {
			return cached.toDomain(), nil
		}
		logx.WithField("tenant_id", id.String()).Warn("tenant cache: dropping undecodable entry")
	case !errors.Is(err, redis.Nil):
		logx.WithError(err).WithField("tenant_id", id.String()).Warn("tenant cache: read failed")
	}

	t, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsUsable(r.now()) {
		return t, nil
	}

	if data, jerr := json.Marshal(fromDomain(t)); jerr == nil {
		if serr := r.rdb.Set(ctx, tenantKey(id), data, r.ttl).Err(); serr != nil {
			logx.WithError(serr).WithField("tenant_id", id.String()).Warn("tenant cache: write failed")
		}
	}
	return t, nil
}

type cachedTenant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	ValidUpto *time.Time `json:"valid_upto,omitempty"`
	Conn      string     `json:"conn,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func fromDomain(t *tenant.Tenant) cachedTenant {
	return cachedTenant{
		ID:        t.ID.String(),
		Name:      t.Name,
		Active:    t.Active,
		ValidUpto: t.ValidUpto,
		Conn:      t.ConnectionString,
		CreatedAt: t.CreatedAt,
	}
}

func (c cachedTenant) toDomain() *tenant.Tenant {
	return &tenant.Tenant{
		ID:               kernel.TenantID(c.ID),
		Name:             c.Name,
		Active:           c.Active,
		ValidUpto:        c.ValidUpto,
		ConnectionString: c.Conn,
		CreatedAt:        c.CreatedAt,
	}
}
