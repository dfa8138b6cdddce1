package tenantinfra_test

import (
	"context"
	"testing"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/iam/auth"
	"github.com/alebhayan/King-Laminaat/pkg/iam/tenant"
	"github.com/alebhayan/King-Laminaat/pkg/iam/tenant/tenantinfra"
	"github.com/redis/go-redis/v9"
)

// memRedis implements the two commands the cache uses.
type memRedis struct {
	redis.Cmdable
	values map[string]string
	sets   int
}

func newMemRedis() *memRedis { return &memRedis{values: map[string]string{}} }

func (m *memRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.sets++
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func TestGateRejectsTenantDeactivatedAfterLookup(t *testing.T) {
	rdb := newMemRedis()
	next := &countingRepo{tenant: &tenant.Tenant{ID: "acme", Active: true}}
	gate := auth.NewTenantGate(tenantinfra.NewCachedTenantRepository(next, rdb, 30*time.Second))
	ctx := context.Background()

	if _, err := gate.Check(ctx, "acme"); err != nil {
		t.Fatalf("first Check: %v", err)
	}
	if rdb.sets != 0 {
		t.Fatalf("usable tenants must not be cached, got %d writes", rdb.sets)
	}

	next.tenant = &tenant.Tenant{ID: "acme", Active: false}
	if _, err := gate.Check(ctx, "acme"); !errx.IsCode(err, auth.CodeTenantInvalid) {
		t.Fatalf("expected TenantInvalid after deactivation, got %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("expected both lookups to reach the store, got %d", next.calls)
	}
}

func TestCachedRepositoryServesRejectedTenantsFromRedis(t *testing.T) {
	rdb := newMemRedis()
	cutoff := time.Now().Add(-time.Hour)
	next := &countingRepo{tenant: &tenant.Tenant{ID: "acme", Active: true, ValidUpto: &cutoff}}
	gate := auth.NewTenantGate(tenantinfra.NewCachedTenantRepository(next, rdb, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := gate.Check(ctx, "acme"); !errx.IsCode(err, auth.CodeTenantInvalid) {
			t.Fatalf("Check %d: expected TenantInvalid, got %v", i, err)
		}
	}
	if next.calls != 1 || rdb.sets != 1 {
		t.Fatalf("expected one store lookup and one cache write, got calls=%d sets=%d", next.calls, rdb.sets)
	}
}
