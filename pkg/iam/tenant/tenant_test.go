package tenant_test

import (
	"testing"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/iam/tenant"
)

func TestIsUsable(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	cases := []struct {
		name   string
		tenant *tenant.Tenant
		want   bool
	}{
		{"nil", nil, false},
		{"inactive", &tenant.Tenant{Active: false}, false},
		{"active no cutoff", &tenant.Tenant{Active: true}, true},
		{"active future cutoff", &tenant.Tenant{Active: true, ValidUpto: &future}, true},
		{"active cutoff now", &tenant.Tenant{Active: true, ValidUpto: &now}, true},
		{"active past cutoff", &tenant.Tenant{Active: true, ValidUpto: &past}, false},
		{"inactive future cutoff", &tenant.Tenant{Active: false, ValidUpto: &future}, false},
	}
	for _, tc := range cases {
		if got := tc.tenant.IsUsable(now); got != tc.want {
			t.Fatalf("%s: IsUsable=%v, want %v", tc.name, got, tc.want)
		}
	}
}
