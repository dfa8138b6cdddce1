package tenantinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/iam/tenant"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// PostgresTenantRepository reads tenants from the tenants table.
type PostgresTenantRepository struct {
	db *sqlx.DB
}

func NewPostgresTenantRepository(db *sqlx.DB) *PostgresTenantRepository {
	return &PostgresTenantRepository{db: db}
}

const selectTenant = `
	SELECT id, name, is_active, valid_upto, connection_string, created_at
	FROM tenants
	WHERE id = $1`

func (r *PostgresTenantRepository) FindByID(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	var row tenantRow
	if err := r.db.GetContext(ctx, &row, selectTenant, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound().WithDetail("tenant_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find tenant", errx.TypeInternal).
			WithDetail("tenant_id", id.String())
	}
	return row.toDomain(), nil
}

type tenantRow struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	IsActive         bool           `db:"is_active"`
	ValidUpto        sql.NullTime   `db:"valid_upto"`
	ConnectionString sql.NullString `db:"connection_string"`
	CreatedAt        time.Time      `db:"created_at"`
}

func (r tenantRow) toDomain() *tenant.Tenant {
	t := &tenant.Tenant{
		ID:               kernel.TenantID(r.ID),
		Name:             r.Name,
		Active:           r.IsActive,
		ConnectionString: r.ConnectionString.String,
		CreatedAt:        r.CreatedAt,
	}
	if r.ValidUpto.Valid {
		v := r.ValidUpto.Time
		t.ValidUpto = &v
	}
	return t
}
