package userinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/dbx"
	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/iam/user"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresUserRepository stores principals in the principals table.
type PostgresUserRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db, now: time.Now}
}

const principalColumns = `id, tenant_id, email, normalized_email, display_name, password_hash,
	is_active, email_confirmed, roles, refresh_token_hash, refresh_token_expires_at,
	external_id, created_at, updated_at`

func (r *PostgresUserRepository) findOne(ctx context.Context, where string, args ...interface{}) (*user.Principal, error) {
	var row principalRow
	query := `SELECT ` + principalColumns + ` FROM principals WHERE ` + where
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound()
		}
		return nil, errx.Wrap(err, "failed to find principal", errx.TypeInternal)
	}
	p := row.toDomain()
	return &p, nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, tenantID kernel.TenantID, id kernel.UserID) (*user.Principal, error) {
	return r.findOne(ctx, `tenant_id = $1 AND id = $2`, tenantID.String(), id.String())
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, tenantID kernel.TenantID, normalizedEmail string) (*user.Principal, error) {
	return r.findOne(ctx, `tenant_id = $1 AND normalized_email = $2`, tenantID.String(), normalizedEmail)
}

func (r *PostgresUserRepository) FindByRefreshTokenHash(ctx context.Context, tenantID kernel.TenantID, hash string) (*user.Principal, error) {
	return r.findOne(ctx, `tenant_id = $1 AND refresh_token_hash = $2`, tenantID.String(), hash)
}

func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, tenantID kernel.TenantID, id kernel.UserID, hash string, expiresAt time.Time) error {
	query := `
		UPDATE principals
		SET refresh_token_hash = $3, refresh_token_expires_at = $4, updated_at = $5
		WHERE tenant_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, tenantID.String(), id.String(), hash, expiresAt, r.now().UTC())
	if err != nil {
		return errx.Wrap(err, "failed to store refresh token", errx.TypeInternal)
	}
	return requireRow(res)
}

// RotateRefreshToken is a compare-and-swap on refresh_token_hash; Postgres
// row locking on UPDATE serializes concurrent rotations of the same row.
func (r *PostgresUserRepository) RotateRefreshToken(ctx context.Context, tenantID kernel.TenantID, id kernel.UserID, oldHash, newHash string, expiresAt time.Time) (bool, error) {
	query := `
		UPDATE principals
		SET refresh_token_hash = $4, refresh_token_expires_at = $5, updated_at = $6
		WHERE tenant_id = $1 AND id = $2 AND refresh_token_hash = $3`

	res, err := r.db.ExecContext(ctx, query, tenantID.String(), id.String(), oldHash, newHash, expiresAt, r.now().UTC())
	if err != nil {
		return false, errx.Wrap(err, "failed to rotate refresh token", errx.TypeInternal)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errx.Wrap(err, "failed to get rows affected on rotation", errx.TypeInternal)
	}
	return n == 1, nil
}

func (r *PostgresUserRepository) ClearRefreshToken(ctx context.Context, tenantID kernel.TenantID, id kernel.UserID) error {
	query := `
		UPDATE principals
		SET refresh_token_hash = NULL, refresh_token_expires_at = NULL, updated_at = $3
		WHERE tenant_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, tenantID.String(), id.String(), r.now().UTC())
	if err != nil {
		return errx.Wrap(err, "failed to clear refresh token", errx.TypeInternal)
	}
	return requireRow(res)
}

func (r *PostgresUserRepository) Create(ctx context.Context, q sqlx.ExtContext, p user.Principal) error {
	query := `
		INSERT INTO principals (
			id, tenant_id, email, normalized_email, display_name, password_hash,
			is_active, email_confirmed, roles, external_id, created_at, updated_at
		) VALUES (
			:id, :tenant_id, :email, :normalized_email, :display_name, :password_hash,
			:is_active, :email_confirmed, :roles, :external_id, :created_at, :updated_at
		)`

	if _, err := sqlx.NamedExecContext(ctx, q, query, toRow(p)); err != nil {
		if dbx.IsUniqueViolation(err) {
			return user.ErrEmailTaken().WithDetail("email", p.NormalizedEmail)
		}
		return errx.Wrap(err, "failed to create principal", errx.TypeInternal).
			WithDetail("user_id", p.ID.String())
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if n == 0 {
		return user.ErrUserNotFound()
	}
	return nil
}

type principalRow struct {
	ID                    string         `db:"id"`
	TenantID              string         `db:"tenant_id"`
	Email                 string         `db:"email"`
	NormalizedEmail       string         `db:"normalized_email"`
	DisplayName           string         `db:"display_name"`
	PasswordHash          string         `db:"password_hash"`
	IsActive              bool           `db:"is_active"`
	EmailConfirmed        bool           `db:"email_confirmed"`
	Roles                 pq.StringArray `db:"roles"`
	RefreshTokenHash      sql.NullString `db:"refresh_token_hash"`
	RefreshTokenExpiresAt sql.NullTime   `db:"refresh_token_expires_at"`
	ExternalID            sql.NullString `db:"external_id"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

func toRow(p user.Principal) principalRow {
	row := principalRow{
		ID:              p.ID.String(),
		TenantID:        p.TenantID.String(),
		Email:           p.Email,
		NormalizedEmail: p.NormalizedEmail,
		DisplayName:     p.DisplayName,
		PasswordHash:    p.PasswordHash,
		IsActive:        p.Active,
		EmailConfirmed:  p.EmailConfirmed,
		Roles:           pq.StringArray(p.Roles),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if row.Roles == nil {
		row.Roles = pq.StringArray{}
	}
	if p.ExternalID != nil {
		row.ExternalID = sql.NullString{String: *p.ExternalID, Valid: true}
	}
	return row
}

func (r principalRow) toDomain() user.Principal {
	p := user.Principal{
		ID:              kernel.UserID(r.ID),
		TenantID:        kernel.TenantID(r.TenantID),
		Email:           r.Email,
		NormalizedEmail: r.NormalizedEmail,
		DisplayName:     r.DisplayName,
		PasswordHash:    r.PasswordHash,
		Active:          r.IsActive,
		EmailConfirmed:  r.EmailConfirmed,
		Roles:           []string(r.Roles),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.RefreshTokenHash.Valid {
		h := r.RefreshTokenHash.String
		p.RefreshTokenHash = &h
	}
	if r.RefreshTokenExpiresAt.Valid {
		t := r.RefreshTokenExpiresAt.Time
		p.RefreshTokenExpiresAt = &t
	}
	if r.ExternalID.Valid {
		e := r.ExternalID.String
		p.ExternalID = &e
	}
	return p
}
