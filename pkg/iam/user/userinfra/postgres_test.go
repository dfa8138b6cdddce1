package userinfra_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/iam/user"
	"github.com/alebhayan/King-Laminaat/pkg/iam/user/userinfra"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var principalColumns = []string{
	"id", "tenant_id", "email", "normalized_email", "display_name", "password_hash",
	"is_active", "email_confirmed", "roles", "refresh_token_hash", "refresh_token_expires_at",
	"external_id", "created_at", "updated_at",
}

func newRepo(t *testing.T) (*userinfra.PostgresUserRepository, *sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { raw.Close() })
	db := sqlx.NewDb(raw, "postgres")
	return userinfra.NewPostgresUserRepository(db), db, mock
}

func TestFindByEmailScopesToTenant(t *testing.T) {
	repo, _, mock := newRepo(t)
	expires := time.Now().Add(time.Hour).UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM principals WHERE tenant_id = $1 AND normalized_email = $2")).
		WithArgs("acme", "alice@example.com").
		WillReturnRows(sqlmock.NewRows(principalColumns).AddRow(
			"u-1", "acme", "Alice@Example.com", "alice@example.com", "Alice", "$2a$hash",
			true, true, "{admin,viewer}", "abc", expires, nil, time.Now(), time.Now(),
		))

	p, err := repo.FindByEmail(context.Background(), "acme", "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if p.ID != "u-1" || len(p.Roles) != 2 || p.Roles[0] != "admin" {
		t.Fatalf("unexpected principal %+v", p)
	}
	if p.RefreshTokenHash == nil || *p.RefreshTokenHash != "abc" || p.ExternalID != nil {
		t.Fatalf("nullable columns mapped wrong: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByRefreshTokenHashNotFound(t *testing.T) {
	repo, _, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("refresh_token_hash = $2")).
		WithArgs("acme", "nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByRefreshTokenHash(context.Background(), "acme", "nope")
	if !errx.IsCode(err, user.CodeUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRotateRefreshTokenIsConditional(t *testing.T) {
	repo, _, mock := newRepo(t)
	exp := time.Now().Add(time.Hour)

	rotate := regexp.QuoteMeta("WHERE tenant_id = $1 AND id = $2 AND refresh_token_hash = $3")
	mock.ExpectExec(rotate).
		WithArgs("acme", "u-1", "old", "new", exp, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(rotate).
		WithArgs("acme", "u-1", "old", "newer", exp, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.RotateRefreshToken(context.Background(), "acme", "u-1", "old", "new", exp)
	if err != nil || !ok {
		t.Fatalf("first rotation should win: ok=%v err=%v", ok, err)
	}
	ok, err = repo.RotateRefreshToken(context.Background(), "acme", "u-1", "old", "newer", exp)
	if err != nil || ok {
		t.Fatalf("second rotation must observe the swap: ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetRefreshTokenMissingPrincipal(t *testing.T) {
	repo, _, mock := newRepo(t)
	mock.ExpectExec("UPDATE principals").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetRefreshToken(context.Background(), "acme", "ghost", "h", time.Now())
	if !errx.IsCode(err, user.CodeUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClearRefreshToken(t *testing.T) {
	repo, _, mock := newRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("SET refresh_token_hash = NULL")).
		WithArgs("acme", "u-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ClearRefreshToken(context.Background(), "acme", "u-1"); err != nil {
		t.Fatalf("ClearRefreshToken: %v", err)
	}
}

func TestCreateMapsUniqueViolation(t *testing.T) {
	repo, db, mock := newRepo(t)
	mock.ExpectExec("INSERT INTO principals").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), db, user.Principal{ID: "u-2", TenantID: "acme", NormalizedEmail: "bob@example.com"})
	if !errx.IsCode(err, user.CodeEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
}

func TestBcryptPasswordHasher(t *testing.T) {
	h := userinfra.NewBcryptPasswordHasher(4)

	hash, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("hash must not equal password")
	}
	if !h.Compare(hash, "correct horse") || h.Compare(hash, "wrong") {
		t.Fatalf("Compare mismatch")
	}
}
