package dbx_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alebhayan/King-Laminaat/pkg/dbx"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func TestWithinTxCommitsAndRollsBack(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer raw.Close()
	db := sqlx.NewDb(raw, "postgres")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE things").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = dbx.WithinTx(context.Background(), db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE things SET x = 1")
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	if err := dbx.WithinTx(context.Background(), db, func(*sqlx.Tx) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !dbx.IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})) {
		t.Fatalf("expected unique violation")
	}
	if dbx.IsUniqueViolation(&pq.Error{Code: "23503"}) || dbx.IsUniqueViolation(errors.New("x")) {
		t.Fatalf("unexpected unique violation")
	}
}
