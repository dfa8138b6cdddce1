package auditinfra_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alebhayan/King-Laminaat/pkg/audit"
	"github.com/alebhayan/King-Laminaat/pkg/audit/auditinfra"
	"github.com/alebhayan/King-Laminaat/pkg/fsx/fsxlocal"
	"github.com/alebhayan/King-Laminaat/pkg/logx"
	"github.com/jmoiron/sqlx"
)

var received = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func record(id string, sev audit.Severity) audit.Record {
	e := audit.Envelope{
		ID:         id,
		OccurredAt: received.Add(-time.Second),
		ReceivedAt: received,
		Type:       audit.EventLoginFailed,
		Severity:   sev,
		TenantID:   "acme",
		Source:     "auth-api",
		Tags:       audit.TagAuthentication | audit.TagFailure,
		Payload:    json.RawMessage(`{"reason":"bad_password"}`),
	}
	data, _ := json.Marshal(e)
	return audit.Record{Envelope: e, Data: data}
}

func TestPostgresSinkInsertsBatch(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer raw.Close()
	sink := auditinfra.NewPostgresSink(sqlx.NewDb(raw, "postgres"))

	mock.ExpectExec("INSERT INTO audit_events").WillReturnResult(sqlmock.NewResult(0, 2))

	if err := sink.WriteBatch(context.Background(), []audit.Record{record("01A", audit.SeverityWarn), record("01B", audit.SeverityWarn)}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresSinkSplitsLargeBatches(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer raw.Close()
	sink := auditinfra.NewPostgresSink(sqlx.NewDb(raw, "postgres"))

	batch := make([]audit.Record, auditinfra.MaxRowsPerInsert+1)
	for i := range batch {
		batch[i] = record(fmt.Sprintf("01%05d", i), audit.SeverityInfo)
	}
	mock.ExpectExec("INSERT INTO audit_events").WillReturnResult(sqlmock.NewResult(0, auditinfra.MaxRowsPerInsert))
	mock.ExpectExec("INSERT INTO audit_events").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := sink.WriteBatch(context.Background(), batch); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected two inserts: %v", err)
	}
}

func TestPostgresSinkWrapsFailure(t *testing.T) {
	raw, mock, _ := sqlmock.New()
	defer raw.Close()
	sink := auditinfra.NewPostgresSink(sqlx.NewDb(raw, "postgres"))

	mock.ExpectExec("INSERT INTO audit_events").WillReturnError(errors.New("connection reset"))

	err := sink.WriteBatch(context.Background(), []audit.Record{record("01A", audit.SeverityWarn)})
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestPostgresSinkSkipsEmptyBatch(t *testing.T) {
	raw, mock, _ := sqlmock.New()
	defer raw.Close()
	sink := auditinfra.NewPostgresSink(sqlx.NewDb(raw, "postgres"))

	if err := sink.WriteBatch(context.Background(), nil); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no statement expected: %v", err)
	}
}

func TestArchiveSinkWritesJSONLines(t *testing.T) {
	fs, err := fsxlocal.NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFileSystem: %v", err)
	}
	sink := auditinfra.NewArchiveSink(fs, "audit")

	if err := sink.WriteBatch(context.Background(), []audit.Record{record("01A", audit.SeverityWarn), record("01B", audit.SeverityWarn)}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	data, err := fs.ReadFile(context.Background(), "audit/2026/10/14/01A.jsonl")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var e audit.Envelope
	if err := json.Unmarshal([]byte(lines[1]), &e); err != nil || e.ID != "01B" {
		t.Fatalf("unexpected line %q: %v", lines[1], err)
	}
}

func TestLogxSinkLogsBySeverity(t *testing.T) {
	var buf bytes.Buffer
	prev := logx.GetDefaultLogger()
	l := logx.NewLogger(&logx.Config{Level: logx.LevelInfo, Format: logx.FormatJSON, TimeFormat: time.RFC3339})
	l.SetOutput(&buf)
	logx.SetDefaultLogger(l)
	defer logx.SetDefaultLogger(prev)

	if err := auditinfra.NewLogxSink().WriteBatch(context.Background(), []audit.Record{record("01A", audit.SeverityError)}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if line["level"] != "ERROR" || line["audit_id"] != "01A" || line["tenant_id"] != "acme" {
		t.Fatalf("unexpected line %v", line)
	}
}
