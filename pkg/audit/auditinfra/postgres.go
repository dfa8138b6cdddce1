package auditinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/audit"
	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/jmoiron/sqlx"
)

// MaxRowsPerInsert keeps one insert under the Postgres limit of 65535 bind
// parameters (12 per row).
const MaxRowsPerInsert = 1000

// PostgresSink appends audit records to audit_events with multi-row inserts
// of at most MaxRowsPerInsert rows.
type PostgresSink struct {
	db *sqlx.DB
}

func NewPostgresSink(db *sqlx.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) WriteBatch(ctx context.Context, records []audit.Record) error {
	if len(records) == 0 {
		return nil
	}

	for start := 0; start < len(records); start += MaxRowsPerInsert {
		end := min(start+MaxRowsPerInsert, len(records))
		if err := s.insert(ctx, records[start:end]); err != nil {
			return err.WithDetail("offset", start)
		}
	}
	return nil
}

func (s *PostgresSink) insert(ctx context.Context, records []audit.Record) *errx.Error {
	query := `
		INSERT INTO audit_events (
			id, occurred_at, received_at, type, severity, tenant_id, user_id,
			trace_id, correlation_id, source, tags, payload
		) VALUES (
			:id, :occurred_at, :received_at, :type, :severity, :tenant_id, :user_id,
			:trace_id, :correlation_id, :source, :tags, :payload
		)`

	rows := make([]auditRow, len(records))
	for i, r := range records {
		rows[i] = toRow(r.Envelope)
	}

	if _, err := sqlx.NamedExecContext(ctx, s.db, query, rows); err != nil {
		return errx.Wrap(err, "failed to insert audit events", errx.TypeInternal).
			WithDetail("count", len(rows))
	}
	return nil
}

type auditRow struct {
	ID            string         `db:"id"`
	OccurredAt    time.Time      `db:"occurred_at"`
	ReceivedAt    time.Time      `db:"received_at"`
	Type          string         `db:"type"`
	Severity      string         `db:"severity"`
	TenantID      sql.NullString `db:"tenant_id"`
	UserID        sql.NullString `db:"user_id"`
	TraceID       sql.NullString `db:"trace_id"`
	CorrelationID sql.NullString `db:"correlation_id"`
	Source        string         `db:"source"`
	Tags          int64          `db:"tags"`
	Payload       []byte         `db:"payload"`
}

func toRow(e audit.Envelope) auditRow {
	payload := []byte(e.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return auditRow{
		ID:            e.ID,
		OccurredAt:    e.OccurredAt,
		ReceivedAt:    e.ReceivedAt,
		Type:          string(e.Type),
		Severity:      string(e.Severity),
		TenantID:      nullString(e.TenantID.String()),
		UserID:        nullString(e.UserID.String()),
		TraceID:       nullString(e.TraceID),
		CorrelationID: nullString(e.CorrelationID),
		Source:        e.Source,
		Tags:          int64(e.Tags),
		Payload:       payload,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
