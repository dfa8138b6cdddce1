package outboxinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/alebhayan/King-Laminaat/pkg/outbox"
	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps outbox_messages and inbox_messages in Postgres.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts m through q, which should be the producer's transaction.
func (s *PostgresStore) Append(ctx context.Context, q sqlx.ExtContext, m outbox.Message) error {
	query := `
		INSERT INTO outbox_messages (id, created_at, type, payload, tenant_id, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := q.ExecContext(ctx, query, m.ID, m.CreatedAt, m.Type, []byte(m.Payload), m.TenantID.String(), nullString(m.CorrelationID))
	if err != nil {
		return outbox.ErrStoreFailure("append", err).WithDetail("type", m.Type)
	}
	return nil
}

func (s *PostgresStore) Begin(ctx context.Context) (outbox.StoreTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{tx: tx}, nil
}

type postgresTx struct {
	tx *sqlx.Tx
}

func (t *postgresTx) LockPending(ctx context.Context, limit int) ([]outbox.Message, error) {
	query := `
		SELECT id, created_at, type, payload, tenant_id, correlation_id,
			processed_at, retry_count, last_error, dead
		FROM outbox_messages
		WHERE processed_at IS NULL AND dead = false
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	var rows []messageRow
	if err := t.tx.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, err
	}

	out := make([]outbox.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *postgresTx) InboxExists(ctx context.Context, eventID, handlerName string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM inbox_messages WHERE event_id = $1 AND handler_name = $2)`

	var exists bool
	if err := t.tx.GetContext(ctx, &exists, query, eventID, handlerName); err != nil {
		return false, err
	}
	return exists, nil
}

func (t *postgresTx) InsertInbox(ctx context.Context, m outbox.InboxMessage) error {
	query := `
		INSERT INTO inbox_messages (event_id, handler_name, processed_at, tenant_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, handler_name) DO NOTHING`

	_, err := t.tx.ExecContext(ctx, query, m.EventID, m.HandlerName, m.ProcessedAt, m.TenantID.String())
	return err
}

func (t *postgresTx) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE outbox_messages SET processed_at = $2 WHERE id = $1`, id, at)
	return err
}

func (t *postgresTx) MarkFailed(ctx context.Context, id string, retryCount int, lastError string, dead bool) error {
	query := `
		UPDATE outbox_messages
		SET retry_count = $2, last_error = $3, dead = $4
		WHERE id = $1`

	_, err := t.tx.ExecContext(ctx, query, id, retryCount, lastError, dead)
	return err
}

func (t *postgresTx) Commit() error   { return t.tx.Commit() }
func (t *postgresTx) Rollback() error { return t.tx.Rollback() }

type messageRow struct {
	ID            string         `db:"id"`
	CreatedAt     time.Time      `db:"created_at"`
	Type          string         `db:"type"`
	Payload       []byte         `db:"payload"`
	TenantID      string         `db:"tenant_id"`
	CorrelationID sql.NullString `db:"correlation_id"`
	ProcessedAt   sql.NullTime   `db:"processed_at"`
	RetryCount    int            `db:"retry_count"`
	LastError     sql.NullString `db:"last_error"`
	Dead          bool           `db:"dead"`
}

func (r messageRow) toDomain() outbox.Message {
	m := outbox.Message{
		ID:            r.ID,
		CreatedAt:     r.CreatedAt,
		Type:          r.Type,
		Payload:       json.RawMessage(r.Payload),
		TenantID:      kernel.TenantID(r.TenantID),
		CorrelationID: r.CorrelationID.String,
		RetryCount:    r.RetryCount,
		LastError:     r.LastError.String,
		Dead:          r.Dead,
	}
	if r.ProcessedAt.Valid {
		t := r.ProcessedAt.Time
		m.ProcessedAt = &t
	}
	return m
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
