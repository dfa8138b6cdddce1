// Package outbox delivers integration events at least once. Producers append
// messages inside their own database transaction; the Dispatcher later claims
// pending messages and hands them to the handlers registered for their type,
// recording an inbox marker per handler so a redelivery never invokes the same
// handler twice.
package outbox

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// Event is a payload that can be written to the outbox.
type Event interface {
	EventType() string
}

// Message is one row of the outbox table. Rows are never deleted.
type Message struct {
	ID            string          `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	TenantID      kernel.TenantID `json:"tenant_id"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	RetryCount    int             `json:"retry_count"`
	LastError     string          `json:"last_error,omitempty"`
	Dead          bool            `json:"dead"`
}

// RequestContext rebuilds the context the message was produced under.
func (m Message) RequestContext() kernel.RequestContext {
	return kernel.RequestContext{TenantID: m.TenantID, CorrelationID: m.CorrelationID}
}

// InboxMessage marks that HandlerName has consumed EventID.
type InboxMessage struct {
	EventID     string
	HandlerName string
	ProcessedAt time.Time
	TenantID    kernel.TenantID
}

// Appender writes a message using q, normally the producer's transaction.
type Appender interface {
	Append(ctx context.Context, q sqlx.ExtContext, m Message) error
}

// Store opens dispatch transactions.
type Store interface {
	Begin(ctx context.Context) (StoreTx, error)
}

// StoreTx is the unit of work of one dispatch run.
type StoreTx interface {
	// LockPending claims up to limit unprocessed, live messages, oldest first,
	// skipping rows locked by another dispatcher.
	LockPending(ctx context.Context, limit int) ([]Message, error)
	InboxExists(ctx context.Context, eventID, handlerName string) (bool, error)
	InsertInbox(ctx context.Context, m InboxMessage) error
	MarkProcessed(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, retryCount int, lastError string, dead bool) error
	Commit() error
	Rollback() error
}

var ErrRegistry = errx.NewRegistry("OUTBOX")

var (
	CodeDeliveryFailed = ErrRegistry.Register("DELIVERY_FAILED", errx.TypeExternal, http.StatusBadGateway, "Outbox handler failed")
	CodeNoDecoder      = ErrRegistry.Register("NO_DECODER", errx.TypeInternal, http.StatusInternalServerError, "Outbox payload could not be decoded")
	CodeStoreFailure   = ErrRegistry.Register("STORE_FAILURE", errx.TypeInternal, http.StatusInternalServerError, "Outbox store failure")
)

func ErrDeliveryFailed(handler string, cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeDeliveryFailed, cause).WithDetail("handler", handler)
}

func ErrNoDecoder(eventType string, cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeNoDecoder, cause).WithDetail("type", eventType)
}

func ErrStoreFailure(op string, cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeStoreFailure, cause).WithDetail("op", op)
}
