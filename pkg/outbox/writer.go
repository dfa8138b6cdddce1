package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/idx"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// Writer appends events to the outbox inside the caller's transaction. If the
// transaction rolls back the message is gone with it.
type Writer struct {
	appender Appender
	now      func() time.Time
}

func NewWriter(appender Appender) *Writer {
	return &Writer{appender: appender, now: time.Now}
}

// Add serializes evt and appends it through tx. It returns the message id.
func (w *Writer) Add(ctx context.Context, tx *sqlx.Tx, rc kernel.RequestContext, evt Event) (string, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return "", errx.Wrap(err, "failed to encode outbox payload", errx.TypeInternal).
			WithDetail("type", evt.EventType())
	}

	now := w.now().UTC()
	msg := Message{
		ID:            idx.NewULID(now),
		CreatedAt:     now,
		Type:          evt.EventType(),
		Payload:       payload,
		TenantID:      rc.TenantID,
		CorrelationID: rc.CorrelationID,
	}
	if err := w.appender.Append(ctx, tx, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}
