package auditinfra

import (
	"context"

	"github.com/alebhayan/King-Laminaat/pkg/audit"
	"github.com/alebhayan/King-Laminaat/pkg/logx"
)

// LogxSink writes each record as a structured log line. Meant for local
// development.
type LogxSink struct{}

func NewLogxSink() *LogxSink {
	return &LogxSink{}
}

func (s *LogxSink) WriteBatch(_ context.Context, records []audit.Record) error {
	for _, r := range records {
		e := r.Envelope
		entry := logx.WithFields(logx.Fields{
			"audit_event":    e.Type,
			"audit_id":       e.ID,
			"severity":       e.Severity,
			"tenant_id":      e.TenantID,
			"user_id":        e.UserID,
			"correlation_id": e.CorrelationID,
			"trace_id":       e.TraceID,
			"tags":           e.Tags,
			"payload":        string(e.Payload),
		})

		switch e.Severity {
		case audit.SeverityError:
			entry.Error("Audit: " + string(e.Type))
		case audit.SeverityWarn:
			entry.Warn("Audit: " + string(e.Type))
		default:
			entry.Info("Audit: " + string(e.Type))
		}
	}
	return nil
}
