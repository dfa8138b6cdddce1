// Package audit records security events without ever blocking the request
// path. Events are queued in a bounded ring, drained by one consumer and
// pushed through enrich, mask and serialize stages into a Sink.
package audit

import (
	"encoding/json"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/kernel"
)

type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

type EventType string

const (
	EventLoginSucceeded         EventType = "auth.login_succeeded"
	EventLoginFailed            EventType = "auth.login_failed"
	EventTokenIssued            EventType = "auth.token_issued"
	EventTokenRevoked           EventType = "auth.token_revoked"
	EventRefreshSubjectMismatch EventType = "auth.refresh_subject_mismatch"
)

// Tags is a bitmask used to filter the audit trail without parsing payloads.
type Tags uint32

const (
	TagAuthentication Tags = 1 << iota
	TagToken
	TagFailure
	TagSecurity
)

func (t Tags) Has(tag Tags) bool {
	return t&tag == tag
}

// Envelope is one immutable audit record.
type Envelope struct {
	ID            string          `json:"id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	ReceivedAt    time.Time       `json:"received_at"`
	Type          EventType       `json:"type"`
	Severity      Severity        `json:"severity"`
	TenantID      kernel.TenantID `json:"tenant_id,omitempty"`
	UserID        kernel.UserID   `json:"user_id,omitempty"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Source        string          `json:"source"`
	Tags          Tags            `json:"tags"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Record is an envelope after the pipeline ran, with its JSON encoding.
type Record struct {
	Envelope Envelope
	Data     []byte
}

func newEnvelope(id string, at time.Time, typ EventType, sev Severity, rc kernel.RequestContext, payload json.RawMessage) Envelope {
	return Envelope{
		ID:            id,
		OccurredAt:    at,
		Type:          typ,
		Severity:      sev,
		TenantID:      rc.TenantID,
		UserID:        rc.UserID,
		TraceID:       rc.TraceID,
		CorrelationID: rc.CorrelationID,
		Payload:       payload,
	}
}
