package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/logx"
)

// Stage transforms an envelope in place. An error drops the envelope.
type Stage func(e *Envelope) error

// DefaultMaskedKeys are payload keys removed before anything is persisted.
// Matching ignores case, underscores and dashes.
var DefaultMaskedKeys = []string{"password", "token", "refresh_token", "access_token", "secret", "authorization"}

// Enrich stamps the received time and source and adds the tags implied by
// the event type.
func Enrich(source string, clock func() time.Time) Stage {
	if clock == nil {
		clock = time.Now
	}
	return func(e *Envelope) error {
		e.ReceivedAt = clock().UTC()
		if e.Source == "" {
			e.Source = source
		}
		e.Tags |= tagsFor(e.Type)
		return nil
	}
}

func tagsFor(t EventType) Tags {
	switch t {
	case EventLoginSucceeded:
		return TagAuthentication
	case EventLoginFailed:
		return TagAuthentication | TagFailure | TagSecurity
	case EventTokenIssued, EventTokenRevoked:
		return TagToken
	case EventRefreshSubjectMismatch:
		return TagToken | TagFailure | TagSecurity
	default:
		return 0
	}
}

// Mask strips keys from the payload at any depth. Payloads that are not
// valid JSON are rejected.
func Mask(keys ...string) Stage {
	masked := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		masked[normalizeKey(k)] = struct{}{}
	}

	return func(e *Envelope) error {
		if len(e.Payload) == 0 {
			return nil
		}
		var v interface{}
		if err := json.Unmarshal(e.Payload, &v); err != nil {
			return err
		}
		out, err := json.Marshal(strip(v, masked))
		if err != nil {
			return err
		}
		e.Payload = out
		return nil
	}
}

func strip(v interface{}, masked map[string]struct{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if _, ok := masked[normalizeKey(k)]; ok {
				delete(val, k)
				continue
			}
			val[k] = strip(inner, masked)
		}
		return val
	case []interface{}:
		for i := range val {
			val[i] = strip(val[i], masked)
		}
		return val
	default:
		return v
	}
}

func normalizeKey(k string) string {
	k = strings.ToLower(k)
	k = strings.ReplaceAll(k, "_", "")
	return strings.ReplaceAll(k, "-", "")
}

// Pipeline runs its stages over a batch, serializes what survives and hands
// the records to the sink.
type Pipeline struct {
	stages []Stage
	sink   Sink
}

func NewPipeline(sink Sink, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, sink: sink}
}

// Process returns the number of records handed to the sink and the number
// of envelopes rejected by a stage.
func (p *Pipeline) Process(ctx context.Context, batch []Envelope) (written, rejected int, err error) {
	records := make([]Record, 0, len(batch))
	for i := range batch {
		e := batch[i]
		if err := p.apply(&e); err != nil {
			rejected++
			logx.WithFields(logx.Fields{"audit_id": e.ID, "type": e.Type}).
				WithError(err).
				Warn("audit envelope rejected")
			continue
		}
		data, err := json.Marshal(e)
		if err != nil {
			rejected++
			continue
		}
		records = append(records, Record{Envelope: e, Data: data})
	}

	if len(records) == 0 {
		return 0, rejected, nil
	}
	if err := p.sink.WriteBatch(ctx, records); err != nil {
		return 0, rejected, err
	}
	return len(records), rejected, nil
}

func (p *Pipeline) apply(e *Envelope) error {
	for _, stage := range p.stages {
		if err := stage(e); err != nil {
			return err
		}
	}
	return nil
}
