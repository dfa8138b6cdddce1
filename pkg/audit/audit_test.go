package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/audit"
	"github.com/alebhayan/King-Laminaat/pkg/iam/auth/authsrv"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
)

var _ authsrv.SecurityAuditor = (*audit.Emitter)(nil)

type memorySink struct {
	mu      sync.Mutex
	records []audit.Record
	batches chan int
	err     error
}

func newMemorySink() *memorySink {
	return &memorySink{batches: make(chan int, 100)}
}

func (s *memorySink) WriteBatch(_ context.Context, records []audit.Record) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.records = append(s.records, records...)
	s.mu.Unlock()
	s.batches <- len(records)
	return nil
}

func (s *memorySink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = r.Envelope.ID
	}
	return out
}

var fixedNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestFingerprint(t *testing.T) {
	token := "eyJhbGciOiJIUzI1NiJ9.payload.signature"
	fp := audit.Fingerprint(token)

	if len(fp) != audit.FingerprintLength {
		t.Fatalf("unexpected length %d", len(fp))
	}
	if fp != audit.Fingerprint(token) {
		t.Fatalf("fingerprint must be deterministic")
	}
	if fp == token || strings.Contains(token, fp) {
		t.Fatalf("fingerprint must not reveal the token")
	}
	if fp == audit.Fingerprint(token+"x") {
		t.Fatalf("different tokens should not collide")
	}
	if audit.Fingerprint("") != "" {
		t.Fatalf("empty token has no fingerprint")
	}
}

func TestPublishShedsOldestWhenFull(t *testing.T) {
	sink := newMemorySink()
	e := audit.NewEmitter(sink, audit.EmitterConfig{QueueCapacity: 3}, audit.WithClock(clock))

	done := make(chan struct{})
	go func() {
		for _, id := range []string{"1", "2", "3", "4", "5"} {
			e.Publish(audit.Envelope{ID: id, Type: audit.EventTokenIssued})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked on a full queue")
	}

	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	st := e.Stats()
	if st.Published != 5 || st.Dropped != 2 || st.Written != 3 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if got := strings.Join(sink.ids(), ","); got != "3,4,5" {
		t.Fatalf("expected the newest envelopes to survive, got %s", got)
	}
}

func TestStopAbandonsAfterDeadline(t *testing.T) {
	sink := newMemorySink()
	e := audit.NewEmitter(sink, audit.EmitterConfig{}, audit.WithClock(clock))
	for i := 0; i < 4; i++ {
		e.Publish(audit.Envelope{Type: audit.EventTokenIssued})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = e.Stop(ctx)

	if st := e.Stats(); st.Abandoned != 4 || st.Written != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestEmitterRunsPipeline(t *testing.T) {
	sink := newMemorySink()
	e := audit.NewEmitter(sink, audit.EmitterConfig{Source: "auth-api", FlushInterval: time.Hour}, audit.WithClock(clock))
	e.Start(context.Background())

	rc := kernel.RequestContext{TenantID: "acme", UserID: "u-1", CorrelationID: "c-1", TraceID: "r-1", IP: "10.0.0.1"}
	e.LoginSucceeded(rc, "access-token")
	e.RefreshTokenSubjectMismatch(rc, "u-2", "subject_mismatch")

	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(sink.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(sink.records))
	}

	login := sink.records[0].Envelope
	if login.Type != audit.EventLoginSucceeded || login.Source != "auth-api" || !login.ReceivedAt.Equal(fixedNow) {
		t.Fatalf("envelope not enriched: %+v", login)
	}
	if login.TenantID != "acme" || login.UserID != "u-1" || login.CorrelationID != "c-1" || login.TraceID != "r-1" {
		t.Fatalf("request context not carried: %+v", login)
	}
	if !login.Tags.Has(audit.TagAuthentication) || login.Tags.Has(audit.TagFailure) {
		t.Fatalf("unexpected tags %b", login.Tags)
	}
	if strings.Contains(string(sink.records[0].Data), "access-token") {
		t.Fatalf("raw token leaked into the record")
	}

	var payload map[string]string
	if err := json.Unmarshal(login.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["fingerprint"] != audit.Fingerprint("access-token") {
		t.Fatalf("unexpected payload %v", payload)
	}

	mismatch := sink.records[1].Envelope
	if mismatch.Severity != audit.SeverityError || !mismatch.Tags.Has(audit.TagSecurity|audit.TagToken) {
		t.Fatalf("unexpected mismatch envelope %+v", mismatch)
	}

	var decoded audit.Envelope
	if err := json.Unmarshal(sink.records[1].Data, &decoded); err != nil || decoded.ID != mismatch.ID {
		t.Fatalf("record data does not encode the envelope: %v", err)
	}
}

func TestEmitterFlushesFullBatches(t *testing.T) {
	sink := newMemorySink()
	e := audit.NewEmitter(sink, audit.EmitterConfig{BatchSize: 2, FlushInterval: time.Hour})
	e.Start(context.Background())
	defer e.Stop(context.Background())

	e.Publish(audit.Envelope{Type: audit.EventTokenIssued})
	e.Publish(audit.Envelope{Type: audit.EventTokenIssued})

	select {
	case n := <-sink.batches:
		if n != 2 {
			t.Fatalf("expected a batch of 2, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("full batch was not flushed")
	}
}

func TestMaskStripsSecrets(t *testing.T) {
	mask := audit.Mask(audit.DefaultMaskedKeys...)
	e := audit.Envelope{Payload: json.RawMessage(`{
		"password": "hunter2",
		"email": "al@example.com",
		"nested": {"refreshToken": "r", "keep": 1},
		"list": [{"Access-Token": "a", "id": "x"}]
	}`)}

	if err := mask(&e); err != nil {
		t.Fatalf("mask: %v", err)
	}
	for _, secret := range []string{"hunter2", `"r"`, `"a"`, "refreshToken", "password"} {
		if strings.Contains(string(e.Payload), secret) {
			t.Fatalf("payload still contains %s: %s", secret, e.Payload)
		}
	}
	for _, kept := range []string{"al@example.com", `"keep":1`, `"id":"x"`} {
		if !strings.Contains(string(e.Payload), kept) {
			t.Fatalf("payload lost %s: %s", kept, e.Payload)
		}
	}

	bad := audit.Envelope{Payload: json.RawMessage(`not json`)}
	if err := mask(&bad); err == nil {
		t.Fatalf("invalid payloads must be rejected")
	}
}

func TestSinkFailureIsCountedNotRetried(t *testing.T) {
	sink := newMemorySink()
	sink.err = errors.New("db down")
	e := audit.NewEmitter(sink, audit.EmitterConfig{})
	e.Publish(audit.Envelope{Type: audit.EventTokenRevoked})

	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if st := e.Stats(); st.SinkFailures != 1 || st.Written != 0 || st.Abandoned != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestMultiSinkWritesToAll(t *testing.T) {
	a, b := newMemorySink(), newMemorySink()
	a.err = errors.New("a failed")

	err := audit.NewMultiSink(a, nil, b).WriteBatch(context.Background(), []audit.Record{{Envelope: audit.Envelope{ID: "1"}}})
	if err == nil || !strings.Contains(err.Error(), "a failed") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(b.ids()) != 1 {
		t.Fatalf("second sink must still be written")
	}
}
