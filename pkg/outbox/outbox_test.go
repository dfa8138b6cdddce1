package outbox_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/alebhayan/King-Laminaat/pkg/outbox"
	"github.com/jmoiron/sqlx"
)

type memStore struct {
	mu       sync.Mutex
	messages []*outbox.Message
	inbox    map[string]outbox.InboxMessage
	commits  int
}

func newMemStore(msgs ...outbox.Message) *memStore {
	s := &memStore{inbox: make(map[string]outbox.InboxMessage)}
	for i := range msgs {
		m := msgs[i]
		s.messages = append(s.messages, &m)
	}
	return s
}

func (s *memStore) Append(_ context.Context, _ sqlx.ExtContext, m outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, &m)
	return nil
}

func (s *memStore) Begin(context.Context) (outbox.StoreTx, error) { return &memTx{s: s}, nil }

func (s *memStore) get(id string) *outbox.Message {
	for _, m := range s.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

type memTx struct{ s *memStore }

func (t *memTx) LockPending(_ context.Context, limit int) ([]outbox.Message, error) {
	var out []outbox.Message
	for _, m := range t.s.messages {
		if m.ProcessedAt == nil && !m.Dead && len(out) < limit {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (t *memTx) InboxExists(_ context.Context, eventID, handler string) (bool, error) {
	_, ok := t.s.inbox[eventID+"/"+handler]
	return ok, nil
}

func (t *memTx) InsertInbox(_ context.Context, m outbox.InboxMessage) error {
	t.s.inbox[m.EventID+"/"+m.HandlerName] = m
	return nil
}

func (t *memTx) MarkProcessed(_ context.Context, id string, at time.Time) error {
	t.s.get(id).ProcessedAt = &at
	return nil
}

func (t *memTx) MarkFailed(_ context.Context, id string, retries int, lastErr string, dead bool) error {
	m := t.s.get(id)
	m.RetryCount, m.LastError, m.Dead = retries, lastErr, dead
	return nil
}

func (t *memTx) Commit() error   { t.s.commits++; return nil }
func (t *memTx) Rollback() error { return nil }

type pinged struct {
	Value string `json:"value"`
}

func (pinged) EventType() string { return "test.pinged" }

func msg(id string) outbox.Message {
	return outbox.Message{ID: id, Type: "test.pinged", Payload: []byte(`{"value":"x"}`), TenantID: "acme", CreatedAt: time.Now()}
}

func TestDispatchDeadLettersAtExactlyMaxRetries(t *testing.T) {
	store := newMemStore(msg("m1"))
	reg := outbox.NewRegistry()
	calls := 0
	outbox.Subscribe(reg, "always-fails", func(context.Context, outbox.Message, pinged) error {
		calls++
		return errors.New("smtp down")
	})
	d := outbox.NewDispatcher(store, reg, outbox.DispatcherConfig{MaxRetries: 3})
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		res, err := d.DispatchOnce(ctx)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if res.Failed != 1 || res.Dead != 0 {
			t.Fatalf("run %d: unexpected result %+v", i, res)
		}
		if m := store.get("m1"); m.RetryCount != i || m.Dead {
			t.Fatalf("run %d: retry=%d dead=%v", i, m.RetryCount, m.Dead)
		}
	}

	res, _ := d.DispatchOnce(ctx)
	if res.Dead != 1 {
		t.Fatalf("third failure must dead-letter, got %+v", res)
	}
	m := store.get("m1")
	if !m.Dead || m.RetryCount != 3 || !strings.Contains(m.LastError, "smtp down") {
		t.Fatalf("unexpected dead message %+v", m)
	}

	res, _ = d.DispatchOnce(ctx)
	if res.Claimed != 0 || calls != 3 {
		t.Fatalf("dead messages must not be claimed again: %+v calls=%d", res, calls)
	}
}

func TestDispatchInboxIsEffectivelyOnce(t *testing.T) {
	store := newMemStore(msg("m1"))
	reg := outbox.NewRegistry()

	var aCalls, bCalls int
	outbox.Subscribe(reg, "a", func(context.Context, outbox.Message, pinged) error {
		aCalls++
		return nil
	})
	outbox.Subscribe(reg, "b", func(context.Context, outbox.Message, pinged) error {
		bCalls++
		if bCalls == 1 {
			return errors.New("transient")
		}
		return nil
	})
	d := outbox.NewDispatcher(store, reg, outbox.DispatcherConfig{})

	if _, err := d.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if store.get("m1").ProcessedAt != nil {
		t.Fatalf("message must stay pending after a handler failure")
	}

	res, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Processed != 1 {
		t.Fatalf("expected processed on second run, got %+v", res)
	}
	if aCalls != 1 || bCalls != 2 {
		t.Fatalf("handler a must run once and b twice: a=%d b=%d", aCalls, bCalls)
	}
	if len(store.inbox) != 2 {
		t.Fatalf("expected two inbox markers, got %d", len(store.inbox))
	}
}

func TestDispatchHandlerTimeoutLeavesMessagePending(t *testing.T) {
	store := newMemStore(msg("m1"))
	reg := outbox.NewRegistry()

	var calls atomic.Int32
	outbox.Subscribe(reg, "slow", func(ctx context.Context, _ outbox.Message, _ pinged) error {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	d := outbox.NewDispatcher(store, reg, outbox.DispatcherConfig{HandlerTimeout: 20 * time.Millisecond})

	res, err := d.DispatchOnce(context.Background())
	if err != nil || res.Failed != 1 {
		t.Fatalf("timeout must count as failure: %+v %v", res, err)
	}
	m := store.get("m1")
	if m.ProcessedAt != nil || m.RetryCount != 1 || !strings.Contains(m.LastError, context.DeadlineExceeded.Error()) {
		t.Fatalf("unexpected message after timeout %+v", m)
	}
	if len(store.inbox) != 0 {
		t.Fatalf("a timed out handler must not get an inbox marker")
	}

	res, err = d.DispatchOnce(context.Background())
	if err != nil || res.Processed != 1 {
		t.Fatalf("retry should succeed: %+v %v", res, err)
	}
	if calls.Load() != 2 {
		t.Fatalf("handler must be invoked again after a timeout, calls=%d", calls.Load())
	}
}

func TestDispatchUndecodablePayloadFails(t *testing.T) {
	bad := msg("m1")
	bad.Payload = []byte(`not json`)
	store := newMemStore(bad)
	reg := outbox.NewRegistry()
	outbox.Subscribe(reg, "h", func(context.Context, outbox.Message, pinged) error { return nil })

	res, err := outbox.NewDispatcher(store, reg, outbox.DispatcherConfig{}).DispatchOnce(context.Background())
	if err != nil || res.Failed != 1 {
		t.Fatalf("expected one failure, got %+v %v", res, err)
	}
	if !strings.Contains(store.get("m1").LastError, outbox.CodeNoDecoder.Code) {
		t.Fatalf("last error should carry the decode code: %q", store.get("m1").LastError)
	}
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	store := newMemStore(msg("m1"))
	reg := outbox.NewRegistry()
	outbox.Subscribe(reg, "h", func(context.Context, outbox.Message, pinged) error { panic("boom") })

	res, err := outbox.NewDispatcher(store, reg, outbox.DispatcherConfig{}).DispatchOnce(context.Background())
	if err != nil || res.Failed != 1 {
		t.Fatalf("panic must count as failure: %+v %v", res, err)
	}
}

func TestDispatchWithoutHandlersMarksProcessed(t *testing.T) {
	store := newMemStore(msg("m1"))
	res, err := outbox.NewDispatcher(store, outbox.NewRegistry(), outbox.DispatcherConfig{}).DispatchOnce(context.Background())
	if err != nil || res.Processed != 1 {
		t.Fatalf("unexpected result %+v %v", res, err)
	}
}

func TestWriterAddCarriesRequestContext(t *testing.T) {
	store := newMemStore()
	w := outbox.NewWriter(store)
	rc := kernel.RequestContext{TenantID: "acme", CorrelationID: "corr-1"}

	id, err := w.Add(context.Background(), nil, rc, pinged{Value: "hello"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	m := store.get(id)
	if m == nil {
		t.Fatalf("message %s not appended", id)
	}
	if m.Type != "test.pinged" || m.TenantID != "acme" || m.CorrelationID != "corr-1" {
		t.Fatalf("unexpected message %+v", m)
	}
	if string(m.Payload) != `{"value":"hello"}` {
		t.Fatalf("unexpected payload %s", m.Payload)
	}
}

func TestRegistryReplacesSameNamedHandler(t *testing.T) {
	reg := outbox.NewRegistry()
	reg.Register("t", outbox.Handler{Name: "h", Handle: func(context.Context, outbox.Message) error { return errors.New("old") }})
	reg.Register("t", outbox.Handler{Name: "h", Handle: func(context.Context, outbox.Message) error { return nil }})

	hs := reg.Handlers("t")
	if len(hs) != 1 || hs[0].Handle(context.Background(), outbox.Message{}) != nil {
		t.Fatalf("expected the replacement handler only")
	}
	if errx.CodeOf(outbox.ErrStoreFailure("x", errors.New("y"))) != outbox.CodeStoreFailure.Code {
		t.Fatalf("unexpected store failure code")
	}
}
