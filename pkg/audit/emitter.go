package audit

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/idx"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/alebhayan/King-Laminaat/pkg/logx"
)

const (
	DefaultQueueCapacity = 50000
	DefaultBatchSize     = 500
	DefaultFlushInterval = time.Second
	DefaultStopTimeout   = 10 * time.Second
)

type EmitterConfig struct {
	QueueCapacity int
	BatchSize     int
	FlushInterval time.Duration
	// StopTimeout bounds the final drain when the Start context is
	// cancelled instead of Stop being called.
	StopTimeout time.Duration
	Source      string
	MaskedKeys  []string
}

func (c EmitterConfig) withDefaults() EmitterConfig {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if len(c.MaskedKeys) == 0 {
		c.MaskedKeys = DefaultMaskedKeys
	}
	return c
}

// Stats are the emitter's lifetime counters.
type Stats struct {
	Published    uint64
	Dropped      uint64
	Rejected     uint64
	Written      uint64
	SinkFailures uint64
	Abandoned    uint64
}

type Option func(*Emitter)

func WithClock(now func() time.Time) Option {
	return func(e *Emitter) { e.clock = now }
}

// Emitter is the security audit entry point. Publish never blocks; when the
// queue is full the oldest envelope is discarded.
type Emitter struct {
	cfg      EmitterConfig
	queue    *ring
	pipeline *Pipeline
	clock    func() time.Time

	published    atomic.Uint64
	dropped      atomic.Uint64
	rejected     atomic.Uint64
	written      atomic.Uint64
	sinkFailures atomic.Uint64
	abandoned    atomic.Uint64

	mu       sync.Mutex
	started  bool
	stopped  bool
	quit     chan struct{}
	done     chan struct{}
	drainCtx context.Context
}

func NewEmitter(sink Sink, cfg EmitterConfig, opts ...Option) *Emitter {
	cfg = cfg.withDefaults()
	e := &Emitter{
		cfg:   cfg,
		queue: newRing(cfg.QueueCapacity),
		clock: time.Now,
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.pipeline = NewPipeline(sink, Enrich(cfg.Source, e.clock), Mask(cfg.MaskedKeys...))
	return e
}

// Publish enqueues env, assigning an id and occurrence time when missing.
func (e *Emitter) Publish(env Envelope) {
	if env.OccurredAt.IsZero() {
		env.OccurredAt = e.clock().UTC()
	}
	if env.ID == "" {
		env.ID = idx.NewULID(env.OccurredAt)
	}

	e.published.Add(1)
	eventsPublished.Inc()
	if e.queue.push(env) {
		e.dropped.Add(1)
		eventsDropped.WithLabelValues("queue_full").Inc()
	}
	queueDepth.Set(float64(e.queue.len()))
}

// Start launches the consumer. Later calls are no-ops.
func (e *Emitter) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true
	go e.run(ctx)
}

// Stop drains the queue until ctx is done, then abandons what is left.
func (e *Emitter) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	started := e.started
	e.drainCtx = ctx
	close(e.quit)
	e.mu.Unlock()

	if !started {
		e.drain(ctx)
		return nil
	}

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Emitter) Stats() Stats {
	return Stats{
		Published:    e.published.Load(),
		Dropped:      e.dropped.Load(),
		Rejected:     e.rejected.Load(),
		Written:      e.written.Load(),
		SinkFailures: e.sinkFailures.Load(),
		Abandoned:    e.abandoned.Load(),
	}
}

func (e *Emitter) run(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.quit:
			e.drain(e.drainCtx)
			return
		case <-ctx.Done():
			dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.StopTimeout)
			e.drain(dctx)
			cancel()
			return
		case <-e.queue.ready:
			if e.queue.len() >= e.cfg.BatchSize {
				e.flush(ctx)
			}
		case <-ticker.C:
			e.flush(ctx)
		}
	}
}

// flush processes full batches until the queue is empty.
func (e *Emitter) flush(ctx context.Context) {
	for ctx.Err() == nil {
		batch := e.queue.pop(e.cfg.BatchSize)
		if len(batch) == 0 {
			return
		}
		e.process(ctx, batch)
	}
}

func (e *Emitter) drain(ctx context.Context) {
	e.flush(ctx)
	if left := e.queue.pop(0); len(left) > 0 {
		e.abandoned.Add(uint64(len(left)))
		eventsDropped.WithLabelValues("abandoned").Add(float64(len(left)))
		logx.WithField("count", len(left)).Warn("audit drain deadline reached, events abandoned")
	}
	queueDepth.Set(0)
}

func (e *Emitter) process(ctx context.Context, batch []Envelope) {
	written, rejected, err := e.pipeline.Process(ctx, batch)
	queueDepth.Set(float64(e.queue.len()))

	if rejected > 0 {
		e.rejected.Add(uint64(rejected))
		eventsDropped.WithLabelValues("rejected").Add(float64(rejected))
	}
	if err != nil {
		e.sinkFailures.Add(1)
		sinkFailures.Inc()
		eventsDropped.WithLabelValues("sink_failure").Add(float64(len(batch) - rejected))
		logx.WithField("batch_size", len(batch)).WithError(err).Error("audit sink write failed")
		return
	}
	e.written.Add(uint64(written))
	eventsWritten.Add(float64(written))
}

func (e *Emitter) publish(typ EventType, sev Severity, rc kernel.RequestContext, payload map[string]string) {
	data, _ := json.Marshal(payload)
	e.Publish(newEnvelope("", time.Time{}, typ, sev, rc, data))
}

func (e *Emitter) LoginSucceeded(rc kernel.RequestContext, accessToken string) {
	e.publish(EventLoginSucceeded, SeverityInfo, rc, map[string]string{
		"fingerprint": Fingerprint(accessToken),
		"ip":          rc.IP,
		"user_agent":  rc.UserAgent,
	})
}

func (e *Emitter) LoginFailed(rc kernel.RequestContext, email, reason string) {
	e.publish(EventLoginFailed, SeverityWarn, rc, map[string]string{
		"email":  email,
		"reason": reason,
		"ip":     rc.IP,
	})
}

func (e *Emitter) TokenIssued(rc kernel.RequestContext, accessToken, grant string) {
	e.publish(EventTokenIssued, SeverityInfo, rc, map[string]string{
		"fingerprint": Fingerprint(accessToken),
		"grant_type":  grant,
	})
}

func (e *Emitter) TokenRevoked(rc kernel.RequestContext, accessToken, reason string) {
	e.publish(EventTokenRevoked, SeverityInfo, rc, map[string]string{
		"fingerprint": Fingerprint(accessToken),
		"reason":      reason,
	})
}

// RefreshTokenSubjectMismatch records a refresh attempt whose access token
// hint named a different subject than the refresh token resolved to.
func (e *Emitter) RefreshTokenSubjectMismatch(rc kernel.RequestContext, presentedSubject kernel.UserID, reason string) {
	e.publish(EventRefreshSubjectMismatch, SeverityError, rc, map[string]string{
		"presented_subject": presentedSubject.String(),
		"resolved_subject":  rc.UserID.String(),
		"reason":            reason,
		"ip":                rc.IP,
	})
}
