package outbox

import (
	"context"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/asyncx"
	"github.com/alebhayan/King-Laminaat/pkg/logx"
)

const (
	DefaultBatchSize      = 100
	DefaultMaxRetries     = 5
	DefaultHandlerTimeout = 30 * time.Second
)

// DispatcherConfig bounds one dispatch run.
type DispatcherConfig struct {
	BatchSize      int
	MaxRetries     int
	HandlerTimeout time.Duration
}

// Result summarizes one dispatch run.
type Result struct {
	Claimed   int
	Processed int
	Failed    int
	Dead      int
}

// Dispatcher delivers pending outbox messages to their handlers.
type Dispatcher struct {
	store    Store
	registry *Registry
	cfg      DispatcherConfig
	now      func() time.Time
}

func NewDispatcher(store Store, registry *Registry, cfg DispatcherConfig) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = DefaultHandlerTimeout
	}
	return &Dispatcher{store: store, registry: registry, cfg: cfg, now: time.Now}
}

// DispatchOnce claims one batch and delivers it. Claiming and all bookkeeping
// happen in a single transaction; handler side effects that ran before a
// failed commit are repeated on the next run.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (Result, error) {
	var res Result

	tx, err := d.store.Begin(ctx)
	if err != nil {
		return res, ErrStoreFailure("begin", err)
	}
	defer tx.Rollback()

	msgs, err := tx.LockPending(ctx, d.cfg.BatchSize)
	if err != nil {
		return res, ErrStoreFailure("lock_pending", err)
	}
	res.Claimed = len(msgs)
	if len(msgs) == 0 {
		return res, nil
	}

	for _, msg := range msgs {
		if ctx.Err() != nil {
			break
		}

		deliverErr := d.deliver(ctx, tx, msg)
		if deliverErr == nil {
			if err := tx.MarkProcessed(ctx, msg.ID, d.now().UTC()); err != nil {
				return res, ErrStoreFailure("mark_processed", err)
			}
			messagesProcessed.Inc()
			res.Processed++
			continue
		}

		retries := msg.RetryCount + 1
		dead := retries >= d.cfg.MaxRetries
		if err := tx.MarkFailed(ctx, msg.ID, retries, deliverErr.Error(), dead); err != nil {
			return res, ErrStoreFailure("mark_failed", err)
		}

		fields := msg.RequestContext().LogFields()
		fields["message_id"] = msg.ID
		fields["type"] = msg.Type
		fields["retry_count"] = retries
		entry := logx.WithFields(fields).WithError(deliverErr)
		if dead {
			messagesFailed.WithLabelValues("dead").Inc()
			entry.Error("outbox message dead-lettered")
			res.Dead++
		} else {
			messagesFailed.WithLabelValues("retry").Inc()
			entry.Warn("outbox delivery failed, will retry")
		}
		res.Failed++
	}

	if err := tx.Commit(); err != nil {
		return res, ErrStoreFailure("commit", err)
	}
	return res, nil
}

// deliver runs every handler for msg that has not consumed it yet. It stops at
// the first failure; handlers that already succeeded keep their inbox marker.
func (d *Dispatcher) deliver(ctx context.Context, tx StoreTx, msg Message) error {
	handlers := d.registry.Handlers(msg.Type)
	if len(handlers) == 0 {
		logx.WithFields(logx.Fields{
			"message_id": msg.ID,
			"type":       msg.Type,
		}).Warn("no outbox handlers registered, marking processed")
		return nil
	}

	for _, h := range handlers {
		seen, err := tx.InboxExists(ctx, msg.ID, h.Name)
		if err != nil {
			return ErrStoreFailure("inbox_exists", err)
		}
		if seen {
			continue
		}

		start := time.Now()
		err = asyncx.WithTimeout(ctx, d.cfg.HandlerTimeout, func(hctx context.Context) error {
			return h.Handle(hctx, msg)
		})
		handlerDuration.WithLabelValues(h.Name).Observe(time.Since(start).Seconds())
		if err != nil {
			return ErrDeliveryFailed(h.Name, err)
		}

		marker := InboxMessage{
			EventID:     msg.ID,
			HandlerName: h.Name,
			ProcessedAt: d.now().UTC(),
			TenantID:    msg.TenantID,
		}
		if err := tx.InsertInbox(ctx, marker); err != nil {
			return ErrStoreFailure("insert_inbox", err)
		}
	}
	return nil
}
