package audit

import (
	"context"
	"errors"
)

// Sink persists a batch of processed records. Errors are counted and logged
// by the emitter; batches are never retried.
type Sink interface {
	WriteBatch(ctx context.Context, records []Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, records []Record) error

func (f SinkFunc) WriteBatch(ctx context.Context, records []Record) error {
	return f(ctx, records)
}

// MultiSink writes every batch to each sink in order. One failing sink does
// not stop the others.
type MultiSink []Sink

func NewMultiSink(sinks ...Sink) MultiSink {
	out := make(MultiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m MultiSink) WriteBatch(ctx context.Context, records []Record) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteBatch(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
