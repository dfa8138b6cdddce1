package asyncx_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/asyncx"
)

func TestSafeRecoversPanic(t *testing.T) {
	err := asyncx.Safe(func() error { panic("kaboom") })

	var pe *asyncx.PanicError
	if !errors.As(err, &pe) || pe.Value != "kaboom" {
		t.Fatalf("expected PanicError, got %v", err)
	}
}

func TestWithTimeout(t *testing.T) {
	err := asyncx.WithTimeout(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	want := errors.New("handler failed")
	if got := asyncx.WithTimeout(context.Background(), time.Second, func(context.Context) error { return want }); got != want {
		t.Fatalf("expected handler error, got %v", got)
	}
}

func TestGroupReportsPanics(t *testing.T) {
	var panics int32
	g := asyncx.NewGroup(func(error) { atomic.AddInt32(&panics, 1) })

	g.Go(func() { panic("x") })
	g.Go(func() {})

	if !g.WaitTimeout(time.Second) {
		t.Fatalf("group did not finish")
	}
	if atomic.LoadInt32(&panics) != 1 {
		t.Fatalf("expected one panic, got %d", panics)
	}
}
