package asyncx

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// PanicError is returned by Safe when fn panicked.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Safe runs fn and converts a panic into a *PanicError.
func Safe(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// WithTimeout runs fn with a deadline of d. fn receives the derived context
// and is expected to honour it; if it does not, WithTimeout still returns
// context.DeadlineExceeded once d elapses. A panic in fn is returned as an
// error.
func WithTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return Safe(func() error { return fn(ctx) })
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	ch := make(chan error, 1)
	go func() {
		ch <- Safe(func() error { return fn(ctx) })
	}()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Group runs goroutines and waits for all of them. A panic in one goroutine
// is reported through the onPanic callback instead of crashing the process.
type Group struct {
	wg      sync.WaitGroup
	onPanic func(error)
}

func NewGroup(onPanic func(error)) *Group {
	return &Group{onPanic: onPanic}
}

// Go starts fn in a new goroutine.
func (g *Group) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := Safe(func() error { fn(); return nil }); err != nil && g.onPanic != nil {
			g.onPanic(err)
		}
	}()
}

// WaitTimeout waits for all goroutines or until d elapses. It reports whether
// every goroutine finished.
func (g *Group) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
