// Package jobx runs named tasks on fixed intervals for the lifetime of the
// process. An optional Locker makes each run exclusive across instances.
package jobx

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/asyncx"
	"github.com/alebhayan/King-Laminaat/pkg/logx"
)

// TaskFunc performs one run of a periodic task.
type TaskFunc func(ctx context.Context) error

// Lock is a held distributed lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker acquires named locks that expire after ttl. ok is false when another
// holder owns the lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (lock Lock, ok bool, err error)
}

type task struct {
	name     string
	interval time.Duration
	fn       TaskFunc
}

// Scheduler owns the periodic tasks.
type Scheduler struct {
	opts    SchedulerOptions
	tasks   map[string]*task
	mu      sync.RWMutex
	running bool
}

func NewScheduler(options ...SchedulerOption) *Scheduler {
	opts := defaultSchedulerOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Scheduler{
		opts:  opts,
		tasks: make(map[string]*task),
	}
}

// Register adds a task. Tasks cannot be added while the scheduler runs.
func (s *Scheduler) Register(name string, interval time.Duration, fn TaskFunc) error {
	if name == "" || interval <= 0 || fn == nil {
		return jobxErrors.New(ErrInvalidTask).
			WithDetail("task", name).
			WithDetail("interval", interval.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return jobxErrors.New(ErrAlreadyRunning)
	}
	if _, exists := s.tasks[name]; exists {
		return jobxErrors.New(ErrDuplicateTask).WithDetail("task", name)
	}
	s.tasks[name] = &task{name: name, interval: interval, fn: fn}
	return nil
}

// Tasks returns the registered task names, sorted.
func (s *Scheduler) Tasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start runs every task on its interval. It blocks until ctx is cancelled,
// then waits up to the shutdown timeout for in-flight runs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return jobxErrors.New(ErrAlreadyRunning)
	}
	s.running = true
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	logx.Infof("jobx: starting %d periodic tasks", len(tasks))

	group := asyncx.NewGroup(func(err error) {
		logx.WithError(err).Error("jobx: task loop panicked")
	})
	for _, t := range tasks {
		t := t
		group.Go(func() { s.loop(ctx, t) })
	}

	<-ctx.Done()
	logx.Info("jobx: shutting down scheduler...")

	if !group.WaitTimeout(s.opts.ShutdownTimeout) {
		logx.Warn("jobx: shutdown timed out, some task runs may not have completed")
		return jobxErrors.New(ErrShutdownTimeout)
	}
	logx.Info("jobx: all tasks stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	if s.opts.RunOnStart {
		s.run(ctx, t)
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, t)
		}
	}
}

// RunOnce runs the named task immediately, honouring the locker.
func (s *Scheduler) RunOnce(ctx context.Context, name string) (Outcome, error) {
	s.mu.RLock()
	t, ok := s.tasks[name]
	s.mu.RUnlock()
	if !ok {
		return "", jobxErrors.New(ErrTaskNotFound).WithDetail("task", name)
	}
	return s.run(ctx, t), nil
}

func (s *Scheduler) run(ctx context.Context, t *task) Outcome {
	if s.opts.Locker != nil {
		lock, ok, err := s.opts.Locker.Acquire(ctx, lockKey(t.name), s.opts.LockTTL)
		if err != nil {
			if ctx.Err() == nil {
				logx.WithError(err).WithField("task", t.name).Warn("jobx: failed to acquire task lock")
			}
			return s.record(t, OutcomeLockError, 0)
		}
		if !ok {
			return s.record(t, OutcomeSkipped, 0)
		}
		defer func() {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := lock.Release(rctx); err != nil {
				logx.WithError(err).WithField("task", t.name).Warn("jobx: failed to release task lock")
			}
		}()
	}

	start := time.Now()
	err := asyncx.Safe(func() error { return t.fn(ctx) })
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return s.record(t, OutcomeCancelled, elapsed)
		}
		logx.WithError(err).WithField("task", t.name).Warn("jobx: task run failed")
		return s.record(t, OutcomeError, elapsed)
	}
	return s.record(t, OutcomeOK, elapsed)
}

func (s *Scheduler) record(t *task, outcome Outcome, elapsed time.Duration) Outcome {
	taskRuns.WithLabelValues(t.name, string(outcome)).Inc()
	if elapsed > 0 {
		taskDuration.WithLabelValues(t.name).Observe(elapsed.Seconds())
	}
	return outcome
}

func lockKey(name string) string { return "jobx:lock:" + name }
