package jobx

import "time"

// Outcome is the result of one task run.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeError     Outcome = "error"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeLockError Outcome = "lock_error"
	OutcomeCancelled Outcome = "cancelled"
)

// SchedulerOptions configures the scheduler.
type SchedulerOptions struct {
	ShutdownTimeout time.Duration
	Locker          Locker
	LockTTL         time.Duration
	RunOnStart      bool
}

func defaultSchedulerOptions() SchedulerOptions {
	return SchedulerOptions{
		ShutdownTimeout: 30 * time.Second,
		LockTTL:         30 * time.Second,
	}
}

// SchedulerOption is a functional option for configuring the scheduler.
type SchedulerOption func(*SchedulerOptions)

// WithShutdownTimeout sets the maximum time to wait for task runs on shutdown.
func WithShutdownTimeout(d time.Duration) SchedulerOption {
	return func(o *SchedulerOptions) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}

// WithLocker makes every run take a lock that expires after ttl. The ttl
// should exceed the longest expected run.
func WithLocker(l Locker, ttl time.Duration) SchedulerOption {
	return func(o *SchedulerOptions) {
		o.Locker = l
		if ttl > 0 {
			o.LockTTL = ttl
		}
	}
}

// WithRunOnStart runs each task once as soon as Start is called.
func WithRunOnStart(enabled bool) SchedulerOption {
	return func(o *SchedulerOptions) {
		o.RunOnStart = enabled
	}
}
