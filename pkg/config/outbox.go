package config

import "time"

// OutboxConfig configures the outbox dispatcher and its scheduler.
type OutboxConfig struct {
	BatchSize       int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	MaxRetries      int           `env:"OUTBOX_MAX_RETRIES" envDefault:"5"`
	Interval        time.Duration `env:"OUTBOX_INTERVAL" envDefault:"10s"`
	HandlerTimeout  time.Duration `env:"OUTBOX_HANDLER_TIMEOUT" envDefault:"30s"`
	LockTTL         time.Duration `env:"OUTBOX_LOCK_TTL" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"OUTBOX_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}
