package config

import "time"

// MaxAuditBatchSize bounds how many events one flush hands to the sinks.
const MaxAuditBatchSize = 5000

// AuditConfig configures the security audit emitter.
type AuditConfig struct {
	QueueCapacity int           `env:"AUDIT_QUEUE_CAPACITY" envDefault:"50000"`
	BatchSize     int           `env:"AUDIT_BATCH_SIZE" envDefault:"500"`
	FlushInterval time.Duration `env:"AUDIT_FLUSH_INTERVAL" envDefault:"1s"`
	StopTimeout   time.Duration `env:"AUDIT_STOP_TIMEOUT" envDefault:"10s"`
	// Sinks lists the enabled sinks: postgres, logx, archive.
	Sinks         []string `env:"AUDIT_SINKS" envDefault:"postgres" envSeparator:","`
	ArchivePrefix string   `env:"AUDIT_ARCHIVE_PREFIX" envDefault:"audit"`
	Source        string   `env:"AUDIT_SOURCE" envDefault:"auth-api"`
}
