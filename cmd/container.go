// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, FS, mail) and the
// background services, and composes the IAM container.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/audit"
	"github.com/alebhayan/King-Laminaat/pkg/audit/auditinfra"
	"github.com/alebhayan/King-Laminaat/pkg/config"
	"github.com/alebhayan/King-Laminaat/pkg/fsx"
	"github.com/alebhayan/King-Laminaat/pkg/fsx/fsxlocal"
	"github.com/alebhayan/King-Laminaat/pkg/fsx/fsxs3"
	"github.com/alebhayan/King-Laminaat/pkg/iam/iamcontainer"
	"github.com/alebhayan/King-Laminaat/pkg/iam/user/usersrv"
	"github.com/alebhayan/King-Laminaat/pkg/jobx"
	"github.com/alebhayan/King-Laminaat/pkg/jobx/jobxredis"
	"github.com/alebhayan/King-Laminaat/pkg/logx"
	"github.com/alebhayan/King-Laminaat/pkg/notifx"
	"github.com/alebhayan/King-Laminaat/pkg/notifx/notifxconsole"
	"github.com/alebhayan/King-Laminaat/pkg/notifx/notifxses"
	"github.com/alebhayan/King-Laminaat/pkg/outbox"
	"github.com/alebhayan/King-Laminaat/pkg/outbox/outboxinfra"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// OutboxDispatchTask is the scheduler task that relays outbox messages.
const OutboxDispatchTask = "outbox-dispatch"

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB         *sqlx.DB
	Redis      *redis.Client
	FileSystem fsx.FileSystem
	Metrics    *prometheus.Registry
	Mailer     *notifx.Client

	// Background services
	Auditor    *audit.Emitter
	Outbox     *outboxinfra.PostgresStore
	Events     *outbox.Writer
	Handlers   *outbox.Registry
	Dispatcher *outbox.Dispatcher
	Scheduler  *jobx.Scheduler

	// Bounded-context containers
	IAM *iamcontainer.Container

	schedulerDone chan struct{}
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: DB, Redis, file storage, mail, metrics
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	// 2. Redis
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("  ✅ Redis connected")

	// 3. File storage
	c.initFileStorage()

	// 4. Mail
	c.initMailer()

	// 5. Metrics
	c.Metrics = newMetricsRegistry()

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initFileStorage() {
	st := c.Config.Storage

	switch st.Mode {
	case "s3":
		cfg, err := awsConfig.LoadDefaultConfig(context.TODO(), awsConfig.WithRegion(st.Region))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.FileSystem = fsxs3.NewS3FileSystem(s3.NewFromConfig(cfg), st.Bucket, "")
		logx.Infof("  ✅ S3 file system configured (bucket: %s, region: %s)", st.Bucket, st.Region)

	case "local":
		localFS, err := fsxlocal.NewLocalFileSystem(st.UploadDir)
		if err != nil {
			logx.Fatalf("Failed to initialize local file system: %v", err)
		}
		c.FileSystem = localFS
		logx.Infof("  ✅ Local file system configured (path: %s)", localFS.GetBasePath())

	default:
		logx.Fatalf("Unknown STORAGE_MODE: %s (use 'local' or 's3')", st.Mode)
	}
}

func (c *Container) initMailer() {
	nc := c.Config.Notifx
	from := fmt.Sprintf("%s <%s>", nc.FromName, nc.FromAddress)

	switch nc.Provider {
	case "ses":
		cfg, err := awsConfig.LoadDefaultConfig(context.TODO(), awsConfig.WithRegion(nc.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		c.Mailer = notifx.NewClient(notifxses.NewSender(ses.NewFromConfig(cfg), ""), from)
		logx.Infof("  ✅ SES mailer configured (region: %s)", nc.AWSRegion)
	default:
		c.Mailer = notifx.NewClient(notifxconsole.NewSender(), from)
		logx.Warn("  ⚠️  Using console mailer (emails are logged, not sent)")
	}
}

func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	audit.RegisterMetrics(reg)
	outbox.RegisterMetrics(reg)
	jobx.RegisterMetrics(reg)
	return reg
}

// ---------------------------------------------------------------------------
// Module composition
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	// Audit
	sink, err := buildAuditSink(c.Config.Audit, c.DB, c.FileSystem)
	if err != nil {
		logx.Fatalf("Invalid audit configuration: %v", err)
	}
	c.Auditor = audit.NewEmitter(sink, audit.EmitterConfig{
		QueueCapacity: c.Config.Audit.QueueCapacity,
		BatchSize:     c.Config.Audit.BatchSize,
		FlushInterval: c.Config.Audit.FlushInterval,
		StopTimeout:   c.Config.Audit.StopTimeout,
		Source:        c.Config.Audit.Source,
	})
	logx.Infof("  ✅ Audit emitter configured (sinks: %v)", c.Config.Audit.Sinks)

	// Outbox
	c.Outbox = outboxinfra.NewPostgresStore(c.DB)
	c.Events = outbox.NewWriter(c.Outbox)
	c.Handlers = outbox.NewRegistry()
	if err := usersrv.SubscribeWelcomeEmail(c.Handlers, c.Mailer); err != nil {
		logx.Fatalf("Failed to register welcome email handler: %v", err)
	}
	c.Dispatcher = outbox.NewDispatcher(c.Outbox, c.Handlers, outbox.DispatcherConfig{
		BatchSize:      c.Config.Outbox.BatchSize,
		MaxRetries:     c.Config.Outbox.MaxRetries,
		HandlerTimeout: c.Config.Outbox.HandlerTimeout,
	})
	logx.Infof("  ✅ Outbox relay configured (handlers for: %v)", c.Handlers.Types())

	// IAM
	iam, err := iamcontainer.New(iamcontainer.Deps{
		DB:      c.DB,
		Redis:   c.Redis,
		Cfg:     c.Config,
		Auditor: c.Auditor,
		Events:  c.Events,
	})
	if err != nil {
		logx.Fatalf("Failed to initialize IAM: %v", err)
	}
	c.IAM = iam

	// Scheduler
	c.Scheduler = jobx.NewScheduler(
		jobx.WithShutdownTimeout(c.Config.Outbox.ShutdownTimeout),
		jobx.WithLocker(jobxredis.NewRedisLocker(c.Redis), c.Config.Outbox.LockTTL),
	)
	if err := c.Scheduler.Register(OutboxDispatchTask, c.Config.Outbox.Interval, dispatchTask(c.Dispatcher)); err != nil {
		logx.Fatalf("Failed to register outbox task: %v", err)
	}
}

// buildAuditSink composes the sinks named in cfg.Sinks.
func buildAuditSink(cfg config.AuditConfig, db *sqlx.DB, files fsx.FileWriter) (audit.Sink, error) {
	var sinks []audit.Sink
	for _, name := range cfg.Sinks {
		switch name {
		case "postgres":
			sinks = append(sinks, auditinfra.NewPostgresSink(db))
		case "logx":
			sinks = append(sinks, auditinfra.NewLogxSink())
		case "archive":
			sinks = append(sinks, auditinfra.NewArchiveSink(files, cfg.ArchivePrefix))
		default:
			return nil, fmt.Errorf("unknown audit sink %q", name)
		}
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("no audit sink configured")
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return audit.NewMultiSink(sinks...), nil
}

func dispatchTask(d *outbox.Dispatcher) jobx.TaskFunc {
	return func(ctx context.Context) error {
		res, err := d.DispatchOnce(ctx)
		if res.Claimed > 0 {
			logx.WithFields(logx.Fields{
				"claimed":   res.Claimed,
				"processed": res.Processed,
				"failed":    res.Failed,
				"dead":      res.Dead,
			}).Debug("outbox dispatch run")
		}
		return err
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// StartBackgroundServices starts the audit consumer and the scheduler. Both
// stop when ctx is cancelled.
func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("🔄 Starting background services...")

	c.Auditor.Start(ctx)
	logx.Info("  ✅ Audit emitter started")

	c.schedulerDone = make(chan struct{})
	go func() {
		defer close(c.schedulerDone)
		if err := c.Scheduler.Start(ctx); err != nil {
			logx.WithError(err).Warn("Scheduler stopped with error")
		}
	}()
	logx.Infof("  ✅ Scheduler started (tasks: %v)", c.Scheduler.Tasks())
}

// StopBackgroundServices waits for the scheduler, then flushes the audit
// queue until ctx expires. The Start context must already be cancelled.
func (c *Container) StopBackgroundServices(ctx context.Context) {
	if c.schedulerDone != nil {
		select {
		case <-c.schedulerDone:
		case <-ctx.Done():
			logx.Warn("Timed out waiting for scheduler")
		}
	}
	if err := c.Auditor.Stop(ctx); err != nil {
		logx.WithError(err).Warn("Audit emitter did not drain before the deadline")
	}
	st := c.Auditor.Stats()
	logx.WithFields(logx.Fields{
		"published": st.Published,
		"written":   st.Written,
		"dropped":   st.Dropped,
		"abandoned": st.Abandoned,
	}).Info("Audit emitter stopped")
}

// ShutdownTimeout bounds StopBackgroundServices.
func (c *Container) ShutdownTimeout() time.Duration {
	return c.Config.Outbox.ShutdownTimeout + c.Config.Audit.StopTimeout
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}

func repeatString(s string, count int) string {
	result := ""
	for range count {
		result += s
	}
	return result
}

