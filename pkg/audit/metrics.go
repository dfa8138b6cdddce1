package audit

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_published_total",
		Help: "Audit events accepted by Publish.",
	})

	eventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_events_dropped_total",
		Help: "Audit events lost before reaching a sink, by reason.",
	}, []string{"reason"})

	eventsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_written_total",
		Help: "Audit events written by the sink.",
	})

	sinkFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_sink_failures_total",
		Help: "Audit batches the sink failed to write.",
	})

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "audit_queue_depth",
		Help: "Audit events waiting in the queue.",
	})
)

// RegisterMetrics registers the emitter collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(eventsPublished, eventsDropped, eventsWritten, sinkFailures, queueDepth)
}
