package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	messagesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_messages_processed_total",
		Help: "Outbox messages delivered to every handler.",
	})

	messagesFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_messages_failed_total",
		Help: "Outbox delivery attempts that failed, by outcome.",
	}, []string{"outcome"})

	handlerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_handler_duration_seconds",
		Help:    "Outbox handler latencies in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"handler"})
)

// RegisterMetrics registers the dispatcher collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(messagesProcessed, messagesFailed, handlerDuration)
}
