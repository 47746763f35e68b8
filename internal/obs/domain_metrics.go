package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Calculation sources.
const (
	SourceAPI  = "api"
	SourceForm = "form"
	SourceCLI  = "cli"
)

var (
	domainOnce sync.Once

	// CalculationsTotal counts net-result computations by where they were requested.
	CalculationsTotal *prometheus.CounterVec
	// FormEventsTotal counts input events delivered to live form sessions by outcome.
	FormEventsTotal *prometheus.CounterVec
	// FormEventLatency records how long a form input event takes end to end, lock included.
	FormEventLatency prometheus.Histogram
	// FormSessionsOpened counts form sessions created.
	FormSessionsOpened prometheus.Counter
	// LoginAttemptsTotal counts admin login attempts by outcome.
	LoginAttemptsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CalculationsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Count of net result calculations by source.",
		}, []string{"source"}))
		FormEventsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_events_total",
			Help:      "Count of form input events by result.",
		}, []string{"result"}))
		FormEventLatency = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "form_event_duration_ms",
			Help:      "Latency of form input events in milliseconds.",
			Buckets:   defaultLatencyBucketsMS,
		}))
		FormSessionsOpened = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_sessions_open_total",
			Help:      "Number of form sessions opened.",
		}))
		LoginAttemptsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Count of admin login attempts by result.",
		}, []string{"result"}))
	})
}

// RecordCalculation increments the calculation counter when metrics are registered.
func RecordCalculation(source string) {
	if CalculationsTotal != nil {
		CalculationsTotal.WithLabelValues(source).Inc()
	}
}

// RecordFormEvent increments the form event counter when metrics are registered.
func RecordFormEvent(result string) {
	if FormEventsTotal != nil {
		FormEventsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveFormEvent records a form event latency sample.
func ObserveFormEvent(ms float64) {
	if FormEventLatency != nil {
		FormEventLatency.Observe(ms)
	}
}

// RecordFormSessionOpened increments the session counter when metrics are registered.
func RecordFormSessionOpened() {
	if FormSessionsOpened != nil {
		FormSessionsOpened.Inc()
	}
}

// RecordLogin increments the login attempt counter when metrics are registered.
func RecordLogin(result string) {
	if LoginAttemptsTotal != nil {
		LoginAttemptsTotal.WithLabelValues(result).Inc()
	}
}
