// Package metrics exposes journal counters and latencies to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records journal activity. A nil *Recorder is a no-op.
type Recorder struct {
	transitions   *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	closures      *prometheus.CounterVec
	events        *prometheus.CounterVec
	reportLatency prometheus.Histogram
	reportCache   *prometheus.CounterVec
	circuitState  *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// New creates a recorder registered with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journal_plan_transitions_total",
				Help: "Plan status transitions",
			},
			[]string{"from", "to"},
		),
		rejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journal_mutations_rejected_total",
				Help: "Mutations refused by the plan lifecycle",
			},
			[]string{"operation", "code"},
		),
		closures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journal_closures_total",
				Help: "Closed plans by system judgement",
			},
			[]string{"judgement", "epc"},
		),
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journal_events_total",
				Help: "Trade events appended",
			},
			[]string{"triggered_exit"},
		),
		reportLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "journal_weekly_report_duration_seconds",
				Help:    "Time to load and score a weekly report",
				Buckets: prometheus.DefBuckets,
			},
		),
		reportCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journal_weekly_report_cache_total",
				Help: "Weekly report cache lookups",
			},
			[]string{"result"},
		),
		circuitState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "journal_circuit_state",
				Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
			},
			[]string{"name"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "class"},
		),
		httpInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_in_flight_requests",
				Help: "Current number of in-flight HTTP requests",
			},
		),
	}
}

// RecordTransition records a status change.
func (r *Recorder) RecordTransition(from, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(from, to).Inc()
}

// RecordRejection records a refused mutation by error code.
func (r *Recorder) RecordRejection(operation, code string) {
	if r == nil {
		return
	}
	r.rejections.WithLabelValues(operation, code).Inc()
}

// RecordClosure records a closed plan.
func (r *Recorder) RecordClosure(judgement string, hasEPC bool) {
	if r == nil {
		return
	}
	r.closures.WithLabelValues(judgement, strconv.FormatBool(hasEPC)).Inc()
}

// RecordEvent records an appended trade event.
func (r *Recorder) RecordEvent(triggeredExit bool) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(strconv.FormatBool(triggeredExit)).Inc()
}

// RecordReport records the time taken to build a weekly report.
func (r *Recorder) RecordReport(d time.Duration) {
	if r == nil {
		return
	}
	r.reportLatency.Observe(d.Seconds())
}

// RecordCache records a report cache hit or miss.
func (r *Recorder) RecordCache(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.reportCache.WithLabelValues(result).Inc()
}

// SetCircuitState publishes a breaker state (CLOSED, HALF_OPEN or OPEN).
func (r *Recorder) SetCircuitState(name, state string) {
	if r == nil {
		return
	}
	var v float64
	switch state {
	case "HALF_OPEN":
		v = 1
	case "OPEN":
		v = 2
	}
	r.circuitState.WithLabelValues(name).Set(v)
}

// TrackInFlight adjusts the in-flight request gauge by delta.
func (r *Recorder) TrackInFlight(delta float64) {
	if r == nil {
		return
	}
	r.httpInFlight.Add(delta)
}

// RecordHTTP records a served request. route should be the templated path.
func (r *Recorder) RecordHTTP(route, method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method, StatusClass(status)).Observe(d.Seconds())
}

// StatusClass buckets an HTTP status code.
func StatusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
