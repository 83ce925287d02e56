// Package metrics defines the Prometheus collectors exported by stateflow.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	termMutations      *prometheus.CounterVec
	linkSyncs          *prometheus.CounterVec
	recalculatedStates prometheus.Counter
	cascadeSize        prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		termMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateflow_io_term_mutations_total",
				Help: "IO term create/update operations by result",
			},
			[]string{"op", "result"},
		),
		linkSyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateflow_io_link_syncs_total",
				Help: "State IO link synchronizations by result",
			},
			[]string{"result"},
		),
		recalculatedStates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stateflow_state_summaries_recalculated_total",
				Help: "State summaries recomputed from linked IO terms",
			},
		),
		cascadeSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stateflow_io_term_relabel_cascade_states",
				Help:    "Number of states recalculated by a single term relabel",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateflow_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stateflow_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(
		m.termMutations,
		m.linkSyncs,
		m.recalculatedStates,
		m.cascadeSize,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Result classifies an operation outcome for the "result" label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperrors.IsClientError(err):
		return "rejected"
	default:
		return "error"
	}
}

// TermMutation counts a term create or update.
func (m *Metrics) TermMutation(op string, err error) {
	if m == nil {
		return
	}
	m.termMutations.WithLabelValues(op, Result(err)).Inc()
}

// LinkSync counts a link synchronization.
func (m *Metrics) LinkSync(err error) {
	if m == nil {
		return
	}
	m.linkSyncs.WithLabelValues(Result(err)).Inc()
}

// Recalculated counts recomputed state summaries.
func (m *Metrics) Recalculated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recalculatedStates.Add(float64(n))
}

// RelabelCascade observes how many states a relabel touched.
func (m *Metrics) RelabelCascade(n int) {
	if m == nil {
		return
	}
	m.cascadeSize.Observe(float64(n))
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RegisterWorkerPool exports occupancy gauges for a named worker pool.
func RegisterWorkerPool(reg prometheus.Registerer, pool string, running, capacity func() int) {
	labels := prometheus.Labels{"pool": pool}
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "stateflow_worker_pool_running",
			Help:        "Tasks currently running on a worker pool",
			ConstLabels: labels,
		}, func() float64 { return float64(running()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "stateflow_worker_pool_capacity",
			Help:        "Worker pool capacity",
			ConstLabels: labels,
		}, func() float64 { return float64(capacity()) }),
	)
}
