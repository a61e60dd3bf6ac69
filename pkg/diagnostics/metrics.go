package diagnostics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-drift/grant/pkg/errors"
)

// MetricsSink is a Sink that records Prometheus metrics on its own registry.
type MetricsSink struct {
	Registry *prometheus.Registry

	TransitionsTotal     *prometheus.CounterVec
	DelegateCallsTotal   *prometheus.CounterVec
	DelegateCallDuration *prometheus.HistogramVec
	ErrorsTotal          *prometheus.CounterVec
	PanicsTotal          prometheus.Counter
}

// NewMetricsSink creates a MetricsSink with all metrics registered on a
// fresh prometheus.Registry.
func NewMetricsSink() *MetricsSink {
	reg := prometheus.NewRegistry()

	m := &MetricsSink{
		Registry: reg,

		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grant",
			Subsystem: "handler",
			Name:      "transitions_total",
			Help:      "Total dialog state transitions.",
		}, []string{"op", "from", "to"}),

		DelegateCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grant",
			Subsystem: "delegate",
			Name:      "calls_total",
			Help:      "Total platform delegate calls by result.",
		}, []string{"op", "permission", "result"}),

		DelegateCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "grant",
			Subsystem: "delegate",
			Name:      "call_duration_seconds",
			Help:      "Platform delegate call duration in seconds. Requests include user think time.",
			Buckets:   []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30},
		}, []string{"op"}),

		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grant",
			Name:      "errors_total",
			Help:      "Total reported errors by kind.",
		}, []string{"op", "kind"}),

		PanicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grant",
			Name:      "panics_total",
			Help:      "Total panics recovered from caller callbacks.",
		}),
	}

	reg.MustRegister(
		m.TransitionsTotal,
		m.DelegateCallsTotal,
		m.DelegateCallDuration,
		m.ErrorsTotal,
		m.PanicsTotal,
	)
	return m
}

func (m *MetricsSink) HandleError(err *errors.GrantError) {
	if err == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(err.Op, err.Kind.String()).Inc()
}

func (m *MetricsSink) HandlePanic(err *errors.PanicError) {
	if err == nil {
		return
	}
	m.PanicsTotal.Inc()
}

func (m *MetricsSink) Transition(t Transition) {
	m.TransitionsTotal.WithLabelValues(t.Op, t.From, t.To).Inc()
}

func (m *MetricsSink) DelegateCall(c DelegateCall) {
	m.DelegateCallsTotal.WithLabelValues(c.Op, c.Permission, c.Result.String()).Inc()
	m.DelegateCallDuration.WithLabelValues(c.Op).Observe(c.Duration.Seconds())
}
