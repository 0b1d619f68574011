package cursor

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts cursor activity per backend.
// A nil *Metrics records nothing.
type Metrics struct {
	Opened   *prometheus.CounterVec
	Acquired *prometheus.CounterVec
	Released *prometheus.CounterVec
	Rows     *prometheus.CounterVec
	Failures *prometheus.CounterVec
}

// NewMetrics creates the cursor counters and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Opened: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cursor",
			Name:      "opened_total",
			Help:      "Number of cursors created.",
		}, []string{"backend"}),
		Acquired: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cursor",
			Name:      "connections_acquired_total",
			Help:      "Number of connections checked out of a pool by cursors.",
		}, []string{"backend"}),
		Released: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cursor",
			Name:      "connections_released_total",
			Help:      "Number of connections given back to a pool by cursors.",
		}, []string{"backend", "healthy"}),
		Rows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cursor",
			Name:      "rows_total",
			Help:      "Number of rows fetched by cursors.",
		}, []string{"backend"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cursor",
			Name:      "failures_total",
			Help:      "Number of cursors that ended in a failure.",
		}, []string{"backend", "kind"}),
	}
}

func (m *Metrics) opened(backend string) {
	if m == nil {
		return
	}
	m.Opened.WithLabelValues(backend).Inc()
}

func (m *Metrics) acquired(backend string) {
	if m == nil {
		return
	}
	m.Acquired.WithLabelValues(backend).Inc()
}

func (m *Metrics) released(backend string, healthy bool) {
	if m == nil {
		return
	}
	m.Released.WithLabelValues(backend, strconv.FormatBool(healthy)).Inc()
}

func (m *Metrics) row(backend string) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues(backend).Inc()
}

func (m *Metrics) failed(backend string, kind Kind) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(backend, kind.String()).Inc()
}
