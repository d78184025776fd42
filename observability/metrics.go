package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "minimessenger"

// Metrics holds the delivery pipeline counters. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	sends       *prometheus.CounterVec
	pushes      *prometheus.CounterVec
	connections prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "sends_total",
			Help:      "Send attempts by outcome (delivered or the rejection reason).",
		}, []string{"outcome"}),
		pushes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "pushes_total",
			Help:      "Events pushed to live channels by result.",
		}, []string{"result"}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "presence",
			Name:      "channels",
			Help:      "Live real-time channels.",
		}),
	}
}

func (m *Metrics) Delivered() {
	if m == nil {
		return
	}
	m.sends.WithLabelValues("delivered").Inc()
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(reason).Inc()
}

func (m *Metrics) Pushed(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.pushes.WithLabelValues("failed").Inc()
		return
	}
	m.pushes.WithLabelValues("ok").Inc()
}

func (m *Metrics) Connected() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) Disconnected() {
	if m == nil {
		return
	}
	m.connections.Dec()
}
