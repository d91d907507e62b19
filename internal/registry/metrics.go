package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metrics holds the daemon's Prometheus collectors. Each Server owns its
// own registry so tests can run servers side by side without collector
// collisions.
type metrics struct {
	registry *prometheus.Registry
	ops      *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mlagent",
		Subsystem: "registry",
		Name:      "ops_total",
		Help:      "Registry operations by kind, operation, and outcome.",
	}, []string{"kind", "op", "outcome"})
	reg.MustRegister(ops)

	return &metrics{registry: reg, ops: ops}
}

// observe records one operation outcome.
func (m *metrics) observe(kind, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ops.WithLabelValues(kind, op, outcome).Inc()
}
