package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts login attempts.
type Metrics struct {
	logins *prometheus.CounterVec
}

// NewMetrics registers the login counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teamauth",
			Name:      "logins_total",
			Help:      "OAuth login callbacks by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
	reg.MustRegister(m.logins)
	return m
}

func (m *Metrics) observe(provider, outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(provider, outcome).Inc()
}
