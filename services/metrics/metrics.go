// Package metricsvc exposes the auth counters to Prometheus.
package metricsvc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/darulhuda/madrasa/core/auth"
)

const namespace = "madrasa"

// Metrics records sign-in, lockout & admin gate events on its own registry.
type Metrics struct {
	registry      *prometheus.Registry
	loginAttempts *prometheus.CounterVec
	lockouts      prometheus.Counter
	gateUnlocks   *prometheus.CounterVec
}

var _ auth.Recorder = (*Metrics)(nil)

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		// source: provider | teacher | nurani | student | demo | none
		// outcome: success | failure | locked
		loginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_attempts_total",
				Help:      "Total number of sign-in attempts by credential source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		lockouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lockouts_total",
			Help:      "Total number of accounts locked after too many failed sign-ins.",
		}),
		// method: short_code | totp | password | none
		gateUnlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_unlocks_total",
				Help:      "Total number of admin gate unlock attempts by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
	}
}

func (m *Metrics) LoginAttempt(src auth.Source, outcome string) {
	source := string(src)
	if source == "" {
		source = "none"
	}
	m.loginAttempts.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) Lockout() {
	m.lockouts.Inc()
}

func (m *Metrics) GateUnlock(method, outcome string) {
	if method == "" {
		method = "none"
	}
	m.gateUnlocks.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
