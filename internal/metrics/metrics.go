// Package metrics holds the prometheus counters for the command pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeExecuted = "executed"
	OutcomeFailed   = "failed"
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeAccepted = "accepted"
	OutcomeDropped  = "dropped"
)

// Metrics is safe to use as a nil pointer; every recorder is a no-op then.
type Metrics struct {
	registry  *prometheus.Registry
	actions   *prometheus.CounterVec
	llm       *prometheus.CounterVec
	proposals *prometheus.CounterVec
}

// New registers the counters on a fresh registry along with the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "larder_actions_total",
			Help: "Pantry actions applied by the executor, by action type and outcome.",
		}, []string{"type", "outcome"}),
		llm: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "larder_llm_requests_total",
			Help: "Language model requests, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "larder_assistant_proposals_total",
			Help: "Assistant tool-call proposals, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.actions,
		m.llm,
		m.proposals,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Action(actionType, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(actionType, outcome).Inc()
}

func (m *Metrics) LLMRequest(operation, outcome string) {
	if m == nil {
		return
	}
	m.llm.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Proposal(outcome string) {
	if m == nil {
		return
	}
	m.proposals.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
