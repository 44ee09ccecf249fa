package dialogue

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts classifications, dispatch paths and search outcomes.
type Metrics struct {
	classifications *prometheus.CounterVec
	dispatches      *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	busyRejections  prometheus.Counter
}

// NewMetrics registers the engine's collectors with reg. A nil reg leaves them
// unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "servicefinder",
			Subsystem: "dialogue",
			Name:      "classifications_total",
			Help:      "Utterances classified, by classification kind.",
		}, []string{"kind"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "servicefinder",
			Subsystem: "dialogue",
			Name:      "dispatches_total",
			Help:      "Search dispatches, by path (structured or free_text).",
		}, []string{"path"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "servicefinder",
			Subsystem: "dialogue",
			Name:      "search_outcomes_total",
			Help:      "Search outcomes, by outcome.",
		}, []string{"outcome"}),
		busyRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "servicefinder",
			Subsystem: "dialogue",
			Name:      "busy_rejections_total",
			Help:      "Inputs ignored because the conversation was still processing.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.classifications, m.dispatches, m.outcomes, m.busyRejections)
	}
	return m
}
