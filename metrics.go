// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a [Tracer] exporting store activity as prometheus metrics.
// Register it on a store with [WithTracer] and on a registry with
// [Metrics.MustRegister].
type Metrics struct {
	tasksExecuted  *prometheus.CounterVec
	transitions    prometheus.Counter
	finalizations  prometheus.Counter
	fallbacks      *prometheus.CounterVec
	cyclesCollapsed prometheus.Counter
	phaseDuration  prometheus.Histogram
	cells          prometheus.Gauge
}

// NewMetrics creates the collector set. The namespace prefixes every
// metric name; empty means "fixpoint".
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fixpoint"
	}
	return &Metrics{
		tasksExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_executed_total",
			Help:      "Scheduler tasks executed, by task kind.",
		}, []string{"task"}),
		transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ep_transitions_total",
			Help:      "Entity-property state transitions.",
		}),
		finalizations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ep_finalizations_total",
			Help:      "Entity-property cells collapsed to a final value.",
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_installed_total",
			Help:      "Fallback values installed at phase completion, by reason.",
		}, []string{"reason"}),
		cyclesCollapsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_cells_collapsed_total",
			Help:      "Interim cells finalized by cycle resolution.",
		}),
		phaseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time per completed phase.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		cells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cells",
			Help:      "Entity-property cells in the table.",
		}),
	}
}

// MustRegister registers all collectors on reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.tasksExecuted, m.transitions, m.finalizations,
		m.fallbacks, m.cyclesCollapsed, m.phaseDuration, m.cells)
}

func (m *Metrics) Transition(prev, next EP) {
	m.transitions.Inc()
	if next.IsFinal() {
		m.finalizations.Inc()
	}
}

func (m *Metrics) TaskDispatched(t TaskInfo) {}

func (m *Metrics) TaskExecuted(t TaskInfo) {
	m.tasksExecuted.WithLabelValues(t.Kind).Inc()
}

func (m *Metrics) FallbackInstalled(ep EP, reason FallbackReason) {
	m.fallbacks.WithLabelValues(reason.String()).Inc()
}

func (m *Metrics) PhaseCompleted(stats PhaseStats) {
	m.cyclesCollapsed.Add(float64(stats.CyclesCollapsed))
	m.phaseDuration.Observe(stats.Duration.Seconds())
	m.cells.Set(float64(stats.Cells))
}
