// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import "github.com/rs/zerolog"

// Observability hooks. Tracers subscribe to EP transitions, task
// dispatches, fallback installation, and phase completion. They run
// synchronously on store goroutines and must be side-effect-free with
// respect to the store: a tracer must not call back into the facade.

// TaskInfo describes one scheduler dispatch.
type TaskInfo struct {
	// Kind is "analysis" or "continuation".
	Kind string

	E Entity

	// K is set for continuation tasks: the depender's kind.
	K Kind

	// Final marks a continuation notification caused by a final dependee
	// update.
	Final bool
}

// Tracer receives store events. Implementations embed [NopTracer] to stay
// compatible when events are added.
type Tracer interface {
	// Transition is invoked after a cell moved from prev to next.
	Transition(prev, next EP)

	// TaskDispatched is invoked when a task enters the queue.
	TaskDispatched(t TaskInfo)

	// TaskExecuted is invoked after a task ran.
	TaskExecuted(t TaskInfo)

	// FallbackInstalled is invoked when phase completion fills a cell.
	FallbackInstalled(ep EP, reason FallbackReason)

	// PhaseCompleted is invoked once per completed phase.
	PhaseCompleted(stats PhaseStats)
}

// NopTracer ignores every event.
type NopTracer struct{}

func (NopTracer) Transition(prev, next EP)                      {}
func (NopTracer) TaskDispatched(t TaskInfo)                     {}
func (NopTracer) TaskExecuted(t TaskInfo)                       {}
func (NopTracer) FallbackInstalled(ep EP, reason FallbackReason) {}
func (NopTracer) PhaseCompleted(stats PhaseStats)               {}

// LogTracer writes every event to a zerolog logger at trace level, except
// phase completions, which log at debug level.
type LogTracer struct {
	Log zerolog.Logger
}

// NewLogTracer creates a tracer over the given logger.
func NewLogTracer(log zerolog.Logger) *LogTracer {
	return &LogTracer{Log: log}
}

func (t *LogTracer) Transition(prev, next EP) {
	t.Log.Trace().
		Stringer("kind", next.Kind()).
		Interface("entity", next.Entity()).
		Interface("prev", prev).
		Interface("next", next).
		Msg("ep transition")
}

func (t *LogTracer) TaskDispatched(info TaskInfo) {
	t.Log.Trace().Str("task", info.Kind).Interface("entity", info.E).Bool("final", info.Final).Msg("task dispatched")
}

func (t *LogTracer) TaskExecuted(info TaskInfo) {
	t.Log.Trace().Str("task", info.Kind).Interface("entity", info.E).Bool("final", info.Final).Msg("task executed")
}

func (t *LogTracer) FallbackInstalled(ep EP, reason FallbackReason) {
	t.Log.Trace().Stringer("reason", reason).Interface("ep", ep).Msg("fallback installed")
}

func (t *LogTracer) PhaseCompleted(stats PhaseStats) {
	t.Log.Debug().
		Uint32("phase", stats.Phase).
		Uint64("tasks", stats.TasksExecuted).
		Uint64("transitions", stats.Transitions).
		Uint64("cycles_collapsed", stats.CyclesCollapsed).
		Uint64("fallbacks", stats.FallbacksInstalled).
		Int("cells", stats.Cells).
		Dur("took", stats.Duration).
		Msg("phase completed")
}
