// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fixpoint provides a fixed-point property-computation engine:
// interdependent analyses concurrently derive properties of entities, and
// the store drives every in-flight value — an interval over a bounded
// lattice — monotonically to the greatest mutual fixed point.
//
// The canonical use is static program analysis: many analyses (purity,
// escape, mutability, reachability) each derive one kind of property, and
// each may consult properties derived by the others. Because such
// analyses are mutually recursive and cycle through the dependency graph,
// naïve evaluation diverges; the store guarantees termination and
// soundness by representing every unresolved value as a [lb, ub] interval
// and by collapsing dependency cycles at phase completion.
//
// # Design Philosophy
//
// fixpoint provides:
//   - A per-instance [Store] passed explicitly — no hidden global state
//     beyond the process-wide kind registry
//   - Closed sums for observed states ([EP]) and analysis results
//     ([ComputationResult]), dispatched exhaustively by type switch
//   - Affine (at-most-once) continuation claiming, so a depender resumes
//     at most once per installed edge set no matter how many dependees
//     race to update
//
// # Kinds and Lattices
//
// A [Kind] names a lattice of immutable [Property] values with bottom,
// top, a commutative/associative meet, and per-kind policy hooks:
//
//   - [NewKind], [MustKind]: register a kind from a [KindSpec]
//   - [KindSpec.Fallback]: value installed for cells no analysis resolved
//   - [KindSpec.FastTrack]: synchronous best-effort shortcut consulted
//     before a lazy computation is scheduled
//   - [KindSpec.Simplify]: collapse rule consulted by cycle resolution
//   - [SetKindSpec], [NodeSet]: a ready-made superset-ordered set lattice
//     for reachability-style kinds
//
// # Observed States
//
// An entity–property pair is in one of three states:
//
//   - [EPK]: no information recorded
//   - [InterimEP]: current bounds, refined monotonically — upper bounds
//     only ever move down, lower bounds only ever move up
//   - [FinalEP]: the interval collapsed; no further updates permitted
//
// # The Computation Protocol
//
// An [Analysis] maps an entity to a [ComputationResult]:
//
//   - [Result]: a final value
//   - [InterimResult]: current bounds plus the observed dependee states
//     and a [Continuation] to resume when any of them improves
//   - [MultiResult]: final values for several pairs at once
//   - [IncrementalResult]: a final value plus follow-up computations
//   - [PartialResult]: collaborative read-modify-write of one cell
//   - [NoResult]: no contribution
//
// Continuations are one-shot per installed edge set: the first dependee
// update claims the set and runs the continuation with the dependee's
// state at execution time; the continuation re-registers by returning the
// next [InterimResult].
//
// # The Facade
//
//   - [Store.Apply]: query a pair, scheduling a registered lazy
//     computation on first query
//   - [Store.Force]: register external interest — final by phase end
//   - [Store.Set]: inject an eager final value
//   - [Store.ScheduleEager], [Store.RegisterLazy],
//     [Store.RegisterTriggered]: attach analyses to the phase
//   - [Store.SetupPhase], [Store.WaitOnPhaseCompletion]: phase lifecycle
//   - [Store.Suspend], [Store.Resume], [Store.Shutdown]: cooperative
//     suspension and teardown
//
// # Phases
//
// A phase declares the kinds it derives and consumes. Completion drives
// the store to quiescence in rounds: drain the queue; collapse closed
// strongly-connected components of interim cells to their upper bounds;
// install fallbacks for queried cells no analysis resolved. After
// [Store.WaitOnPhaseCompletion] returns, every queried cell is final.
//
// # Execution Models
//
// Selected at construction via [Config]: sequential (tasks run LIFO in
// the completing goroutine — the reference model) or parallel (a fixed
// worker pool; per-cell critical sections serialize updates). Dependee
// updates dispatch continuations eagerly inline or lazily through the
// queue, with configurable delay of final and non-final notifications.
//
// # Observability
//
//   - [WithLogger]: structured lifecycle logging (zerolog)
//   - [WithTracer], [Tracer]: EP transitions, task dispatches, fallbacks,
//     phase statistics; [LogTracer] logs them, [Metrics] exports
//     prometheus collectors, [NopTracer] is the embeddable no-op
//
// # Example
//
//	pure := fixpoint.MustKind(fixpoint.KindSpec{
//		Name:   "Purity",
//		Bottom: Impure, Top: Pure,
//		Meet: func(a, b fixpoint.Property) fixpoint.Property {
//			if a == Impure || b == Impure {
//				return Impure
//			}
//			return Pure
//		},
//	})
//
//	store, _ := fixpoint.New(fixpoint.DefaultConfig())
//	defer store.Shutdown()
//	store.RegisterLazy(pure, analyzePurity(store))
//	store.Force(method, pure)
//	if err := store.WaitOnPhaseCompletion(); err != nil {
//		// first fatal error with full context
//	}
//	ep := store.Read(method, pure) // FinalEP
package fixpoint
