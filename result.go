// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

// Analysis is user code that maps an entity to a computation result for
// one property kind. Analyses capture the store they query; the scheduler
// invokes them and dispatches their results.
type Analysis func(e Entity) ComputationResult

// Continuation is invoked by the scheduler when a dependee of an interim
// result updates. It receives the updated dependee state and returns the
// analysis' next result. A continuation installed by one [InterimResult]
// runs at most once; re-installation happens through the next
// InterimResult it returns. Continuations must not assume they run on the
// goroutine that installed them.
type Continuation func(updated EP) ComputationResult

// ComputationResult is the closed sum of result shapes an analysis may
// return: [Result], [InterimResult], [MultiResult], [IncrementalResult],
// [PartialResult], or [NoResult]. The store dispatches by type switch and
// handles every variant exhaustively.
type ComputationResult interface {
	computationResult() // unexported marker method
}

// Result is a final value for one entity–kind pair. The interval collapses
// to Value and every depender is notified.
type Result struct {
	E     Entity
	K     Kind
	Value Property
}

func (Result) computationResult() {}

// InterimResult is a partial answer: the current interval for (E, K), the
// dependee states the analysis observed while computing it, and the
// continuation to invoke when any dependee improves. The dependee set
// replaces any previously installed set atomically.
type InterimResult struct {
	E          Entity
	K          Kind
	LowerBound Property
	UpperBound Property

	// Dependees holds the EP states the analysis is reacting to, exactly
	// as observed. The store compares them against current state on
	// installation and re-notifies immediately if any already improved.
	Dependees []EP

	// Continue is the resumption invoked with an updated dependee.
	Continue Continuation
}

func (InterimResult) computationResult() {}

// MultiResult carries final values for several entity–kind pairs at once.
type MultiResult []Result

func (MultiResult) computationResult() {}

// ScheduledComputation names an analysis to run against an entity; used by
// [IncrementalResult] to request follow-up computations.
type ScheduledComputation struct {
	Analysis Analysis
	E        Entity
}

// IncrementalResult is a final value for one entity plus follow-up
// computations on other entities, typically the entity's children in a
// hierarchy the analysis walks top-down.
type IncrementalResult struct {
	Result Result
	Next   []ScheduledComputation
}

func (IncrementalResult) computationResult() {}

// PartialResult updates a single kind without claiming ownership of the
// cell, for collaborative accumulation by several analyses. Update runs
// under the cell's lock with the current state and returns the replacement
// state and whether to apply it. Update functions are required to be
// commutative and associative: the store guarantees mutual exclusion but
// not ordering.
type PartialResult struct {
	E Entity
	K Kind

	// Update performs the read-modify-write. The returned EP must be an
	// [InterimEP] or [FinalEP] for (E, K); returning ok=false leaves the
	// cell untouched. Update runs holding the cell's lock and must not
	// call back into the store.
	Update func(current EP) (next EP, ok bool)
}

func (PartialResult) computationResult() {}

// NoResult reports that the analysis does not wish to contribute.
type NoResult struct{}

func (NoResult) computationResult() {}
