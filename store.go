// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is the fixed-point property store: an entity/kind keyed table of
// lattice intervals, the dependency graph between them, and the scheduler
// that drives analyses until a mutual fixed point. Stores are per-instance
// handles — create one per computation run, pass it explicitly.
//
// All facade methods are safe for concurrent use. Entities must be
// comparable; the store keeps client references and never copies them.
type Store struct {
	cfg Config
	id  string
	log zerolog.Logger

	cells *table
	queue *workQueue
	phase phaseState

	phaseMu    sync.RWMutex
	phaseStart time.Time

	suspended atomic.Bool
	down      atomic.Bool

	errMu    sync.Mutex
	firstErr error

	tracers []Tracer
	workers sync.WaitGroup
	stats   storeStats
}

// Option configures a Store at construction.
type Option func(*Store)

// WithLogger attaches a zerolog logger for lifecycle and error events.
// The default logger discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithTracer subscribes a debug tracer to EP transitions and task
// dispatches. Tracers run synchronously and must be side-effect-free with
// respect to the store.
func WithTracer(t Tracer) Option {
	return func(s *Store) { s.tracers = append(s.tracers, t) }
}

// New creates a store with the given configuration. Parallel stores start
// their worker pool immediately; call [Store.Shutdown] to release it.
func New(cfg Config, opts ...Option) (*Store, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Store{
		cfg:   cfg,
		id:    uuid.NewString(),
		log:   zerolog.Nop(),
		cells: newTable(),
		queue: newWorkQueue(),
	}
	// Implicit first phase so stores are usable without SetupPhase.
	s.phase = phaseState{
		n:         1,
		derived:   map[Kind]struct{}{},
		consumed:  map[Kind]struct{}{},
		lazy:      map[Kind]Analysis{},
		triggered: map[Kind][]Analysis{},
	}
	s.phaseStart = time.Now()
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("store", s.id).Logger()
	if s.parallel() {
		for i := 0; i < s.cfg.Workers; i++ {
			s.workers.Add(1)
			go s.worker()
		}
	}
	s.log.Debug().Str("execution", s.cfg.Execution).Int("workers", s.cfg.Workers).Msg("store created")
	return s, nil
}

func (s *Store) parallel() bool { return s.cfg.Execution == ExecutionParallel }

// ID returns the store's instance id, threaded through the store's log
// output.
func (s *Store) ID() string { return s.id }

// Apply returns the current state of (e, k). If no value exists and a lazy
// computation for k is registered in the phase, the computation is
// scheduled — once per entity per phase — and EPK is returned; with fast
// tracking enabled, the kind's fast-track hook is consulted first and may
// finalize the cell synchronously.
func (s *Store) Apply(e Entity, k Kind) EP {
	s.warnUndeclared(k)
	c, _ := s.cells.getOrCreate(epKey{e: e, k: k})

	c.mu.Lock()
	c.queried = true
	cur := c.snapshot()
	seen := c.lazyPhase
	c.mu.Unlock()
	if cur.HasBounds() {
		return cur
	}

	a, ph, ok := s.lazyFor(k)
	if !ok || seen == ph {
		return cur
	}

	if s.cfg.UseFastTrack {
		if ft := k.fastTrack(); ft != nil {
			if p, ok := ft(e); ok {
				c.mu.Lock()
				if c.state == cellNone {
					c.lazyPhase = ph
					c.mu.Unlock()
					if err := s.finalizeCell(c, p); err != nil {
						s.fail(err)
					}
				} else {
					c.mu.Unlock()
				}
				return c.view()
			}
		}
	}

	c.mu.Lock()
	schedule := c.state == cellNone && c.lazyPhase != ph
	if schedule {
		c.lazyPhase = ph
	}
	c.mu.Unlock()
	if schedule {
		s.enqueueAnalysis(a, e)
	}
	return EPK{E: e, K: k}
}

// Force registers external interest in (e, k): by phase completion the
// cell is final, via an analysis result or the kind's fallback. Returns
// the current state like [Store.Apply].
func (s *Store) Force(e Entity, k Kind) EP {
	ep := s.Apply(e, k)
	if c, ok := s.cells.lookup(epKey{e: e, k: k}); ok {
		c.mu.Lock()
		c.forced = true
		c.mu.Unlock()
	}
	return ep
}

// Read returns the current state of (e, k) without scheduling anything
// and without registering interest.
func (s *Store) Read(e Entity, k Kind) EP {
	if c, ok := s.cells.lookup(epKey{e: e, k: k}); ok {
		return c.view()
	}
	return EPK{E: e, K: k}
}

// Set injects an eager final value for (e, k). It fails with
// [ErrAlreadyFinal] if the cell is already populated; re-setting the
// identical final value is a no-op.
func (s *Store) Set(e Entity, k Kind, p Property) error {
	if s.down.Load() {
		return ErrShutdown
	}
	c, _ := s.cells.getOrCreate(epKey{e: e, k: k})
	c.mu.Lock()
	if c.state == cellInterim {
		cur := c.snapshot()
		c.mu.Unlock()
		return fmt.Errorf("%w: (%v, %s) already populated with %v", ErrAlreadyFinal, e, k, cur)
	}
	c.queried = true
	prev, next, changed, err := s.setFinalLocked(c, p)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if changed {
		s.afterUpdate(c, prev, next, true)
	}
	return nil
}

// HasProperty reports whether any bounds have been observed for (e, k).
func (s *Store) HasProperty(e Entity, k Kind) bool {
	c, ok := s.cells.lookup(epKey{e: e, k: k})
	return ok && c.view().HasBounds()
}

// EntitiesWithKind returns the current states of every cell of kind k,
// for bulk queries at phase end.
func (s *Store) EntitiesWithKind(k Kind) []EP {
	var eps []EP
	s.cells.forEach(func(c *cell) {
		if c.k == k {
			eps = append(eps, c.view())
		}
	})
	return eps
}

// Suspend stops the scheduler from draining further tasks. In-flight
// tasks complete; WaitOnPhaseCompletion returns promptly with the store
// quiescent but not final.
func (s *Store) Suspend() { s.suspended.Store(true) }

// Resume lets a suspended scheduler continue.
func (s *Store) Resume() {
	s.suspended.Store(false)
	s.queue.cond.Broadcast()
}

// IsSuspended reports the cooperative suspension flag.
func (s *Store) IsSuspended() bool { return s.suspended.Load() }

// Shutdown releases the store: the queue closes, workers exit, all state
// is dropped. The store must not be used afterwards.
func (s *Store) Shutdown() {
	if !s.down.CompareAndSwap(false, true) {
		return
	}
	s.queue.close()
	s.workers.Wait()
	s.cells = newTable()
	s.phaseMu.Lock()
	s.phase.lazy = map[Kind]Analysis{}
	s.phase.triggered = map[Kind][]Analysis{}
	s.phaseMu.Unlock()
	s.log.Debug().Msg("store shut down")
}

// --- result dispatch ---

// handleResult applies one analysis result to the store. Unknown result
// types panic: the sum in result.go is closed and dispatch is exhaustive.
func (s *Store) handleResult(r ComputationResult) {
	switch r := r.(type) {
	case nil:
		// An analysis returning a nil interface contributes nothing.
	case Result:
		s.applyFinal(r)
	case MultiResult:
		for _, one := range r {
			s.applyFinal(one)
		}
	case IncrementalResult:
		s.applyFinal(r.Result)
		for _, next := range r.Next {
			s.enqueueAnalysis(next.Analysis, next.E)
		}
	case InterimResult:
		s.applyInterim(r)
	case PartialResult:
		s.applyPartial(r)
	case NoResult:
	default:
		panic(fmt.Sprintf("fixpoint: unhandled computation result %T", r))
	}
}

func (s *Store) applyFinal(r Result) {
	c, _ := s.cells.getOrCreate(epKey{e: r.E, k: r.K})
	c.mu.Lock()
	c.queried = true
	c.mu.Unlock()
	if err := s.finalizeCell(c, r.Value); err != nil {
		s.fail(err)
	}
}

func (s *Store) applyInterim(r InterimResult) {
	c, _ := s.cells.getOrCreate(epKey{e: r.E, k: r.K})

	c.mu.Lock()
	c.queried = true
	prev, next, changed, becameFinal, err := s.setBoundsLocked(c, r.LowerBound, r.UpperBound)
	c.mu.Unlock()
	if err != nil {
		s.fail(err)
		return
	}

	if !becameFinal {
		s.installEdges(c, r.Dependees, r.Continue)
	}
	if changed {
		s.afterUpdate(c, prev, next, becameFinal)
	}
}

func (s *Store) applyPartial(r PartialResult) {
	c, _ := s.cells.getOrCreate(epKey{e: r.E, k: r.K})

	// The deferred unlock keeps the cell usable when the user update
	// function panics; the panic itself surfaces through the task guard.
	var (
		prev, next EP
		changed    bool
		final      bool
		err        error
	)
	func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.queried = true
		cur := c.snapshot()
		replacement, ok := r.Update(cur)
		if !ok {
			return
		}
		switch nx := replacement.(type) {
		case FinalEP:
			prev, next, changed, err = s.setFinalLocked(c, nx.Value)
			final = true
		case InterimEP:
			prev, next, changed, final, err = s.setBoundsLocked(c, nx.LowerBound, nx.UpperBound)
		default:
			err = fmt.Errorf("fixpoint: partial result for (%v, %s) returned %T", r.E, r.K, replacement)
		}
	}()
	if err != nil {
		s.fail(err)
		return
	}
	if changed {
		s.afterUpdate(c, prev, next, final)
	}
}

// --- cell updates ---

// setFinalLocked collapses c to p. Caller holds c.mu.
func (s *Store) setFinalLocked(c *cell, p Property) (prev, next EP, changed bool, err error) {
	prev = c.snapshot()
	switch c.state {
	case cellFinal:
		if c.k.Equal(c.ub, p) {
			return prev, prev, false, nil
		}
		return prev, prev, false, &AlreadyFinalError{E: c.e, K: c.k, Current: prev.(FinalEP)}
	case cellInterim:
		if s.cfg.Debug && !(c.k.LessOrEqual(c.lb, p) && c.k.LessOrEqual(p, c.ub)) {
			return prev, prev, false, &BadUpdateError{E: c.e, K: c.k, Prev: prev, Next: FinalEP{E: c.e, K: c.k, Value: p}}
		}
	}
	c.state = cellFinal
	c.lb, c.ub = p, p
	return prev, c.snapshot(), true, nil
}

// setBoundsLocked advances c's interval to [lb, ub], clamping or
// reporting non-monotonic updates per debug mode and promoting collapsed
// intervals to final. Caller holds c.mu.
func (s *Store) setBoundsLocked(c *cell, lb, ub Property) (prev, next EP, changed, becameFinal bool, err error) {
	prev = c.snapshot()
	k := c.k
	switch c.state {
	case cellFinal:
		if k.Equal(c.ub, ub) && k.Equal(c.lb, lb) {
			return prev, prev, false, true, nil
		}
		return prev, prev, false, true, &AlreadyFinalError{E: c.e, K: c.k, Current: prev.(FinalEP)}
	case cellNone:
		c.lb, c.ub = lb, ub
		c.state = cellInterim
	case cellInterim:
		if !k.LessOrEqual(ub, c.ub) || !k.LessOrEqual(c.lb, lb) {
			if s.cfg.Debug {
				return prev, prev, false, false, &BadUpdateError{
					E: c.e, K: c.k, Prev: prev,
					Next: InterimEP{E: c.e, K: c.k, LowerBound: lb, UpperBound: ub},
				}
			}
			// Release mode: clamp. The lattice carries no join, so a
			// regressing lower bound keeps the previous one.
			if !k.LessOrEqual(ub, c.ub) {
				ub = k.Meet(c.ub, ub)
			}
			if !k.LessOrEqual(c.lb, lb) {
				lb = c.lb
			}
		}
		c.lb, c.ub = lb, ub
	}
	if k.Equal(c.lb, c.ub) {
		c.state = cellFinal
		becameFinal = true
	}
	next = c.snapshot()
	changed = !epEqual(prev, next)
	return prev, next, changed, becameFinal, nil
}

// finalizeCell collapses c to p and runs the post-update effects.
func (s *Store) finalizeCell(c *cell, p Property) error {
	c.mu.Lock()
	prev, next, changed, err := s.setFinalLocked(c, p)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if changed {
		s.afterUpdate(c, prev, next, true)
	}
	return nil
}

// afterUpdate runs the unlocked consequences of a cell transition:
// tracing, depender notification, edge removal on finality, and triggered
// computations on first observation.
func (s *Store) afterUpdate(c *cell, prev, next EP, final bool) {
	s.stats.transitions.Add(1)
	s.trace(func(tr Tracer) { tr.Transition(prev, next) })
	if final {
		s.dropEdges(c)
	}
	s.notifyDependers(c, final)
	if !prev.HasBounds() {
		s.fireTriggered(c)
	}
}

// fireTriggered runs the phase's triggered computations for c's kind,
// once per entity per phase.
func (s *Store) fireTriggered(c *cell) {
	analyses, ph := s.triggeredFor(c.k)
	if len(analyses) == 0 {
		return
	}
	c.mu.Lock()
	fire := c.triggeredPhase != ph
	if fire {
		c.triggeredPhase = ph
	}
	e := c.e
	c.mu.Unlock()
	if !fire {
		return
	}
	for _, a := range analyses {
		s.enqueueAnalysis(a, e)
	}
}

// --- error collection ---

// fail records an error. Recoverable errors (analysis panics, bad
// updates) are downgraded to log output when error suppression is on;
// everything else surfaces as the phase's first fatal error.
func (s *Store) fail(err error) {
	if err == nil {
		return
	}
	if s.cfg.SuppressError && recoverable(err) {
		s.log.Warn().Err(err).Msg("suppressed error")
		return
	}
	s.errMu.Lock()
	if s.firstErr == nil {
		s.firstErr = err
	}
	s.errMu.Unlock()
	s.log.Error().Err(err).Msg("store error")
}

func recoverable(err error) bool {
	var ae *AnalysisError
	var bu *BadUpdateError
	return errors.As(err, &ae) || errors.As(err, &bu)
}

func (s *Store) firstError() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.firstErr
}

func (s *Store) trace(f func(Tracer)) {
	for _, tr := range s.tracers {
		f(tr)
	}
}

// warnUndeclared logs queries for kinds outside the phase's declarations.
// Permitted — the cell is satisfied by fallback at phase completion — but
// usually a forgotten SetupPhase entry, hence the debug-mode warning.
func (s *Store) warnUndeclared(k Kind) {
	if !s.cfg.Debug {
		return
	}
	s.phaseMu.RLock()
	declared := len(s.phase.derived) == 0 && len(s.phase.consumed) == 0
	if !declared {
		_, d := s.phase.derived[k]
		_, c := s.phase.consumed[k]
		declared = d || c
	}
	s.phaseMu.RUnlock()
	if !declared {
		s.log.Warn().Str("kind", k.Name()).Msg("query for a kind outside the phase declarations")
	}
}

// epEqual compares two EP states under the kind's value equality.
func epEqual(a, b EP) bool {
	if a.HasBounds() != b.HasBounds() || a.IsFinal() != b.IsFinal() {
		return false
	}
	if !a.HasBounds() {
		return true
	}
	k := a.Kind()
	return k.Equal(a.LB(), b.LB()) && k.Equal(a.UB(), b.UB())
}

// --- stats ---

type storeStats struct {
	tasksExecuted   atomic.Uint64
	transitions     atomic.Uint64
	cyclesCollapsed atomic.Uint64
	fallbacks       atomic.Uint64
}

func (st *storeStats) reset() {
	st.tasksExecuted.Store(0)
	st.transitions.Store(0)
	st.cyclesCollapsed.Store(0)
	st.fallbacks.Store(0)
}

func (st *storeStats) snapshot(phase uint32, cells int, d time.Duration) PhaseStats {
	return PhaseStats{
		Phase:              phase,
		TasksExecuted:      st.tasksExecuted.Load(),
		Transitions:        st.transitions.Load(),
		CyclesCollapsed:    st.cyclesCollapsed.Load(),
		FallbacksInstalled: st.fallbacks.Load(),
		Cells:              cells,
		Duration:           d,
	}
}
