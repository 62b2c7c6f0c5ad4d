// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import (
	"fmt"
	"time"
)

// The phase lifecycle. A phase declares the kinds it derives and consumes,
// runs tasks to quiescence, resolves dependency cycles by collapsing
// closed strongly-connected components of interim cells to their upper
// bounds, and finally installs fallbacks for queried cells no analysis
// resolved. After completion every queried cell is final.

// phaseState holds the per-phase registration tables. Guarded by
// Store.phaseMu; reset by SetupPhase.
type phaseState struct {
	n         uint32
	derived   map[Kind]struct{}
	consumed  map[Kind]struct{}
	lazy      map[Kind]Analysis
	triggered map[Kind][]Analysis
}

// PhaseStats summarizes one completed phase.
type PhaseStats struct {
	Phase              uint32
	TasksExecuted      uint64
	Transitions        uint64
	CyclesCollapsed    uint64
	FallbacksInstalled uint64
	Cells              int
	Duration           time.Duration
}

// SetupPhase begins a new phase deriving and consuming the given kinds.
// Per-phase registrations (lazy and triggered computations) are cleared;
// cells and their states carry over.
func (s *Store) SetupPhase(derived, consumed []Kind) {
	s.phaseMu.Lock()
	defer s.phaseMu.Unlock()
	s.phase.n++
	s.phase.derived = make(map[Kind]struct{}, len(derived))
	for _, k := range derived {
		s.phase.derived[k] = struct{}{}
	}
	s.phase.consumed = make(map[Kind]struct{}, len(consumed))
	for _, k := range consumed {
		s.phase.consumed[k] = struct{}{}
	}
	s.phase.lazy = make(map[Kind]Analysis)
	s.phase.triggered = make(map[Kind][]Analysis)
	s.stats.reset()
	s.phaseStart = time.Now()
	s.log.Debug().Uint32("phase", s.phase.n).Int("derived", len(derived)).
		Int("consumed", len(consumed)).Msg("phase set up")
}

// RegisterLazy registers the analysis computing k on first query. At most
// one lazy analysis may be registered per kind per phase.
func (s *Store) RegisterLazy(k Kind, a Analysis) error {
	s.phaseMu.Lock()
	defer s.phaseMu.Unlock()
	if _, ok := s.phase.lazy[k]; ok {
		return fmt.Errorf("%w for kind %s", ErrDuplicateLazy, k)
	}
	s.phase.lazy[k] = a
	return nil
}

// RegisterTriggered registers an analysis fired once per entity when a
// property of kind k is first observed for that entity.
func (s *Store) RegisterTriggered(k Kind, a Analysis) {
	s.phaseMu.Lock()
	defer s.phaseMu.Unlock()
	s.phase.triggered[k] = append(s.phase.triggered[k], a)
}

// ScheduleEager enqueues one analysis task per entity.
func (s *Store) ScheduleEager(a Analysis, entities ...Entity) {
	for _, e := range entities {
		s.enqueueAnalysis(a, e)
	}
}

// lazyFor returns the lazy analysis for k in the current phase.
func (s *Store) lazyFor(k Kind) (Analysis, uint32, bool) {
	s.phaseMu.RLock()
	defer s.phaseMu.RUnlock()
	a, ok := s.phase.lazy[k]
	return a, s.phase.n, ok
}

// triggeredFor returns the triggered analyses for k in the current phase.
func (s *Store) triggeredFor(k Kind) ([]Analysis, uint32) {
	s.phaseMu.RLock()
	defer s.phaseMu.RUnlock()
	return s.phase.triggered[k], s.phase.n
}

// derivedInPhase reports whether any analysis of the current phase derives
// k — declared, lazily registered, or triggered.
func (s *Store) derivedInPhase(k Kind) bool {
	s.phaseMu.RLock()
	defer s.phaseMu.RUnlock()
	if _, ok := s.phase.derived[k]; ok {
		return true
	}
	if _, ok := s.phase.lazy[k]; ok {
		return true
	}
	_, ok := s.phase.triggered[k]
	return ok
}

// WaitOnPhaseCompletion drives the store to the phase fixed point: drain
// the queue, collapse cycles, install fallbacks, repeat until nothing
// moves. Returns the first fatal error, or nil. On a suspended store it
// returns promptly with the store quiescent but not final.
func (s *Store) WaitOnPhaseCompletion() error {
	for {
		s.drain()
		if s.suspended.Load() {
			return nil
		}
		if err := s.firstError(); err != nil {
			return err
		}
		if s.collapseCycles() {
			continue
		}
		if s.applyFallbacks() {
			continue
		}
		if s.forceRemainingInterim() {
			continue
		}
		break
	}

	s.phaseMu.RLock()
	phase := s.phase.n
	s.phaseMu.RUnlock()
	stats := s.stats.snapshot(phase, s.cells.size(), time.Since(s.phaseStart))
	s.log.Info().Uint32("phase", stats.Phase).
		Uint64("tasks", stats.TasksExecuted).
		Uint64("transitions", stats.Transitions).
		Uint64("cycles_collapsed", stats.CyclesCollapsed).
		Uint64("fallbacks", stats.FallbacksInstalled).
		Int("cells", stats.Cells).
		Dur("took", stats.Duration).
		Msg("phase completed")
	s.trace(func(tr Tracer) { tr.PhaseCompleted(stats) })
	return s.firstError()
}

// collapseCycles finds closed strongly-connected components among interim
// cells and finalizes each member to its collapsed value — the current
// upper bound, or the kind's simplification of the interval. A component
// is closed when every member's live dependee is final or inside the
// component; open components are left for fallback rounds to unblock.
// Reports whether anything collapsed.
func (s *Store) collapseCycles() bool {
	var interim []*cell
	live := make(map[*cell]*edgeSet)
	s.cells.forEach(func(c *cell) {
		c.mu.Lock()
		if c.state == cellInterim {
			interim = append(interim, c)
			if c.edges != nil && !c.edges.spent() {
				live[c] = c.edges
			}
		}
		c.mu.Unlock()
	})
	if len(interim) == 0 {
		return false
	}

	index := make(map[*cell]int32, len(interim))
	for i, c := range interim {
		index[c] = int32(i)
	}
	adj := make([][]int32, len(interim))
	for i, c := range interim {
		es, ok := live[c]
		if !ok {
			continue
		}
		for _, d := range es.dependees {
			if j, ok := index[d]; ok {
				adj[i] = append(adj[i], j)
			}
		}
	}

	collapsed := 0
	for _, comp := range stronglyConnected(len(interim), adj) {
		closed := true
		inComp := make(map[*cell]struct{}, len(comp))
		for _, i := range comp {
			inComp[interim[i]] = struct{}{}
		}
		for _, i := range comp {
			es, ok := live[interim[i]]
			if !ok {
				continue
			}
			for _, d := range es.dependees {
				if _, member := inComp[d]; member {
					continue
				}
				if !d.view().IsFinal() {
					closed = false
					break
				}
			}
			if !closed {
				break
			}
		}
		if !closed {
			continue
		}

		// Spend every member's continuation first so intra-component
		// finalization does not resurrect members being collapsed.
		for _, i := range comp {
			s.dropEdges(interim[i])
		}
		for _, i := range comp {
			c := interim[i]
			c.mu.Lock()
			if c.state != cellInterim {
				c.mu.Unlock()
				continue
			}
			value := c.ub
			if simplify := c.k.simplify(); simplify != nil {
				if p, ok := simplify(c.lb, c.ub); ok {
					value = p
				}
			}
			c.mu.Unlock()
			if err := s.finalizeCell(c, value); err != nil {
				s.fail(err)
			}
			collapsed++
		}
	}
	if collapsed > 0 {
		s.stats.cyclesCollapsed.Add(uint64(collapsed))
		s.log.Debug().Int("cells", collapsed).Msg("cycle collapse")
	}
	return collapsed > 0
}

// applyFallbacks finalizes every queried cell still without a value using
// its kind's fallback rule. The reason distinguishes kinds no analysis in
// the phase derives from kinds whose scheduled analysis never produced a
// value for the entity. Reports whether anything was installed.
func (s *Store) applyFallbacks() bool {
	type pending struct {
		c      *cell
		reason FallbackReason
	}
	var todo []pending
	s.cells.forEach(func(c *cell) {
		c.mu.Lock()
		empty := c.state == cellNone && c.queried
		c.mu.Unlock()
		if !empty {
			return
		}
		reason := FallbackNoAnalysis
		if s.derivedInPhase(c.k) {
			reason = FallbackNotYetDerived
		}
		todo = append(todo, pending{c: c, reason: reason})
	})
	for _, p := range todo {
		value := p.c.k.Fallback(p.reason)
		if err := s.finalizeCell(p.c, value); err != nil {
			s.fail(err)
			continue
		}
		s.stats.fallbacks.Add(1)
		s.trace(func(tr Tracer) { tr.FallbackInstalled(p.c.view(), p.reason) })
	}
	return len(todo) > 0
}

// forceRemainingInterim is the terminal safety net: any interim cell that
// survived cycle collapse and fallback rounds is fixed to its upper
// bound so phase completion always quiesces with final cells only.
func (s *Store) forceRemainingInterim() bool {
	var interim []*cell
	s.cells.forEach(func(c *cell) {
		c.mu.Lock()
		if c.state == cellInterim {
			interim = append(interim, c)
		}
		c.mu.Unlock()
	})
	if len(interim) == 0 {
		return false
	}
	s.log.Warn().Int("cells", len(interim)).Msg("forcing unresolved interim cells to their upper bounds")
	for _, c := range interim {
		s.dropEdges(c)
		c.mu.Lock()
		value := c.ub
		stillInterim := c.state == cellInterim
		c.mu.Unlock()
		if !stillInterim {
			continue
		}
		if err := s.finalizeCell(c, value); err != nil {
			s.fail(err)
		}
	}
	return true
}
