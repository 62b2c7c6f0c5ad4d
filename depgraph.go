// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import "sync/atomic"

// Dependency edges. Each interim result installs one edgeSet on its
// depender cell, replacing the previous set atomically. The set is affine:
// the first dependee update to claim it wins the right to run the
// continuation; everyone else observes it as spent. Re-registration
// happens through the continuation's next interim result.

// edgeSet records a depender's current dependees and continuation with
// one-shot claim enforcement, in the manner of an affine resumption
// handle: an atomic use counter where the first increment wins.
type edgeSet struct {
	used      atomic.Uintptr
	owner     *cell
	dependees []*cell
	cont      Continuation
}

// claim attempts to take the one-shot right to run the continuation.
func (es *edgeSet) claim() bool { return es.used.Add(1) == 1 }

// spent reports whether the set has been claimed or discarded.
func (es *edgeSet) spent() bool { return es.used.Load() != 0 }

// discard marks the set as consumed without running the continuation.
func (es *edgeSet) discard() { es.used.Store(1) }

// contains reports whether c is among the dependees.
func (es *edgeSet) contains(c *cell) bool {
	for _, d := range es.dependees {
		if d == c {
			return true
		}
	}
	return false
}

// installEdges replaces depender's outgoing edge set with one built from
// observed dependee states, wiring depender bits into each dependee cell.
// If any dependee already improved past its observed state, the new set is
// claimed immediately and the continuation is scheduled with that
// dependee — the guarantee that a strict improvement between observation
// and installation is never lost.
func (s *Store) installEdges(depender *cell, observed []EP, cont Continuation) {
	// The edge set is fully built before publication: once visible
	// through depender.edges it is immutable, so concurrent dependee
	// updates may read it without the depender's lock.
	es := &edgeSet{owner: depender, dependees: make([]*cell, 0, len(observed)), cont: cont}
	for _, obs := range observed {
		dc, _ := s.cells.getOrCreate(epKey{e: obs.Entity(), k: obs.Kind()})
		es.dependees = append(es.dependees, dc)
	}

	depender.mu.Lock()
	prev := depender.edges
	depender.edges = es
	depender.mu.Unlock()

	var improved *cell
	for i, obs := range observed {
		dc := es.dependees[i]
		dc.mu.Lock()
		dc.queried = true
		dc.addDepender(depender.id)
		cur := dc.snapshot()
		dc.mu.Unlock()

		if improved == nil && strictlyImproved(obs, cur) {
			improved = dc
		}
	}

	if prev != nil {
		prev.discard()
		s.pruneEdges(prev, es)
	}

	if improved != nil && es.claim() {
		s.enqueueContinuation(es, improved, improved.view().IsFinal())
	}
}

// pruneEdges clears depender bits for cells in prev that next no longer
// depends on.
func (s *Store) pruneEdges(prev, next *edgeSet) {
	for _, dc := range prev.dependees {
		if next != nil && next.contains(dc) {
			continue
		}
		dc.mu.Lock()
		if dc.dependers != nil {
			dc.dependers.Remove(prev.owner.id)
		}
		dc.mu.Unlock()
	}
}

// dropEdges removes depender's outgoing edges entirely — on finalization,
// on cycle collapse, and when a continuation terminates with an error.
func (s *Store) dropEdges(depender *cell) {
	depender.mu.Lock()
	es := depender.edges
	depender.edges = nil
	depender.mu.Unlock()
	if es == nil {
		return
	}
	es.discard()
	s.pruneEdges(es, nil)
}

// notifyDependers dispatches the updated state of c to every depender
// whose live edge set includes c. Spent sets are skipped; bits of
// dependers whose current set no longer includes c are pruned in passing.
func (s *Store) notifyDependers(c *cell, final bool) {
	c.mu.Lock()
	if c.dependers == nil || c.dependers.IsEmpty() {
		c.mu.Unlock()
		return
	}
	ids := c.dependers.ToArray()
	c.mu.Unlock()

	for _, id := range ids {
		dep := s.cells.cellByID(id)

		dep.mu.Lock()
		es := dep.edges
		dep.mu.Unlock()

		if es == nil || !es.contains(c) || es.spent() {
			c.mu.Lock()
			if c.dependers != nil && (es == nil || !es.contains(c)) {
				c.dependers.Remove(id)
			}
			c.mu.Unlock()
			continue
		}
		if es.claim() {
			s.enqueueContinuation(es, c, final)
		}
	}
}

// strictlyImproved reports whether cur carries strictly more information
// than the previously observed state of the same cell.
func strictlyImproved(observed, cur EP) bool {
	if !cur.HasBounds() {
		return false
	}
	if !observed.HasBounds() {
		return true
	}
	if cur.IsFinal() {
		return !observed.IsFinal()
	}
	if observed.IsFinal() {
		return false
	}
	k := cur.Kind()
	return !k.Equal(observed.UB(), cur.UB()) || !k.Equal(observed.LB(), cur.LB())
}
