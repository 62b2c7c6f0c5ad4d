// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import (
	"hash/maphash"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// The entity–property table. Cells are created lazily on first query and
// destroyed only at store shutdown. Updates are serialized per cell by the
// cell mutex; the shard maps serialize only creation and lookup.

const tableShards = 64

type epKey struct {
	e Entity
	k Kind
}

const (
	cellNone uint8 = iota // EPK: no information recorded
	cellInterim
	cellFinal
)

// cell is one entity–property pair with its interval, finality, dependency
// bookkeeping, and per-phase flags. All fields below mu are guarded by it.
type cell struct {
	e  Entity
	k  Kind
	id uint32 // dense id, index into table.byID

	mu    sync.Mutex
	state uint8
	lb    Property
	ub    Property

	// queried is set when a client or analysis observed the cell via the
	// facade; only queried cells receive fallbacks at phase completion.
	queried bool
	forced  bool

	// lazyPhase / triggeredPhase record the phase in which the lazy
	// computation was scheduled / the triggered computations fired, so
	// each happens at most once per entity per phase.
	lazyPhase      uint32
	triggeredPhase uint32

	// dependers holds the cell ids of dependers whose current edge set
	// includes this cell. Bits go stale when a depender replaces its
	// edges; notification skips and prunes them.
	dependers *roaring.Bitmap

	// edges is this cell's own outgoing edge record when its analysis
	// returned an interim result. Nil when the cell has no pending
	// continuation.
	edges *edgeSet
}

// snapshot returns the cell's current EP state. Callers not holding mu use
// [cell.view].
func (c *cell) snapshot() EP {
	switch c.state {
	case cellFinal:
		return FinalEP{E: c.e, K: c.k, Value: c.ub}
	case cellInterim:
		return InterimEP{E: c.e, K: c.k, LowerBound: c.lb, UpperBound: c.ub}
	default:
		return EPK{E: c.e, K: c.k}
	}
}

// view is snapshot with locking.
func (c *cell) view() EP {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *cell) addDepender(id uint32) {
	if c.dependers == nil {
		c.dependers = roaring.New()
	}
	c.dependers.Add(id)
}

type tableShard struct {
	mu    sync.RWMutex
	cells map[epKey]*cell
}

// table is the sharded cell map plus the dense id index used by depender
// bitmaps.
type table struct {
	seed   maphash.Seed
	shards [tableShards]tableShard

	idMu sync.RWMutex
	byID []*cell
}

func newTable() *table {
	t := &table{seed: maphash.MakeSeed()}
	for i := range t.shards {
		t.shards[i].cells = make(map[epKey]*cell)
	}
	return t
}

func (t *table) shard(key epKey) *tableShard {
	return &t.shards[maphash.Comparable(t.seed, key)%tableShards]
}

// lookup returns the cell for key if it exists.
func (t *table) lookup(key epKey) (*cell, bool) {
	sh := t.shard(key)
	sh.mu.RLock()
	c, ok := sh.cells[key]
	sh.mu.RUnlock()
	return c, ok
}

// getOrCreate returns the cell for key, creating and id-registering it on
// first query. Reports whether this call created it.
func (t *table) getOrCreate(key epKey) (*cell, bool) {
	sh := t.shard(key)
	sh.mu.RLock()
	c, ok := sh.cells[key]
	sh.mu.RUnlock()
	if ok {
		return c, false
	}
	sh.mu.Lock()
	if c, ok = sh.cells[key]; ok {
		sh.mu.Unlock()
		return c, false
	}
	c = &cell{e: key.e, k: key.k}
	t.idMu.Lock()
	c.id = uint32(len(t.byID))
	t.byID = append(t.byID, c)
	t.idMu.Unlock()
	sh.cells[key] = c
	sh.mu.Unlock()
	return c, true
}

// cellByID resolves a dense id from a depender bitmap.
func (t *table) cellByID(id uint32) *cell {
	t.idMu.RLock()
	c := t.byID[id]
	t.idMu.RUnlock()
	return c
}

// forEach visits a snapshot of all cells. The visit runs without shard
// locks held, so callbacks may lock cells and create new ones; cells
// created during iteration are not visited.
func (t *table) forEach(visit func(*cell)) {
	t.idMu.RLock()
	cells := make([]*cell, len(t.byID))
	copy(cells, t.byID)
	t.idMu.RUnlock()
	for _, c := range cells {
		visit(c)
	}
}

// size returns the number of cells.
func (t *table) size() int {
	t.idMu.RLock()
	defer t.idMu.RUnlock()
	return len(t.byID)
}
