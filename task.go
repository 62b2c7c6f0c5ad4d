// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import "sync"

// Pooled task records. The scheduler acquires a task per dispatch and
// releases it after execution, zeroing all fields. Tasks are single-use;
// a released task must not be retained.

const (
	taskAnalysis uint8 = iota + 1
	taskContinuation
)

// task is one unit of scheduler work: either an analysis invocation for an
// entity, or a claimed continuation to run against the current state of
// the dependee that claimed it.
type task struct {
	kind uint8

	// analysis dispatch
	analysis Analysis
	e        Entity

	// continuation dispatch
	es       *edgeSet
	dependee *cell

	// final marks a notification caused by a final dependee update; the
	// queue lanes use it to honor the delay preferences.
	final bool
}

var taskPool = sync.Pool{New: func() any { return new(task) }}

func acquireTask() *task {
	return taskPool.Get().(*task)
}

// releaseTask zeroes and returns t to the pool.
func releaseTask(t *task) {
	t.kind = 0
	t.analysis = nil
	t.e = nil
	t.es = nil
	t.dependee = nil
	t.final = false
	taskPool.Put(t)
}
