// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"code.hybscloud.com/fixpoint"
)

// The kind registry is process-wide and append-only, so every test
// registers kinds under fresh names.
var kindSeq atomic.Uint64

func freshName(prefix string) string {
	return fmt.Sprintf("%s#%d", prefix, kindSeq.Add(1))
}

// levelKind registers an integer lattice over [0, top] with the natural
// order: bottom 0, meet min.
func levelKind(t *testing.T, top int) fixpoint.Kind {
	t.Helper()
	return fixpoint.MustKind(fixpoint.KindSpec{
		Name:   freshName("Level"),
		Bottom: 0,
		Top:    top,
		Meet: func(a, b fixpoint.Property) fixpoint.Property {
			if a.(int) < b.(int) {
				return a
			}
			return b
		},
	})
}

// Purity values for cycle scenarios.
const (
	Impure = "Impure"
	Pure   = "Pure"
)

// purityKind registers the two-point purity lattice: Impure below Pure.
func purityKind(t *testing.T) fixpoint.Kind {
	t.Helper()
	return fixpoint.MustKind(fixpoint.KindSpec{
		Name:   freshName("Purity"),
		Bottom: Impure,
		Top:    Pure,
		Meet: func(a, b fixpoint.Property) fixpoint.Property {
			if a == Pure && b == Pure {
				return Pure
			}
			return Impure
		},
	})
}

func newStore(t *testing.T, cfg fixpoint.Config, opts ...fixpoint.Option) *fixpoint.Store {
	t.Helper()
	s, err := fixpoint.New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Shutdown)
	return s
}

func finalValue(t *testing.T, ep fixpoint.EP) fixpoint.Property {
	t.Helper()
	f, ok := ep.(fixpoint.FinalEP)
	if !ok {
		t.Fatalf("got %v, want a final state", ep)
	}
	return f.Value
}

// recordingTracer captures store events for assertions.
type recordingTracer struct {
	fixpoint.NopTracer

	mu          sync.Mutex
	transitions [][2]fixpoint.EP
	fallbacks   map[fixpoint.FallbackReason]int
	phases      []fixpoint.PhaseStats
}

func newRecordingTracer() *recordingTracer {
	return &recordingTracer{fallbacks: make(map[fixpoint.FallbackReason]int)}
}

func (r *recordingTracer) Transition(prev, next fixpoint.EP) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, [2]fixpoint.EP{prev, next})
}

func (r *recordingTracer) FallbackInstalled(ep fixpoint.EP, reason fixpoint.FallbackReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks[reason]++
}

func (r *recordingTracer) PhaseCompleted(stats fixpoint.PhaseStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, stats)
}

func (r *recordingTracer) transitionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transitions)
}

func (r *recordingTracer) fallbackCount(reason fixpoint.FallbackReason) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fallbacks[reason]
}
