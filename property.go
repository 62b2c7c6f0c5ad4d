// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

// Entity is an opaque identity supplied by clients — a method descriptor,
// a field reference, a graph node. The store keeps the reference, never a
// copy, and uses it as a map key: entities must be comparable and their
// equality/hash behavior must be stable for the lifetime of the store.
type Entity = any

// Property is a value in a kind's lattice. Properties are immutable;
// analyses and the store exchange them by reference and never mutate them.
// Concrete types are recovered via type assertions at kind boundaries.
type Property = any

// FallbackReason tells a kind's fallback rule why a cell is being filled
// at phase completion instead of by an analysis.
type FallbackReason uint8

const (
	// FallbackNoAnalysis: no analysis in the completed phase derives the
	// kind at all.
	FallbackNoAnalysis FallbackReason = iota

	// FallbackNotYetDerived: an analysis deriving the kind was scheduled
	// in the phase but never produced a value for the entity.
	FallbackNotYetDerived
)

// String returns the reason in the form used by log output.
func (r FallbackReason) String() string {
	switch r {
	case FallbackNoAnalysis:
		return "not-computed-by-any-analysis"
	case FallbackNotYetDerived:
		return "not-yet-derived-by-scheduled-analysis"
	default:
		return "unknown-fallback-reason"
	}
}
