// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import "fmt"

// EP is the observed state of an entity–property pair. It is a closed sum:
// [EPK] (no information), [InterimEP] (current bounds), or [FinalEP]
// (collapsed interval). Dispatch uses type switches — EP is a pure marker
// interface plus shared accessors.
type EP interface {
	// Entity returns the pair's entity.
	Entity() Entity

	// Kind returns the pair's property kind.
	Kind() Kind

	// IsFinal reports whether the interval has collapsed.
	IsFinal() bool

	// HasBounds reports whether any value has been observed (non-EPK).
	HasBounds() bool

	// LB returns the current lower bound. Panics on EPK.
	LB() Property

	// UB returns the current upper bound. Panics on EPK.
	UB() Property

	ep() // unexported marker method
}

// EPK records that no information is available for (E, K).
type EPK struct {
	E Entity
	K Kind
}

func (p EPK) Entity() Entity  { return p.E }
func (p EPK) Kind() Kind      { return p.K }
func (EPK) IsFinal() bool     { return false }
func (EPK) HasBounds() bool   { return false }
func (p EPK) LB() Property    { panic("fixpoint: EPK has no lower bound") }
func (p EPK) UB() Property    { panic("fixpoint: EPK has no upper bound") }
func (EPK) ep()               {}

func (p EPK) String() string { return fmt.Sprintf("EPK(%v, %s)", p.E, p.K) }

// InterimEP records the current interval [LowerBound, UpperBound] of a pair
// whose value has not collapsed yet. LowerBound ≠ UpperBound always holds;
// equal bounds are promoted to FinalEP by the store.
type InterimEP struct {
	E          Entity
	K          Kind
	LowerBound Property
	UpperBound Property
}

func (p InterimEP) Entity() Entity { return p.E }
func (p InterimEP) Kind() Kind     { return p.K }
func (InterimEP) IsFinal() bool    { return false }
func (InterimEP) HasBounds() bool  { return true }
func (p InterimEP) LB() Property   { return p.LowerBound }
func (p InterimEP) UB() Property   { return p.UpperBound }
func (InterimEP) ep()              {}

func (p InterimEP) String() string {
	return fmt.Sprintf("Interim(%v, %s, lb=%v, ub=%v)", p.E, p.K, p.LowerBound, p.UpperBound)
}

// FinalEP records that the interval for (E, K) has collapsed to Value.
// No further updates are permitted.
type FinalEP struct {
	E     Entity
	K     Kind
	Value Property
}

func (p FinalEP) Entity() Entity { return p.E }
func (p FinalEP) Kind() Kind     { return p.K }
func (FinalEP) IsFinal() bool    { return true }
func (FinalEP) HasBounds() bool  { return true }
func (p FinalEP) LB() Property   { return p.Value }
func (p FinalEP) UB() Property   { return p.Value }
func (FinalEP) ep()              {}

func (p FinalEP) String() string { return fmt.Sprintf("Final(%v, %s, %v)", p.E, p.K, p.Value) }

// UBOr returns the upper bound, or def when ep carries no bounds.
func UBOr(ep EP, def Property) Property {
	if ep.HasBounds() {
		return ep.UB()
	}
	return def
}

// LBOr returns the lower bound, or def when ep carries no bounds.
func LBOr(ep EP, def Property) Property {
	if ep.HasBounds() {
		return ep.LB()
	}
	return def
}
