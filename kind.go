// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import (
	"fmt"
	"sync"
)

// Kind names a lattice of property values. Kinds are process-unique,
// carry a dense integer id, and are registered append-only: once created,
// a kind is never unregistered. Obtain kinds only via [NewKind] or
// [MustKind]; the zero Kind is invalid and panics on use.
type Kind struct {
	id uint32 // index+1 into the registry; 0 is the invalid zero value
}

// KindSpec describes the lattice and the per-kind policy hooks of a new
// kind. Meet must be associative and commutative with identity Top.
type KindSpec struct {
	// Name is the process-unique registry key.
	Name string

	// Bottom and Top delimit the lattice. Intervals start at [Bottom, Top];
	// upper bounds only ever move down toward Bottom, lower bounds only
	// ever move up toward Top.
	Bottom, Top Property

	// Meet computes the greatest lower bound of two lattice values.
	Meet func(a, b Property) Property

	// Equals reports lattice-value equality. Nil means Go ==.
	Equals func(a, b Property) bool

	// Fallback maps a reason to the property installed at phase completion
	// for cells no analysis resolved. Nil means Bottom for either reason.
	Fallback func(r FallbackReason) Property

	// FastTrack is an optional synchronous best-effort shortcut consulted
	// before a lazy computation is scheduled. Returning ok=false defers to
	// the lazy computation.
	FastTrack func(e Entity) (Property, bool)

	// Simplify maps an observed interval to its collapsed property when a
	// final value is not yet known. Cycle collapse consults it; returning
	// ok=false collapses to the upper bound.
	Simplify func(lb, ub Property) (Property, bool)
}

// kindRegistry is the process-wide append-only kind table.
// The store is per-instance; this is the single deliberate global.
var kindRegistry = struct {
	mu    sync.RWMutex
	specs []KindSpec
	byName map[string]Kind
}{byName: make(map[string]Kind)}

// NewKind registers a kind and returns its handle. Registration fails with
// [ErrDuplicateKind] if the name is taken and with [ErrInvalidKindSpec] if
// the spec lacks a name or a meet operator.
func NewKind(spec KindSpec) (Kind, error) {
	if spec.Name == "" || spec.Meet == nil {
		return Kind{}, fmt.Errorf("%w: %q needs a name and a meet operator", ErrInvalidKindSpec, spec.Name)
	}
	kindRegistry.mu.Lock()
	defer kindRegistry.mu.Unlock()
	if _, ok := kindRegistry.byName[spec.Name]; ok {
		return Kind{}, fmt.Errorf("%w: %q", ErrDuplicateKind, spec.Name)
	}
	kindRegistry.specs = append(kindRegistry.specs, spec)
	k := Kind{id: uint32(len(kindRegistry.specs))}
	kindRegistry.byName[spec.Name] = k
	return k, nil
}

// MustKind is NewKind that panics on error. Intended for package-level kind
// variables where a registration failure is a programming error.
func MustKind(spec KindSpec) Kind {
	k, err := NewKind(spec)
	if err != nil {
		panic("fixpoint: " + err.Error())
	}
	return k
}

// KindByName returns the registered kind with the given name.
func KindByName(name string) (Kind, bool) {
	kindRegistry.mu.RLock()
	defer kindRegistry.mu.RUnlock()
	k, ok := kindRegistry.byName[name]
	return k, ok
}

// KindCount returns the number of registered kinds.
func KindCount() int {
	kindRegistry.mu.RLock()
	defer kindRegistry.mu.RUnlock()
	return len(kindRegistry.specs)
}

func (k Kind) spec() *KindSpec {
	if k.id == 0 {
		panic("fixpoint: use of unregistered zero Kind")
	}
	kindRegistry.mu.RLock()
	s := &kindRegistry.specs[k.id-1]
	kindRegistry.mu.RUnlock()
	return s
}

// Valid reports whether k was obtained from NewKind.
func (k Kind) Valid() bool { return k.id != 0 }

// ID returns the dense registry id.
func (k Kind) ID() uint32 { return k.id }

// Name returns the registered name.
func (k Kind) Name() string { return k.spec().Name }

// Bottom returns the least lattice element.
func (k Kind) Bottom() Property { return k.spec().Bottom }

// Top returns the greatest lattice element.
func (k Kind) Top() Property { return k.spec().Top }

// Meet computes the greatest lower bound of a and b.
func (k Kind) Meet(a, b Property) Property { return k.spec().Meet(a, b) }

// Equal reports lattice-value equality under the kind's equality rule.
func (k Kind) Equal(a, b Property) bool {
	if eq := k.spec().Equals; eq != nil {
		return eq(a, b)
	}
	return a == b
}

// LessOrEqual reports a ≤ b in the kind's lattice, derived from Meet:
// a ≤ b iff meet(a, b) = a.
func (k Kind) LessOrEqual(a, b Property) bool {
	return k.Equal(k.Meet(a, b), a)
}

// Fallback returns the property the kind installs for the given reason.
func (k Kind) Fallback(r FallbackReason) Property {
	if f := k.spec().Fallback; f != nil {
		return f(r)
	}
	return k.spec().Bottom
}

func (k Kind) fastTrack() func(Entity) (Property, bool) { return k.spec().FastTrack }

func (k Kind) simplify() func(lb, ub Property) (Property, bool) { return k.spec().Simplify }

// String returns the kind's name, or a placeholder for the zero Kind.
func (k Kind) String() string {
	if k.id == 0 {
		return "Kind(invalid)"
	}
	return k.spec().Name
}
