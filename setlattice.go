// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import "github.com/RoaringBitmap/roaring/v2"

// Set-valued lattices for reachability-style kinds, backed by roaring
// bitmaps over dense element ids. Ordered by superset: a larger set is a
// worse (lower) value, so meet is union, bottom is the universe, and top
// is the empty set. An analysis starts optimistic at the empty upper
// bound and grows it downward as it discovers elements; cycle collapse
// fixes the set discovered so far.

// NodeSet is an immutable set property over uint32 element ids.
// The zero NodeSet is the empty set.
type NodeSet struct {
	bits *roaring.Bitmap
}

// NewNodeSet builds a set from element ids.
func NewNodeSet(ids ...uint32) NodeSet {
	if len(ids) == 0 {
		return NodeSet{}
	}
	return NodeSet{bits: roaring.BitmapOf(ids...)}
}

// Union returns the set union without mutating either operand.
func (s NodeSet) Union(other NodeSet) NodeSet {
	switch {
	case s.bits == nil:
		return other
	case other.bits == nil:
		return s
	}
	return NodeSet{bits: roaring.Or(s.bits, other.bits)}
}

// Add returns s with id included.
func (s NodeSet) Add(id uint32) NodeSet {
	var bits *roaring.Bitmap
	if s.bits == nil {
		bits = roaring.New()
	} else {
		bits = s.bits.Clone()
	}
	bits.Add(id)
	return NodeSet{bits: bits}
}

// Contains reports membership.
func (s NodeSet) Contains(id uint32) bool {
	return s.bits != nil && s.bits.Contains(id)
}

// Size returns the cardinality.
func (s NodeSet) Size() int {
	if s.bits == nil {
		return 0
	}
	return int(s.bits.GetCardinality())
}

// Elements returns the ids in ascending order.
func (s NodeSet) Elements() []uint32 {
	if s.bits == nil {
		return nil
	}
	return s.bits.ToArray()
}

// Equal reports set equality.
func (s NodeSet) Equal(other NodeSet) bool {
	se, oe := s.bits == nil || s.bits.IsEmpty(), other.bits == nil || other.bits.IsEmpty()
	if se || oe {
		return se == oe
	}
	return s.bits.Equals(other.bits)
}

// SetKindSpec returns a KindSpec for a superset-ordered set lattice over
// the given universe: meet is union, bottom is the universe, top is the
// empty set. Fallback, fast track, and simplification hooks can be filled
// in on the returned spec before registration.
func SetKindSpec(name string, universe NodeSet) KindSpec {
	return KindSpec{
		Name:   name,
		Bottom: universe,
		Top:    NodeSet{},
		Meet: func(a, b Property) Property {
			return a.(NodeSet).Union(b.(NodeSet))
		},
		Equals: func(a, b Property) bool {
			return a.(NodeSet).Equal(b.(NodeSet))
		},
	}
}
