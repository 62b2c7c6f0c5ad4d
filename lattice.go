// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

import "cmp"

// Ready-made lattice shapes. Most kinds are one of three forms: a totally
// ordered chain (counts, levels, thresholds), a two-point flag
// (pure/impure, marked/unmarked), or a set ordered by superset (see
// [SetKindSpec]). The constructors below fill the lattice part of a
// [KindSpec]; policy hooks can be set on the result before registration.

// ChainKindSpec builds a totally ordered chain lattice over an ordered
// element type: the natural order is the lattice order and meet is min.
// bottom must be ≤ top.
func ChainKindSpec[T cmp.Ordered](name string, bottom, top T) KindSpec {
	if top < bottom {
		panic("fixpoint: chain lattice with top below bottom")
	}
	return KindSpec{
		Name:   name,
		Bottom: bottom,
		Top:    top,
		Meet: func(a, b Property) Property {
			return min(a.(T), b.(T))
		},
	}
}

// ReversedChainKindSpec builds a chain lattice where the natural order is
// reversed: numerically larger values are lower in the lattice and meet
// is max. The shape of count kinds capped at a worst-case threshold,
// where a higher count is a coarser answer.
func ReversedChainKindSpec[T cmp.Ordered](name string, bottom, top T) KindSpec {
	if bottom < top {
		panic("fixpoint: reversed chain lattice with bottom below top")
	}
	return KindSpec{
		Name:   name,
		Bottom: bottom,
		Top:    top,
		Meet: func(a, b Property) Property {
			return max(a.(T), b.(T))
		},
	}
}

// FlagKindSpec builds the two-point lattice: equal values meet to
// themselves, differing values meet to bottom.
func FlagKindSpec(name string, bottom, top Property) KindSpec {
	return KindSpec{
		Name:   name,
		Bottom: bottom,
		Top:    top,
		Meet: func(a, b Property) Property {
			if a == b {
				return a
			}
			return bottom
		},
	}
}
