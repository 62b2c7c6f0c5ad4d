// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/fixpoint"
)

// Palindrome / SuperPalindrome: two lazy analyses where the second
// depends on the first for the entity itself and for its first half.

const (
	palindrome   = "Palindrome"
	noPalindrome = "NoPalindrome"
	superPal     = "SuperPalindrome"
	noSuperPal   = "NoSuperPalindrome"
)

func binaryKind(t *testing.T, bottom, top string) fixpoint.Kind {
	t.Helper()
	return fixpoint.MustKind(fixpoint.KindSpec{
		Name:   freshName(top),
		Bottom: bottom,
		Top:    top,
		Meet: func(a, b fixpoint.Property) fixpoint.Property {
			if a == b {
				return a
			}
			return bottom
		},
	})
}

func isPalindrome(s string) bool {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		if s[i] != s[j] {
			return false
		}
	}
	return true
}

func TestPalindromeSuperPalindrome(t *testing.T) {
	pk := binaryKind(t, noPalindrome, palindrome)
	spk := binaryKind(t, noSuperPal, superPal)
	s := newStore(t, fixpoint.DefaultConfig())

	require.NoError(t, s.RegisterLazy(pk, func(e fixpoint.Entity) fixpoint.ComputationResult {
		str := e.(string)
		v := noPalindrome
		if isPalindrome(str) {
			v = palindrome
		}
		return fixpoint.Result{E: e, K: pk, Value: v}
	}))

	require.NoError(t, s.RegisterLazy(spk, func(e fixpoint.Entity) fixpoint.ComputationResult {
		str := e.(string)
		return reapply(s, e, str, str[:len(str)/2], pk, spk)
	}))

	s.Force("e", spk)
	require.NoError(t, s.WaitOnPhaseCompletion())

	require.Equal(t, superPal, finalValue(t, s.Read("e", spk)))
	require.Equal(t, palindrome, finalValue(t, s.Read("e", pk)))
	require.Equal(t, palindrome, finalValue(t, s.Read("", pk)))
}

// reapply recomputes the super-palindrome decision from current store
// state; the continuation funnels every wake-up through it.
func reapply(s *fixpoint.Store, e fixpoint.Entity, str, half string, pk, spk fixpoint.Kind) fixpoint.ComputationResult {
	self := s.Apply(str, pk)
	halfEP := s.Apply(half, pk)
	if !self.IsFinal() || !halfEP.IsFinal() {
		var deps []fixpoint.EP
		if !self.IsFinal() {
			deps = append(deps, self)
		}
		if !halfEP.IsFinal() {
			deps = append(deps, halfEP)
		}
		return fixpoint.InterimResult{E: e, K: spk, LowerBound: noSuperPal, UpperBound: superPal,
			Dependees: deps,
			Continue: func(updated fixpoint.EP) fixpoint.ComputationResult {
				return reapply(s, e, str, half, pk, spk)
			}}
	}
	if self.UB() == palindrome && halfEP.UB() == palindrome {
		return fixpoint.Result{E: e, K: spk, Value: superPal}
	}
	return fixpoint.Result{E: e, K: spk, Value: noSuperPal}
}

func TestPalindromeLongerInputs(t *testing.T) {
	pk := binaryKind(t, noPalindrome, palindrome)
	spk := binaryKind(t, noSuperPal, superPal)
	s := newStore(t, fixpoint.DefaultConfig())

	require.NoError(t, s.RegisterLazy(pk, func(e fixpoint.Entity) fixpoint.ComputationResult {
		str := e.(string)
		v := noPalindrome
		if isPalindrome(str) {
			v = palindrome
		}
		return fixpoint.Result{E: e, K: pk, Value: v}
	}))
	require.NoError(t, s.RegisterLazy(spk, func(e fixpoint.Entity) fixpoint.ComputationResult {
		str := e.(string)
		return reapply(s, e, str, str[:len(str)/2], pk, spk)
	}))

	// "abaaba": a palindrome whose first half "aba" is one too.
	s.Force("abaaba", spk)
	// "abcba": a palindrome whose first half "ab" is not.
	s.Force("abcba", spk)
	// "abc": not a palindrome at all.
	s.Force("abc", spk)
	require.NoError(t, s.WaitOnPhaseCompletion())

	require.Equal(t, superPal, finalValue(t, s.Read("abaaba", spk)))
	require.Equal(t, noSuperPal, finalValue(t, s.Read("abcba", spk)))
	require.Equal(t, noSuperPal, finalValue(t, s.Read("abc", spk)))
}

// Reachable nodes over a cyclic graph, on the superset-ordered NodeSet
// lattice: upper bounds grow downward as successors report, and the
// cyclic components collapse to the sets discovered at the fixed point.

type graph map[string][]string

func (g graph) ids() map[string]uint32 {
	ids := make(map[string]uint32)
	var i uint32
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "r"} {
		ids[n] = i
		i++
	}
	return ids
}

func testGraph() graph {
	return graph{
		"a": {"b", "f", "g", "h"},
		"b": {"c", "d"},
		"c": {},
		"d": {"d", "e"},
		"e": {"r"},
		"f": {"h", "i", "j"},
		"g": {"h"},
		"h": {"j"},
		"i": {"j"},
		"j": {"h", "i"},
		"r": {"b"},
	}
}

// reachableAnalysis derives the reachable-node set of a node: the
// successors plus everything they reach.
func reachableAnalysis(s *fixpoint.Store, g graph, ids map[string]uint32, rn fixpoint.Kind) fixpoint.Analysis {
	var compute func(e fixpoint.Entity) fixpoint.ComputationResult
	compute = func(e fixpoint.Entity) fixpoint.ComputationResult {
		node := e.(string)
		known := fixpoint.NewNodeSet()
		var deps []fixpoint.EP
		allFinal := true
		for _, succ := range g[node] {
			known = known.Add(ids[succ])
			dep := s.Apply(succ, rn)
			if dep.HasBounds() {
				known = known.Union(dep.UB().(fixpoint.NodeSet))
			}
			if !dep.IsFinal() {
				allFinal = false
				deps = append(deps, dep)
			}
		}
		if allFinal {
			return fixpoint.Result{E: e, K: rn, Value: known}
		}
		return fixpoint.InterimResult{E: e, K: rn,
			LowerBound: rn.Bottom(), UpperBound: known,
			Dependees: deps,
			Continue: func(updated fixpoint.EP) fixpoint.ComputationResult {
				return compute(e)
			}}
	}
	return compute
}

func nodeSetOf(ids map[string]uint32, nodes ...string) fixpoint.NodeSet {
	set := fixpoint.NewNodeSet()
	for _, n := range nodes {
		set = set.Add(ids[n])
	}
	return set
}

func TestReachableNodesFixedPoint(t *testing.T) {
	g := testGraph()
	ids := g.ids()
	universe := nodeSetOf(ids, "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "r")
	rn := fixpoint.MustKind(fixpoint.SetKindSpec(freshName("ReachableNodes"), universe))

	s := newStore(t, fixpoint.DefaultConfig())
	require.NoError(t, s.RegisterLazy(rn, reachableAnalysis(s, g, ids, rn)))
	for node := range g {
		s.Force(node, rn)
	}
	require.NoError(t, s.WaitOnPhaseCompletion())

	check := func(node string, want fixpoint.NodeSet) {
		got := finalValue(t, s.Read(node, rn)).(fixpoint.NodeSet)
		require.Truef(t, got.Equal(want), "%s: got %v, want %v", node, got.Elements(), want.Elements())
	}
	check("a", nodeSetOf(ids, "b", "c", "d", "e", "f", "g", "h", "i", "j", "r"))
	check("b", nodeSetOf(ids, "b", "c", "d", "e", "r"))
	check("c", fixpoint.NewNodeSet())
	check("h", nodeSetOf(ids, "h", "i", "j"))
}

// tooManyNodesReachable caps the count lattice.
const tooManyNodesReachable = 64

// countKind is ordered by precision: a higher count is a lower value, so
// bottom is the cap, top is zero, and meet is max.
func countKind(t *testing.T) fixpoint.Kind {
	t.Helper()
	return fixpoint.MustKind(fixpoint.KindSpec{
		Name:   freshName("ReachableNodesCount"),
		Bottom: tooManyNodesReachable,
		Top:    0,
		Meet: func(a, b fixpoint.Property) fixpoint.Property {
			if a.(int) > b.(int) {
				return a
			}
			return b
		},
	})
}

func countAnalysis(s *fixpoint.Store, rn, rnc fixpoint.Kind) fixpoint.Analysis {
	var compute func(e fixpoint.Entity) fixpoint.ComputationResult
	compute = func(e fixpoint.Entity) fixpoint.ComputationResult {
		dep := s.Apply(e, rn)
		count := 0
		if dep.HasBounds() {
			count = dep.UB().(fixpoint.NodeSet).Size()
		}
		if count > tooManyNodesReachable {
			count = tooManyNodesReachable
		}
		if dep.IsFinal() {
			return fixpoint.Result{E: e, K: rnc, Value: count}
		}
		return fixpoint.InterimResult{E: e, K: rnc,
			LowerBound: tooManyNodesReachable, UpperBound: count,
			Dependees: []fixpoint.EP{dep},
			Continue: func(updated fixpoint.EP) fixpoint.ComputationResult {
				return compute(e)
			}}
	}
	return compute
}

func testReachableCounts(t *testing.T, schedule func(s *fixpoint.Store, g graph, rnc fixpoint.Kind, a fixpoint.Analysis)) {
	t.Helper()
	g := testGraph()
	ids := g.ids()
	universe := nodeSetOf(ids, "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "r")
	rn := fixpoint.MustKind(fixpoint.SetKindSpec(freshName("ReachableNodes"), universe))
	rnc := countKind(t)

	s := newStore(t, fixpoint.DefaultConfig())
	require.NoError(t, s.RegisterLazy(rn, reachableAnalysis(s, g, ids, rn)))
	schedule(s, g, rnc, countAnalysis(s, rn, rnc))
	require.NoError(t, s.WaitOnPhaseCompletion())

	require.Equal(t, 10, finalValue(t, s.Read("a", rnc)))
	require.Equal(t, 5, finalValue(t, s.Read("b", rnc)))
	require.Equal(t, 0, finalValue(t, s.Read("c", rnc)))
	require.Equal(t, 3, finalValue(t, s.Read("h", rnc)))
}

func TestReachableCountsLazy(t *testing.T) {
	testReachableCounts(t, func(s *fixpoint.Store, g graph, rnc fixpoint.Kind, a fixpoint.Analysis) {
		require.NoError(t, s.RegisterLazy(rnc, a))
		for node := range g {
			s.Force(node, rnc)
		}
	})
}

func TestReachableCountsEager(t *testing.T) {
	testReachableCounts(t, func(s *fixpoint.Store, g graph, rnc fixpoint.Kind, a fixpoint.Analysis) {
		for node := range g {
			s.ScheduleEager(a, node)
		}
	})
}

// Tree incremental: the root analysis finalizes its own level and
// requests computations for the children, one level down.

type treeNode struct {
	name     string
	children []*treeNode
}

func buildTree(name string, depth, fanout int) *treeNode {
	n := &treeNode{name: name}
	if depth == 0 {
		return n
	}
	for i := 0; i < fanout; i++ {
		n.children = append(n.children, buildTree(name+"."+string(rune('0'+i)), depth-1, fanout))
	}
	return n
}

func TestTreeIncremental(t *testing.T) {
	level := levelKind(t, 100)
	s := newStore(t, fixpoint.DefaultConfig())

	var levelAnalysis func(depth int) fixpoint.Analysis
	levelAnalysis = func(depth int) fixpoint.Analysis {
		return func(e fixpoint.Entity) fixpoint.ComputationResult {
			node := e.(*treeNode)
			var next []fixpoint.ScheduledComputation
			for _, child := range node.children {
				next = append(next, fixpoint.ScheduledComputation{Analysis: levelAnalysis(depth + 1), E: child})
			}
			return fixpoint.IncrementalResult{
				Result: fixpoint.Result{E: e, K: level, Value: depth},
				Next:   next,
			}
		}
	}

	root := buildTree("root", 3, 2)
	s.ScheduleEager(levelAnalysis(0), root)
	require.NoError(t, s.WaitOnPhaseCompletion())

	var walk func(n *treeNode, depth int)
	walk = func(n *treeNode, depth int) {
		require.Equalf(t, depth, finalValue(t, s.Read(n, level)), "node %s", n.name)
		for _, c := range n.children {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
}
