// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fixpoint

// Strongly-connected components over the dependency graph restricted to
// non-final cells, used by cycle resolution at phase completion. Tarjan's
// algorithm with an explicit work stack — cycles can span tens of
// thousands of cells, so recursion depth must not track component size.

type sccNodeState struct {
	index   int32
	lowlink int32
	onStack bool
	visited bool
}

// stronglyConnected returns the strongly-connected components of the
// graph given by adj (indices into nodes), in reverse topological order.
func stronglyConnected(n int, adj [][]int32) [][]int32 {
	states := make([]sccNodeState, n)
	stack := make([]int32, 0, n)
	var comps [][]int32
	var next int32

	type frame struct {
		v    int32
		edge int
	}
	var work []frame

	for start := 0; start < n; start++ {
		if states[start].visited {
			continue
		}
		work = append(work[:0], frame{v: int32(start)})
		for len(work) > 0 {
			f := &work[len(work)-1]
			v := f.v
			st := &states[v]
			if f.edge == 0 {
				st.visited = true
				st.index = next
				st.lowlink = next
				next++
				stack = append(stack, v)
				st.onStack = true
			}
			advanced := false
			for f.edge < len(adj[v]) {
				w := adj[v][f.edge]
				f.edge++
				ws := &states[w]
				if !ws.visited {
					work = append(work, frame{v: w})
					advanced = true
					break
				}
				if ws.onStack && ws.index < st.lowlink {
					st.lowlink = ws.index
				}
			}
			if advanced {
				continue
			}
			if st.lowlink == st.index {
				var comp []int32
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					states[w].onStack = false
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				comps = append(comps, comp)
			}
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := &states[work[len(work)-1].v]
				if st.lowlink < parent.lowlink {
					parent.lowlink = st.lowlink
				}
			}
		}
	}
	return comps
}
