// Package cycles detects circular relationship chains, such as issues that
// transitively block themselves.
package cycles

import (
	"gonum.org/v1/gonum/graph"
)

// frame is one pending visit: the node and the successors still to explore.
type frame struct {
	id   int64
	succ graph.Nodes
}

// tarjan finds strongly connected components with Tarjan's algorithm. The
// depth-first search keeps its own stack of frames, so long issue chains
// cannot exhaust the goroutine stack.
type tarjan struct {
	g       graph.Directed
	next    int
	index   map[int64]int
	low     map[int64]int
	onStack map[int64]bool
	stack   []int64
	sccs    [][]int64
}

// components returns every strongly connected component of g with more than
// one node. Single nodes are never cycles because self-edges are not stored.
func components(g graph.Directed) [][]int64 {
	t := &tarjan{
		g:       g,
		index:   make(map[int64]int),
		low:     make(map[int64]int),
		onStack: make(map[int64]bool),
	}
	nodes := g.Nodes()
	for nodes.Next() {
		if id := nodes.Node().ID(); !t.visited(id) {
			t.search(id)
		}
	}
	return t.sccs
}

func (t *tarjan) visited(id int64) bool {
	_, ok := t.index[id]
	return ok
}

func (t *tarjan) enter(id int64) frame {
	t.index[id] = t.next
	t.low[id] = t.next
	t.next++
	t.stack = append(t.stack, id)
	t.onStack[id] = true
	return frame{id: id, succ: t.g.From(id)}
}

func (t *tarjan) search(root int64) {
	path := []frame{t.enter(root)}
	for len(path) > 0 {
		top := &path[len(path)-1]
		if top.succ.Next() {
			w := top.succ.Node().ID()
			switch {
			case !t.visited(w):
				path = append(path, t.enter(w))
			case t.onStack[w]:
				t.low[top.id] = min(t.low[top.id], t.index[w])
			}
			continue
		}

		// All successors done: close the component rooted here, then
		// hand the low link back to the caller.
		v := top.id
		path = path[:len(path)-1]
		if t.low[v] == t.index[v] {
			t.pop(v)
		}
		if len(path) > 0 {
			parent := path[len(path)-1].id
			t.low[parent] = min(t.low[parent], t.low[v])
		}
	}
}

func (t *tarjan) pop(root int64) {
	var scc []int64
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == root {
			break
		}
	}
	if len(scc) > 1 {
		t.sccs = append(t.sccs, scc)
	}
}
