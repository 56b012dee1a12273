package cycles

import (
	"sort"

	"github.com/ritzau/relgraph/pkg/graph"
	"github.com/ritzau/relgraph/pkg/model"
)

// Cycle is a set of issues that all reach each other through the analyzed
// relationship category.
type Cycle struct {
	Keys []string `json:"keys"` // sorted issue keys in the cycle
}

// FindCycles finds all cycles in an issue graph. Cycles are ordered by their
// first key.
func FindCycles(ig *graph.IssueGraph) []Cycle {
	sccs := components(ig.Graph())

	cycles := make([]Cycle, 0, len(sccs))
	for _, scc := range sccs {
		// Convert node IDs back to issue keys
		keys := make([]string, 0, len(scc))
		for _, id := range scc {
			if key, ok := ig.Key(id); ok {
				keys = append(keys, key)
			}
		}
		if len(keys) > 1 {
			sort.Strings(keys)
			cycles = append(cycles, Cycle{Keys: keys})
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Keys[0] < cycles[j].Keys[0]
	})
	return cycles
}

// FindBlockingCycles reports circular blocking chains in g, where issues
// end up (transitively) blocking themselves.
func FindBlockingCycles(g *model.Graph) []Cycle {
	return FindCycles(graph.Build(g, model.Blocks))
}
