package lens

import (
	"github.com/ritzau/relgraph/pkg/model"
)

// distanceQueueNode represents a node in the BFS queue
type distanceQueueNode struct {
	key      string
	distance int
}

// ComputeDistances calculates the hop count from each issue to the nearest
// selected issue. Links are followed in both directions, so an issue that is
// only referenced by others is still reached. Unreachable keys are absent.
func ComputeDistances(g *model.Graph, selected []string) map[string]int {
	return computeDistances(buildAdjacencyList(g, nil), selected)
}

func computeDistances(adjacency map[string][]string, selected []string) map[string]int {
	distances := make(map[string]int)

	// Initialize BFS queue with selected nodes at distance 0
	queue := []distanceQueueNode{}
	for _, key := range selected {
		if _, exists := distances[key]; exists {
			continue
		}
		distances[key] = 0
		queue = append(queue, distanceQueueNode{key: key, distance: 0})
	}

	// BFS traversal
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, neighbor := range adjacency[current.key] {
			if _, exists := distances[neighbor]; !exists {
				newDistance := current.distance + 1
				distances[neighbor] = newDistance
				queue = append(queue, distanceQueueNode{key: neighbor, distance: newDistance})
			}
		}
	}

	return distances
}

// buildAdjacencyList creates an undirected adjacency list from the records
// of g, restricted to the categories the config keeps (all when cfg is nil).
func buildAdjacencyList(g *model.Graph, cfg *Config) map[string][]string {
	adjacency := make(map[string][]string)
	link := func(a, b string) {
		adjacency[a] = append(adjacency[a], b)
		adjacency[b] = append(adjacency[b], a)
	}

	for _, key := range g.Keys() {
		rel := g.Issues[key]
		for _, c := range model.StandardCategories() {
			if cfg != nil && !cfg.keeps(c) {
				continue
			}
			for _, target := range rel.Targets(c) {
				link(key, target)
			}
		}
		for name, targets := range rel.Custom {
			if cfg != nil && !cfg.keeps(model.Category(name)) {
				continue
			}
			for _, target := range targets {
				link(key, target)
			}
		}
	}

	return adjacency
}
