package model

import (
	"sort"
	"time"
)

// Graph is a keyed collection of issue relationships plus metadata describing
// how it was extracted. It is a flat map keyed by issue key; edges are implied
// by the keys each record references.
type Graph struct {
	Issues   map[string]Relationships `json:"issues" yaml:"issues"`
	Metadata Metadata                 `json:"metadata" yaml:"metadata"`
}

// Metadata describes the provenance and size of a Graph.
type Metadata struct {
	RootIssue         *string   `json:"root_issue" yaml:"root_issue"`
	MaxDepth          int       `json:"max_depth" yaml:"max_depth"`
	Timestamp         time.Time `json:"timestamp" yaml:"timestamp"`
	Source            string    `json:"source" yaml:"source"`
	IssueCount        int       `json:"issue_count" yaml:"issue_count"`
	RelationshipCount int       `json:"relationship_count" yaml:"relationship_count"`
}

// NewGraph creates an empty graph labelled with the given source.
func NewGraph(source string) *Graph {
	return &Graph{
		Issues: make(map[string]Relationships),
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
			Source:    source,
		},
	}
}

// SetRoot records the traversal root and depth the graph was extracted with.
func (g *Graph) SetRoot(root string, maxDepth int) {
	g.Metadata.RootIssue = &root
	g.Metadata.MaxDepth = maxDepth
}

// AddIssue stores the record for key, replacing any previous record, and
// refreshes the derived counters.
func (g *Graph) AddIssue(key string, rel Relationships) {
	if g.Issues == nil {
		g.Issues = make(map[string]Relationships)
	}
	g.Issues[key] = rel
	g.updateMetadata()
}

// Get returns the record for key.
func (g *Graph) Get(key string) (Relationships, bool) {
	rel, ok := g.Issues[key]
	return rel, ok
}

// Contains reports whether key has a record in the graph.
func (g *Graph) Contains(key string) bool {
	_, ok := g.Issues[key]
	return ok
}

// Keys returns all issue keys in the graph, sorted.
func (g *Graph) Keys() []string {
	keys := make([]string, 0, len(g.Issues))
	for k := range g.Issues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (g *Graph) updateMetadata() {
	g.Metadata.IssueCount = len(g.Issues)
	total := 0
	for _, rel := range g.Issues {
		total += rel.Count()
	}
	g.Metadata.RelationshipCount = total
}

// RelatedKeys returns every key referenced by key's record, across all
// categories. It returns nil when key is not in the graph.
func (g *Graph) RelatedKeys(key string) []string {
	rel, ok := g.Issues[key]
	if !ok {
		return nil
	}
	return rel.Related()
}

// ShortestPath finds the shortest chain of keys from one issue to another
// using only the relationships already in the graph. The path includes both
// ends. The second return value is false when to is unreachable.
func (g *Graph) ShortestPath(from, to string) ([]string, bool) {
	if from == to {
		return []string{from}, true
	}

	queue := []string{from}
	visited := map[string]bool{from: true}
	parent := make(map[string]string)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, neighbor := range g.RelatedKeys(current) {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			parent[neighbor] = current

			if neighbor == to {
				return backtrack(parent, from, to), true
			}
			queue = append(queue, neighbor)
		}
	}

	return nil, false
}

// backtrack rebuilds a path by following parent pointers from to back to from.
func backtrack(parent map[string]string, from, to string) []string {
	path := []string{to}
	for node := to; node != from; {
		node = parent[node]
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
