// Package graph projects an extracted relationship graph onto a gonum
// directed graph so that general graph algorithms can run over it.
package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/ritzau/relgraph/pkg/model"
)

// IssueGraph is a directed graph of issue keys backed by gonum.
type IssueGraph struct {
	graph  *simple.DirectedGraph
	ids    map[string]int64 // issue key -> graph ID
	keys   map[int64]string // graph ID -> issue key
	nextID int64
}

// NewIssueGraph creates an empty issue graph
func NewIssueGraph() *IssueGraph {
	return &IssueGraph{
		graph: simple.NewDirectedGraph(),
		ids:   make(map[string]int64),
		keys:  make(map[int64]string),
	}
}

// AddIssue adds a node for key if not present and returns its graph ID
func (ig *IssueGraph) AddIssue(key string) int64 {
	if id, exists := ig.ids[key]; exists {
		return id
	}

	id := ig.nextID
	ig.ids[key] = id
	ig.keys[id] = key
	ig.graph.AddNode(simple.Node(id))
	ig.nextID++
	return id
}

// AddEdge adds a directed edge, creating missing nodes. Self-edges are
// ignored since the underlying graph cannot hold them.
func (ig *IssueGraph) AddEdge(from, to string) {
	fromID := ig.AddIssue(from)
	toID := ig.AddIssue(to)
	if fromID == toID || ig.graph.HasEdgeFromTo(fromID, toID) {
		return
	}
	ig.graph.SetEdge(ig.graph.NewEdge(ig.graph.Node(fromID), ig.graph.Node(toID)))
}

// Graph returns the underlying directed graph
func (ig *IssueGraph) Graph() *simple.DirectedGraph {
	return ig.graph
}

// ID returns the graph ID of key.
func (ig *IssueGraph) ID(key string) (int64, bool) {
	id, ok := ig.ids[key]
	return id, ok
}

// Key returns the issue key of a graph ID.
func (ig *IssueGraph) Key(id int64) (string, bool) {
	key, ok := ig.keys[id]
	return key, ok
}

// Keys returns all issue keys, sorted
func (ig *IssueGraph) Keys() []string {
	keys := make([]string, 0, len(ig.ids))
	for key := range ig.ids {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Edges returns all edges as [from, to] pairs, sorted
func (ig *IssueGraph) Edges() [][2]string {
	var edges [][2]string
	iter := ig.graph.Edges()
	for iter.Next() {
		e := iter.Edge()
		edges = append(edges, [2]string{ig.keys[e.From().ID()], ig.keys[e.To().ID()]})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// Successors returns the keys key has an edge to, sorted
func (ig *IssueGraph) Successors(key string) []string {
	id, exists := ig.ids[key]
	if !exists {
		return nil
	}

	var out []string
	iter := ig.graph.From(id)
	for iter.Next() {
		out = append(out, ig.keys[iter.Node().ID()])
	}
	sort.Strings(out)
	return out
}

// Build projects g onto an IssueGraph. With categories given, an edge
// a -> b exists when a records b under one of them, or when b records a under
// its inverse, so a link seen from either end yields the same edge. Symmetric
// categories such as relates_to only contribute forward edges. With no
// categories every relationship of a record becomes a forward edge.
//
// Every key of g becomes a node, as do referenced keys missing from g.
func Build(g *model.Graph, categories ...model.Category) *IssueGraph {
	ig := NewIssueGraph()
	keys := g.Keys()
	for _, key := range keys {
		ig.AddIssue(key)
	}

	for _, key := range keys {
		rel := g.Issues[key]
		if len(categories) == 0 {
			for _, target := range rel.Related() {
				ig.AddEdge(key, target)
			}
			continue
		}
		for _, c := range categories {
			for _, target := range rel.Targets(c) {
				ig.AddEdge(key, target)
			}
			if inv := c.Inverse(); inv != c {
				for _, source := range rel.Targets(inv) {
					ig.AddEdge(source, key)
				}
			}
		}
	}
	return ig
}
