package lens

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ritzau/relgraph/pkg/model"
)

// Edge is one recorded relationship of an issue.
type Edge struct {
	From     string         `json:"from"`
	Category model.Category `json:"category"`
	To       string         `json:"to"`
}

// GraphDiff represents the difference between two extracted graphs
type GraphDiff struct {
	AddedIssues    []string `json:"addedIssues"`
	RemovedIssues  []string `json:"removedIssues"`
	ModifiedIssues []string `json:"modifiedIssues"` // Issues whose relationships changed
	AddedEdges     []Edge   `json:"addedEdges"`
	RemovedEdges   []string `json:"removedEdges"` // Edge keys (from|category|to)
	FullGraph      bool     `json:"fullGraph"`    // True if there was nothing to diff against
}

// Empty reports whether the diff carries no change.
func (d *GraphDiff) Empty() bool {
	return !d.FullGraph &&
		len(d.AddedIssues) == 0 && len(d.RemovedIssues) == 0 &&
		len(d.ModifiedIssues) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// GraphSnapshot represents a cached graph state for diffing
type GraphSnapshot struct {
	Hash   string
	Issues map[string]model.Relationships
	Edges  map[string]Edge // edgeKey -> edge
}

// CreateSnapshot creates a snapshot from a graph for diffing
func CreateSnapshot(g *model.Graph) *GraphSnapshot {
	snapshot := &GraphSnapshot{
		Issues: make(map[string]model.Relationships, len(g.Issues)),
		Edges:  make(map[string]Edge),
	}

	for key, rel := range g.Issues {
		snapshot.Issues[key] = rel
	}
	for _, edge := range edges(g) {
		snapshot.Edges[edgeKey(edge)] = edge
	}

	// Hash only the issues; metadata changes on every extraction
	jsonData, _ := json.Marshal(g.Issues)
	hash := sha256.Sum256(jsonData)
	snapshot.Hash = fmt.Sprintf("%x", hash)

	return snapshot
}

// ComputeDiff computes the difference between a snapshot and a new graph
func ComputeDiff(oldSnapshot *GraphSnapshot, newGraph *model.Graph) *GraphDiff {
	newSnapshot := CreateSnapshot(newGraph)

	// If no old snapshot, everything is new
	if oldSnapshot == nil {
		diff := &GraphDiff{FullGraph: true}
		diff.AddedIssues = newGraph.Keys()
		diff.AddedEdges = edges(newGraph)
		return diff
	}

	diff := &GraphDiff{
		AddedIssues:    make([]string, 0),
		RemovedIssues:  make([]string, 0),
		ModifiedIssues: make([]string, 0),
		AddedEdges:     make([]Edge, 0),
		RemovedEdges:   make([]string, 0),
	}
	if oldSnapshot.Hash == newSnapshot.Hash {
		return diff
	}

	for key, rel := range newSnapshot.Issues {
		if old, exists := oldSnapshot.Issues[key]; exists {
			if !old.Equal(&rel) {
				diff.ModifiedIssues = append(diff.ModifiedIssues, key)
			}
		} else {
			diff.AddedIssues = append(diff.AddedIssues, key)
		}
	}
	for key := range oldSnapshot.Issues {
		if _, exists := newSnapshot.Issues[key]; !exists {
			diff.RemovedIssues = append(diff.RemovedIssues, key)
		}
	}

	for key, edge := range newSnapshot.Edges {
		if _, exists := oldSnapshot.Edges[key]; !exists {
			diff.AddedEdges = append(diff.AddedEdges, edge)
		}
	}
	for key := range oldSnapshot.Edges {
		if _, exists := newSnapshot.Edges[key]; !exists {
			diff.RemovedEdges = append(diff.RemovedEdges, key)
		}
	}

	sort.Strings(diff.AddedIssues)
	sort.Strings(diff.RemovedIssues)
	sort.Strings(diff.ModifiedIssues)
	sort.Strings(diff.RemovedEdges)
	sortEdges(diff.AddedEdges)
	return diff
}

// edges lists every recorded relationship of g, sorted.
func edges(g *model.Graph) []Edge {
	var out []Edge
	for key, rel := range g.Issues {
		for _, c := range model.StandardCategories() {
			for _, target := range rel.Targets(c) {
				out = append(out, Edge{From: key, Category: c, To: target})
			}
		}
		for name, targets := range rel.Custom {
			for _, target := range targets {
				out = append(out, Edge{From: key, Category: model.Category(name), To: target})
			}
		}
	}
	sortEdges(out)
	return out
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		return edgeKey(edges[i]) < edgeKey(edges[j])
	})
}

// edgeKey creates a unique key for an edge
func edgeKey(e Edge) string {
	return fmt.Sprintf("%s|%s|%s", e.From, e.Category, e.To)
}
