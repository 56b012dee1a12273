package lens

import (
	"github.com/ritzau/relgraph/pkg/model"
)

// View is a rendered lens: the visible subgraph and each visible issue's
// distance from the focus.
type View struct {
	Graph     *model.Graph   `json:"graph"`
	Distances map[string]int `json:"distances"`
}

// Render applies cfg to g. Relationships outside cfg.Categories are dropped
// before distances are computed, so distance follows only visible edges.
// The rendered graph keeps g's metadata apart from the derived counts.
func Render(g *model.Graph, cfg *Config) *View {
	if cfg == nil {
		cfg = &Config{}
	}

	distances := computeDistances(buildAdjacencyList(g, cfg), cfg.focus(g))

	out := &model.Graph{
		Issues:   make(map[string]model.Relationships),
		Metadata: g.Metadata,
	}
	visible := make(map[string]int)
	for _, key := range g.Keys() {
		d, reachable := distances[key]
		if cfg.MaxDistance != nil && (!reachable || d > *cfg.MaxDistance) {
			continue
		}
		if reachable {
			visible[key] = d
		}
		out.AddIssue(key, filterRelationships(g.Issues[key], cfg))
	}
	if len(out.Issues) == 0 {
		out.Metadata.IssueCount = 0
		out.Metadata.RelationshipCount = 0
	}

	return &View{Graph: out, Distances: visible}
}

func filterRelationships(rel model.Relationships, cfg *Config) model.Relationships {
	if len(cfg.Categories) == 0 {
		return rel
	}

	out := model.NewRelationships()
	for _, c := range model.StandardCategories() {
		if !cfg.keeps(c) {
			continue
		}
		for _, target := range rel.Targets(c) {
			out.AddRelationship(c, target)
		}
	}
	for name, targets := range rel.Custom {
		if !cfg.keeps(model.Category(name)) {
			continue
		}
		for _, target := range targets {
			out.AddRelationship(model.Category(name), target)
		}
	}
	return out
}
