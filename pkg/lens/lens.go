// Package lens computes views over an extracted relationship graph: hop
// distances from focused issues, category-restricted subgraphs and diffs
// between successive extractions.
package lens

import "github.com/ritzau/relgraph/pkg/model"

// Config describes which part of a graph a client wants to see.
type Config struct {
	// Focus lists the issues distances are measured from. Empty means the
	// graph's root issue, or every issue when there is none.
	Focus []string `json:"focus,omitempty"`
	// Categories restricts relationships to these categories. Empty keeps all.
	Categories []model.Category `json:"categories,omitempty"`
	// MaxDistance hides issues more than this many hops from the focus.
	// Nil shows issues at any distance, including unreachable ones.
	MaxDistance *int `json:"maxDistance,omitempty"`
}

// focus resolves the issues distances start from.
func (c *Config) focus(g *model.Graph) []string {
	if len(c.Focus) > 0 {
		return c.Focus
	}
	if g.Metadata.RootIssue != nil {
		return []string{*g.Metadata.RootIssue}
	}
	return g.Keys()
}

// keeps reports whether relationships of category pass the config.
func (c *Config) keeps(category model.Category) bool {
	if len(c.Categories) == 0 {
		return true
	}
	for _, want := range c.Categories {
		if want == category {
			return true
		}
	}
	return false
}
