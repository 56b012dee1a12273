package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ritzau/relgraph/pkg/cycles"
	"github.com/ritzau/relgraph/pkg/model"
)

var categoryLabels = map[model.Category]string{
	model.Blocks:       "Blocks",
	model.BlockedBy:    "Blocked by",
	model.RelatesTo:    "Relates to",
	model.Duplicates:   "Duplicates",
	model.DuplicatedBy: "Duplicated by",
	model.Parent:       "Parent",
	model.Children:     "Children",
	model.Epic:         "Epic",
	model.Stories:      "Stories",
}

// PrintSummary prints a colored overview of g followed by every non-empty
// record and any circular blocking chains.
func PrintSummary(w io.Writer, g *model.Graph) error {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	md := g.Metadata

	// Header
	bold.Fprintln(w, "Relationship Graph Summary")
	bold.Fprintln(w, "==========================")
	fmt.Fprintf(w, "Source: %s\n", md.Source)
	if md.RootIssue != nil {
		fmt.Fprintf(w, "Root issue: %s\n", *md.RootIssue)
	}
	fmt.Fprintf(w, "Max depth: %d\n", md.MaxDepth)
	fmt.Fprintf(w, "Generated: %s\n", md.Timestamp.Format(time.RFC3339))

	if md.IssueCount == 0 {
		yellow.Fprintln(w, "Issues: 0 (nothing could be fetched)")
	} else {
		green.Fprintf(w, "Issues: %d\n", md.IssueCount)
	}
	fmt.Fprintf(w, "Relationships: %d\n", md.RelationshipCount)

	// Per-issue relationships
	for _, key := range g.Keys() {
		rel := g.Issues[key]
		if rel.IsEmpty() {
			continue
		}
		fmt.Fprintln(w)
		cyan.Fprintf(w, "%s\n", key)
		for _, c := range model.StandardCategories() {
			if targets := rel.Targets(c); len(targets) > 0 {
				fmt.Fprintf(w, "  %s: %s\n", categoryLabels[c], strings.Join(targets, ", "))
			}
		}
		names := make([]string, 0, len(rel.Custom))
		for name := range rel.Custom {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %s\n", name, strings.Join(rel.Custom[name], ", "))
		}
	}

	// Blocking cycles
	found := cycles.FindBlockingCycles(g)
	fmt.Fprintln(w)
	if len(found) == 0 {
		green.Fprintln(w, "✓ No circular blocking chains")
		return nil
	}
	red.Fprintf(w, "CIRCULAR BLOCKING CHAINS: %d\n", len(found))
	for _, c := range found {
		yellow.Fprintf(w, "  %s\n", strings.Join(c.Keys, ", "))
	}
	return nil
}
