package links

import (
	"github.com/ritzau/relgraph/pkg/model"
	"github.com/ritzau/relgraph/pkg/tracker"
)

// DefaultEpicFields are the custom fields probed, in order, for an issue's
// epic. Jira instances differ in which one holds the epic link.
var DefaultEpicFields = []string{
	"customfield_10014",
	"customfield_10008",
	"customfield_10100",
}

// Extractor builds the relationship record of a single fetched issue.
// It never performs I/O.
type Extractor struct {
	epicFields []string
}

// NewExtractor creates an extractor probing the given epic fields in order.
// With no fields, DefaultEpicFields is used.
func NewExtractor(epicFields ...string) *Extractor {
	if len(epicFields) == 0 {
		epicFields = DefaultEpicFields
	}
	return &Extractor{epicFields: append([]string(nil), epicFields...)}
}

// EpicFields returns the probed custom fields in priority order.
func (e *Extractor) EpicFields() []string {
	return append([]string(nil), e.epicFields...)
}

// Extract returns the filtered, normalized relationships of issue.
//
// Links are filtered on their vendor link-type name before normalization.
// Link types without a canonical mapping are recorded under their custom
// categories only when opts.IncludeCustom is set.
func (e *Extractor) Extract(issue *tracker.Issue, opts model.GraphOptions) model.Relationships {
	rel := model.NewRelationships()
	if issue == nil {
		return rel
	}

	record := func(category model.Category, ref *tracker.IssueRef) {
		if ref == nil || ref.Key == "" {
			return
		}
		if !opts.Bidirectional && ref.Key == issue.Key {
			return
		}
		rel.AddRelationship(category, ref.Key)
	}

	for _, link := range issue.Fields.IssueLinks {
		name := link.Type.Name
		if !opts.Allows(name) {
			continue
		}
		if !IsStandard(name) && !opts.IncludeCustom {
			continue
		}
		outward, inward := Normalize(name)
		record(outward, link.OutwardIssue)
		record(inward, link.InwardIssue)
	}

	if p := issue.Fields.Parent; p != nil && p.Key != "" {
		rel.AddRelationship(model.Parent, p.Key)
	}
	for _, sub := range issue.Fields.Subtasks {
		if sub.Key != "" {
			rel.AddRelationship(model.Children, sub.Key)
		}
	}
	if epic := e.epic(issue); epic != "" {
		rel.AddRelationship(model.Epic, epic)
	}

	return rel
}

func (e *Extractor) epic(issue *tracker.Issue) string {
	for _, field := range e.epicFields {
		if key := issue.Fields.CustomKey(field); key != "" {
			return key
		}
	}
	return ""
}
