package model

import "strings"

// GraphOptions filters which links are kept while extracting relationships.
// It is not persisted with the graph.
type GraphOptions struct {
	// IncludeTypes, when non-nil, keeps only links whose vendor link-type
	// name is listed (case-insensitive).
	IncludeTypes []string `json:"include_types,omitempty"`
	// ExcludeTypes, when non-nil, drops links whose vendor link-type name is
	// listed (case-insensitive).
	ExcludeTypes []string `json:"exclude_types,omitempty"`
	// IncludeCustom keeps link types that have no well-known mapping.
	IncludeCustom bool `json:"include_custom"`
	// Bidirectional records links that point back at the issue itself.
	// When false such self-references are dropped.
	Bidirectional bool `json:"bidirectional"`
}

// DefaultGraphOptions returns options with no type filters, custom link
// types included and self-references kept.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		IncludeCustom: true,
		Bidirectional: true,
	}
}

// Allows reports whether a link with the given vendor name passes the
// include and exclude lists. The two lists are evaluated independently.
func (o *GraphOptions) Allows(vendorName string) bool {
	if o.IncludeTypes != nil && !containsFold(o.IncludeTypes, vendorName) {
		return false
	}
	if o.ExcludeTypes != nil && containsFold(o.ExcludeTypes, vendorName) {
		return false
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
