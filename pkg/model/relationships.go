package model

import (
	"encoding/json"
	"slices"
	"sort"
)

// Relationships holds every typed relationship owned by a single issue.
// Sequence fields keep insertion order and may contain duplicates.
type Relationships struct {
	Blocks       []string `json:"blocks" yaml:"blocks"`
	BlockedBy    []string `json:"blocked_by" yaml:"blocked_by"`
	RelatesTo    []string `json:"relates_to" yaml:"relates_to"`
	Duplicates   []string `json:"duplicates" yaml:"duplicates"`
	DuplicatedBy []string `json:"duplicated_by" yaml:"duplicated_by"`

	Parent   *string  `json:"parent" yaml:"parent"`
	Children []string `json:"children" yaml:"children"`

	Epic    *string  `json:"epic" yaml:"epic"`
	Stories []string `json:"stories" yaml:"stories"`

	// Custom maps a custom category name (e.g. "custom_implements") to its targets.
	Custom map[string][]string `json:"custom" yaml:"custom"`
}

// NewRelationships creates an empty relationship record.
func NewRelationships() Relationships {
	return Relationships{Custom: make(map[string][]string)}
}

// IsEmpty reports whether the record holds no relationship at all.
func (r *Relationships) IsEmpty() bool {
	return len(r.Blocks) == 0 &&
		len(r.BlockedBy) == 0 &&
		len(r.RelatesTo) == 0 &&
		len(r.Duplicates) == 0 &&
		len(r.DuplicatedBy) == 0 &&
		r.Parent == nil &&
		len(r.Children) == 0 &&
		r.Epic == nil &&
		len(r.Stories) == 0 &&
		len(r.Custom) == 0
}

// Count returns the number of relationships in the record. Parent and epic
// count as one each when present.
func (r *Relationships) Count() int {
	n := len(r.Blocks) + len(r.BlockedBy) + len(r.RelatesTo) +
		len(r.Duplicates) + len(r.DuplicatedBy) +
		len(r.Children) + len(r.Stories)
	if r.Parent != nil {
		n++
	}
	if r.Epic != nil {
		n++
	}
	for _, targets := range r.Custom {
		n += len(targets)
	}
	return n
}

// AddRelationship records target under the given category. "parent" and
// "epic" replace the current value; "child" and "story" are accepted as
// aliases of "children" and "stories". Unknown categories go to Custom.
func (r *Relationships) AddRelationship(category Category, target string) {
	switch category.canonical() {
	case Blocks:
		r.Blocks = append(r.Blocks, target)
	case BlockedBy:
		r.BlockedBy = append(r.BlockedBy, target)
	case RelatesTo:
		r.RelatesTo = append(r.RelatesTo, target)
	case Duplicates:
		r.Duplicates = append(r.Duplicates, target)
	case DuplicatedBy:
		r.DuplicatedBy = append(r.DuplicatedBy, target)
	case Parent:
		r.Parent = &target
	case Children:
		r.Children = append(r.Children, target)
	case Epic:
		r.Epic = &target
	case Stories:
		r.Stories = append(r.Stories, target)
	default:
		if r.Custom == nil {
			r.Custom = make(map[string][]string)
		}
		r.Custom[string(category)] = append(r.Custom[string(category)], target)
	}
}

// RemoveRelationship drops every occurrence of target from the given
// category. A custom category left empty is removed from Custom.
func (r *Relationships) RemoveRelationship(category Category, target string) {
	drop := func(s string) bool { return s == target }
	switch category.canonical() {
	case Blocks:
		r.Blocks = slices.DeleteFunc(r.Blocks, drop)
	case BlockedBy:
		r.BlockedBy = slices.DeleteFunc(r.BlockedBy, drop)
	case RelatesTo:
		r.RelatesTo = slices.DeleteFunc(r.RelatesTo, drop)
	case Duplicates:
		r.Duplicates = slices.DeleteFunc(r.Duplicates, drop)
	case DuplicatedBy:
		r.DuplicatedBy = slices.DeleteFunc(r.DuplicatedBy, drop)
	case Parent:
		if r.Parent != nil && *r.Parent == target {
			r.Parent = nil
		}
	case Children:
		r.Children = slices.DeleteFunc(r.Children, drop)
	case Epic:
		if r.Epic != nil && *r.Epic == target {
			r.Epic = nil
		}
	case Stories:
		r.Stories = slices.DeleteFunc(r.Stories, drop)
	default:
		targets, ok := r.Custom[string(category)]
		if !ok {
			return
		}
		targets = slices.DeleteFunc(targets, drop)
		if len(targets) == 0 {
			delete(r.Custom, string(category))
		} else {
			r.Custom[string(category)] = targets
		}
	}
}

// Targets returns the keys recorded under a single category.
func (r *Relationships) Targets(category Category) []string {
	switch category.canonical() {
	case Blocks:
		return r.Blocks
	case BlockedBy:
		return r.BlockedBy
	case RelatesTo:
		return r.RelatesTo
	case Duplicates:
		return r.Duplicates
	case DuplicatedBy:
		return r.DuplicatedBy
	case Parent:
		if r.Parent != nil {
			return []string{*r.Parent}
		}
		return nil
	case Children:
		return r.Children
	case Epic:
		if r.Epic != nil {
			return []string{*r.Epic}
		}
		return nil
	case Stories:
		return r.Stories
	}
	return r.Custom[string(category)]
}

// Related returns every key referenced by the record, deduplicated, in field
// order (custom categories last, sorted by name). Direction and category are
// collapsed; use Targets when the kind matters.
func (r *Relationships) Related() []string {
	seen := make(map[string]bool)
	var related []string
	add := func(keys ...string) {
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				related = append(related, k)
			}
		}
	}

	for _, c := range StandardCategories() {
		add(r.Targets(c)...)
	}
	for _, name := range r.customNames() {
		add(r.Custom[name]...)
	}
	return related
}

// Equal reports whether two records hold the same relationships. Nil and
// empty sequences are considered equal.
func (r *Relationships) Equal(o *Relationships) bool {
	for _, c := range StandardCategories() {
		if !slices.Equal(r.Targets(c), o.Targets(c)) {
			return false
		}
	}
	if len(r.Custom) != len(o.Custom) {
		return false
	}
	for name, targets := range r.Custom {
		other, ok := o.Custom[name]
		if !ok || !slices.Equal(targets, other) {
			return false
		}
	}
	return true
}

func (r *Relationships) customNames() []string {
	names := make([]string, 0, len(r.Custom))
	for name := range r.Custom {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON writes absent sequences as [] rather than null so that every
// field is always present in the document.
func (r Relationships) MarshalJSON() ([]byte, error) {
	type plain Relationships
	p := plain(r)
	for _, s := range []*[]string{
		&p.Blocks, &p.BlockedBy, &p.RelatesTo, &p.Duplicates,
		&p.DuplicatedBy, &p.Children, &p.Stories,
	} {
		if *s == nil {
			*s = []string{}
		}
	}
	if p.Custom == nil {
		p.Custom = map[string][]string{}
	}
	return json.Marshal(p)
}
