package model

import "strings"

// Category names one kind of relationship between two issues.
// The well-known categories are listed below; every other value is a custom
// category and carries the "custom_" prefix.
type Category string

const (
	Blocks       Category = "blocks"
	BlockedBy    Category = "blocked_by"
	RelatesTo    Category = "relates_to"
	Duplicates   Category = "duplicates"
	DuplicatedBy Category = "duplicated_by"
	Parent       Category = "parent"
	Children     Category = "children"
	Epic         Category = "epic"
	Stories      Category = "stories"
)

const (
	customPrefix = "custom_"
	inwardSuffix = "_inward"
	aliasChild   = "child"
	aliasStory   = "story"
)

// CustomCategory returns the outward custom category for a vendor link name.
func CustomCategory(name string) Category {
	return Category(customPrefix + strings.ToLower(name))
}

// CustomInwardCategory returns the inward custom category for a vendor link name.
func CustomInwardCategory(name string) Category {
	return Category(customPrefix + strings.ToLower(name) + inwardSuffix)
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// IsCustom reports whether the category is not one of the well-known ones.
func (c Category) IsCustom() bool {
	switch c.canonical() {
	case Blocks, BlockedBy, RelatesTo, Duplicates, DuplicatedBy,
		Parent, Children, Epic, Stories:
		return false
	}
	return true
}

// Inverse returns the category seen from the other end of the relationship.
// relates_to is its own inverse.
func (c Category) Inverse() Category {
	switch c.canonical() {
	case Blocks:
		return BlockedBy
	case BlockedBy:
		return Blocks
	case RelatesTo:
		return RelatesTo
	case Duplicates:
		return DuplicatedBy
	case DuplicatedBy:
		return Duplicates
	case Parent:
		return Children
	case Children:
		return Parent
	case Epic:
		return Stories
	case Stories:
		return Epic
	}
	s := string(c)
	if strings.HasSuffix(s, inwardSuffix) {
		return Category(strings.TrimSuffix(s, inwardSuffix))
	}
	return Category(s + inwardSuffix)
}

// canonical folds the singular spellings accepted by AddRelationship.
func (c Category) canonical() Category {
	switch string(c) {
	case aliasChild:
		return Children
	case aliasStory:
		return Stories
	}
	return c
}

// StandardCategories lists the well-known categories in record field order.
func StandardCategories() []Category {
	return []Category{
		Blocks, BlockedBy, RelatesTo, Duplicates, DuplicatedBy,
		Parent, Children, Epic, Stories,
	}
}
