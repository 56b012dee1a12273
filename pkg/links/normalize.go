// Package links turns fetched issues into relationship records: it maps
// vendor link-type names onto canonical categories and applies the
// extraction filter.
package links

import (
	"strings"

	"github.com/ritzau/relgraph/pkg/model"
)

type categoryPair struct {
	outward model.Category
	inward  model.Category
}

// standard maps lowercased vendor link-type names to their canonical pair.
var standard = map[string]categoryPair{
	"blocks":     {model.Blocks, model.BlockedBy},
	"duplicate":  {model.Duplicates, model.DuplicatedBy},
	"duplicates": {model.Duplicates, model.DuplicatedBy},
	"relates":    {model.RelatesTo, model.RelatesTo},
	"relates to": {model.RelatesTo, model.RelatesTo},
	"clones":     {model.Duplicates, model.DuplicatedBy},
	"causes":     {model.Blocks, model.BlockedBy},
}

// Normalize maps a vendor link-type name (case-insensitive) to the category
// recorded for its outward and inward ends. Unknown names map to
// custom_<name> and custom_<name>_inward.
func Normalize(name string) (outward, inward model.Category) {
	if p, ok := standard[strings.ToLower(name)]; ok {
		return p.outward, p.inward
	}
	return model.CustomCategory(name), model.CustomInwardCategory(name)
}

// IsStandard reports whether the vendor name has a canonical mapping.
func IsStandard(name string) bool {
	_, ok := standard[strings.ToLower(name)]
	return ok
}
