package tracker

import (
	"encoding/json"
	"fmt"
)

// Issue is the subset of a tracker issue needed to extract relationships.
type Issue struct {
	ID     string `json:"id,omitempty"`
	Key    string `json:"key"`
	Self   string `json:"self,omitempty"`
	Fields Fields `json:"fields"`
}

// IssueRef is a reference to another issue as embedded in links and
// hierarchy fields.
type IssueRef struct {
	ID   string `json:"id,omitempty"`
	Key  string `json:"key"`
	Self string `json:"self,omitempty"`
}

// LinkType describes a vendor link type, e.g. {Name: "Blocks",
// Outward: "blocks", Inward: "is blocked by"}.
type LinkType struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Inward  string `json:"inward,omitempty"`
	Outward string `json:"outward,omitempty"`
}

// IssueLink is one link entry on an issue. Exactly one of OutwardIssue and
// InwardIssue is normally set, but both are handled.
type IssueLink struct {
	ID           string    `json:"id,omitempty"`
	Type         LinkType  `json:"type"`
	OutwardIssue *IssueRef `json:"outwardIssue,omitempty"`
	InwardIssue  *IssueRef `json:"inwardIssue,omitempty"`
}

// Fields holds the typed fields used for relationship extraction and keeps
// every other field raw in Custom, keyed by field identifier.
type Fields struct {
	IssueLinks []IssueLink
	Parent     *IssueRef
	Subtasks   []IssueRef
	Custom     map[string]json.RawMessage
}

const (
	fieldIssueLinks = "issuelinks"
	fieldParent     = "parent"
	fieldSubtasks   = "subtasks"
)

// UnmarshalJSON splits the flat field object into typed and raw fields.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = Fields{Custom: make(map[string]json.RawMessage, len(raw))}
	for name, value := range raw {
		if isNull(value) {
			continue
		}
		var err error
		switch name {
		case fieldIssueLinks:
			err = json.Unmarshal(value, &f.IssueLinks)
		case fieldParent:
			err = json.Unmarshal(value, &f.Parent)
		case fieldSubtasks:
			err = json.Unmarshal(value, &f.Subtasks)
		default:
			f.Custom[name] = value
		}
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
	}
	return nil
}

// MarshalJSON writes typed and raw fields back into one flat object.
func (f Fields) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Custom)+3)
	for name, value := range f.Custom {
		out[name] = value
	}
	if f.IssueLinks != nil {
		out[fieldIssueLinks] = f.IssueLinks
	}
	if f.Parent != nil {
		out[fieldParent] = f.Parent
	}
	if f.Subtasks != nil {
		out[fieldSubtasks] = f.Subtasks
	}
	return json.Marshal(out)
}

// CustomKey returns the issue key held in a custom field. Plain string values
// and objects carrying a "key" are understood. It returns "" when the field is
// absent, empty or of another shape.
func (f *Fields) CustomKey(field string) string {
	value, ok := f.Custom[field]
	if !ok || isNull(value) {
		return ""
	}

	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	var ref IssueRef
	if err := json.Unmarshal(value, &ref); err == nil {
		return ref.Key
	}
	return ""
}

func isNull(value json.RawMessage) bool {
	return len(value) == 0 || string(value) == "null"
}
