package model

// The types below describe pushing a desired Graph back to the tracker. No
// algorithm in this module produces them yet; they fix the shapes exchanged
// with callers that implement diff and apply themselves.

// ApplyOptions controls how a desired graph is applied to the tracker.
type ApplyOptions struct {
	DryRun              bool `json:"dry_run"`
	CreateMissingIssues bool `json:"create_missing_issues"`
	// MaxOperations caps the number of link operations; 0 means no limit.
	MaxOperations int `json:"max_operations,omitempty"`
}

// ApplyResult reports what an apply run changed.
type ApplyResult struct {
	CreatedLinks []CreatedLink `json:"created_links"`
	DeletedLinks []DeletedLink `json:"deleted_links"`
	Errors       []LinkError   `json:"errors"`
	Summary      string        `json:"summary"`
}

// CreatedLink is a link created during apply.
type CreatedLink struct {
	FromIssue string `json:"from_issue"`
	ToIssue   string `json:"to_issue"`
	LinkType  string `json:"link_type"`
	LinkID    string `json:"link_id,omitempty"`
}

// DeletedLink is a link removed during apply.
type DeletedLink struct {
	FromIssue string `json:"from_issue"`
	ToIssue   string `json:"to_issue"`
	LinkType  string `json:"link_type"`
	LinkID    string `json:"link_id"`
}

// LinkError describes one failed link operation.
type LinkError struct {
	Operation string `json:"operation"`
	FromIssue string `json:"from_issue"`
	ToIssue   string `json:"to_issue"`
	LinkType  string `json:"link_type"`
	Error     string `json:"error"`
}

// RelationshipDiff lists the link operations separating two graphs.
type RelationshipDiff struct {
	LinksToCreate []LinkOperation `json:"links_to_create"`
	LinksToDelete []LinkOperation `json:"links_to_delete"`
	Unchanged     []string        `json:"unchanged"`
}

// LinkOperation is a single create or delete of a link.
type LinkOperation struct {
	FromIssue string `json:"from_issue"`
	ToIssue   string `json:"to_issue"`
	LinkType  string `json:"link_type"`
}
