package model

import (
	"encoding/json"
	"slices"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestNewGraph(t *testing.T) {
	g := NewGraph("test")

	if g.Metadata.Source != "test" {
		t.Errorf("Source = %q, want test", g.Metadata.Source)
	}
	if g.Metadata.IssueCount != 0 {
		t.Errorf("IssueCount = %d, want 0", g.Metadata.IssueCount)
	}
	if g.Metadata.RelationshipCount != 0 {
		t.Errorf("RelationshipCount = %d, want 0", g.Metadata.RelationshipCount)
	}
	if g.Metadata.RootIssue != nil {
		t.Errorf("RootIssue = %q, want nil", *g.Metadata.RootIssue)
	}
	if g.Metadata.Timestamp.IsZero() {
		t.Error("Timestamp should be set on creation")
	}
}

func TestAddIssue(t *testing.T) {
	g := NewGraph("test")
	rel := NewRelationships()
	rel.Blocks = append(rel.Blocks, "PROJ-124")
	rel.RelatesTo = append(rel.RelatesTo, "PROJ-125")

	g.AddIssue("PROJ-123", rel)

	if g.Metadata.IssueCount != 1 {
		t.Errorf("IssueCount = %d, want 1", g.Metadata.IssueCount)
	}
	if g.Metadata.RelationshipCount != 2 {
		t.Errorf("RelationshipCount = %d, want 2", g.Metadata.RelationshipCount)
	}

	got, ok := g.Get("PROJ-123")
	if !ok {
		t.Fatal("PROJ-123 not found in graph")
	}
	if len(got.Blocks) != 1 || got.Blocks[0] != "PROJ-124" {
		t.Errorf("Blocks = %v, want [PROJ-124]", got.Blocks)
	}
	if !g.Contains("PROJ-123") || g.Contains("PROJ-999") {
		t.Error("Contains() returned wrong result")
	}
}

func TestAddIssue_ReplacesRecord(t *testing.T) {
	g := NewGraph("test")

	first := NewRelationships()
	first.Blocks = []string{"A", "B", "C"}
	g.AddIssue("X", first)

	second := NewRelationships()
	second.RelatesTo = []string{"D"}
	g.AddIssue("X", second)

	if g.Metadata.IssueCount != 1 {
		t.Errorf("IssueCount = %d, want 1", g.Metadata.IssueCount)
	}
	if g.Metadata.RelationshipCount != 1 {
		t.Errorf("RelationshipCount = %d, want 1 after replacement", g.Metadata.RelationshipCount)
	}
	got, _ := g.Get("X")
	if len(got.Blocks) != 0 {
		t.Errorf("Blocks = %v, re-adding a key should replace, not merge", got.Blocks)
	}
}

func TestRelationshipCount_AllFields(t *testing.T) {
	g := NewGraph("test")

	a := Relationships{
		Blocks:       []string{"B1", "B2"},
		BlockedBy:    []string{"BB"},
		RelatesTo:    []string{"R"},
		Duplicates:   []string{"D"},
		DuplicatedBy: []string{"DB"},
		Parent:       strPtr("P"),
		Children:     []string{"C1", "C2", "C3"},
		Epic:         strPtr("E"),
		Stories:      []string{"S"},
		Custom: map[string][]string{
			"custom_implements":        {"I1", "I2"},
			"custom_implements_inward": {"I3"},
		},
	}
	g.AddIssue("A", a)

	b := NewRelationships()
	b.Parent = strPtr("A")
	g.AddIssue("B", b)

	// 2+1+1+1+1 +1 +3 +1 +1 +3 = 15 for A, 1 for B
	if g.Metadata.RelationshipCount != 16 {
		t.Errorf("RelationshipCount = %d, want 16", g.Metadata.RelationshipCount)
	}
	if g.Metadata.IssueCount != 2 {
		t.Errorf("IssueCount = %d, want 2", g.Metadata.IssueCount)
	}
}

func TestRelationships_IsEmpty(t *testing.T) {
	for _, tc := range []struct {
		name string
		rel  Relationships
		want bool
	}{
		{"zero value", Relationships{}, true},
		{"new", NewRelationships(), true},
		{"blocks", Relationships{Blocks: []string{"A"}}, false},
		{"parent", Relationships{Parent: strPtr("A")}, false},
		{"epic", Relationships{Epic: strPtr("A")}, false},
		{"custom", Relationships{Custom: map[string][]string{"custom_x": {"A"}}}, false},
	} {
		if got := tc.rel.IsEmpty(); got != tc.want {
			t.Errorf("%s: IsEmpty() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRelationships_AddRemove(t *testing.T) {
	rel := NewRelationships()

	rel.AddRelationship(Blocks, "PROJ-124")
	rel.AddRelationship(BlockedBy, "PROJ-122")
	rel.AddRelationship(Parent, "PROJ-100")
	rel.AddRelationship("child", "PROJ-130")
	rel.AddRelationship("custom_implements", "PROJ-200")

	if len(rel.Blocks) != 1 || rel.Blocks[0] != "PROJ-124" {
		t.Errorf("Blocks = %v", rel.Blocks)
	}
	if rel.Parent == nil || *rel.Parent != "PROJ-100" {
		t.Errorf("Parent = %v, want PROJ-100", rel.Parent)
	}
	if len(rel.Children) != 1 {
		t.Errorf("Children = %v, want [PROJ-130]", rel.Children)
	}
	if len(rel.Custom["custom_implements"]) != 1 {
		t.Errorf("Custom = %v", rel.Custom)
	}

	rel.RemoveRelationship(Blocks, "PROJ-124")
	rel.RemoveRelationship(Parent, "PROJ-100")
	rel.RemoveRelationship(Children, "PROJ-130")
	rel.RemoveRelationship("custom_implements", "PROJ-200")

	if len(rel.Blocks) != 0 {
		t.Errorf("Blocks = %v, want empty", rel.Blocks)
	}
	if rel.Parent != nil {
		t.Errorf("Parent = %q, want nil", *rel.Parent)
	}
	if _, ok := rel.Custom["custom_implements"]; ok {
		t.Error("empty custom category should be removed")
	}
	if rel.IsEmpty() {
		t.Error("record still has blocked_by, should not be empty")
	}
}

func TestRelationships_RemoveParentOnlyWhenMatching(t *testing.T) {
	rel := NewRelationships()
	rel.AddRelationship(Parent, "P-1")
	rel.RemoveRelationship(Parent, "P-2")
	if rel.Parent == nil {
		t.Error("removing a different parent should keep the current one")
	}
}

func TestRelationships_Related(t *testing.T) {
	rel := Relationships{
		Blocks:    []string{"PROJ-124", "PROJ-124"},
		BlockedBy: []string{"PROJ-122"},
		RelatesTo: []string{"PROJ-125"},
		Parent:    strPtr("PROJ-100"),
		Epic:      strPtr("PROJ-50"),
		Children:  []string{"PROJ-126"},
		Custom:    map[string][]string{"custom_x": {"PROJ-122", "PROJ-300"}},
	}

	got := rel.Related()
	want := []string{"PROJ-124", "PROJ-122", "PROJ-125", "PROJ-100", "PROJ-126", "PROJ-50", "PROJ-300"}
	if !slices.Equal(got, want) {
		t.Errorf("Related() = %v, want %v", got, want)
	}
}

func TestCategory_Inverse(t *testing.T) {
	for _, tc := range []struct {
		in, want Category
	}{
		{Blocks, BlockedBy},
		{BlockedBy, Blocks},
		{RelatesTo, RelatesTo},
		{Duplicates, DuplicatedBy},
		{Parent, Children},
		{Epic, Stories},
		{"custom_implements", "custom_implements_inward"},
		{"custom_implements_inward", "custom_implements"},
	} {
		if got := tc.in.Inverse(); got != tc.want {
			t.Errorf("Category(%q).Inverse() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCategory_IsCustom(t *testing.T) {
	for _, c := range StandardCategories() {
		if c.IsCustom() {
			t.Errorf("Category(%q).IsCustom() = true, want false", c)
		}
	}
	if !CustomCategory("Implements").IsCustom() {
		t.Error("custom_implements should be custom")
	}
	if got := CustomInwardCategory("Implements"); got != "custom_implements_inward" {
		t.Errorf("CustomInwardCategory() = %q", got)
	}
}

func TestGraphOptions_Allows(t *testing.T) {
	defaults := DefaultGraphOptions()
	if !defaults.Allows("Anything") {
		t.Error("default options should allow every link type")
	}

	opts := GraphOptions{IncludeTypes: []string{"blocks"}}
	if !opts.Allows("Blocks") {
		t.Error("include list should match case-insensitively")
	}
	if opts.Allows("Relates") {
		t.Error("Relates is not in the include list")
	}

	opts = GraphOptions{ExcludeTypes: []string{"Cloners"}}
	if opts.Allows("cloners") {
		t.Error("cloners should be excluded")
	}

	opts = GraphOptions{IncludeTypes: []string{"Blocks"}, ExcludeTypes: []string{"blocks"}}
	if opts.Allows("Blocks") {
		t.Error("exclude list applies even when include list matches")
	}
}

func buildChain(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph("test")

	a := NewRelationships()
	a.Blocks = []string{"PROJ-B"}
	g.AddIssue("PROJ-A", a)

	b := NewRelationships()
	b.Blocks = []string{"PROJ-C"}
	g.AddIssue("PROJ-B", b)

	g.AddIssue("PROJ-C", NewRelationships())
	return g
}

func TestRelatedKeys(t *testing.T) {
	g := buildChain(t)

	if got := g.RelatedKeys("PROJ-A"); !slices.Equal(got, []string{"PROJ-B"}) {
		t.Errorf("RelatedKeys(PROJ-A) = %v", got)
	}
	if got := g.RelatedKeys("PROJ-C"); len(got) != 0 {
		t.Errorf("RelatedKeys(PROJ-C) = %v, want none", got)
	}
	if got := g.RelatedKeys("PROJ-Z"); got != nil {
		t.Errorf("RelatedKeys of absent key = %v, want nil", got)
	}
}

func TestShortestPath(t *testing.T) {
	g := buildChain(t)

	path, ok := g.ShortestPath("PROJ-A", "PROJ-C")
	if !ok {
		t.Fatal("expected a path from PROJ-A to PROJ-C")
	}
	if want := []string{"PROJ-A", "PROJ-B", "PROJ-C"}; !slices.Equal(path, want) {
		t.Errorf("path = %v, want %v", path, want)
	}

	path, ok = g.ShortestPath("PROJ-A", "PROJ-A")
	if !ok || !slices.Equal(path, []string{"PROJ-A"}) {
		t.Errorf("self path = %v, %v, want [PROJ-A]", path, ok)
	}

	if path, ok := g.ShortestPath("PROJ-A", "PROJ-Z"); ok {
		t.Errorf("expected no path to PROJ-Z, got %v", path)
	}
	if path, ok := g.ShortestPath("PROJ-C", "PROJ-A"); ok {
		t.Errorf("edges are directional, expected no path, got %v", path)
	}
}

func TestShortestPath_PrefersFewerHops(t *testing.T) {
	g := NewGraph("test")

	a := NewRelationships()
	a.RelatesTo = []string{"B", "D"}
	g.AddIssue("A", a)

	b := NewRelationships()
	b.RelatesTo = []string{"C"}
	g.AddIssue("B", b)

	c := NewRelationships()
	c.RelatesTo = []string{"D"}
	g.AddIssue("C", c)

	d := NewRelationships()
	d.Blocks = []string{"E"}
	g.AddIssue("D", d)

	path, ok := g.ShortestPath("A", "E")
	if !ok {
		t.Fatal("expected a path")
	}
	if want := []string{"A", "D", "E"}; !slices.Equal(path, want) {
		t.Errorf("path = %v, want %v", path, want)
	}
}

func TestShortestPath_Cycle(t *testing.T) {
	g := NewGraph("test")
	a := NewRelationships()
	a.Blocks = []string{"B"}
	g.AddIssue("A", a)
	b := NewRelationships()
	b.Blocks = []string{"A"}
	g.AddIssue("B", b)

	if path, ok := g.ShortestPath("A", "Z"); ok {
		t.Errorf("expected no path, got %v", path)
	}
}

func TestGraphJSONRoundTrip(t *testing.T) {
	g := NewGraph("test")
	g.SetRoot("PROJ-123", 2)

	rel := NewRelationships()
	rel.Blocks = []string{"PROJ-124"}
	rel.BlockedBy = []string{"PROJ-122"}
	rel.Parent = strPtr("PROJ-100")
	rel.Custom["custom_implements"] = []string{"PROJ-200"}
	g.AddIssue("PROJ-123", rel)
	g.AddIssue("PROJ-124", NewRelationships())

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded Graph
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(decoded.Issues) != len(g.Issues) {
		t.Fatalf("decoded %d issues, want %d", len(decoded.Issues), len(g.Issues))
	}
	for key, want := range g.Issues {
		got, ok := decoded.Issues[key]
		if !ok {
			t.Fatalf("issue %s missing after round trip", key)
		}
		if !got.Equal(&want) {
			t.Errorf("issue %s = %+v, want %+v", key, got, want)
		}
	}

	m := decoded.Metadata
	if m.RootIssue == nil || *m.RootIssue != "PROJ-123" {
		t.Errorf("RootIssue = %v, want PROJ-123", m.RootIssue)
	}
	if m.MaxDepth != 2 || m.Source != "test" {
		t.Errorf("MaxDepth/Source = %d/%q", m.MaxDepth, m.Source)
	}
	if !m.Timestamp.Equal(g.Metadata.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", m.Timestamp, g.Metadata.Timestamp)
	}
	if m.IssueCount != 2 || m.RelationshipCount != 4 {
		t.Errorf("counts = %d/%d, want 2/4", m.IssueCount, m.RelationshipCount)
	}
}

func TestRelationshipsJSON_EmptyFieldsPresent(t *testing.T) {
	data, err := json.Marshal(Relationships{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, name := range []string{"blocks", "blocked_by", "relates_to", "duplicates", "duplicated_by", "children", "stories"} {
		if string(fields[name]) != "[]" {
			t.Errorf("%s = %s, want []", name, fields[name])
		}
	}
	if string(fields["parent"]) != "null" {
		t.Errorf("parent = %s, want null", fields["parent"])
	}
	if string(fields["custom"]) != "{}" {
		t.Errorf("custom = %s, want {}", fields["custom"])
	}
}
