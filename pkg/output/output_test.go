package output

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ritzau/relgraph/pkg/model"
)

func init() {
	color.NoColor = true
}

func sampleGraph() *model.Graph {
	g := model.NewGraph("jira")
	g.SetRoot("PROJ-1", 2)

	a := model.NewRelationships()
	a.AddRelationship(model.Blocks, "PROJ-2")
	a.AddRelationship(model.Parent, "PROJ-0")
	a.AddRelationship(model.CustomCategory("Implements"), "PROJ-9")
	g.AddIssue("PROJ-1", a)

	b := model.NewRelationships()
	b.AddRelationship(model.BlockedBy, "PROJ-1")
	b.AddRelationship(model.Blocks, "PROJ-1")
	g.AddIssue("PROJ-2", b)

	g.AddIssue("PROJ-3", model.NewRelationships())
	return g
}

func assertSameGraph(t *testing.T, got, want *model.Graph) {
	t.Helper()
	if len(got.Issues) != len(want.Issues) {
		t.Fatalf("issues = %d, want %d", len(got.Issues), len(want.Issues))
	}
	for key, rel := range want.Issues {
		other, ok := got.Issues[key]
		if !ok || !rel.Equal(&other) {
			t.Errorf("%s: got %+v, want %+v", key, other, rel)
		}
	}
	gm, wm := got.Metadata, want.Metadata
	if gm.RootIssue == nil || *gm.RootIssue != *wm.RootIssue {
		t.Errorf("root = %v", gm.RootIssue)
	}
	if gm.MaxDepth != wm.MaxDepth || gm.Source != wm.Source ||
		gm.IssueCount != wm.IssueCount || gm.RelationshipCount != wm.RelationshipCount {
		t.Errorf("metadata = %+v, want %+v", gm, wm)
	}
	if !gm.Timestamp.Equal(wm.Timestamp) {
		t.Errorf("timestamp = %v, want %v", gm.Timestamp, wm.Timestamp)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			g := sampleGraph()
			var buf bytes.Buffer
			if err := Write(&buf, g, format); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := Read(&buf, format)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			assertSameGraph(t, got, g)
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"graph.json", "graph.yaml"} {
		path := filepath.Join(dir, name)
		g := sampleGraph()
		if err := WriteFile(path, g); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
		got, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", name, err)
		}
		assertSameGraph(t, got, g)
	}
}

func TestJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleGraph(), FormatJSON); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"issues"`, `"metadata"`, `"root_issue"`, `"max_depth"`,
		`"issue_count"`, `"relationship_count"`, `"blocked_by"`, `"custom_implements"`} {
		if !strings.Contains(buf.String(), field) {
			t.Errorf("JSON output lacks %s", field)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"json": FormatJSON, "YAML": FormatYAML, "yml": FormatYAML, "summary": FormatSummary}
	for in, want := range tests {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
	if _, err := Read(strings.NewReader(""), FormatSummary); err == nil {
		t.Error("reading a summary should fail")
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintSummary(&buf, sampleGraph()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Root issue: PROJ-1",
		"Issues: 3",
		"Relationships: 5",
		"  Blocks: PROJ-2",
		"  Parent: PROJ-0",
		"  custom_implements: PROJ-9",
		"CIRCULAR BLOCKING CHAINS: 1",
		"  PROJ-1, PROJ-2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\nPROJ-3\n") {
		t.Error("empty records should not be listed")
	}
}
