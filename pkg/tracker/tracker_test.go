package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const issueJSON = `{
  "id": "10001",
  "key": "PROJ-1",
  "fields": {
    "summary": "Root issue",
    "issuelinks": [
      {"id": "1", "type": {"name": "Blocks", "inward": "is blocked by", "outward": "blocks"},
       "outwardIssue": {"key": "PROJ-2"}},
      {"id": "2", "type": {"name": "Relates", "inward": "relates to", "outward": "relates to"},
       "inwardIssue": {"key": "PROJ-3"}}
    ],
    "parent": {"key": "PROJ-0"},
    "subtasks": [{"key": "PROJ-4"}],
    "customfield_10014": "EPIC-1",
    "customfield_10008": {"key": "EPIC-2"},
    "customfield_10100": null
  }
}`

func TestFieldsUnmarshal(t *testing.T) {
	var issue Issue
	if err := json.Unmarshal([]byte(issueJSON), &issue); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if issue.Key != "PROJ-1" {
		t.Errorf("Key = %q, want PROJ-1", issue.Key)
	}
	if got := len(issue.Fields.IssueLinks); got != 2 {
		t.Fatalf("len(IssueLinks) = %d, want 2", got)
	}
	link := issue.Fields.IssueLinks[0]
	if link.Type.Name != "Blocks" || link.OutwardIssue == nil || link.OutwardIssue.Key != "PROJ-2" {
		t.Errorf("first link = %+v, want Blocks -> PROJ-2", link)
	}
	if link.InwardIssue != nil {
		t.Errorf("first link has unexpected inward issue %+v", link.InwardIssue)
	}
	if issue.Fields.Parent == nil || issue.Fields.Parent.Key != "PROJ-0" {
		t.Errorf("Parent = %+v, want PROJ-0", issue.Fields.Parent)
	}
	if len(issue.Fields.Subtasks) != 1 || issue.Fields.Subtasks[0].Key != "PROJ-4" {
		t.Errorf("Subtasks = %+v, want [PROJ-4]", issue.Fields.Subtasks)
	}
	if _, ok := issue.Fields.Custom["summary"]; !ok {
		t.Error("summary should be kept as a raw custom field")
	}
	if _, ok := issue.Fields.Custom["customfield_10100"]; ok {
		t.Error("null fields should be dropped")
	}
}

func TestFieldsCustomKey(t *testing.T) {
	var issue Issue
	if err := json.Unmarshal([]byte(issueJSON), &issue); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	tests := []struct {
		field string
		want  string
	}{
		{"customfield_10014", "EPIC-1"},
		{"customfield_10008", "EPIC-2"},
		{"customfield_10100", ""},
		{"customfield_99999", ""},
	}
	for _, tt := range tests {
		if got := issue.Fields.CustomKey(tt.field); got != tt.want {
			t.Errorf("CustomKey(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestFieldsRoundTrip(t *testing.T) {
	var issue Issue
	if err := json.Unmarshal([]byte(issueJSON), &issue); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data, err := json.Marshal(issue)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var again Issue
	if err := json.Unmarshal(data, &again); err != nil {
		t.Fatalf("unmarshal again: %v", err)
	}
	if len(again.Fields.IssueLinks) != 2 || again.Fields.Parent.Key != "PROJ-0" {
		t.Errorf("round trip lost typed fields: %+v", again.Fields)
	}
	if again.Fields.CustomKey("customfield_10014") != "EPIC-1" {
		t.Error("round trip lost custom field")
	}
}

func TestHTTPFetcherGetIssue(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(issueJSON))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/", WithBearerToken("secret"), WithTimeout(5*time.Second))
	issue, err := f.GetIssue(context.Background(), "PROJ-1")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if gotPath != "/rest/api/2/issue/PROJ-1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if issue.Key != "PROJ-1" || len(issue.Fields.IssueLinks) != 2 {
		t.Errorf("unexpected issue %+v", issue)
	}
}

func TestHTTPFetcherBasicAuthAndFields(t *testing.T) {
	var user, pass, fields string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		fields = r.URL.Query().Get("fields")
		_, _ = w.Write([]byte(`{"key":"PROJ-9","fields":{}}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, WithBasicAuth("me@example.com", "tok"), WithFields("customfield_10014"))
	if _, err := f.GetIssue(context.Background(), "PROJ-9"); err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if user != "me@example.com" || pass != "tok" {
		t.Errorf("basic auth = %q/%q", user, pass)
	}
	if fields != "issuelinks,parent,subtasks,customfield_10014" {
		t.Errorf("fields = %q", fields)
	}
}

func TestHTTPFetcherNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["Issue does not exist"]}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL).GetIssue(context.Background(), "NOPE-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want *StatusError with 404", err)
	}
	if !strings.Contains(se.Body, "does not exist") {
		t.Errorf("Body = %q", se.Body)
	}
}

func TestHTTPFetcherServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL).GetIssue(context.Background(), "PROJ-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("500 must not match ErrNotFound")
	}
}

func TestHTTPFetcherRateLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"key":"PROJ-1","fields":{}}`))
	}))
	defer srv.Close()

	// One token per hour: the first request passes, the second must wait.
	f := NewHTTPFetcher(srv.URL, WithRateLimit(1.0/3600, 1))
	if _, err := f.GetIssue(context.Background(), "PROJ-1"); err != nil {
		t.Fatalf("first GetIssue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := f.GetIssue(ctx, "PROJ-1"); err == nil {
		t.Fatal("second GetIssue should be held back by the limiter")
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
}

func TestMockFetcher(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockFetcher(&Issue{Key: "A-1"})
	m.Errors["A-2"] = boom

	ctx := context.Background()
	if issue, err := m.GetIssue(ctx, "A-1"); err != nil || issue.Key != "A-1" {
		t.Errorf("GetIssue(A-1) = %v, %v", issue, err)
	}
	if _, err := m.GetIssue(ctx, "A-2"); !errors.Is(err, boom) {
		t.Errorf("GetIssue(A-2) err = %v, want boom", err)
	}
	if _, err := m.GetIssue(ctx, "A-3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetIssue(A-3) err = %v, want ErrNotFound", err)
	}

	calls := m.Calls()
	if strings.Join(calls, ",") != "A-1,A-2,A-3" {
		t.Errorf("Calls() = %v", calls)
	}
}

func TestFetcherFunc(t *testing.T) {
	var f Fetcher = FetcherFunc(func(ctx context.Context, key string) (*Issue, error) {
		return &Issue{Key: key}, nil
	})
	issue, err := f.GetIssue(context.Background(), "X-1")
	if err != nil || issue.Key != "X-1" {
		t.Errorf("GetIssue = %v, %v", issue, err)
	}
}
