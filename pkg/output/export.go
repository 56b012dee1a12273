// Package output serializes relationship graphs and prints them for humans.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ritzau/relgraph/pkg/model"
)

// Format selects how a graph is written.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatSummary Format = "summary"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatSummary:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json, yaml or summary)", s)
}

// FormatForPath picks a document format from a file extension, defaulting
// to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Write encodes g to w.
func Write(w io.Writer, g *model.Graph, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(g); err != nil {
			return fmt.Errorf("encoding graph as JSON: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return fmt.Errorf("encoding graph as YAML: %w", err)
		}
		return enc.Close()
	case FormatSummary:
		return PrintSummary(w, g)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// Read decodes a graph written by Write in JSON or YAML.
func Read(r io.Reader, format Format) (*model.Graph, error) {
	var g model.Graph
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&g); err != nil {
			return nil, fmt.Errorf("decoding graph JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&g); err != nil {
			return nil, fmt.Errorf("decoding graph YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("cannot read graphs in %q format", format)
	}
	if g.Issues == nil {
		g.Issues = make(map[string]model.Relationships)
	}
	return &g, nil
}

// WriteFile writes g to path in the format implied by its extension.
func WriteFile(path string, g *model.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, g, FormatForPath(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads a graph from path in the format implied by its extension.
func ReadFile(path string) (*model.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, FormatForPath(path))
}
