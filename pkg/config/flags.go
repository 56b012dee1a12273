package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags defines every command-line flag understood by Load.
// Flag defaults are only used for display; unset flags never override the
// config file or environment.
func RegisterFlags(fs *pflag.FlagSet) {
	// Tracker
	fs.String("tracker-url", "", "Base URL of the Jira instance")
	fs.String("tracker-user", "", "User for basic auth (uses the token as password)")
	fs.String("tracker-token", "", "API token; sent as a bearer token when no user is set")
	fs.Duration("tracker-timeout", 0, "Per-request timeout (default 30s)")
	fs.Float64("tracker-rate-limit", 0, "Maximum requests per second (0 = unlimited)")
	fs.Int("tracker-burst", 1, "Requests allowed in a burst above the rate limit")

	// Extraction
	fs.String("root", "", "Issue key to start a breadth-first extraction from")
	fs.StringSlice("keys", nil, "Extract exactly these issues instead of traversing (comma-separated)")
	fs.Int("depth", 2, "Maximum traversal depth from the root")
	fs.StringSlice("include", nil, "Only follow these link types (vendor names, case-insensitive)")
	fs.StringSlice("exclude", nil, "Never follow these link types")
	fs.Bool("custom", true, "Record link types without a standard mapping")
	fs.Bool("bidirectional", true, "Keep links that point back at the issue itself")
	fs.Int("concurrency", 1, "Fetch up to this many issues of the same depth at once")
	fs.StringSlice("epic-fields", nil, "Custom fields probed for an issue's epic")

	// Output
	fs.StringP("format", "f", "summary", "Output format: json, yaml or summary")
	fs.StringP("out", "o", "", "Write the graph to this file instead of stdout")

	// Server
	fs.Bool("web", false, "Serve the graph over HTTP")
	fs.Int("port", 8080, "Port for web server (only used with --web)")
	fs.String("snapshot", "", "Graph file to serve and, with --watch, reload on change")
	fs.Bool("watch", false, "Reload --snapshot when it changes")

	// Logging
	fs.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	fs.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	fs.String("log-format", "compact", "Log output: compact or json")
}
