package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/relgraph/pkg/links"
	"github.com/ritzau/relgraph/pkg/logging"
	"github.com/ritzau/relgraph/pkg/model"
)

// DefaultFile is the optional config file read from the working directory.
const DefaultFile = "relgraph.toml"

const envPrefix = "RELGRAPH_"

// TrackerConfig holds how to reach the issue tracker.
type TrackerConfig struct {
	URL     string        `koanf:"url"`
	User    string        `koanf:"user"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"`
	// RateLimit caps requests per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

// Config holds all configuration for the application
type Config struct {
	Tracker TrackerConfig `koanf:"tracker"`

	// Extraction
	Root          string   `koanf:"root"`
	Keys          []string `koanf:"keys"`
	Depth         int      `koanf:"depth"`
	Include       []string `koanf:"include"`
	Exclude       []string `koanf:"exclude"`
	Custom        bool     `koanf:"custom"`
	Bidirectional bool     `koanf:"bidirectional"`
	Concurrency   int      `koanf:"concurrency"`
	EpicFields    []string `koanf:"epic_fields"`

	// Output
	Format string `koanf:"format"`
	Out    string `koanf:"out"`

	// Server
	WebMode  bool   `koanf:"web"`
	Port     int    `koanf:"port"`
	Snapshot string `koanf:"snapshot"`
	Watch    bool   `koanf:"watch"`

	Verbosity  string `koanf:"verbosity"`
	VerboseCnt int    `koanf:"verbose"`
	LogFormat  string `koanf:"log_format"` // compact or json
}

// GraphOptions converts the filter settings. Empty include or exclude
// lists are treated as absent.
func (c *Config) GraphOptions() model.GraphOptions {
	opts := model.GraphOptions{
		IncludeCustom: c.Custom,
		Bidirectional: c.Bidirectional,
	}
	if len(c.Include) > 0 {
		opts.IncludeTypes = c.Include
	}
	if len(c.Exclude) > 0 {
		opts.ExcludeTypes = c.Exclude
	}
	return opts
}

// LogLevel resolves the log level. An explicit verbosity wins over the
// -v count: none is info, -v is debug, -vv and more is trace.
func (c *Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Verbosity) {
	case "":
	case "trace":
		return logging.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown verbosity %q", c.Verbosity)
	}

	switch {
	case c.VerboseCnt >= 2:
		return logging.LevelTrace, nil
	case c.VerboseCnt == 1:
		return slog.LevelDebug, nil
	}
	return slog.LevelInfo, nil
}

// Validate checks combinations that cannot be expressed by single flags.
func (c *Config) Validate() error {
	switch {
	case c.Root != "" && len(c.Keys) > 0:
		return errors.New("--root and --keys are mutually exclusive")
	case c.Depth < 0:
		return errors.New("--depth must not be negative")
	case c.Concurrency < 1:
		return errors.New("--concurrency must be at least 1")
	case c.LogFormat != "" && c.LogFormat != logging.FormatCompact && c.LogFormat != logging.FormatJSON:
		return fmt.Errorf("--log-format must be %s or %s", logging.FormatCompact, logging.FormatJSON)
	case c.Watch && c.Snapshot == "":
		return errors.New("--watch requires --snapshot")
	case !c.WebMode && c.Root == "" && len(c.Keys) == 0:
		return errors.New("either --root or --keys is required outside web mode")
	case (c.Root != "" || len(c.Keys) > 0) && c.Tracker.URL == "":
		return errors.New("tracker URL is required to extract (--tracker-url or RELGRAPH_TRACKER_URL)")
	}
	return nil
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFrom(DefaultFile, f)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"tracker": map[string]interface{}{
			"url":        "",
			"user":       "",
			"token":      "",
			"timeout":    "30s",
			"rate_limit": 0.0,
			"burst":      1,
		},
		"root":          "",
		"keys":          []string{},
		"depth":         2,
		"include":       []string{},
		"exclude":       []string{},
		"custom":        true,
		"bidirectional": true,
		"concurrency":   1,
		"epic_fields":   slices.Clone(links.DefaultEpicFields),
		"format":        "summary",
		"out":           "",
		"web":           false,
		"port":          8080,
		"snapshot":      "",
		"watch":         false,
		"verbosity":     "",
		"verbose":       0,
		"log_format":    logging.FormatCompact,
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	// We ignore errors here as the file might not exist
	if path != "" {
		_ = k.Load(file.Provider(path), toml.Parser())
	}

	// 3. Environment Variables
	// Prefix: RELGRAPH_ (e.g., RELGRAPH_PORT=9090, RELGRAPH_TRACKER_URL=...)
	// List settings are comma-separated (RELGRAPH_KEYS=A-1,A-2)
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			return flagKey(fl.Name), posflag.FlagVal(f, fl)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// envKey maps RELGRAPH_TRACKER_URL to tracker.url and RELGRAPH_EPIC_FIELDS
// to epic_fields.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if rest, ok := strings.CutPrefix(s, "tracker_"); ok {
		return "tracker." + rest
	}
	return s
}

// listKeys are the settings whose env values are comma-separated lists.
var listKeys = map[string]bool{
	"keys":        true,
	"include":     true,
	"exclude":     true,
	"epic_fields": true,
}

// envValue maps an env var to its key and splits list values on commas.
func envValue(name, value string) (string, interface{}) {
	key := envKey(name)
	if !listKeys[key] {
		return key, value
	}
	items := []string{}
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// flagKey maps --tracker-rate-limit to tracker.rate_limit and --epic-fields
// to epic_fields.
func flagKey(name string) string {
	if rest, ok := strings.CutPrefix(name, "tracker-"); ok {
		return "tracker." + strings.ReplaceAll(rest, "-", "_")
	}
	return strings.ReplaceAll(name, "-", "_")
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
