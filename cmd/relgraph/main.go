package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/relgraph/pkg/analysis"
	"github.com/ritzau/relgraph/pkg/config"
	"github.com/ritzau/relgraph/pkg/extract"
	"github.com/ritzau/relgraph/pkg/logging"
	"github.com/ritzau/relgraph/pkg/model"
	"github.com/ritzau/relgraph/pkg/output"
	"github.com/ritzau/relgraph/pkg/tracker"
	"github.com/ritzau/relgraph/pkg/watcher"
	"github.com/ritzau/relgraph/pkg/web"
)

func main() {
	// Parse command-line flags
	flags := pflag.NewFlagSet("relgraph", pflag.ExitOnError)
	config.RegisterFlags(flags)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: relgraph [flags]\n\nExtracts the relationship graph around Jira issues.\n\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	level, err := cfg.LogLevel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := logging.Configure(level, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flags.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WebMode {
		err = serve(ctx, cfg)
	} else {
		err = runOnce(ctx, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newFetcher(cfg *config.Config) tracker.Fetcher {
	opts := []tracker.HTTPOption{
		tracker.WithTimeout(cfg.Tracker.Timeout),
		tracker.WithRateLimit(cfg.Tracker.RateLimit, cfg.Tracker.Burst),
	}
	switch {
	case cfg.Tracker.User != "":
		opts = append(opts, tracker.WithBasicAuth(cfg.Tracker.User, cfg.Tracker.Token))
	case cfg.Tracker.Token != "":
		opts = append(opts, tracker.WithBearerToken(cfg.Tracker.Token))
	}
	opts = append(opts, tracker.WithFields(cfg.EpicFields...))
	return tracker.NewHTTPFetcher(cfg.Tracker.URL, opts...)
}

func extractOptions(cfg *config.Config) []extract.Option {
	return []extract.Option{
		extract.WithConcurrency(cfg.Concurrency),
		extract.WithEpicFields(cfg.EpicFields...),
	}
}

// runOnce extracts a single graph and writes it to --out or stdout.
func runOnce(ctx context.Context, cfg *config.Config) error {
	format, err := output.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	ex, err := extract.New(newFetcher(cfg), extractOptions(cfg)...)
	if err != nil {
		return err
	}

	opts := cfg.GraphOptions()
	var g *model.Graph
	if len(cfg.Keys) > 0 {
		g, err = ex.ExtractBulk(ctx, cfg.Keys, &opts)
	} else {
		g, err = ex.Extract(ctx, cfg.Root, cfg.Depth, &opts)
	}
	if err != nil {
		return fmt.Errorf("extracting: %w", err)
	}

	if cfg.Out == "" {
		return output.Write(os.Stdout, g, format)
	}
	if format == output.FormatSummary {
		// A summary cannot be read back; pick the document format from the file name
		if err := output.WriteFile(cfg.Out, g); err != nil {
			return err
		}
		return output.PrintSummary(os.Stdout, g)
	}
	f, err := os.Create(cfg.Out)
	if err != nil {
		return err
	}
	if err := output.Write(f, g, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// serve runs the web server until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config) error {
	server := web.NewServer()

	var runner *analysis.Runner
	if cfg.Tracker.URL != "" {
		runner = analysis.NewRunner(ctx, newFetcher(cfg), server, extractOptions(cfg)...)
	} else {
		logging.Warn("no tracker configured, extraction over HTTP is disabled")
	}

	if cfg.Snapshot != "" {
		reloader := watcher.NewReloader(cfg.Snapshot, server)
		if err := reloader.Load(); err != nil {
			logging.Warn("initial snapshot not loaded", "error", err)
		}
		if cfg.Watch {
			go func() {
				if err := reloader.Watch(ctx); err != nil {
					logging.Error("snapshot watcher stopped", "error", err)
				}
			}()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Port)
	}()

	if runner != nil && (cfg.Root != "" || len(cfg.Keys) > 0) {
		opts := cfg.GraphOptions()
		runner.Start(ctx, analysis.Request{
			Root:    cfg.Root,
			Keys:    cfg.Keys,
			Depth:   cfg.Depth,
			Options: &opts,
			Reason:  "initial extraction",
		})
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if runner != nil {
		runner.Wait()
	}
	return nil
}
