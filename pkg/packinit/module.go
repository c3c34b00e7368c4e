// Package packinit prepares the loader to read bundles from asset packs.
//
// A run checks which packs are on the device, downloads the missing ones
// (waiting for them or not, depending on the settings), reads the manifest
// mapping bundles to packs and installs a transform on the loader that
// rewrites bundle locations to pack paths. A run always succeeds: anything
// that goes wrong becomes a Warning and the loader keeps its default
// bundle locations.
package packinit

import (
	"context"

	"github.com/cfoust/assetpacks/pkg/assetpack"
	"github.com/cfoust/assetpacks/pkg/config"
	"github.com/cfoust/assetpacks/pkg/loader"
	"github.com/cfoust/assetpacks/pkg/manifest"
	"github.com/cfoust/assetpacks/pkg/resolve"

	"github.com/rs/zerolog"
)

const FALLBACK_NOTICE = "Default loading behavior will be used."

type Options struct {
	Settings    config.Settings
	Environment config.Environment
	Platform    assetpack.Platform
	Loader      *loader.Loader
	Fetcher     manifest.Fetcher
	// ContentRoot is where development builds keep pack folders.
	ContentRoot string
	Log         zerolog.Logger
}

// FromConfig fills Options from a processed configuration, choosing the
// manifest source for the environment.
func FromConfig(cfg *config.Config, platform assetpack.Platform, l *loader.Loader, log zerolog.Logger) Options {
	var fetcher manifest.Fetcher = &manifest.URLFetcher{URL: cfg.Manifest.URL}
	if cfg.Environment == config.EnvironmentDevelopment {
		fetcher = &manifest.FileFetcher{Paths: cfg.Manifest.Paths}
	}

	return Options{
		Settings:    cfg.Settings,
		Environment: cfg.Environment,
		Platform:    platform,
		Loader:      l,
		Fetcher:     fetcher,
		ContentRoot: cfg.PackContentRoot,
		Log:         log,
	}
}

type Result struct {
	// Success is always true; the loader must be able to start regardless.
	Success    bool
	Warning    *Warning
	LogWarning bool
	// Resolver is nil unless the transform was installed.
	Resolver *resolve.Resolver
	// Path lists the states the run went through.
	Path []State
}

// Operation is a run in progress.
type Operation struct {
	done   chan struct{}
	result Result
}

func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Result returns the outcome once the run is complete.
func (o *Operation) Result() (Result, bool) {
	select {
	case <-o.done:
		return o.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the run completes or ctx ends. Giving up on the wait
// does not stop the run.
func (o *Operation) Wait(ctx context.Context) (Result, error) {
	select {
	case <-o.done:
		return o.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Start begins a run and returns immediately. Runs are meant to happen
// once per process; starting another one against the same loader replaces
// its transform.
func Start(ctx context.Context, options Options) *Operation {
	if options.Loader == nil {
		options.Loader = loader.New()
	}
	if options.Fetcher == nil {
		options.Fetcher = &manifest.FileFetcher{Paths: []string{manifest.FILENAME}}
	}
	if options.Environment == "" {
		options.Environment = config.EnvironmentDeployed
	}

	operation := &Operation{
		done: make(chan struct{}),
	}

	go func() {
		m := newMachine(options)
		m.run(ctx)
		operation.result = m.complete()
		close(operation.done)
	}()

	return operation
}

// complete reports the terminal state of a run.
func (m *machine) complete() Result {
	result := Result{
		Success:    true,
		Warning:    m.warning,
		LogWarning: m.warning != nil && m.options.Settings.LogWarnings,
		Resolver:   m.resolver,
		Path:       m.trace,
	}

	switch {
	case m.warning != nil:
		runsTotal.WithLabelValues(OUTCOME_WARNING).Inc()
		warningsTotal.WithLabelValues(m.warning.Kind.String()).Inc()
	case m.resolver != nil:
		runsTotal.WithLabelValues(OUTCOME_INSTALLED).Inc()
	default:
		runsTotal.WithLabelValues(OUTCOME_SKIPPED).Inc()
	}

	if result.LogWarning {
		m.log.Warn().
			Str("kind", m.warning.Kind.String()).
			Msgf("%s %s", m.warning.Message, FALLBACK_NOTICE)
	}

	return result
}
