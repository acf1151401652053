package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/procflow/pkg/cache"
	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so the caching logic lives in one place.
//
// The Runner holds no per-run state; multiple goroutines can share one
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs load → validate → layout → render on the document read
// from in.
func (r *Runner) Execute(ctx context.Context, in io.Reader, source string, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	loadStart := time.Now()
	g, dropped, err := r.Load(ctx, in, source)
	if err != nil {
		return nil, err
	}
	loadTime := time.Since(loadStart)

	r.Logger.Info("loaded flow",
		"source", source,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration", loadTime)

	result, err := r.ExecuteGraph(ctx, g, opts)
	if result != nil {
		result.Stats.Dropped = dropped
		result.Stats.LoadTime = loadTime
	}
	return result, err
}

// ExecuteGraph runs validate → layout → render on an already loaded graph.
// The graph is modified in place when a layout or error marking runs.
func (r *Runner) ExecuteGraph(ctx context.Context, g *flow.Graph, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		Graph:     g,
		Artifacts: make(map[string][]byte),
	}
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()

	// Stage 1: Validate
	result.Issues = r.Validate(g, opts)
	if opts.Strict {
		for _, is := range result.Issues {
			if is.Severity == flow.SeverityError {
				return result, perrors.New(perrors.ErrCodeInvalidInput, "validation failed: %s", is)
			}
		}
	}

	// Stage 2: Layout
	if opts.Relayout {
		layoutStart := time.Now()
		res, hit, err := r.Relayout(ctx, g, opts)
		if err != nil {
			return nil, fmt.Errorf("layout: %w", err)
		}
		result.Layout = &res
		result.Stats.LayoutTime = time.Since(layoutStart)
		result.CacheInfo.LayoutHit = hit

		r.Logger.Info("computed layout",
			"direction", res.Direction,
			"ranks", res.Ranks,
			"crossings", res.Crossings,
			"cached", hit,
			"duration", result.Stats.LayoutTime)
	}

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = hit
	if h, err := FlowHash(g); err == nil {
		result.FlowHash = h
	}

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Validate reports structural issues in g and, with MarkErrors, flags the
// offending nodes.
func (r *Runner) Validate(g *flow.Graph, opts Options) []flow.Issue {
	issues := flow.Validate(g)
	for _, is := range issues {
		r.Logger.Debug("validation issue", "severity", is.Severity, "id", is.ElementID, "msg", is.Message)
	}
	if opts.MarkErrors {
		n := flow.MarkErrors(g, issues)
		r.Logger.Debug("marked nodes in error", "count", n)
	}
	return issues
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
