// Package cli implements the procflow command-line interface.
//
// Commands load flow documents through [pipeline.Runner], so the CLI and
// the HTTP API share one cache and one set of defaults:
//   - layout: compute node positions and write the laid-out flow
//   - render: draw a flow as SVG, PNG, DOT or JSON
//   - validate: report structural problems in a flow
//   - catalog: list the element types and their anchors
//   - edit: interactive canvas in the terminal
//   - serve: run the HTTP API
//   - cache: inspect and clear the layout cache
//
// Defaults come from the TOML config file (see [config.Load]); flags that
// are set explicitly override it.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/procflow/pkg/buildinfo"
	"github.com/matzehuels/procflow/pkg/cache"
	"github.com/matzehuels/procflow/pkg/config"
	"github.com/matzehuels/procflow/pkg/layout"
	"github.com/matzehuels/procflow/pkg/observability"
	"github.com/matzehuels/procflow/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display and help text.
const appName = "procflow"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger and the built-in
// configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level. At debug level the pipeline,
// cache, HTTP and canvas hooks log through the CLI logger too.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		observability.NewLogHooks(c.Logger).Install()
	}
}

// Config returns the loaded configuration.
func (c *CLI) Config() config.Config { return c.cfg }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Procflow lays out, renders and edits process flow diagrams",
		Long:         `Procflow is a CLI tool for process flow diagrams: it computes layered layouts, renders BPMN-style drawings, validates flows and hosts interactive canvases over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/procflow/config.toml)")

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.catalogCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.Logger.Debug("loaded config", "path", c.configPath, "backend", cfg.Cache.Backend, "direction", cfg.Layout.Direction)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if ns := c.cfg.Cache.Namespace; ns != "" {
		keyer = cache.NewScopedKeyer(nil, ns+":")
	}
	return pipeline.NewRunner(cc, keyer, c.Logger), nil
}

// newCache opens the configured backend, capped at the configured TTL.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	var (
		cc  cache.Cache
		err error
	)
	switch c.cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		err = cache.RetryWithBackoff(ctx, func() error {
			rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
				Addr:     c.cfg.Cache.RedisAddr,
				Password: c.cfg.Cache.RedisPassword,
				DB:       c.cfg.Cache.RedisDB,
			})
			if err == nil {
				cc = rc
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
	default:
		dir, err := c.cfg.CacheDir()
		if err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, fmt.Errorf("open file cache: %w", err)
		}
		cc = fc
	}
	return cache.WithMaxTTL(cc, c.cfg.CacheTTL()), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// layoutFlags are the layout settings shared by layout, render, edit.
type layoutFlags struct {
	direction  string
	smart      bool
	nodeWidth  float64
	nodeHeight float64
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.direction, "direction", "d", "", "layout direction: TB, BT, LR, RL (default from config, else TB)")
	cmd.Flags().BoolVar(&f.smart, "smart", true, "size tiers by their widest node instead of a fixed footprint")
	cmd.Flags().Float64Var(&f.nodeWidth, "node-width", 0, "uniform node width for layout (0: per-node size)")
	cmd.Flags().Float64Var(&f.nodeHeight, "node-height", 0, "uniform node height for layout (0: per-node size)")
}

// apply copies config defaults and explicitly set flags into opts.
func (f *layoutFlags) apply(cmd *cobra.Command, cfg config.Config, opts *pipeline.Options) {
	opts.Direction = cfg.Direction()
	opts.Smart = cfg.Layout.Smart
	opts.NodeWidth = cfg.Layout.NodeWidth
	opts.NodeHeight = cfg.Layout.NodeHeight

	flags := cmd.Flags()
	if flags.Changed("direction") {
		opts.Direction = layout.Direction(f.direction)
	}
	if flags.Changed("smart") {
		opts.Smart = f.smart
	}
	if flags.Changed("node-width") {
		opts.NodeWidth = f.nodeWidth
	}
	if flags.Changed("node-height") {
		opts.NodeHeight = f.nodeHeight
	}
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
