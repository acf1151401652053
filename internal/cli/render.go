package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/procflow/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string // output file (single format) or base path (multiple)
	formats    string // comma-separated output formats
	engine     string // "native" or "graphviz"
	relayout   bool   // lay the flow out before drawing
	detailed   bool   // graphviz labels carry type and properties
	strict     bool   // fail on validation errors and missing anchors
	markErrors bool   // draw nodes with validation errors in the error style
	noCache    bool
	refresh    bool
}

// renderCommand creates the render command for drawing flows.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		ro renderOpts
		lf layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "render [flow.json]",
		Short: "Render a flow to SVG, PNG, DOT or JSON",
		Long: `Render a flow to SVG, PNG, DOT or JSON.

The native engine draws every element at its stored position with the BPMN
shapes of the element catalog. The graphviz engine hands the flow to
Graphviz instead, which computes its own layout and is required for PNG.

Use --layout to compute positions first, e.g. for flows that were never laid
out. Several formats can be requested at once: -f svg,dot.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{
				Formats:    parseFormats(ro.formats),
				Engine:     ro.engine,
				Relayout:   ro.relayout,
				Detailed:   ro.detailed,
				Strict:     ro.strict,
				MarkErrors: ro.markErrors,
				Refresh:    ro.refresh,
				Logger:     c.Logger,
			}
			lf.apply(cmd, c.cfg, &opts)
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			if ro.output == "-" && len(opts.Formats) > 1 {
				return fmt.Errorf("cannot write %d formats to stdout", len(opts.Formats))
			}
			return c.runRender(cmd.Context(), args[0], ro, opts)
		},
	}

	cmd.Flags().StringVarP(&ro.output, "output", "o", "", `output file (single format) or base path (multiple); "-" for stdout`)
	cmd.Flags().StringVarP(&ro.formats, "format", "f", "", "output format(s): svg (default), png, dot, json (comma-separated)")
	cmd.Flags().StringVar(&ro.engine, "engine", pipeline.EngineNative, "render engine: native, graphviz")
	cmd.Flags().BoolVar(&ro.relayout, "layout", false, "compute a layout before rendering")
	cmd.Flags().BoolVar(&ro.detailed, "detailed", false, "show element types and properties in graphviz labels")
	cmd.Flags().BoolVar(&ro.strict, "strict", false, "fail on validation errors and missing anchors")
	cmd.Flags().BoolVar(&ro.markErrors, "mark-errors", false, "highlight nodes with validation errors")
	cmd.Flags().BoolVar(&ro.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&ro.refresh, "refresh", false, "re-render even when cached artifacts exist")
	lf.register(cmd)

	return cmd
}

// runRender executes the pipeline and writes one file per format.
func (c *CLI) runRender(ctx context.Context, input string, ro renderOpts, opts pipeline.Options) error {
	runner, err := c.newRunner(ctx, ro.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	in, source, closeIn, err := openInput(input)
	if err != nil {
		return err
	}
	defer closeIn()

	toStdout := ro.output == "-"
	spinner := newSpinner(ctx, fmt.Sprintf("Rendering %s...", strings.Join(opts.Formats, ", ")))
	spinner.Start()
	result, err := runner.Execute(ctx, in, source, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		if result != nil && !toStdout {
			printIssues(result.Issues)
		}
		return err
	}
	spinner.Stop()

	if toStdout {
		_, err := os.Stdout.Write(result.Artifacts[opts.Formats[0]])
		return err
	}

	paths := outputPaths(input, ro.output, opts.Formats)
	for _, format := range opts.Formats {
		if err := os.WriteFile(paths[format], result.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", paths[format], err)
		}
	}

	printSuccess("Rendered %d format(s)", len(opts.Formats))
	for _, format := range opts.Formats {
		printFile(paths[format])
	}
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.RenderHit)
	if result.Stats.Dropped > 0 {
		printWarning("Dropped %d dangling edges", result.Stats.Dropped)
	}
	if n := countErrors(result.Issues); n > 0 {
		printWarning("%d validation error(s); run '%s validate %s' for details", n, appName, input)
	}
	return nil
}

// outputPaths maps every format to its output file. A single format uses
// output verbatim; several formats treat output as a base path.
func outputPaths(input, output string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := derivedPath(input, "")
	if output != "" {
		base = strings.TrimSuffix(output, filepath.Ext(output))
	}
	for _, f := range formats {
		ext := "." + f
		if f == pipeline.FormatJSON {
			ext = ".render.json"
		}
		paths[f] = base + ext
	}
	return paths
}

// openInput opens path for reading; "-" is stdin.
func openInput(path string) (io.Reader, string, func(), error) {
	if path == "-" {
		return os.Stdin, "stdin", func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, path, func() { f.Close() }, nil
}
