package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/procflow/pkg/flowio"
	"github.com/matzehuels/procflow/pkg/pipeline"
)

// layoutCommand creates the layout command for computing node positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		refresh bool
		lf      layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [flow.json]",
		Short: "Compute a layered layout for a flow",
		Long: `Compute a layered layout for a flow.

The layout command reads a flow document, assigns every node to a tier,
orders the tiers to reduce edge crossings and writes the flow back with the
computed positions. Use "-" to read from stdin.

Results are cached, so laying out an unchanged flow again is instant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{Refresh: refresh}
			lf.apply(cmd, c.cfg, &opts)
			return c.runLayout(cmd.Context(), args[0], output, noCache, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", `output file (default: <input>.layout.json, "-" for stdout)`)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even when a cached layout exists")
	lf.register(cmd)

	return cmd
}

// runLayout loads the flow, lays it out, and writes the result.
func (c *CLI) runLayout(ctx context.Context, input, output string, noCache bool, opts pipeline.Options) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	g, dropped, err := runner.LoadFile(ctx, input)
	if err != nil {
		return err
	}

	spinner := newSpinner(ctx, "Computing layout...")
	spinner.Start()
	res, cacheHit, err := runner.Relayout(ctx, g, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = derivedPath(input, ".layout.json")
	}
	if outputPath == "-" {
		return flowio.WriteJSON(g, os.Stdout)
	}
	if err := flowio.ExportJSON(g, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(g.NodeCount(), g.EdgeCount(), cacheHit)
	printDetail("%s · %d tiers · %d crossings", res.Direction, res.Ranks, res.Crossings)
	if dropped > 0 {
		printWarning("Dropped %d dangling edges", dropped)
	}
	printNewline()
	printNextStep("Render", appName+" render "+outputPath)

	return nil
}

// derivedPath replaces input's extension with suffix. Stdin input maps to
// a file named after the flow in the working directory.
func derivedPath(input, suffix string) string {
	if input == "-" {
		return "flow" + suffix
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	base = strings.TrimSuffix(base, ".layout")
	return base + suffix
}
