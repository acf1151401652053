package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/procflow/pkg/canvas"
	"github.com/matzehuels/procflow/pkg/pipeline"
)

// editCommand creates the interactive canvas command.
func (c *CLI) editCommand() *cobra.Command {
	var (
		output   string
		relayout bool
		lf       layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "edit [flow.json]",
		Short: "Edit a flow interactively in the terminal",
		Long: `Edit a flow interactively in the terminal.

The element list behaves like the canvas of the web editor: the cursor hovers
elements, space selects them and d deletes the hovered element when its
delete control is offered. Start events cannot be deleted. Deleting a node
removes its sequence flows with it.

Changes are written with w, to the input file unless -o is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts pipeline.Options
			lf.apply(cmd, c.cfg, &opts)
			if output == "" {
				output = args[0]
			}
			return c.runEdit(cmd.Context(), args[0], output, relayout, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to save to (default: the input file)")
	cmd.Flags().BoolVar(&relayout, "layout", false, "lay the flow out before editing")
	lf.register(cmd)

	return cmd
}

func (c *CLI) runEdit(ctx context.Context, input, output string, relayout bool, opts pipeline.Options) error {
	if input == "-" && output == "-" {
		return fmt.Errorf("edit needs a file to save to; use -o")
	}
	if err := opts.ValidateForLayout(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return err
	}
	defer runner.Close()

	g, dropped, err := runner.LoadFile(ctx, input)
	if err != nil {
		return err
	}
	if dropped > 0 {
		printWarning("Dropped %d dangling edges", dropped)
	}

	ctrl := canvas.New(g, canvas.WithLayout(opts.Direction, opts.Smart))
	if relayout {
		if _, err := ctrl.Relayout(); err != nil {
			return fmt.Errorf("compute layout: %w", err)
		}
	}

	prog := newProgress(c.Logger)
	p := tea.NewProgram(NewEditModel(ctrl, output), tea.WithContext(ctx), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}

	fm, ok := final.(EditModel)
	if !ok {
		return nil
	}
	prog.done("edit session closed", "saves", fm.Saved)
	if fm.Saved > 0 {
		printSuccess("Saved flow")
		printFile(output)
	}
	if fm.Dirty {
		printWarning("Quit with unsaved changes")
	}
	return nil
}
