package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
	"github.com/matzehuels/procflow/pkg/pipeline"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var (
		asJSON   bool
		warnings bool
	)

	cmd := &cobra.Command{
		Use:   "validate [flow.json]",
		Short: "Report structural problems in a flow",
		Long: `Report structural problems in a flow.

Checks that the flow has a start event, that start events lead somewhere and
end events are reached, that every node is reachable from a start event and
that sequence-flow conditions compile.

Exits non-zero when an error is found; with --warnings, warnings fail too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args[0], asJSON, warnings)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print issues as JSON")
	cmd.Flags().BoolVar(&warnings, "warnings", false, "treat warnings as failures")

	return cmd
}

type validateReport struct {
	Valid   bool         `json:"valid"`
	Issues  []flow.Issue `json:"issues"`
	Dropped int          `json:"dropped"`
}

func (c *CLI) runValidate(ctx context.Context, input string, asJSON, warnings bool) error {
	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return err
	}
	defer runner.Close()

	g, dropped, err := runner.LoadFile(ctx, input)
	if err != nil {
		return err
	}
	issues := runner.Validate(g, pipeline.Options{})

	failures := countErrors(issues)
	if warnings {
		failures = len(issues)
	}
	report := validateReport{Valid: failures == 0, Issues: issues, Dropped: dropped}
	if report.Issues == nil {
		report.Issues = []flow.Issue{}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		if len(issues) == 0 {
			printSuccess("%s is valid", input)
		} else {
			printInfo("%d issue(s) in %s", len(issues), input)
			printIssues(issues)
		}
		if dropped > 0 {
			printWarning("Dropped %d dangling edges", dropped)
		}
	}

	if failures > 0 {
		return perrors.New(perrors.ErrCodeInvalidInput, "%s: %d validation failure(s)", input, failures)
	}
	return nil
}
