package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/procflow/pkg/flow"
)

// catalogCommand creates the catalog command listing element types.
func (c *CLI) catalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the workflow element types",
		Long: `List the workflow element types.

Shows the persisted tag, the runtime name, the default size, the default
label and the connection anchors of every element type. Anchors are
written as id:role, where role is "in" for targets and "out" for sources.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := catalogTable()
			if err != nil {
				return err
			}
			fmt.Println(t.Render())
			return nil
		},
	}
}

func catalogTable() (*table.Table, error) {
	var rows [][]string
	for _, et := range flow.ElementTypes() {
		spec, err := flow.Lookup(et)
		if err != nil {
			return nil, err
		}
		rows = append(rows, catalogRow(spec))
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Tag", "Type", "Kind", "Size", "Label", "Anchors").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			switch col {
			case 0:
				return cell.Foreground(colorCyan)
			case 1:
				return cell.Foreground(colorWhite).Bold(true)
			default:
				return cell.Foreground(colorGray)
			}
		}), nil
}

func catalogRow(spec flow.Spec) []string {
	kind, size, label := "edge", "-", "-"
	if spec.ProducesNode {
		kind = "node"
		size = fmt.Sprintf("%g×%g", spec.DefaultSize.Width, spec.DefaultSize.Height)
	}
	if spec.DefaultLabel != "" {
		label = spec.DefaultLabel
	}

	anchors := make([]string, len(spec.Anchors))
	for i, a := range spec.Anchors {
		role := "in"
		if a.Role == flow.RoleSource {
			role = "out"
		}
		anchors[i] = a.ID + ":" + role
	}
	anchorList := strings.Join(anchors, " ")
	if anchorList == "" {
		anchorList = "-"
	}

	return []string{strconv.Itoa(int(spec.Type)), spec.Tag, kind, size, label, anchorList}
}
