package commands

import (
	"maps"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/stubkit/pkg/transform"
	"github.com/spf13/cobra"
)

type hierarchyRow struct {
	Class   string   `json:"class"`
	Parents []string `json:"parents"`
}

// NewHierarchyCommand creates the hierarchy command.
func NewHierarchyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hierarchy <file>",
		Short: "Show the direct parents of each class",
		Long: `Show the direct parents of every class in a tree document, nested classes
included.
Generic parents are listed by their base name.`,
		Example: `  stubkit hierarchy stubs/collections.yaml
  stubkit hierarchy stubs/collections.yaml -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutStore(cmd)

			m, err := cmdCtx.LoadCanonical(args[0])
			if err != nil {
				return err
			}

			supers := transform.ExtractSuperClassNames(m)
			rows := make([]hierarchyRow, 0, len(supers))
			for _, cls := range slices.Sorted(maps.Keys(supers)) {
				parents := supers[cls]
				if parents == nil {
					parents = []string{}
				}
				rows = append(rows, hierarchyRow{Class: cls, Parents: parents})
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmdCtx.Cfg) {
				return writeJSON(out, rows)
			}

			tableRows := make([]table.Row, 0, len(rows))
			for _, r := range rows {
				tableRows = append(tableRows, table.Row{r.Class, strings.Join(r.Parents, ", ")})
			}
			renderTable(out, table.Row{"Class", "Parents"}, tableRows)
			return nil
		},
	}
}
