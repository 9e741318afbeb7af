package commands

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/stubkit/pkg/format"
	"github.com/leapstack-labs/stubkit/pkg/pytd"
	"github.com/leapstack-labs/stubkit/pkg/transform"
	"github.com/spf13/cobra"
)

type typeVarRow struct {
	Name        string   `json:"name"`
	Bound       string   `json:"bound,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
	Scope       string   `json:"scope,omitempty"`
}

// NewTypeVarsCommand creates the typevars command.
func NewTypeVarsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "typevars <file>",
		Short: "List the type variables used in a tree",
		Long: `List every type variable referenced anywhere in a tree document, in the
order they are first met. When one name appears several times only its
first occurrence is listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutStore(cmd)

			m, err := cmdCtx.LoadCanonical(args[0])
			if err != nil {
				return err
			}

			var rows []typeVarRow
			for _, tp := range transform.CollectTypeParameters(m) {
				rows = append(rows, typeVarToRow(tp))
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmdCtx.Cfg) {
				if rows == nil {
					rows = []typeVarRow{}
				}
				return writeJSON(out, rows)
			}

			tableRows := make([]table.Row, 0, len(rows))
			for _, r := range rows {
				tableRows = append(tableRows, table.Row{r.Name, r.Bound, strings.Join(r.Constraints, ", "), r.Scope})
			}
			renderTable(out, table.Row{"Name", "Bound", "Constraints", "Scope"}, tableRows)
			return nil
		},
	}
}

func typeVarToRow(tp *pytd.TypeParameter) typeVarRow {
	row := typeVarRow{Name: tp.Name, Scope: tp.Scope}
	if tp.Bound != nil {
		row.Bound = format.PrintType(tp.Bound)
	}
	for _, c := range tp.Constraints {
		row.Constraints = append(row.Constraints, format.PrintType(c))
	}
	return row
}
