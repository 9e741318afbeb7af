package commands

import (
	"fmt"

	"github.com/leapstack-labs/stubkit/internal/loader"
	"github.com/leapstack-labs/stubkit/pkg/format"
	"github.com/leapstack-labs/stubkit/pkg/transform"
	"github.com/spf13/cobra"
)

// NewRenameCommand creates the rename command.
func NewRenameCommand() *cobra.Command {
	var (
		from   string
		to     string
		asYAML bool
	)

	cmd := &cobra.Command{
		Use:   "rename <file> --from <module> --to <module>",
		Short: "Move a tree to a new module name",
		Long: `Rewrite every name qualified by the old module so it is qualified by the
new one, then print the result. Only names whose remaining part has no dot
are rewritten, so nested modules of the old name are left alone.`,
		Example: `  stubkit rename foo.yaml --from foo --to bar
  stubkit rename foo.yaml --from foo --to bar --yaml > bar.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutStore(cmd)

			m, err := cmdCtx.LoadCanonical(args[0])
			if err != nil {
				return err
			}
			if from == "" {
				from = m.Name
			}
			renamed, err := transform.RenameModule(m, from, to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asYAML {
				data, err := loader.Encode(renamed)
				if err != nil {
					return fmt.Errorf("failed to encode: %w", err)
				}
				_, err = out.Write(data)
				return err
			}
			_, err = fmt.Fprintln(out, format.Print(renamed, cmdCtx.PrintOptions()))
			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Module name to replace (default: the document's module)")
	cmd.Flags().StringVar(&to, "to", "", "New module name")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Write the renamed tree as a YAML document")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
