package commands

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/stubkit/internal/loader"
	"github.com/spf13/cobra"
)

// NewCanonicalizeCommand creates the canonicalize command.
func NewCanonicalizeCommand() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "canonicalize <file>",
		Short: "Rewrite a tree document in canonical order",
		Long: `Sort every declaration list of a tree document by name and structure and
write the result back as YAML. Canonical documents compare equal whenever
they declare the same things, whatever order they were written in.`,
		Example: `  # Show the canonical form
  stubkit canonicalize stubs/os.yaml

  # Rewrite the file in place, sorting overloads too
  stubkit canonicalize stubs/os.yaml --write --sort-signatures`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutStore(cmd)
			path := args[0]

			m, err := cmdCtx.LoadCanonical(path)
			if err != nil {
				return err
			}
			data, err := loader.Encode(m)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", path, err)
			}

			if !write {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(path, data, 0600); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			cmdCtx.Logger.Info("canonicalized", "file", path)
			return nil
		},
	}

	cmd.Flags().Bool("sort-signatures", false, "Sort overload signatures")
	cmd.Flags().BoolVar(&write, "write", false, "Overwrite the document instead of printing it")

	return cmd
}
