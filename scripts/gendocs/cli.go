package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/stubkit/internal/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// generateCLIDocs writes index.md plus one page per command, subcommands
// included, into outDir.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rootCmd := cli.NewRootCmd()
	if err := writePage(filepath.Join(outDir, "index.md"), cliIndex(rootCmd)); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}

	var walk func(cmds []*cobra.Command) error
	walk = func(cmds []*cobra.Command) error {
		for _, cmd := range cmds {
			name := pageName(cmd)
			if err := writePage(filepath.Join(outDir, name+".md"), commandPage(cmd)); err != nil {
				return fmt.Errorf("failed to generate page for %s: %w", cmd.CommandPath(), err)
			}
			if err := walk(documentedCommands(cmd)); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(documentedCommands(rootCmd))
}

func writePage(path string, w *MarkdownWriter) error {
	if err := os.WriteFile(path, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated %s", filepath.Base(path))
	return nil
}

// documentedCommands returns the subcommands of cmd that get a page.
func documentedCommands(cmd *cobra.Command) []*cobra.Command {
	var cmds []*cobra.Command
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "__complete" {
			continue
		}
		cmds = append(cmds, sub)
	}
	return cmds
}

// pageName is the command path without the binary name, joined by dashes:
// "stubkit cache stats" becomes "cache-stats".
func pageName(cmd *cobra.Command) string {
	parts := strings.Fields(cmd.CommandPath())
	return strings.Join(parts[1:], "-")
}

func commandLink(cmd *cobra.Command) string {
	name := strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()+" ")
	return fmt.Sprintf("[%s](/cli/%s)", InlineCode(name), pageName(cmd))
}

// cliIndex builds the CLI overview page.
func cliIndex(rootCmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for stubkit")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(rootCmd.Long)

	w.Header(2, "Installation")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/stubkit/cmd/stubkit@latest")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range documentedCommands(rootCmd) {
		rows = append(rows, []string{commandLink(cmd), cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	w.Paragraph("These flags are available for all commands:")
	writeFlagsTable(w, rootCmd.PersistentFlags())

	w.Header(2, "Environment Variables")
	w.Paragraph("Every configuration key can be set from the environment with the `STUBKIT_` prefix:")
	var envRows [][]string
	for _, f := range configSchema() {
		envRows = append(envRows, []string{InlineCode(envName(f.Key)), f.Description})
	}
	w.Table([]string{"Variable", "Description"}, envRows)
	w.Paragraph("Explicit flags beat environment variables, which beat `stubkit.yaml`.")

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Error (check stderr for details)"},
	})
	return w
}

// commandPage builds the page for a single command.
func commandPage(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.CommandPath(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.CommandPath())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.Header(2, "Usage")
	if cmd.HasAvailableSubCommands() {
		w.CodeBlock("bash", cmd.CommandPath()+" <subcommand> [options]")
	} else {
		w.CodeBlock("bash", cmd.UseLine())
	}

	if len(cmd.Aliases) > 0 {
		w.Header(2, "Aliases")
		aliases := make([]string, len(cmd.Aliases))
		for i, alias := range cmd.Aliases {
			aliases[i] = InlineCode(alias)
		}
		w.BulletList(aliases)
	}

	if subs := documentedCommands(cmd); len(subs) > 0 {
		w.Header(2, "Subcommands")
		var rows [][]string
		for _, sub := range subs {
			rows = append(rows, []string{commandLink(sub), cleanDescription(sub.Short)})
		}
		w.Table([]string{"Subcommand", "Description"}, rows)
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}
	if cmd.HasAvailableInheritedFlags() {
		w.Header(2, "Global Options")
		writeFlagsTable(w, cmd.InheritedFlags())
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}
	return w
}

// writeFlagsTable writes one row per visible flag. Flags that set a
// configuration key name it.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	keys := make(map[string]string)
	for _, f := range configSchema() {
		keys[strings.TrimPrefix(f.Flag, "--")] = f.Key
	}

	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		short := ""
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}
		def := f.DefValue
		if f.Value.Type() == "string" && def != "" {
			def = InlineCode(def)
		}
		key := ""
		if k, ok := keys[f.Name]; ok {
			key = InlineCode(k)
		}
		rows = append(rows, []string{InlineCode("--" + f.Name), short, def, key, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Short", "Default", "Config key", "Description"}, rows)
}

// dedent strips the indentation shared by every non-blank line of s.
func dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	common := -1
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		if n := len(line) - len(trimmed); common < 0 || n < common {
			common = n
		}
	}
	for i, line := range lines {
		if len(line) >= common && common > 0 {
			lines[i] = line[common:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
