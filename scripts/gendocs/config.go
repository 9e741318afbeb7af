package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/stubkit/internal/cli/config"
)

// ConfigField describes one configuration key.
type ConfigField struct {
	Key         string
	Type        string
	Default     string
	Flag        string
	Description string
}

// configSchema returns the documented keys of config.Config.
func configSchema() []ConfigField {
	return []ConfigField{
		{Key: "multiline_args", Type: "bool", Default: "false", Flag: "--multiline-args", Description: "Put each parameter of a signature on its own line"},
		{Key: "sort_signatures", Type: "bool", Default: "false", Flag: "--sort-signatures", Description: "Sort overload signatures when canonicalizing"},
		{Key: "jobs", Type: "int", Default: "number of CPUs", Flag: "--jobs", Description: "Documents processed in parallel"},
		{Key: "cache_path", Type: "string", Default: "-", Flag: "--cache", Description: "SQLite stub cache; relative to the config file, empty disables caching"},
		{Key: "log_level", Type: "string", Default: config.DefaultLogLevel, Flag: "--log-level", Description: "Log level: debug, info, warn or error"},
		{Key: "output", Type: "string", Default: config.DefaultOutput, Flag: "--output", Description: "Output format for reports: text or json"},
	}
}

func envName(key string) string {
	return "STUBKIT_" + strings.ToUpper(key)
}

// generateConfigDocs generates the configuration reference page.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "stubkit configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("stubkit reads `stubkit.yaml` (or `stubkit.yml`) from the working directory or the nearest parent directory. Pass `--config` to use a specific file.")

	headers := []string{"Key", "Type", "Default", "Flag", "Environment", "Description"}
	var rows [][]string
	for _, f := range configSchema() {
		rows = append(rows, []string{
			InlineCode(f.Key),
			f.Type,
			InlineCode(f.Default),
			InlineCode(f.Flag),
			InlineCode(envName(f.Key)),
			f.Description,
		})
	}
	w.Table(headers, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `multiline_args: true
sort_signatures: true
jobs: 4
cache_path: .stubkit/cache.db
log_level: info`)

	filename := filepath.Join(outDir, "configuration.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}
