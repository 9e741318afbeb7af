// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/stubkit/internal/cli/config"
	"github.com/leapstack-labs/stubkit/internal/testutil"
	"github.com/spf13/cobra"
)

// ShapesDoc is a small tree document used across command tests.
const ShapesDoc = `name: shapes
type_params:
  - {typevar: T}
constants:
  - {name: ORIGIN, type: {tuple: [builtins.int, builtins.int]}}
classes:
  - name: Square
    bases: [shapes.Shape]
    methods:
      - name: area
        signatures:
          - params: [{name: self, type: shapes.Square}]
            returns: builtins.float
  - name: Shape
    bases: [{generic: typing.Generic, args: [{typevar: T}]}]
    methods:
      - name: scale
        signatures:
          - params:
              - {name: self, type: shapes.Shape}
              - {name: factor, type: {typevar: T, bound: builtins.float}}
            returns: shapes.Shape
functions:
  - name: unit
    signatures:
      - returns: shapes.Square
`

// SetupTestProject creates a temporary project holding the given documents
// and returns its directory.
func SetupTestProject(t *testing.T, docs map[string]string) string {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range docs {
		path := filepath.Join(tmpDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return tmpDir
}

// TestConfig returns a configuration suitable for command tests: one job,
// text output and no cache.
func TestConfig() *config.Config {
	return &config.Config{Jobs: 1, OutputFormat: config.OutputText}
}

// ExecuteCommand runs cmd with args, the given config and a test logger in
// its context, and returns what it wrote to stdout and stderr.
func ExecuteCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	return ExecuteCommandContext(t.Context(), t, cmd, cfg, args...)
}

// ExecuteCommandContext is ExecuteCommand with a caller-controlled context.
func ExecuteCommandContext(ctx context.Context, t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()

	if cfg == nil {
		cfg = TestConfig()
	}
	ctx = config.WithConfig(ctx, cfg)
	ctx = context.WithValue(ctx, config.LoggerKey(), testutil.NewTestLogger(t))

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
