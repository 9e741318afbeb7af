package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/leapstack-labs/stubkit/internal/cli"
	"github.com/leapstack-labs/stubkit/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSchemaCoversConfig(t *testing.T) {
	documented := make(map[string]bool)
	for _, f := range configSchema() {
		documented[f.Key] = true
	}

	typ := reflect.TypeOf(config.Config{})
	for i := range typ.NumField() {
		key := typ.Field(i).Tag.Get("koanf")
		if key == "" || key == "-" {
			continue
		}
		assert.True(t, documented[key], "config key %q is not documented", key)
		delete(documented, key)
	}
	assert.Empty(t, documented, "documented keys missing from config.Config")
}

func TestConfigSchemaFlagsExist(t *testing.T) {
	root := cli.NewRootCmd()
	printCmd, _, err := root.Find([]string{"print"})
	require.NoError(t, err)

	for _, f := range configSchema() {
		assert.NotNil(t, printCmd.Flag(f.Flag[2:]), "flag %s for %s", f.Flag, f.Key)
	}
}

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), generatedHeader)
	assert.Contains(t, string(index), "[`print`](/cli/print)")
	assert.Contains(t, string(index), "`STUBKIT_CACHE_PATH`")

	page, err := os.ReadFile(filepath.Join(dir, "print.md"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "stubkit print <file>...")
	assert.Contains(t, string(page), "`--out-dir`")
	assert.Contains(t, string(page), "stubkit print foo.yaml --watch")

	assert.Contains(t, string(page), "| `--multiline-args` |  | false | `multiline_args` |")

	cache, err := os.ReadFile(filepath.Join(dir, "cache.md"))
	require.NoError(t, err)
	assert.Contains(t, string(cache), "## Subcommands")
	assert.Contains(t, string(cache), "[`cache stats`](/cli/cache-stats)")
	assert.FileExists(t, filepath.Join(dir, "cache-stats.md"))
	assert.FileExists(t, filepath.Join(dir, "cache-clear.md"))

	_, err = os.Stat(filepath.Join(dir, "help.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateConfigDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateConfigDocs(dir))

	data, err := os.ReadFile(filepath.Join(dir, "configuration.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "title: Configuration")
	assert.Contains(t, string(data), "`multiline_args`")
	assert.Contains(t, string(data), "`STUBKIT_LOG_LEVEL`")
}

func TestDedent(t *testing.T) {
	assert.Equal(t, "# a\nstubkit x\n  indented", dedent("\n  # a\n  stubkit x\n    indented\n"))
	assert.Equal(t, "flat", dedent("flat"))
}

func TestMarkdownWriter(t *testing.T) {
	w := NewMarkdownWriter()
	w.Frontmatter("x", "a: b")
	w.Header(2, "Title")
	w.Paragraph("  text  ")
	w.CodeBlock("bash", "echo hi\n")
	w.BulletList([]string{"one", "two"})
	w.Table([]string{"A"}, nil)

	assert.Equal(t, "---\ntitle: x\ndescription: \"a: b\"\n---\n\n## Title\n\ntext\n\n```bash\necho hi\n```\n\n- one\n- two\n\n", string(w.Bytes()))
	assert.Equal(t, "a b", cleanDescription("a\n   b"))
}
