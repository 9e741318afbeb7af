package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/stubkit/internal/cli/config"
	clitest "github.com/leapstack-labs/stubkit/internal/cli/testutil"
	"github.com/leapstack-labs/stubkit/internal/loader"
	"github.com/leapstack-labs/stubkit/internal/state"
	"github.com/leapstack-labs/stubkit/internal/testutil"
	"github.com/leapstack-labs/stubkit/pkg/format"
	"github.com/leapstack-labs/stubkit/pkg/pytd"
	"github.com/leapstack-labs/stubkit/pkg/transform"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pointDoc = `name: point
constants:
  - {name: y, type: builtins.str}
  - {name: x, type: builtins.int}
`

// expectedStub prints a document the way print does.
func expectedStub(t *testing.T, doc string, opts format.Options, sortSigs bool) string {
	t.Helper()
	m, err := loader.Decode([]byte(doc))
	require.NoError(t, err)
	return format.Print(transform.CanonicalOrdering(m, sortSigs), opts)
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		name   string
		newCmd func() *cobra.Command
		use    string
		flags  []string
	}{
		{name: "print", newCmd: NewPrintCommand, use: "print <file>...", flags: []string{"multiline-args", "sort-signatures", "out-dir", "watch"}},
		{name: "canonicalize", newCmd: NewCanonicalizeCommand, use: "canonicalize <file>", flags: []string{"sort-signatures", "write"}},
		{name: "rename", newCmd: NewRenameCommand, use: "rename <file> --from <module> --to <module>", flags: []string{"from", "to", "yaml"}},
		{name: "typevars", newCmd: NewTypeVarsCommand, use: "typevars <file>"},
		{name: "hierarchy", newCmd: NewHierarchyCommand, use: "hierarchy <file>"},
		{name: "cache", newCmd: NewCacheCommand, use: "cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.newCmd()
			assert.Equal(t, tt.use, cmd.Use)
			assert.NotEmpty(t, cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestPrintCommand(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{
		"point.yaml":  pointDoc,
		"shapes.yaml": clitest.ShapesDoc,
	})
	point := filepath.Join(dir, "point.yaml")
	shapes := filepath.Join(dir, "shapes.yaml")

	t.Run("single document", func(t *testing.T) {
		out, _, err := clitest.ExecuteCommand(t, NewPrintCommand(), nil, point)
		require.NoError(t, err)
		assert.Equal(t, "x: int\ny: str\n", out)
	})

	t.Run("several documents keep argument order", func(t *testing.T) {
		cfg := clitest.TestConfig()
		cfg.Jobs = 4
		out, _, err := clitest.ExecuteCommand(t, NewPrintCommand(), cfg, shapes, point)
		require.NoError(t, err)

		want := "# " + shapes + "\n" + expectedStub(t, clitest.ShapesDoc, format.Options{}, false) + "\n" +
			"# " + point + "\n" + "x: int\ny: str\n"
		assert.Equal(t, want, out)
	})

	t.Run("multiline from config", func(t *testing.T) {
		cfg := clitest.TestConfig()
		cfg.MultilineArgs = true
		out, _, err := clitest.ExecuteCommand(t, NewPrintCommand(), cfg, shapes)
		require.NoError(t, err)
		assert.Equal(t, expectedStub(t, clitest.ShapesDoc, format.Options{MultilineArgs: true}, false)+"\n", out)
	})

	t.Run("out dir", func(t *testing.T) {
		outDir := filepath.Join(t.TempDir(), "stubs")
		out, _, err := clitest.ExecuteCommand(t, NewPrintCommand(), nil, point, "--out-dir", outDir)
		require.NoError(t, err)
		assert.Empty(t, out)

		data, err := os.ReadFile(filepath.Join(outDir, "point.pyi"))
		require.NoError(t, err)
		assert.Equal(t, "x: int\ny: str\n", string(data))
	})

	t.Run("invalid document", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("name: m\nbogus: 1\n"), 0600))
		_, _, err := clitest.ExecuteCommand(t, NewPrintCommand(), nil, point, bad)
		var ue *loader.UnknownFieldError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, bad, ue.File)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := clitest.ExecuteCommand(t, NewPrintCommand(), nil, filepath.Join(dir, "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read")
	})

	t.Run("requires an argument", func(t *testing.T) {
		_, _, err := clitest.ExecuteCommand(t, NewPrintCommand(), nil)
		assert.Error(t, err)
	})
}

func TestPrintCommand_UsesCache(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{"point.yaml": pointDoc})
	point := filepath.Join(dir, "point.yaml")

	cfg := clitest.TestConfig()
	cfg.CachePath = filepath.Join(t.TempDir(), "cache", "stubs.db")

	_, _, err := clitest.ExecuteCommand(t, NewPrintCommand(), cfg, point)
	require.NoError(t, err)

	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(cfg.CachePath))
	ctx := context.Background()
	abs, err := filepath.Abs(point)
	require.NoError(t, err)
	hash := state.HashContent([]byte(pointDoc))
	stub, ok, err := store.Get(ctx, abs, hash, state.OptionsKey(false, false))
	require.NoError(t, err)
	require.True(t, ok, "print should have cached the stub")
	assert.Equal(t, "x: int\ny: str", stub)

	// A planted entry proves the second run is served from the cache.
	require.NoError(t, store.Put(ctx, state.Entry{Path: abs, ContentHash: hash, OptionsKey: state.OptionsKey(false, false), Stub: "cached"}))
	require.NoError(t, store.Close())

	out, _, err := clitest.ExecuteCommand(t, NewPrintCommand(), cfg, point)
	require.NoError(t, err)
	assert.Equal(t, "cached\n", out)

	// Different printer options miss the cache.
	cfg.MultilineArgs = true
	out, _, err = clitest.ExecuteCommand(t, NewPrintCommand(), cfg, point)
	require.NoError(t, err)
	assert.Equal(t, "x: int\ny: str\n", out)
}

func TestPrintCommand_Watch(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{"point.yaml": pointDoc})
	point := filepath.Join(dir, "point.yaml")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewPrintCommand()
	out := &testutil.LogBuffer{}
	cmd.SetOut(out)
	cmd.SetErr(&testutil.LogBuffer{})
	cmd.SetArgs([]string{point, "--watch"})
	runCtx := config.WithConfig(ctx, clitest.TestConfig())
	// Timer callbacks may still log after the test returns, so stay off t.Log.
	logger, _ := testutil.NewCaptureLogger()
	runCtx = context.WithValue(runCtx, config.LoggerKey(), logger)

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(runCtx) }()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "x: int")
	}, 5*time.Second, 20*time.Millisecond)

	// Keep rewriting until the watcher, which starts after the first print,
	// picks a change up.
	changed := "name: point\nconstants:\n  - {name: z, type: builtins.bytes}\n"
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(point, []byte(changed), 0600)
		return strings.Contains(out.String(), "z: bytes")
	}, 5*time.Second, 200*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

// blockingStore holds every lookup until release is called.
type blockingStore struct {
	entered     chan struct{}
	enterOnce   sync.Once
	unblock     chan struct{}
	releaseOnce sync.Once
}

func newBlockingStore() *blockingStore {
	return &blockingStore{entered: make(chan struct{}), unblock: make(chan struct{})}
}

func (s *blockingStore) release() { s.releaseOnce.Do(func() { close(s.unblock) }) }

func (s *blockingStore) Get(_ context.Context, _, _, _ string) (string, bool, error) {
	s.enterOnce.Do(func() { close(s.entered) })
	<-s.unblock
	return "", false, nil
}

func (s *blockingStore) Put(context.Context, state.Entry) error { return nil }

func (s *blockingStore) Stats(context.Context) (state.Stats, error) { return state.Stats{}, nil }

func (s *blockingStore) Clear(context.Context) (int64, error) { return 0, nil }

func (s *blockingStore) Close() error { return nil }

func TestPrintWatch_WaitsForRunningReprint(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{"point.yaml": pointDoc})
	point := filepath.Join(dir, "point.yaml")

	store := newBlockingStore()
	defer store.release()
	logger, _ := testutil.NewCaptureLogger()
	p := &stubPrinter{
		cmdCtx: &CommandContext{Cfg: clitest.TestConfig(), Logger: logger, Store: store},
		out:    &testutil.LogBuffer{},
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.watch(ctx, []string{point}) }()

	// Rewrite until a re-print is parked inside the store.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(point, []byte(pointDoc), 0600)
		select {
		case <-store.entered:
			return true
		default:
			return false
		}
	}, 5*time.Second, 200*time.Millisecond)

	cancel()
	select {
	case <-done:
		t.Fatal("watch returned while a re-print was still using the store")
	case <-time.After(200 * time.Millisecond):
	}

	store.release()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after the re-print finished")
	}
}

func TestCanonicalizeCommand(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{"point.yaml": pointDoc})
	point := filepath.Join(dir, "point.yaml")

	out, _, err := clitest.ExecuteCommand(t, NewCanonicalizeCommand(), nil, point)
	require.NoError(t, err)

	m, err := loader.Decode([]byte(out))
	require.NoError(t, err)
	require.Len(t, m.Constants, 2)
	assert.Equal(t, "x", m.Constants[0].Name)
	assert.Equal(t, "y", m.Constants[1].Name)

	_, _, err = clitest.ExecuteCommand(t, NewCanonicalizeCommand(), nil, point, "--write")
	require.NoError(t, err)
	data, err := os.ReadFile(point)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))

	// Canonicalizing a canonical document changes nothing.
	again, _, err := clitest.ExecuteCommand(t, NewCanonicalizeCommand(), nil, point)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestRenameCommand(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{"shapes.yaml": clitest.ShapesDoc})
	shapes := filepath.Join(dir, "shapes.yaml")

	out, _, err := clitest.ExecuteCommand(t, NewRenameCommand(), nil, shapes, "--to", "geometry", "--yaml")
	require.NoError(t, err)
	m, err := loader.Decode([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "geometry", m.Name)
	sq := m.Lookup("Square")
	require.NotNil(t, sq)
	assert.Equal(t, &pytd.NamedType{Name: "geometry.Shape"}, sq.Parents[0])

	printed, _, err := clitest.ExecuteCommand(t, NewRenameCommand(), nil, shapes, "--from", "shapes", "--to", "geometry")
	require.NoError(t, err)
	assert.Equal(t, format.Print(m, format.Options{})+"\n", printed)

	_, _, err = clitest.ExecuteCommand(t, NewRenameCommand(), nil, shapes)
	assert.Error(t, err, "--to is required")
}

func TestTypeVarsCommand(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{"shapes.yaml": clitest.ShapesDoc, "point.yaml": pointDoc})

	cfg := clitest.TestConfig()
	cfg.OutputFormat = config.OutputJSON
	out, _, err := clitest.ExecuteCommand(t, NewTypeVarsCommand(), cfg, filepath.Join(dir, "shapes.yaml"))
	require.NoError(t, err)

	var rows []typeVarRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "T", rows[0].Name)

	out, _, err = clitest.ExecuteCommand(t, NewTypeVarsCommand(), cfg, filepath.Join(dir, "point.yaml"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	out, _, err = clitest.ExecuteCommand(t, NewTypeVarsCommand(), nil, filepath.Join(dir, "shapes.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "| Name |")
	clitest.AssertNoANSI(t, out)
}

func TestHierarchyCommand(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{"shapes.yaml": clitest.ShapesDoc})
	shapes := filepath.Join(dir, "shapes.yaml")

	cfg := clitest.TestConfig()
	cfg.OutputFormat = config.OutputJSON
	out, _, err := clitest.ExecuteCommand(t, NewHierarchyCommand(), cfg, shapes)
	require.NoError(t, err)

	var rows []hierarchyRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []hierarchyRow{
		{Class: "Shape", Parents: []string{"typing.Generic"}},
		{Class: "Square", Parents: []string{"shapes.Shape"}},
	}, rows)

	out, _, err = clitest.ExecuteCommand(t, NewHierarchyCommand(), nil, shapes)
	require.NoError(t, err)
	assert.Contains(t, out, "| Square | shapes.Shape |")
}

func TestCacheCommands(t *testing.T) {
	dir := clitest.SetupTestProject(t, map[string]string{"point.yaml": pointDoc})

	t.Run("disabled", func(t *testing.T) {
		_, _, err := clitest.ExecuteCommand(t, NewCacheCommand(), nil, "stats")
		assert.ErrorIs(t, err, errCacheDisabled)
		_, _, err = clitest.ExecuteCommand(t, NewCacheCommand(), nil, "clear")
		assert.ErrorIs(t, err, errCacheDisabled)
	})

	cfg := clitest.TestConfig()
	cfg.CachePath = filepath.Join(t.TempDir(), "stubs.db")
	_, _, err := clitest.ExecuteCommand(t, NewPrintCommand(), cfg, filepath.Join(dir, "point.yaml"))
	require.NoError(t, err)

	t.Run("stats", func(t *testing.T) {
		jsonCfg := *cfg
		jsonCfg.OutputFormat = config.OutputJSON
		out, _, err := clitest.ExecuteCommand(t, NewCacheCommand(), &jsonCfg, "stats")
		require.NoError(t, err)

		var stats cacheStats
		require.NoError(t, json.Unmarshal([]byte(out), &stats))
		assert.Equal(t, 1, stats.Entries)
		assert.Equal(t, int64(len("x: int\ny: str")), stats.StubBytes)
		assert.NotEmpty(t, stats.LastUpdated)

		out, _, err = clitest.ExecuteCommand(t, NewCacheCommand(), cfg, "stats")
		require.NoError(t, err)
		assert.Contains(t, out, "| Entries |")
	})

	t.Run("clear", func(t *testing.T) {
		out, _, err := clitest.ExecuteCommand(t, NewCacheCommand(), cfg, "clear")
		require.NoError(t, err)
		assert.Equal(t, "Removed 1 cached stub\n", out)

		out, _, err = clitest.ExecuteCommand(t, NewCacheCommand(), cfg, "clear")
		require.NoError(t, err)
		assert.Equal(t, "Removed 0 cached stubs\n", out)
	})
}
