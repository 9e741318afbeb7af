package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/stubkit/internal/cli/config"
	"github.com/leapstack-labs/stubkit/internal/loader"
	"github.com/leapstack-labs/stubkit/internal/state"
	"github.com/leapstack-labs/stubkit/pkg/format"
	"github.com/leapstack-labs/stubkit/pkg/pytd"
	"github.com/leapstack-labs/stubkit/pkg/transform"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Store  state.Store // nil when the stub cache is disabled
}

// NewCommandContext creates a CommandContext, opening the stub cache when
// one is configured. Returns the context and a cleanup function that must
// be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	if !cmdCtx.Cfg.CacheEnabled() {
		return cmdCtx, func() {}, nil
	}

	store, err := openStore(cmdCtx.Cfg.CachePath, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Store = store

	cleanup := func() {
		if err := store.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close stub cache", "error", err)
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without a cache.
// Useful for commands that never print stubs.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return &CommandContext{
		Cfg:    config.GetConfig(ctx),
		Logger: config.GetLogger(ctx),
	}
}

func openStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// PrintOptions returns the printer options derived from configuration.
func (c *CommandContext) PrintOptions() format.Options {
	return format.Options{MultilineArgs: c.Cfg.MultilineArgs, Logger: c.Logger}
}

// LoadCanonical loads a tree document and puts it in canonical order.
func (c *CommandContext) LoadCanonical(path string) (*pytd.Module, error) {
	m, _, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return transform.CanonicalOrdering(m, c.Cfg.SortSignatures), nil
}

// Stub returns the printed stub for a document, consulting the cache first.
func (c *CommandContext) Stub(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	key, hash := cacheKey(path), state.HashContent(data)
	optsKey := state.OptionsKey(c.Cfg.MultilineArgs, c.Cfg.SortSignatures)
	if c.Store != nil {
		stub, ok, err := c.Store.Get(ctx, key, hash, optsKey)
		if err != nil {
			c.Logger.Warn("stub cache lookup failed", "path", path, "error", err)
		} else if ok {
			c.Logger.Debug("stub cache hit", "path", path)
			return stub, nil
		}
	}

	m, err := loader.DecodeFile(path, data)
	if err != nil {
		return "", err
	}
	m = transform.CanonicalOrdering(m, c.Cfg.SortSignatures)
	stub := format.Print(m, c.PrintOptions())

	if c.Store != nil {
		entry := state.Entry{Path: key, ContentHash: hash, OptionsKey: optsKey, Stub: stub}
		if err := c.Store.Put(ctx, entry); err != nil {
			c.Logger.Warn("failed to cache stub", "path", path, "error", err)
		}
	}
	return stub, nil
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
