package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// stubExt is the extension of files written with --out-dir.
const stubExt = ".pyi"

// watchDebounce coalesces bursts of editor writes into one re-print.
const watchDebounce = 100 * time.Millisecond

// NewPrintCommand creates the print command.
func NewPrintCommand() *cobra.Command {
	var (
		outDir string
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "print <file>...",
		Short: "Print type stubs for tree documents",
		Long: `Load each tree document, put it in canonical order and print it as a
type stub.

Documents are printed concurrently, bounded by the jobs setting. When a stub
cache is configured, unchanged documents are served from it.`,
		Example: `  # Print one stub to stdout
  stubkit print stubs/os.yaml

  # Write foo.pyi and bar.pyi into out/
  stubkit print foo.yaml bar.yaml --out-dir out

  # Re-print whenever the document changes
  stubkit print foo.yaml --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			p := &stubPrinter{cmdCtx: cmdCtx, out: cmd.OutOrStdout(), outDir: outDir}
			if err := p.printAll(cmd.Context(), args); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return p.watch(cmd.Context(), args)
		},
	}

	// Printer options share their names with config keys, so explicitly
	// set flags override the config file.
	cmd.Flags().Bool("multiline-args", false, "Put each parameter on its own line")
	cmd.Flags().Bool("sort-signatures", false, "Sort overload signatures")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write <name>.pyi files into this directory instead of stdout")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-print documents when they change")

	return cmd
}

type stubPrinter struct {
	cmdCtx *CommandContext
	outDir string

	mu  sync.Mutex // guards out
	out io.Writer
}

// printAll prints every document, keeping output in argument order.
func (p *stubPrinter) printAll(ctx context.Context, paths []string) error {
	stubs := make([]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cmdCtx.Cfg.Jobs)
	for i, path := range paths {
		g.Go(func() error {
			stub, err := p.cmdCtx.Stub(gctx, path)
			if err != nil {
				return err
			}
			stubs[i] = stub
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, path := range paths {
		if err := p.emit(path, stubs[i], len(paths) > 1); err != nil {
			return err
		}
	}
	return nil
}

// emit writes one stub to its .pyi file or to the output stream. With
// several documents on the stream each stub is preceded by a path comment.
func (p *stubPrinter) emit(path, stub string, labeled bool) error {
	if p.outDir != "" {
		if err := os.MkdirAll(p.outDir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		target := filepath.Join(p.outDir, stubName(path))
		if err := os.WriteFile(target, []byte(stub+"\n"), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		p.cmdCtx.Logger.Info("wrote stub", "source", path, "target", target)
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if labeled {
		if _, err := fmt.Fprintf(p.out, "# %s\n", path); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(p.out, stub)
	return err
}

func stubName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + stubExt
}

// watch re-prints documents as they change until ctx is done. Directories
// are watched rather than files so that editors replacing a file by rename
// are still seen.
func (p *stubPrinter) watch(ctx context.Context, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		watched[abs] = path
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}

	logger := p.cmdCtx.Logger
	logger.Info("watching for changes", "files", len(paths))

	// pending counts scheduled and running re-prints; watch returns only
	// once none is left using the store.
	var pending sync.WaitGroup
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			if t.Stop() {
				pending.Done()
			}
		}
		pending.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			path, ok := watched[filepath.Clean(event.Name)]
			if !ok {
				continue
			}

			if t := timers[path]; t != nil && t.Stop() {
				pending.Done()
			}
			pending.Add(1)
			timers[path] = time.AfterFunc(watchDebounce, func() {
				defer pending.Done()
				logger.Debug("file changed, re-printing", "file", path)
				stub, err := p.cmdCtx.Stub(ctx, path)
				if err != nil {
					logger.Error("re-print failed", "file", path, "error", err)
					return
				}
				if err := p.emit(path, stub, true); err != nil {
					logger.Error("failed to write stub", "file", path, "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}
