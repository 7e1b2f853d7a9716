// Package walker enumerates the files under a scan root, emitting their
// paths on a bounded channel for a worker pool to consume. It is the sole
// producer on that channel: per-entry I/O failures are swallowed so one
// bad directory entry never aborts the walk, grounded on the context-aware
// recursive walk in the standalone go-file-dedupe fswalk.go reference
// (filepath.WalkDir driving a channel, cancellation checked before every
// send) adapted to spec's exclusion-token and max-depth semantics.
package walker

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ivoronin/dirscan/internal/scanerr"
)

// DefaultExclusions is the default set of path components that stop
// descent: version-control metadata, language caches, and common build
// output directories.
var DefaultExclusions = map[string]bool{
	".git": true, ".svn": true, "__pycache__": true, "node_modules": true,
	".venv": true, "venv": true, ".pytest_cache": true, ".ruff_cache": true,
	"dist": true, "build": true,
}

// Config controls one walk.
type Config struct {
	// Exclusions is the set of path-component tokens that exclude an
	// entry and everything beneath it. Nil means DefaultExclusions.
	Exclusions map[string]bool
	// MaxDepth caps recursion; depth 0 is root's immediate children.
	// Nil means unlimited.
	MaxDepth *int
	// QueueSize bounds the output channel, providing backpressure on
	// discovery when workers are slow. Defaults to 10000.
	QueueSize int
}

func (c Config) exclusions() map[string]bool {
	if c.Exclusions != nil {
		return c.Exclusions
	}
	return DefaultExclusions
}

func (c Config) queueSize() int {
	if c.QueueSize > 0 {
		return c.QueueSize
	}
	return 10000
}

// Walk validates root, then starts the single producer goroutine and
// returns the channel of discovered file paths and the channel of
// swallowed per-entry errors. Both channels are closed once the walk
// completes (or ctx is cancelled), so a consumer can safely range over
// either until it's done.
func Walk(ctx context.Context, root string, cfg Config) (<-chan string, <-chan error, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, nil, scanerr.ErrInvalidInput
	}

	paths := make(chan string, cfg.queueSize())
	errs := make(chan error, 256)

	go func() {
		defer close(paths)
		defer close(errs)
		excl := cfg.exclusions()
		walkDir(ctx, root, 0, cfg.MaxDepth, excl, paths, errs)
	}()

	return paths, errs, nil
}

// walkDir recursively enumerates dir's entries. depth is the depth of
// dir's children relative to root (root's immediate children are depth 0).
func walkDir(ctx context.Context, dir string, depth int, maxDepth *int, excl map[string]bool, paths chan<- string, errs chan<- error) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsPermission(err) {
			sendErr(errs, scanerr.NewPermissionDenied(dir, err))
		} else {
			sendErr(errs, scanerr.NewTransientIO(dir, err))
		}
		return
	}

	for _, entry := range entries {
		if isExcluded(entry.Name(), excl) {
			continue
		}

		full := filepath.Join(dir, entry.Name())

		select {
		case <-ctx.Done():
			return
		default:
		}

		info, err := entry.Info()
		if err != nil {
			sendErr(errs, scanerr.NewTransientIO(full, err))
			continue
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			// Record the link itself as metadata via the worker pool's
			// normal per-file processing, but never follow it.
			emit(ctx, paths, full)
		case info.IsDir():
			if maxDepth != nil && depth >= *maxDepth {
				continue
			}
			walkDir(ctx, full, depth+1, maxDepth, excl, paths, errs)
		case info.Mode().IsRegular():
			emit(ctx, paths, full)
		default:
			// sockets, devices, FIFOs: skipped silently
		}
	}
}

func emit(ctx context.Context, paths chan<- string, p string) {
	select {
	case <-ctx.Done():
	case paths <- p:
	}
}

func sendErr(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
		// error channel full: drop rather than block the walk
	}
}

func isExcluded(name string, excl map[string]bool) bool {
	return excl[name]
}
