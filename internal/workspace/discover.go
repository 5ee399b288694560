package workspace

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/luasem/luasem/internal/config"
)

// Root is one configured workspace root to scan, already classified
// by where it came from in the config (§4.10 Std/Library/Main).
type Root struct {
	Path  string
	Class Class
}

// Class mirrors internal/index.WorkspaceClass; duplicated here (rather
// than imported) so this package can classify a path without importing
// internal/index, matching the parser package's own discipline of not
// pulling in the core's index types.
type Class uint8

const (
	ClassMain Class = iota
	ClassLibrary
	ClassStd
)

// Discovered is one file this package's walk found and accepted.
type Discovered struct {
	Path  string
	Class Class
}

// walker performs parallel directory traversal with include/exclude
// glob matching, the same worker-pool shape the teacher's
// core.FileWalker uses for its own doublestar-driven scan, simplified
// down to the single extension-filtered language this analyzer cares
// about instead of FileWalker's language-detection table.
type walker struct {
	workers int
	cfg     *config.Config
}

func newWalker(cfg *config.Config) *walker {
	return &walker{workers: runtime.NumCPU() * 2, cfg: cfg}
}

// Discover walks every configured root (and the supplemented std
// library root; see Roots) and returns every file whose extension is
// configured (Runtime.Extensions), is not excluded (IgnoreDir /
// IgnoreGlobs), or is force-included despite an exclusion
// (ForceIncludePathGlobs overrides IgnoreGlobs but not IgnoreDir, §4.10
// "a directory name match always wins").
func Discover(ctx context.Context, roots []Root, cfg *config.Config) ([]Discovered, error) {
	w := newWalker(cfg)
	results := make(chan Discovered, 256)
	var wg sync.WaitGroup

	for _, root := range roots {
		root := root
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.scanDir(ctx, root.Path, root, results, 0)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var out []Discovered
	for d := range results {
		out = append(out, d)
	}
	return out, ctx.Err()
}

func (w *walker) scanDir(ctx context.Context, dir string, root Root, out chan<- Discovered, depth int) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directory: skip it silently, matching the
		// teacher's FileWalker.scanDirectory behavior for the same
		// case.
		return
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if w.dirExcluded(entry.Name()) {
				continue
			}
			w.scanDir(ctx, full, root, out, depth+1)
			continue
		}

		if !w.extensionMatches(full) {
			continue
		}
		if w.globExcluded(full) && !w.forceIncluded(full) {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case out <- Discovered{Path: full, Class: root.Class}:
		}
	}
}

func (w *walker) extensionMatches(path string) bool {
	exts := w.cfg.Runtime.Extensions
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (w *walker) dirExcluded(name string) bool {
	for _, d := range w.cfg.Workspace.IgnoreDir {
		if name == d {
			return true
		}
	}
	return false
}

func (w *walker) globExcluded(path string) bool {
	return matchesAny(w.cfg.Workspace.IgnoreGlobs, path)
}

func (w *walker) forceIncluded(path string) bool {
	return matchesAny(w.cfg.Workspace.ForceIncludePathGlobs, path)
}

// matchesAny reports whether path matches any of patterns, trying a
// full-path match first and falling back to a basename-only match for
// a pattern with no path separator — the same two-step lenient match
// the teacher's FileWalker.matchPattern performs.
func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.PathMatch(p, path); err == nil && ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, err := doublestar.PathMatch(p, filepath.Base(path)); err == nil && ok {
				return true
			}
		}
	}
	return false
}
