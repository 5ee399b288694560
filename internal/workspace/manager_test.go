package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
)

type fakeParser struct{}

func (fakeParser) Parse(file types.FileID, text string) (*parser.Tree, error) {
	return &parser.Tree{File: file, Root: parser.NewChunk(nil, parser.Rng(0, len(text))), Text: text}, nil
}

type recorder struct {
	mu    sync.Mutex
	files []types.FileID
}

func (r *recorder) onFile(_ context.Context, file types.FileID, _ *parser.Tree) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, file)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

func TestFullIndexClassifiesMainAndLibraryRoots(t *testing.T) {
	root := t.TempDir()
	libDir := t.TempDir()
	writeFile(t, root, "app.lua", "return 1")
	writeFile(t, libDir, "vendor.lua", "return 2")

	rec := &recorder{}
	mgr, warnings := New(root, fakeParser{}, rec.onFile)
	require.Empty(t, warnings)
	mgr.cfg.Workspace.Library = []string{libDir}

	require.NoError(t, mgr.FullIndex(context.Background()))
	require.Equal(t, 2, rec.count())

	appID, ok := mgr.FileID(filepath.Join(root, "app.lua"))
	require.True(t, ok)
	entry, ok := mgr.Index().ModuleOf(appID)
	require.True(t, ok)
	require.Equal(t, index.ClassMain, entry.Class)

	vendorID, ok := mgr.FileID(filepath.Join(libDir, "vendor.lua"))
	require.True(t, ok)
	entry, ok = mgr.Index().ModuleOf(vendorID)
	require.True(t, ok)
	require.Equal(t, index.ClassLibrary, entry.Class)
}

func TestLoadStdSourceClassifiesStd(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	mgr, _ := New(root, fakeParser{}, rec.onFile)

	require.NoError(t, mgr.LoadStdSource(context.Background(), "std:string", "-- builtin string lib"))

	id, ok := mgr.FileID("std:string")
	require.True(t, ok)
	entry, ok := mgr.Index().ModuleOf(id)
	require.True(t, ok)
	require.Equal(t, index.ClassStd, entry.Class)
	require.Equal(t, 1, rec.count())
}

func TestRequestReindexDebouncesRapidRequests(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "app.lua", "return 1")

	rec := &recorder{}
	mgr, _ := New(root, fakeParser{}, rec.onFile)
	mgr.cfg.Workspace.ReindexDurationMillis = 20

	ctx := context.Background()
	mgr.RequestReindex(ctx, path)
	time.Sleep(5 * time.Millisecond)
	mgr.RequestReindex(ctx, path) // supersedes the first timer
	time.Sleep(5 * time.Millisecond)
	mgr.RequestReindex(ctx, path) // supersedes the second timer

	require.Equal(t, 0, rec.count(), "no reindex should have fired yet")

	require.Eventually(t, func() bool {
		return rec.count() == 1
	}, 200*time.Millisecond, 5*time.Millisecond)
}

func TestRequestReindexNoopWhenDisabled(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "app.lua", "return 1")

	rec := &recorder{}
	mgr, _ := New(root, fakeParser{}, rec.onFile)
	mgr.cfg.Workspace.EnableReindex = false
	mgr.cfg.Workspace.ReindexDurationMillis = 10

	mgr.RequestReindex(context.Background(), path)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, rec.count())
}

func TestFullIndexRecordsFileDiagnosticOnDecodeError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "broken.lua", "return 1")

	rec := &recorder{}
	mgr, _ := New(root, fakeParser{}, rec.onFile)
	mgr.cfg.Workspace.Encoding = "shift-jis-typo"

	require.NoError(t, mgr.FullIndex(context.Background()))
	require.Equal(t, 0, rec.count())

	id, ok := mgr.FileID(filepath.Join(root, "broken.lua"))
	require.True(t, ok)
	ds := mgr.Diagnostics(id)
	require.Len(t, ds, 1)
	require.Equal(t, "file-decode-error", ds[0].Code)
}

func TestSetDebugLoggerReceivesDiffOnSecondReindexOnly(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "app.lua", "return 1")

	rec := &recorder{}
	mgr, _ := New(root, fakeParser{}, rec.onFile)

	var mu sync.Mutex
	var lines []string
	mgr.SetDebugLogger(func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, msg)
	})

	require.NoError(t, mgr.FullIndex(context.Background()))
	mu.Lock()
	require.Empty(t, lines, "no previous version on record yet, nothing to diff")
	mu.Unlock()

	require.NoError(t, os.WriteFile(path, []byte("return 2"), 0o644))
	require.NoError(t, mgr.FullIndex(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "app.lua")
	require.Contains(t, lines[0], "-return 1")
	require.Contains(t, lines[0], "+return 2")
}

func TestSetDebugLoggerNilResetsToNoop(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	mgr, _ := New(root, fakeParser{}, rec.onFile)
	mgr.SetDebugLogger(nil)
	// Must not panic when logReindexDiff runs against the reset no-op sink.
	mgr.logReindexDiff(types.FileID(1), "x.lua", "a")
	mgr.logReindexDiff(types.FileID(1), "x.lua", "b")
}

func TestModulePathOfStripsExtensionAndJoinsWithDots(t *testing.T) {
	root := string(os.PathSeparator) + filepath.Join("workspace")
	path := filepath.Join(root, "lib", "foo", "bar.lua")
	require.Equal(t, "lib.foo.bar", modulePathOf(root, path))
}
