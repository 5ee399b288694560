package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luasem/luasem/internal/config"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func TestDiscoverRespectsExtensionAndIgnoreDir(t *testing.T) {
	dir := t.TempDir()
	lua := writeFile(t, dir, "src/main.lua", "return 1")
	writeFile(t, dir, "src/readme.md", "not lua")
	writeFile(t, dir, ".git/hooks/pre-commit", "local x = 1")

	cfg := config.Default()
	cfg.Workspace.IgnoreDir = []string{".git"}

	got, err := Discover(context.Background(), []Root{{Path: dir, Class: ClassMain}}, cfg)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, lua, got[0].Path)
}

func TestDiscoverGlobExcludeAndForceInclude(t *testing.T) {
	dir := t.TempDir()
	kept := writeFile(t, dir, "src/main.lua", "return 1")
	excluded := writeFile(t, dir, "src/vendor/dep.lua", "return 2")
	forced := writeFile(t, dir, "src/vendor/keep.lua", "return 3")

	cfg := config.Default()
	cfg.Workspace.IgnoreGlobs = []string{"**/vendor/**"}
	cfg.Workspace.ForceIncludePathGlobs = []string{"**/vendor/keep.lua"}

	got, err := Discover(context.Background(), []Root{{Path: dir, Class: ClassMain}}, cfg)
	require.NoError(t, err)

	var paths []string
	for _, d := range got {
		paths = append(paths, d.Path)
	}
	sort.Strings(paths)

	require.Contains(t, paths, kept)
	require.Contains(t, paths, forced)
	require.NotContains(t, paths, excluded)
}
