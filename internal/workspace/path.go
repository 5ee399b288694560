package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// modulePathOf derives a `require`-style dotted module path from a
// file's path relative to root, stripping its extension and replacing
// path separators with dots (e.g. root/lib/foo/bar.lua -> lib.foo.bar).
func modulePathOf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	rel = filepath.ToSlash(rel)
	return strings.ReplaceAll(rel, "/", ".")
}
