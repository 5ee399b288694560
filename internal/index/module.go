package index

import "github.com/luasem/luasem/internal/types"

// WorkspaceClass classifies a file's home workspace (§4.10).
type WorkspaceClass uint8

const (
	ClassMain WorkspaceClass = iota
	ClassLibrary
	ClassStd
)

// ModuleEntry is one file's module-path bijection entry plus its
// workspace classification and `kg`-required flags (§4.2 module_index).
type ModuleEntry struct {
	File        types.FileID
	ModulePath  string
	Class       WorkspaceClass
	KgRequired  bool
}

// ModuleIndex maintains the file<->module-path bijection and workspace
// classification. It is rebuilt wholesale on a full re-index (§3
// Lifecycle).
type ModuleIndex struct {
	byFile   map[types.FileID]*ModuleEntry
	byModule map[string]types.FileID
}

func newModuleIndex() *ModuleIndex {
	return &ModuleIndex{byFile: make(map[types.FileID]*ModuleEntry), byModule: make(map[string]types.FileID)}
}

// Set records file's module path and class, honoring the supplemented
// rule from SPEC_FULL.md §5.6: a file already classified keeps its
// first classification when re-set to a class later in the
// std→library→main priority order (a no-op if called a second time
// with a looser class).
func (m *ModuleIndex) Set(file types.FileID, modulePath string, class WorkspaceClass) {
	if existing, ok := m.byFile[file]; ok {
		if class < existing.Class {
			// looser classification than the one already recorded: keep
			// the first (tighter / earlier-in-order) classification.
			return
		}
	}
	entry := &ModuleEntry{File: file, ModulePath: modulePath, Class: class}
	m.byFile[file] = entry
	if modulePath != "" {
		m.byModule[modulePath] = file
	}
}

func (m *ModuleIndex) Get(file types.FileID) (*ModuleEntry, bool) {
	e, ok := m.byFile[file]
	return e, ok
}

func (m *ModuleIndex) Resolve(modulePath string) (types.FileID, bool) {
	f, ok := m.byModule[modulePath]
	return f, ok
}

func (m *ModuleIndex) clearFile(file types.FileID) {
	if e, ok := m.byFile[file]; ok {
		delete(m.byModule, e.ModulePath)
		delete(m.byFile, file)
	}
}
