// Package workspace implements component J (§4.10): file discovery
// across a workspace's configured roots, Std/Library/Main
// classification, the five-tier configuration merge, and a debounced
// re-index triggered by watched-file change notifications.
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/luasem/luasem/internal/config"
	"github.com/luasem/luasem/internal/diag"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
	"github.com/luasem/luasem/internal/workspace/encoding"
)

// Parser is the external collaborator internal/parser.go documents as
// "consumed, not implemented" by the core: given a file's already-
// decoded UTF-8 text, it returns the syntax tree the analyzer passes
// walk. Production wiring supplies a tree-sitter-backed implementation
// at cmd/luasem-ls's composition root; tests supply a fake.
type Parser interface {
	Parse(file types.FileID, text string) (*parser.Tree, error)
}

// AnalyzeFunc runs the D->E->F->G->H pipeline (internal/pipeline) for
// one already-parsed file. The workspace manager only owns *when* a
// file gets (re-)analyzed, never the analysis itself.
type AnalyzeFunc func(ctx context.Context, file types.FileID, tree *parser.Tree)

// Manager owns the mapping between on-disk paths and the stable
// FileIDs the rest of the analyzer keys everything off of, runs
// discovery and classification, and debounces re-index requests coming
// from `didChangeWatchedFiles`-style notifications.
type Manager struct {
	mu sync.Mutex

	cfg    *config.Config
	ix     *index.Index
	parser Parser
	onFile AnalyzeFunc

	root     string
	fileIDs  map[string]types.FileID
	paths    map[types.FileID]string
	classes  map[types.FileID]index.WorkspaceClass
	nextID   types.FileID
	debounce map[types.FileID]*pendingReindex
	fileDiag map[types.FileID][]diag.Diagnostic

	prevText map[types.FileID]string
	debugLog func(message string)
}

type pendingReindex struct {
	timer *time.Timer
	token string
}

// New constructs a Manager for root, loading its merged configuration
// (the first four of §6's five discovery tiers — a fifth, client-sent
// tier, is applied afterwards via ApplyClientConfig since it only
// exists once a session starts).
func New(root string, p Parser, onFile AnalyzeFunc) (*Manager, []string) {
	cfg, warnings := config.Load(root)
	return &Manager{
		cfg:      cfg,
		ix:       index.New(),
		parser:   p,
		onFile:   onFile,
		root:     root,
		fileIDs:  make(map[string]types.FileID),
		paths:    make(map[types.FileID]string),
		classes:  make(map[types.FileID]index.WorkspaceClass),
		nextID:   types.BuiltinFileID + 1,
		debounce: make(map[types.FileID]*pendingReindex),
		fileDiag: make(map[types.FileID][]diag.Diagnostic),
		prevText: make(map[types.FileID]string),
		debugLog: func(string) {},
	}, warnings
}

// SetDebugLogger installs the sink re-index line-diffs are written to
// (internal/protocol.Server.LogDebug, typically, wired by
// cmd/luasem-ls's composition root as `func(msg string) { server.LogDebug(msg) }`).
// Defaults to a no-op so Manager has no hard dependency on any
// particular logging sink.
func (m *Manager) SetDebugLogger(f func(message string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f == nil {
		f = func(string) {}
	}
	m.debugLog = f
}

// logReindexDiff logs, at debug level, a unified diff of file's
// previous text against newText when a previous version is on record —
// the §3 "line-diff of a file's previous vs. new text, logged at debug
// level on re-index" behavior. The previous text is always replaced
// with newText regardless of whether a diff was logged, so the next
// call diffs against what is now current.
func (m *Manager) logReindexDiff(file types.FileID, path, newText string) {
	m.mu.Lock()
	old, had := m.prevText[file]
	m.prevText[file] = newText
	logf := m.debugLog
	m.mu.Unlock()

	if !had || old == newText {
		return
	}
	diffText, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(old),
		B:        difflib.SplitLines(newText),
		FromFile: path,
		ToFile:   path,
		Context:  2,
	})
	if err != nil || diffText == "" {
		return
	}
	logf(fmt.Sprintf("re-index diff for %s:\n%s", path, diffText))
}

// Diagnostics returns the file-header diagnostics recorded for file by
// a decode or parse failure (§7 "file decode error: the file is
// skipped; a diagnostic targets the file header"), if any.
func (m *Manager) Diagnostics(file types.FileID) []diag.Diagnostic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fileDiag[file]
}

func (m *Manager) setFileDiagnostic(file types.FileID, code, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileDiag[file] = []diag.Diagnostic{{
		File:     file,
		Range:    types.ByteRange{Start: 0, End: 0},
		Severity: diag.SeverityError,
		Code:     code,
		Message:  message,
	}}
}

// Config returns the manager's currently merged configuration.
func (m *Manager) Config() *config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// ApplyClientConfig merges a client-sent partial configuration (the
// fifth, highest-priority discovery tier, §6) over the manager's
// current config.
func (m *Manager) ApplyClientConfig(partial *config.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.MergeClient(partial)
}

// Index returns the shared index every analysis pass reads and writes.
func (m *Manager) Index() *index.Index { return m.ix }

// roots builds the Root list Discover walks: the workspace's own
// configured roots (Main, or Library when the same path also appears
// in cfg.Workspace.Library) plus every cfg.Workspace.Library entry not
// already covered. A bare workspace with no explicit WorkspaceRoots
// falls back to root itself, so a minimal config still discovers
// something.
func (m *Manager) roots() []Root {
	cfg := m.cfg
	libSet := make(map[string]bool, len(cfg.Workspace.Library))
	for _, l := range cfg.Workspace.Library {
		libSet[l] = true
	}

	mainRoots := cfg.Workspace.WorkspaceRoots
	if len(mainRoots) == 0 {
		mainRoots = []string{m.root}
	}

	covered := make(map[string]bool, len(mainRoots))
	var out []Root
	for _, r := range mainRoots {
		covered[r] = true
		class := ClassMain
		if libSet[r] {
			class = ClassLibrary
		}
		out = append(out, Root{Path: r, Class: class})
	}
	for _, l := range cfg.Workspace.Library {
		if covered[l] {
			continue
		}
		out = append(out, Root{Path: l, Class: ClassLibrary})
	}
	return out
}

// FullIndex discovers every file in the workspace, reads and decodes
// each one, parses it, registers its module classification, and runs
// the analysis pipeline over it. It is the "cold start" / "full
// re-index" lifecycle event (§3 Lifecycle); incremental updates go
// through RequestReindex instead.
func (m *Manager) FullIndex(ctx context.Context) error {
	discovered, err := Discover(ctx, m.roots(), m.cfg)
	if err != nil {
		return err
	}
	for _, d := range discovered {
		file := m.assignFileID(d.Path)
		m.ix.SetModule(file, modulePathOf(m.root, d.Path), toIndexClass(d.Class))
		m.classes[file] = toIndexClass(d.Class)
		if err := m.loadAndAnalyze(ctx, file, d.Path); err != nil {
			continue // §7: a decode/parse failure skips the file; setFileDiagnostic already recorded the file-header diagnostic
		}
	}
	return nil
}

// LoadStdSource registers a builtin standard-library source under a
// virtual name (no disk path) classified Std (§4.10 "Std (builtin)"):
// the one workspace class that never comes from a discovered file.
// cmd/luasem-ls's composition root calls this once per bundled stdlib
// module before the first FullIndex.
func (m *Manager) LoadStdSource(ctx context.Context, virtualName, text string) error {
	file := m.assignFileID(virtualName)
	m.ix.SetModule(file, virtualName, index.ClassStd)
	m.classes[file] = index.ClassStd
	tree, err := m.parser.Parse(file, text)
	if err != nil {
		return err
	}
	m.onFile(ctx, file, tree)
	return nil
}

// Open parses text as path's content and runs the analysis pipeline
// directly from memory, bypassing disk entirely — the overlay path
// `textDocument/didOpen`/`didChange` notifications drive, since an
// open editor buffer is the source of truth over whatever is saved on
// disk. Returns the assigned FileID and parsed tree so a caller (the
// editor-protocol transport) can answer position-addressed queries
// (hover, definition, completion) against the just-analyzed tree.
func (m *Manager) Open(ctx context.Context, path, text string) (types.FileID, *parser.Tree, error) {
	file := m.assignFileID(path)
	m.mu.Lock()
	if _, ok := m.classes[file]; !ok {
		m.ix.SetModule(file, modulePathOf(m.root, path), index.ClassMain)
		m.classes[file] = index.ClassMain
	}
	m.mu.Unlock()

	tree, err := m.parser.Parse(file, text)
	if err != nil {
		m.setFileDiagnostic(file, "parse-error", err.Error())
		return file, nil, err
	}
	m.ix.ClearFile(file)
	m.onFile(ctx, file, tree)
	return file, tree, nil
}

func (m *Manager) loadAndAnalyze(ctx context.Context, file types.FileID, path string) error {
	raw, err := readFile(path)
	if err != nil {
		m.setFileDiagnostic(file, "file-read-error", err.Error())
		return err
	}
	text, err := encoding.Decode(raw, m.cfg.Workspace.Encoding)
	if err != nil {
		m.setFileDiagnostic(file, "file-decode-error", err.Error())
		return err
	}
	tree, err := m.parser.Parse(file, text)
	if err != nil {
		m.setFileDiagnostic(file, "parse-error", err.Error())
		return err
	}
	m.logReindexDiff(file, path, text)
	m.onFile(ctx, file, tree)
	return nil
}

func (m *Manager) assignFileID(path string) types.FileID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.fileIDs[path]; ok {
		return id
	}
	id := m.nextID
	m.nextID++
	m.fileIDs[path] = id
	m.paths[id] = path
	return id
}

// FileID returns path's assigned FileID, if it has been discovered.
func (m *Manager) FileID(path string) (types.FileID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.fileIDs[path]
	return id, ok
}

// Path returns file's on-disk path (or virtual name, for a Std
// source), the reverse of FileID — the editor-protocol transport needs
// this to answer a goto-definition that lands in a file other than the
// one the request was made against.
func (m *Manager) Path(file types.FileID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.paths[file]
	return p, ok
}

// RequestReindex debounces a re-analysis of file (a watched-file
// change notification, §4.10), coalescing rapid repeated edits of the
// same file into a single re-run after cfg.Workspace.ReindexDurationMillis
// of quiet. A superseded pending timer is stopped before a new one is
// armed; the uuid token guards against a stop racing a fire on a timer
// already delivered to its channel.
func (m *Manager) RequestReindex(ctx context.Context, path string) {
	if !m.cfg.Workspace.EnableReindex {
		return
	}
	file := m.assignFileID(path)
	delay := time.Duration(m.cfg.Workspace.ReindexDurationMillis) * time.Millisecond
	token := uuid.NewString()

	m.mu.Lock()
	if prev, ok := m.debounce[file]; ok {
		prev.timer.Stop()
	}
	m.debounce[file] = &pendingReindex{token: token}
	m.debounce[file].timer = time.AfterFunc(delay, func() {
		m.fireReindex(ctx, file, path, token)
	})
	m.mu.Unlock()
}

func (m *Manager) fireReindex(ctx context.Context, file types.FileID, path, token string) {
	m.mu.Lock()
	pending, ok := m.debounce[file]
	if !ok || pending.token != token {
		m.mu.Unlock()
		return // superseded by a later request
	}
	delete(m.debounce, file)
	m.mu.Unlock()

	m.ix.ClearFile(file)
	_ = m.loadAndAnalyze(ctx, file, path)
}

func toIndexClass(c Class) index.WorkspaceClass {
	switch c {
	case ClassStd:
		return index.ClassStd
	case ClassLibrary:
		return index.ClassLibrary
	default:
		return index.ClassMain
	}
}
