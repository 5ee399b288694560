// Package cache implements the per-file inference cache (component
// C, §4.3): a memo of ExprId -> CacheEntry that lets re-entrant
// inference of the same expression terminate instead of looping, plus
// a VarRefId -> Type memo the flow pass's narrowing facts populate and
// the inference pass consults.
//
// Grounded on the same "guarded map behind a mutex" shape the index
// database uses (internal/index/db.go), scoped down to one file.
package cache

import (
	"sync"

	"github.com/luasem/luasem/internal/diag"
	"github.com/luasem/luasem/internal/types"
)

// State tags which of the three CacheEntry variants a slot holds.
type State uint8

const (
	StateReady      State = iota // Ready(Type)
	StateResolving                // ResolvingSentinel: inference of this expr is already on the call stack
	StateFailed                   // Failed(reason)
)

// Entry is one ExprId's memoized inference outcome.
type Entry struct {
	State  State
	Type   *types.Type
	Reason diag.InferFailReason
}

// FileCache memoizes one file's expression types and narrowed
// variable-reference types. A single RWMutex is enough: the inference
// pass for one file runs single-threaded, but hover/completion reads
// may run concurrently against an already-committed cache.
type FileCache struct {
	mu sync.RWMutex

	exprs   map[types.ExprId]Entry
	varRefs map[types.VarRefId]*types.Type
}

func New() *FileCache {
	return &FileCache{
		exprs:   make(map[types.ExprId]Entry),
		varRefs: make(map[types.VarRefId]*types.Type),
	}
}

// Get returns the memoized entry for id, if any.
func (c *FileCache) Get(id types.ExprId) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.exprs[id]
	return e, ok
}

// MarkResolving records that inference of id is in progress, so a
// re-entrant call (a cycle through the expression graph) observes
// ResolvingSentinel and answers Unknown instead of recursing forever
// (§4.3).
func (c *FileCache) MarkResolving(id types.ExprId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.exprs[id]; !ok {
		c.exprs[id] = Entry{State: StateResolving}
	}
}

// SetReady commits a resolved type, replacing any ResolvingSentinel.
func (c *FileCache) SetReady(id types.ExprId, t *types.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exprs[id] = Entry{State: StateReady, Type: t}
}

// SetFailed records a terminal failure reason for id.
func (c *FileCache) SetFailed(id types.ExprId, reason diag.InferFailReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exprs[id] = Entry{State: StateFailed, Reason: reason}
}

// IsCycle reports whether id is already being resolved on the current
// call stack (a ResolvingSentinel hit) — the caller should answer
// Unknown and log the cycle rather than recurse.
func (c *FileCache) IsCycle(id types.ExprId) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.exprs[id]
	return ok && e.State == StateResolving
}

// NarrowedType returns the flow-narrowed type recorded for ref, if
// any (§4.6 Flow pass).
func (c *FileCache) NarrowedType(ref types.VarRefId) (*types.Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.varRefs[ref]
	return t, ok
}

func (c *FileCache) SetNarrowedType(ref types.VarRefId, t *types.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.varRefs[ref] = t
}

// Clear drops the memoized entry for a single expression, letting a
// fixpoint retry re-infer it instead of replaying a stale Failed
// verdict (§4.8: "one pass attempts each" implies a live retry, not a
// read of the first answer forever).
func (c *FileCache) Clear(id types.ExprId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.exprs, id)
}

// Invalidate drops every memoized entry — called when the owning
// file's decl/member tables are about to be repopulated (§9
// Incremental re-index: "invalidate G's inference cache").
func (c *FileCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exprs = make(map[types.ExprId]Entry)
	c.varRefs = make(map[types.VarRefId]*types.Type)
}

// Store is the workspace-wide collection of per-file caches, keyed by
// generation so a stale cache (one built against an older index
// generation) is never served across a re-index that bumped it.
type Store struct {
	mu         sync.Mutex
	generation map[types.FileID]uint64
	files      map[types.FileID]*FileCache
}

func NewStore() *Store {
	return &Store{generation: make(map[types.FileID]uint64), files: make(map[types.FileID]*FileCache)}
}

// For returns file's cache, resetting it if currentGen has moved past
// the generation it was last built against.
func (s *Store) For(file types.FileID, currentGen uint64) *FileCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc, ok := s.files[file]
	if !ok || s.generation[file] != currentGen {
		fc = New()
		s.files[file] = fc
		s.generation[file] = currentGen
	}
	return fc
}

// Evict drops file's cache outright (full invalidation, e.g. the file
// was closed or deleted).
func (s *Store) Evict(file types.FileID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, file)
	delete(s.generation, file)
}
