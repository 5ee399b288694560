// Package pipeline orchestrates the five per-file analysis passes
// (components D-H) in the order spec.md's concurrency model requires:
// decl (D), doc (E), flow (F), infer (G), then the unresolved fixpoint
// (H) drains whatever G deferred. internal/workspace.Manager calls
// Analyze once per (re-)parsed file through its AnalyzeFunc hook; this
// package owns no file discovery, transport, or storage of its own.
package pipeline

import (
	"github.com/luasem/luasem/internal/analyzer/decl"
	"github.com/luasem/luasem/internal/analyzer/doc"
	"github.com/luasem/luasem/internal/analyzer/fixpoint"
	"github.com/luasem/luasem/internal/analyzer/flow"
	"github.com/luasem/luasem/internal/analyzer/infer"
	"github.com/luasem/luasem/internal/cache"
	"github.com/luasem/luasem/internal/config"
	"github.com/luasem/luasem/internal/diag"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
)

// Pipeline binds the resources every per-file run shares: the
// workspace-wide index (B) and fixpoint queue (H), and the merged
// configuration (§6) every pass consults. A Pipeline outlives any one
// file — a `require` cycle (scenario 5) needs file X's deferred work
// retried against file Y's now-further-along index, and vice versa,
// so the fixpoint queue and the per-file infer.Context it dispatches
// into are kept alive across Analyze calls rather than rebuilt fresh
// each time.
type Pipeline struct {
	Index  *index.Index
	Queue  *fixpoint.Queue
	Config *config.Config

	caches   map[types.FileID]*cache.FileCache
	contexts map[types.FileID]*infer.Context
}

// New builds a Pipeline sharing ix and a fresh fixpoint queue. cfg is
// typically workspace.Manager.Config()'s return value.
func New(ix *index.Index, cfg *config.Config) *Pipeline {
	return &Pipeline{
		Index:    ix,
		Queue:    fixpoint.New(),
		Config:   cfg,
		caches:   make(map[types.FileID]*cache.FileCache),
		contexts: make(map[types.FileID]*infer.Context),
	}
}

// Cache returns file's inference cache, creating an empty one on first
// use.
func (p *Pipeline) Cache(file types.FileID) *cache.FileCache {
	if fc, ok := p.caches[file]; ok {
		return fc
	}
	fc := cache.New()
	p.caches[file] = fc
	return fc
}

// contextFor returns file's infer.Context, building it once and
// reusing it on every later call (including fixpoint retries queued
// from a different file's Analyze run).
func (p *Pipeline) contextFor(file types.FileID) *infer.Context {
	if ctx, ok := p.contexts[file]; ok {
		return ctx
	}
	ctx := infer.NewContext(p.Index, p.Cache(file), p.Queue, file, p.Config)
	p.contexts[file] = ctx
	return ctx
}

// Analyze runs D -> E -> F -> G for tree, then drains every unresolved
// fixpoint item queued so far across the whole workspace (H). Each
// queued item is dispatched to its own originating file's
// infer.Context — not necessarily tree's — since an item enqueued by
// an earlier Analyze call of a different file must retry against that
// file's own cache and index bindings.
func (p *Pipeline) Analyze(tree *parser.Tree) *infer.Context {
	file := tree.File
	fc := p.Cache(file)

	decl.Run(&decl.Context{Index: p.Index, Queue: p.Queue, File: file, Config: p.Config}, tree)
	doc.Run(&doc.Context{Index: p.Index, File: file}, tree)
	flow.Run(&flow.Context{Index: p.Index, Cache: fc, File: file}, tree)

	ctx := p.contextFor(file)
	infer.Run(ctx, tree)
	fixpoint.Run(p.Queue, p.attemptsDispatch(), p.finalizeDispatch())
	return ctx
}

var dispatchedKinds = []fixpoint.Kind{
	fixpoint.KindTableField, fixpoint.KindDecl, fixpoint.KindExpr, fixpoint.KindMember,
}

// attemptsDispatch builds one fixpoint.Attempt per Kind that resolves
// item.File's own infer.Context before delegating to infer.Attempts,
// so an item queued from file X is always retried against X's cache,
// never whichever file happened to trigger this fixpoint.Run call.
func (p *Pipeline) attemptsDispatch() map[fixpoint.Kind]fixpoint.Attempt {
	out := make(map[fixpoint.Kind]fixpoint.Attempt, len(dispatchedKinds))
	for _, k := range dispatchedKinds {
		k := k
		out[k] = func(item *fixpoint.Item) (bool, diag.InferFailReason) {
			ctx := p.contextFor(item.File)
			return infer.Attempts(ctx)[k](item)
		}
	}
	return out
}

func (p *Pipeline) finalizeDispatch() fixpoint.Finalize {
	return func(item *fixpoint.Item) {
		ctx := p.contextFor(item.File)
		infer.Finalize(ctx)(item)
	}
}
