// Package fixpoint implements the unresolved-retry loop (component H):
// a queue of work items deferred by the decl pass (D) or the
// type-inference pass (G) because their answer depends on something
// not yet analyzed. One pass attempts each pending item; items that
// now succeed are dropped, items that fail with the same reason are
// re-queued, and the loop stops the moment a full pass makes no
// progress (§4.8).
package fixpoint

import (
	"github.com/luasem/luasem/internal/diag"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
)

// Kind tags which deferred operation a WorkItem represents.
type Kind uint8

const (
	// KindTableField: a table-literal field whose key is itself an
	// expression, queued by the decl pass with reason "expression key
	// needs its type" (§4.4).
	KindTableField Kind = iota
	// KindDecl: a Local/Assign binding deferred as UnResolveDecl because
	// its initializer's type isn't resolvable yet (§4.7 local-stat
	// contract).
	KindDecl
	// KindExpr: any other expression whose inference returned
	// UnResolveExpr.
	KindExpr
	// KindMember: a member binding deferred as UnResolveMember (e.g. the
	// enum-by-variable defer in §4.9).
	KindMember
)

// Item is one deferred unit of work. Exactly the fields relevant to
// Kind are populated; the rest are zero.
type Item struct {
	Kind Kind
	File types.FileID

	// KindTableField
	TableOwner  index.MemberOwner
	FieldExprID types.ExprId
	FieldKeyExprType *types.Type // the expression-key's inferred type, once known
	KeyNode   parser.Expr        // the key expression, re-inferred on each attempt
	ValueNode parser.Expr        // the field's value expression

	// KindDecl
	DeclID types.DeclId
	RetIdx int

	// KindExpr / KindMember / KindDecl
	ExprID   types.ExprId
	MemberID types.MemberId
	// Node is the actual expression an attempt re-infers; the queue
	// only carries stable ids for bookkeeping (cache keys, diagnostics)
	// but an Attempt needs the live AST node to retry inference against
	// whatever of its dependencies have resolved since the last pass.
	Node parser.Expr

	// Reason records why this item was deferred the last time it was
	// attempted, so the queue can tell "still failing for the same
	// reason" from "now failing differently" (the spec only requires
	// the former to re-queue, but carrying the latter too makes
	// diagnostics honest about what's still unresolved).
	Reason diag.InferFailReason
}

// Attempt is supplied per item kind by the inference pass, including
// KindTableField items that the decl pass enqueues. It returns true
// once the item's binding has been written to the index; otherwise it
// returns the reason inference still fails for.
type Attempt func(item *Item) (resolved bool, reason diag.InferFailReason)

// Finalize binds an item that never resolved across the whole
// fixpoint loop to Unknown, and is given the chance to surface the
// reason as a diagnostic.
type Finalize func(item *Item)

// Queue holds pending work items across the D/E/F/G passes of one
// analysis run; Run drains it to a fixpoint.
type Queue struct {
	items []*Item
}

func New() *Queue { return &Queue{} }

func (q *Queue) Enqueue(item *Item) { q.items = append(q.items, item) }

func (q *Queue) Len() int { return len(q.items) }

// Run repeatedly attempts every pending item, by dispatching on Kind
// to the matching Attempt function, until a full pass resolves
// nothing — then calls finalize on whatever remains (§4.8).
func Run(q *Queue, attempts map[Kind]Attempt, finalize Finalize) {
	for {
		if len(q.items) == 0 {
			return
		}
		var remaining []*Item
		progressed := false
		for _, item := range q.items {
			attempt, ok := attempts[item.Kind]
			if !ok {
				remaining = append(remaining, item)
				continue
			}
			resolved, reason := attempt(item)
			if resolved {
				progressed = true
				continue
			}
			if reason != item.Reason {
				progressed = true
			}
			item.Reason = reason
			remaining = append(remaining, item)
		}
		q.items = remaining
		if !progressed {
			break
		}
	}
	for _, item := range q.items {
		finalize(item)
	}
	q.items = nil
}
