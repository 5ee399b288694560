// Package infer implements the type-inference pass (component G,
// §4.7): structural dispatch assigning a Type to every expression,
// binding Local/Assign/Func statements' entities, and installing the
// default-call metamethod SPEC_FULL.md §5 calls for. Dispatch again
// follows §9's match-table idiom (internal/analyzer/decl, doc).
//
// Inference results are memoized per expression in the per-file cache
// (component C) so re-entrant dependencies terminate instead of
// looping; a failed attempt whose reason is not "no opinion" is
// queued in the unresolved fixpoint (component H) and retried as
// later statements in the same file (or a later re-index pass) make
// progress.
package infer

import (
	"github.com/luasem/luasem/internal/analyzer/fixpoint"
	"github.com/luasem/luasem/internal/cache"
	"github.com/luasem/luasem/internal/config"
	"github.com/luasem/luasem/internal/diag"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/member"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
)

// Context carries the shared resources one file's inference walk
// reads and writes (§5 Shared resources): the index database, this
// file's expression cache, the unresolved-work queue, the merged
// config, and a member.Resolver built from the same index + config.
type Context struct {
	Index  *index.Index
	Cache  *cache.FileCache
	Queue  *fixpoint.Queue
	File   types.FileID
	Config *config.Config
	Member *member.Resolver
}

// NewContext builds a Context with a Resolver configured from cfg's
// strict-mode flag (§6 strict.arrayIndex).
func NewContext(ix *index.Index, fc *cache.FileCache, q *fixpoint.Queue, file types.FileID, cfg *config.Config) *Context {
	return &Context{
		Index: ix, Cache: fc, Queue: q, File: file, Config: cfg,
		Member: &member.Resolver{Index: ix, Strict: cfg.Strict.ArrayIndex},
	}
}

// Run types every statement of tree, the one inference walk §4.7
// describes, binding decls, members, and closures as it goes.
func Run(ctx *Context, tree *parser.Tree) {
	walkStats(ctx, tree.Root.Stats)
}

// --- statement dispatch --------------------------------------------------

type statHandler func(ctx *Context, s parser.Stat)

var statHandlers = map[parser.Kind]statHandler{
	parser.KLocalStat:      bindLocalStat,
	parser.KAssignStat:     bindAssignStat,
	parser.KFuncStat:       bindFuncStat,
	parser.KLocalFuncStat:  bindLocalFuncStat,
	parser.KNumericForStat: walkNumericForStat,
	parser.KGenericForStat: walkGenericForStat,
	parser.KIfStat:         walkIfStat,
	parser.KWhileStat:      walkWhileStat,
	parser.KRepeatStat:     walkRepeatStat,
	parser.KDoStat:         walkDoStat,
	parser.KCallStat:       walkCallStat,
	parser.KReturnStat:     walkReturnStat,
	parser.KBreakStat:      func(*Context, parser.Stat) {},
}

func walkStat(ctx *Context, s parser.Stat) {
	if s == nil {
		return
	}
	if h, ok := statHandlers[s.Kind()]; ok {
		h(ctx, s)
	}
}

func walkStats(ctx *Context, stats []parser.Stat) {
	for _, s := range stats {
		walkStat(ctx, s)
	}
}

// bindLocalStat implements the local-stat contract (§4.7): arity
// binding with Variadic-tail draw and Nil padding, deferring a name to
// KindDecl when its source expression doesn't yet resolve.
func bindLocalStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.LocalStat)
	n, m := len(st.Names), len(st.Exprs)

	for i := 0; i < n; i++ {
		id := types.DeclId{File: ctx.File, Pos: st.NameRngs[i].Start}
		d, ok := ctx.Index.GetDecl(id)
		if !ok {
			continue
		}
		if d.PresetType != nil {
			continue // synthetic binding already set by the decl/doc pass
		}
		if m == 0 {
			d.Type = types.Nil()
			continue
		}
		if i < m {
			bindFromExpr(ctx, d, id, st.Exprs[i], 0)
			continue
		}
		// i >= m: drawn from the last expression's tail if it is
		// multi-valued, else Nil.
		last := st.Exprs[m-1]
		lastType := ctx.typeOf(last)
		if types.IsMultiReturn(lastType) {
			bindFromExpr(ctx, d, id, last, i-m+1)
			continue
		}
		d.Type = types.Nil()
	}
}

// bindFromExpr resolves e's type and binds d.Type to it (retIdx
// selects a multi-return tail element for names beyond the value
// list), deferring to H as KindDecl on a non-terminal failure.
func bindFromExpr(ctx *Context, d *index.Decl, id types.DeclId, e parser.Expr, retIdx int) {
	t, ok, reason := ctx.infer(e)
	if !ok {
		ctx.Queue.Enqueue(&fixpoint.Item{
			Kind: fixpoint.KindDecl, File: ctx.File, DeclID: id, RetIdx: retIdx,
			Node: e, Reason: reason,
		})
		return
	}
	d.Type = elementOf(t, retIdx)
}

// elementOf narrows a Variadic/Tuple result to its retIdx'th element
// (retIdx 0 for the common single-value case).
func elementOf(t *types.Type, retIdx int) *types.Type {
	if retIdx == 0 {
		if t != nil && t.Kind == types.KTuple && len(t.Elems) > 0 {
			return t.Elems[0]
		}
		return t
	}
	if t == nil {
		return types.Nil()
	}
	switch t.Kind {
	case types.KVariadic, types.KTuple:
		if retIdx < len(t.Elems) {
			return t.Elems[retIdx]
		}
		return types.Nil()
	default:
		return types.Nil()
	}
}

// bindAssignStat implements the assign-stat contract (§4.7): the
// `v = v or d` default-assignment special case, general arity
// binding, and index-expr LHS member binding through the prefix's
// type form.
func bindAssignStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.AssignStat)
	for _, e := range st.RHS {
		ctx.typeOf(e)
	}

	n, m := len(st.LHS), len(st.RHS)
	for i, lhs := range st.LHS {
		if n == 1 && m == 1 {
			if d, name, ok := defaultAssignPattern(lhs, st.RHS[0]); ok {
				bindLHS(ctx, lhs, ctx.typeOf(d))
				_ = name
				return
			}
		}
		var rhsType *types.Type
		switch {
		case i < m:
			rhsType = ctx.typeOf(st.RHS[i])
		case m > 0 && types.IsMultiReturn(ctx.typeOf(st.RHS[m-1])):
			rhsType = elementOf(ctx.typeOf(st.RHS[m-1]), i-m+1)
		default:
			rhsType = types.Nil()
		}
		bindLHS(ctx, lhs, rhsType)
	}
}

// defaultAssignPattern recognizes `v = v or d` (§4.7): a single-target
// assignment whose sole RHS is `Or(NameExpr(v), d)` where v names the
// same entity as the LHS.
func defaultAssignPattern(lhs, rhs parser.Expr) (parser.Expr, string, bool) {
	be, ok := rhs.(*parser.BinExpr)
	if !ok || be.Op != parser.OpOr {
		return nil, "", false
	}
	lname, ok := lhs.(*parser.NameExpr)
	if !ok {
		return nil, "", false
	}
	rname, ok := be.Left.(*parser.NameExpr)
	if !ok || rname.Name != lname.Name {
		return nil, "", false
	}
	return be.Right, lname.Name, true
}

// bindLHS binds one assignment target: a bare name rebinds its decl's
// Type; an index expression resolves the member owner through the
// prefix's type form (Def -> Type(def), Ref -> Type(ref), TableConst/
// Instance -> Element(range)) and upserts a Member there.
func bindLHS(ctx *Context, lhs parser.Expr, rhsType *types.Type) {
	switch l := lhs.(type) {
	case *parser.NameExpr:
		d, ok := ctx.Index.DeclAtPosition(ctx.File, l.Name, l.Range().Start)
		if ok && d.PresetType == nil {
			d.Type = rhsType
		}
	case *parser.IndexExpr:
		prefixType := ctx.typeOf(l.Prefix)
		owner, key, ok := ownerAndKeyOf(ctx, l, prefixType)
		if !ok {
			return
		}
		upsertMember(ctx, owner, key, l, rhsType)
	}
}

// ownerAndKeyOf derives the MemberOwner an index-expr LHS/RHS targets
// from its prefix's resolved type, and the MemberKey the name/bracket
// form implies (§4.7 assign-stat contract's owner-resolution rule).
func ownerAndKeyOf(ctx *Context, ie *parser.IndexExpr, prefixType *types.Type) (index.MemberOwner, types.MemberKey, bool) {
	var key types.MemberKey
	switch ie.Form {
	case parser.IndexByDotName:
		key = types.NameKey(ie.Name)
	case parser.IndexByBracketExpr:
		if lit, ok := staticKeyOf(ie.KeyExpr); ok {
			key = lit
		} else {
			key = types.ExprTypeKey(ctx.typeOf(ie.KeyExpr))
		}
	}
	if prefixType == nil {
		return index.MemberOwner{}, key, false
	}
	switch prefixType.Kind {
	case types.KDef, types.KRef:
		return index.TypeOwner(prefixType.TypeDecl), key, true
	case types.KTableConst, types.KInstance:
		return index.ElementOwner(prefixType.File, prefixType.Range), key, true
	default:
		return index.MemberOwner{}, key, false
	}
}

func staticKeyOf(e parser.Expr) (types.MemberKey, bool) {
	switch v := e.(type) {
	case *parser.StringLit:
		return types.NameKey(v.Value), true
	case *parser.NumberLit:
		if v.IsInt {
			return types.IntKey(v.Int), true
		}
	}
	return types.MemberKey{}, false
}

// upsertMember finds an existing member of owner+key (created by the
// decl pass for a table literal's static fields) and sets its
// ValueType, or adds a new one for the assignment forms the decl pass
// doesn't pre-create members for (`T.field = ...` outside a literal).
func upsertMember(ctx *Context, owner index.MemberOwner, key types.MemberKey, site parser.Expr, t *types.Type) {
	for _, m := range ctx.Index.MembersByKey(owner, key) {
		m.ValueType = t
		return
	}
	ctx.Index.AddMember(&index.Member{
		ID:        types.MemberId{Syn: parser.SynID(site), File: ctx.File},
		Owner:     owner,
		Key:       key,
		Feature:   index.FeatureMetaDefine,
		ValueType: t,
	})
}

// bindFuncStat types the closure, binds it to the LHS entity, and —
// when the target matches `T.<configured-default-call-name>` —
// installs a Call metamethod on T whose function is this signature
// (§4.7).
func bindFuncStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.FuncStat)
	sigID := types.SignatureId{File: ctx.File, Range: st.Fn.SignatureRange()}
	fnType := types.Signature(sigID)
	walkClosureBody(ctx, st.Fn)

	bindLHS(ctx, st.Target, fnType)

	ie, ok := st.Target.(*parser.IndexExpr)
	if !ok || ie.Form != parser.IndexByDotName {
		return
	}
	if ie.Name != ctx.Config.Runtime.ClassDefaultCall.FunctionName {
		return
	}
	prefixType := ctx.typeOf(ie.Prefix)
	if prefixType == nil || (prefixType.Kind != types.KDef && prefixType.Kind != types.KRef) {
		return
	}
	ctx.Index.AddOperator(index.TypeOwner(prefixType.TypeDecl), index.OperatorId{Kind: index.OpCall, Sig: sigID})
}

func bindLocalFuncStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.LocalFuncStat)
	sigID := types.SignatureId{File: ctx.File, Range: st.Fn.SignatureRange()}
	id := types.DeclId{File: ctx.File, Pos: st.NameRng.Start}
	if d, ok := ctx.Index.GetDecl(id); ok && d.PresetType == nil {
		d.Type = types.Signature(sigID)
	}
	walkClosureBody(ctx, st.Fn)
}

// walkClosureBody recurses into a closure's statements so nested
// bindings and table literals inside it are typed too; the closure's
// own Signature object (params/returns) was already built by the decl
// and doc passes (D, E) — inference only refines Param decls' Type
// fields here, consulting the signature for doc-declared param types.
func walkClosureBody(ctx *Context, fn *parser.ClosureExpr) {
	if fn == nil {
		return
	}
	sigID := types.SignatureId{File: ctx.File, Range: fn.SignatureRange()}
	if sig, ok := ctx.Index.GetSignature(sigID); ok {
		paramIdx := 0
		if sig.SelfReceiver {
			paramIdx++
		}
		for i, p := range sig.Params {
			if i == 0 && sig.SelfReceiver {
				continue
			}
			if p.Type == nil {
				continue
			}
			rng := fn.Range()
			if idx := i; sig.SelfReceiver {
				if idx-1 < len(fn.ParamRngs) {
					rng = fn.ParamRngs[idx-1]
				}
			} else if idx < len(fn.ParamRngs) {
				rng = fn.ParamRngs[idx]
			}
			id := types.DeclId{File: ctx.File, Pos: rng.Start}
			if d, ok := ctx.Index.GetDecl(id); ok {
				d.Type = p.Type
			}
		}
	}
	walkStats(ctx, fn.Body)
}

func walkNumericForStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.NumericForStat)
	ctx.typeOf(st.Start)
	ctx.typeOf(st.Stop)
	if st.Step != nil {
		ctx.typeOf(st.Step)
	}
	id := types.DeclId{File: ctx.File, Pos: st.VarRng.Start}
	if d, ok := ctx.Index.GetDecl(id); ok {
		d.Type = types.Number()
	}
	walkStats(ctx, st.Body)
}

// walkGenericForStat implements the supplemented for-range multi-
// return binding (SPEC_FULL.md §5 item 1): `for a, b in iter() do`
// binds each name to the corresponding element of the iterator
// expression's return tuple, Nil-padding any remaining names.
func walkGenericForStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.GenericForStat)
	for _, e := range st.Exprs {
		ctx.typeOf(e)
	}
	var iterReturns *types.Type
	if len(st.Exprs) > 0 {
		iterReturns = ctx.typeOf(st.Exprs[0])
	}
	for i, name := range st.Names {
		id := types.DeclId{File: ctx.File, Pos: st.NameRngs[i].Start}
		d, ok := ctx.Index.GetDecl(id)
		if !ok {
			continue
		}
		_ = name
		d.Type = elementOf(iterReturns, i)
	}
	walkStats(ctx, st.Body)
}

func walkIfStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.IfStat)
	for _, c := range st.Clauses {
		ctx.typeOf(c.Cond)
		walkStats(ctx, c.Body)
	}
	walkStats(ctx, st.Else)
}

func walkWhileStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.WhileStat)
	ctx.typeOf(st.Cond)
	walkStats(ctx, st.Body)
}

func walkRepeatStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.RepeatStat)
	walkStats(ctx, st.Body)
	ctx.typeOf(st.Cond)
}

func walkDoStat(ctx *Context, s parser.Stat) {
	walkStats(ctx, s.(*parser.DoStat).Body)
}

func walkCallStat(ctx *Context, s parser.Stat) {
	ctx.typeOf(s.(*parser.CallStat).Call)
}

func walkReturnStat(ctx *Context, s parser.Stat) {
	for _, e := range s.(*parser.ReturnStat).Exprs {
		ctx.typeOf(e)
	}
}

// --- expression inference -------------------------------------------------

func exprID(file types.FileID, e parser.Expr) types.ExprId {
	return types.ExprId{File: file, Syn: parser.SynID(e)}
}

// typeOf is the memoized entry point every statement binder and
// sub-expression handler calls: a cache hit returns immediately, a
// cycle hit (re-entering the same expression while it's already being
// resolved) answers Unknown per §4.3, and a fresh computation commits
// its verdict to the cache before returning.
func (ctx *Context) typeOf(e parser.Expr) *types.Type {
	t, _, _ := ctx.infer(e)
	return t
}

// infer resolves e's type through the cache, returning ok=false only
// for the fixpoint-retryable reasons (§4.7): "no opinion" failures
// commit Unknown and report ok=true, since the caller has nothing
// further to wait for.
func (ctx *Context) infer(e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	if e == nil {
		return types.Nil(), true, diag.InferFailReason{}
	}
	id := exprID(ctx.File, e)
	if entry, ok := ctx.Cache.Get(id); ok {
		switch entry.State {
		case cache.StateReady:
			return entry.Type, true, diag.InferFailReason{}
		case cache.StateResolving:
			return types.Unknown(), true, diag.InferFailReason{}
		case cache.StateFailed:
			return nil, false, entry.Reason
		}
	}
	ctx.Cache.MarkResolving(id)
	t, ok, reason := ctx.inferUncached(e)
	if ok {
		ctx.Cache.SetReady(id, t)
		return t, true, diag.InferFailReason{}
	}
	if reason.Kind == diag.ReasonNone {
		ctx.Cache.SetReady(id, types.Unknown())
		return types.Unknown(), true, diag.InferFailReason{}
	}
	ctx.Cache.SetFailed(id, reason)
	return nil, false, reason
}

// retry clears a previously-Failed cache verdict for e and infers
// again — the live-retry step a fixpoint Attempt needs, since a plain
// cache read would just replay the stale failure (§4.8).
func (ctx *Context) retry(e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	ctx.Cache.Clear(exprID(ctx.File, e))
	return ctx.infer(e)
}

type exprHandler func(ctx *Context, e parser.Expr) (*types.Type, bool, diag.InferFailReason)

var exprHandlers = map[parser.Kind]exprHandler{
	parser.KNameExpr:    inferNameExpr,
	parser.KIndexExpr:   inferIndexExpr,
	parser.KCallExpr:    inferCallExpr,
	parser.KClosureExpr: inferClosureExpr,
	parser.KTableExpr:   inferTableExpr,
	parser.KBinExpr:     inferBinExpr,
	parser.KUnExpr:      inferUnExpr,
	parser.KStringLit:   inferStringLit,
	parser.KNumberLit:   inferNumberLit,
	parser.KBoolLit:     inferBoolLit,
	parser.KNilLit:      func(*Context, parser.Expr) (*types.Type, bool, diag.InferFailReason) { return types.Nil(), true, diag.InferFailReason{} },
	parser.KVarargExpr:  func(*Context, parser.Expr) (*types.Type, bool, diag.InferFailReason) {
		return types.Variadic([]*types.Type{types.Any()}), true, diag.InferFailReason{}
	},
}

func (ctx *Context) inferUncached(e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	if h, ok := exprHandlers[e.Kind()]; ok {
		return h(ctx, e)
	}
	return types.Unknown(), true, diag.InferFailReason{}
}

func inferStringLit(_ *Context, e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	return types.StringConst(e.(*parser.StringLit).Value), true, diag.InferFailReason{}
}

func inferNumberLit(_ *Context, e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	n := e.(*parser.NumberLit)
	if n.IsInt {
		return types.IntegerConst(n.Int), true, diag.InferFailReason{}
	}
	return types.FloatConst(n.Float), true, diag.InferFailReason{}
}

func inferBoolLit(_ *Context, e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	return types.BooleanConst(e.(*parser.BoolLit).Value), true, diag.InferFailReason{}
}

// inferNameExpr types a bare name by resolving its lexical decl: a
// flow-narrowed fact for this exact read wins first (component F, run
// just before this pass), then PresetType (synthetic bindings, §4.4),
// else the decl's already-bound Type, else the doc-declared or Any
// type for a param. Any other decl with no type yet defers as
// UnResolveDecl; a name with no lexical decl is looked up in the
// global environment through member resolution.
func inferNameExpr(ctx *Context, e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	ne := e.(*parser.NameExpr)
	if narrowed, ok := ctx.Cache.NarrowedType(types.VarRefId{File: ctx.File, Pos: ne.Range().Start}); ok {
		return narrowed, true, diag.InferFailReason{}
	}
	d, ok := ctx.Index.DeclAtPosition(ctx.File, ne.Name, ne.Range().Start)
	if !ok {
		v, ok, reason := ctx.Member.Of(types.Global(), types.NameKey(ne.Name))
		if ok {
			return v, true, diag.InferFailReason{}
		}
		return nil, false, reason
	}
	if d.PresetType != nil {
		return d.PresetType, true, diag.InferFailReason{}
	}
	if d.Type != nil {
		return d.Type, true, diag.InferFailReason{}
	}
	if d.Variant == index.DeclParam || d.Variant == index.DeclImplicitSelf {
		if sig, ok := ctx.Index.GetSignature(d.OwningSig); ok && d.ParamIndex < len(sig.Params) {
			if pt := sig.Params[d.ParamIndex].Type; pt != nil {
				return pt, true, diag.InferFailReason{}
			}
		}
		return types.Any(), true, diag.InferFailReason{}
	}
	return nil, false, diag.UnResolveDecl(d.ID, 0)
}

// inferIndexExpr types `prefix.name` / `prefix[expr]` by resolving the
// prefix's type and dispatching to member resolution (component I).
// Dotted `_G.foo`/`_ENV.foo` access routes straight to the global
// lookup, matching the decl pass's own special-case (§4.4).
func inferIndexExpr(ctx *Context, e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	ie := e.(*parser.IndexExpr)
	if name, ok := ie.Prefix.(*parser.NameExpr); ok && globalEnvNames[name.Name] && ie.Form == parser.IndexByDotName {
		return ctx.Member.Of(types.Global(), types.NameKey(ie.Name))
	}
	prefixType, ok, reason := ctx.infer(ie.Prefix)
	if !ok {
		return nil, false, reason
	}
	var key types.MemberKey
	switch ie.Form {
	case parser.IndexByDotName:
		key = types.NameKey(ie.Name)
	case parser.IndexByBracketExpr:
		if lit, ok := staticKeyOf(ie.KeyExpr); ok {
			key = lit
		} else {
			keyType := ctx.typeOf(ie.KeyExpr)
			key = types.ExprTypeKey(keyType)
		}
	}
	return ctx.Member.Of(prefixType, key)
}

var globalEnvNames = map[string]bool{"_G": true, "_ENV": true}

// inferClosureExpr types an anonymous function expression (e.g. a
// table-field value) as the Signature type referencing the closure's
// already-registered shape, and recurses into its body and param
// bindings the same way a named function statement does.
func inferClosureExpr(ctx *Context, e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	fn := e.(*parser.ClosureExpr)
	walkClosureBody(ctx, fn)
	return types.Signature(types.SignatureId{File: ctx.File, Range: fn.SignatureRange()}), true, diag.InferFailReason{}
}

// inferTableExpr types a table literal as TableConst(file, range) and
// fills in the ValueType of each statically-keyed Member the decl pass
// already created (matched by the field value's own syntax id).
func inferTableExpr(ctx *Context, e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	te := e.(*parser.TableExpr)
	owner := index.ElementOwner(ctx.File, te.Range())
	members := ctx.Index.Members(owner)
	for _, f := range te.Fields {
		if f.Form == parser.FieldExpr {
			ctx.typeOf(f.Key)
			ctx.typeOf(f.Value)
			continue
		}
		valType := ctx.typeOf(f.Value)
		fieldID := types.MemberId{Syn: parser.SynID(f.Value), File: ctx.File}
		for _, m := range members {
			if m.ID == fieldID {
				m.ValueType = demoteDefToRef(valType)
				break
			}
		}
	}
	return types.TableConst(ctx.File, te.Range()), true, diag.InferFailReason{}
}

// demoteDefToRef implements the table-field contract's Def -> Ref
// demotion (§4.7): a field initializer sees the nominal reference
// form of a value, not the type-introducing Def form (only the decl
// that introduces a class/enum binds to Def itself).
func demoteDefToRef(t *types.Type) *types.Type {
	if t != nil && t.Kind == types.KDef {
		return types.Ref(t.TypeDecl)
	}
	return t
}

func inferBinExpr(ctx *Context, e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	be := e.(*parser.BinExpr)
	left := ctx.typeOf(be.Left)
	switch be.Op {
	case parser.OpAnd:
		right := ctx.typeOf(be.Right)
		return types.UnionOf(left, right), true, diag.InferFailReason{}
	case parser.OpOr:
		right := ctx.typeOf(be.Right)
		return types.UnionOf(nonFalsy(left), right), true, diag.InferFailReason{}
	}
	right := ctx.typeOf(be.Right)
	switch be.Op {
	case parser.OpConcat:
		return types.String(), true, diag.InferFailReason{}
	case parser.OpEq, parser.OpNe, parser.OpLt, parser.OpLe, parser.OpGt, parser.OpGe:
		return types.Boolean(), true, diag.InferFailReason{}
	case parser.OpAdd, parser.OpSub, parser.OpMul, parser.OpMod:
		if isIntegerish(left) && isIntegerish(right) {
			return types.Integer(), true, diag.InferFailReason{}
		}
		return types.Number(), true, diag.InferFailReason{}
	case parser.OpDiv, parser.OpPow:
		return types.Number(), true, diag.InferFailReason{}
	default:
		return types.Number(), true, diag.InferFailReason{}
	}
}

func isIntegerish(t *types.Type) bool {
	return t != nil && (t.Kind == types.KInteger || t.Kind == types.KIntegerConst || t.Kind == types.KDocIntegerConst)
}

// nonFalsy approximates removing Nil/false from a union (the `x or d`
// / logical-or narrowing §4.6 names) — an approximation of true
// per-arm literal narrowing, which the flow pass is responsible for.
func nonFalsy(t *types.Type) *types.Type {
	if t == nil {
		return types.Unknown()
	}
	if t.Kind != types.KUnion {
		return t
	}
	var kept []*types.Type
	for _, el := range t.Elems {
		if el.Kind == types.KNil || (el.Kind == types.KBooleanConst && !el.BoolVal) {
			continue
		}
		kept = append(kept, el)
	}
	if len(kept) == 0 {
		return t
	}
	return types.UnionOf(kept...)
}

func inferUnExpr(ctx *Context, e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	ue := e.(*parser.UnExpr)
	operand := ctx.typeOf(ue.Operand)
	switch ue.Op {
	case parser.OpNot:
		return types.Boolean(), true, diag.InferFailReason{}
	case parser.OpLen:
		return types.Integer(), true, diag.InferFailReason{}
	case parser.OpNeg:
		if isIntegerish(operand) {
			return types.Integer(), true, diag.InferFailReason{}
		}
		return types.Number(), true, diag.InferFailReason{}
	default:
		return types.Unknown(), true, diag.InferFailReason{}
	}
}

// inferCallExpr implements the call-expr contract (§4.7): resolve the
// callee to a signature (through an operator lookup if the callee
// value is a class instance rather than a bare function), select an
// overload by arity-then-type (SPEC_FULL.md §5 item 4), instantiate
// generics from argument types, and return the return-type tuple.
func inferCallExpr(ctx *Context, e parser.Expr) (*types.Type, bool, diag.InferFailReason) {
	ce := e.(*parser.CallExpr)
	calleeType, ok, reason := ctx.infer(ce.Callee)
	if !ok {
		return nil, false, reason
	}

	argTypes := make([]*types.Type, 0, len(ce.Args)+1)
	if ce.IsColon {
		argTypes = append(argTypes, calleeType)
	}
	for _, a := range ce.Args {
		argTypes = append(argTypes, ctx.typeOf(a))
	}

	sig, sigOwner, found := resolveCallSignature(ctx, ce, calleeType)
	if !found {
		return types.Unknown(), true, diag.InferFailReason{}
	}
	sig = selectOverload(sig, len(argTypes))
	_ = sigOwner

	sigma := instantiateGenerics(sig, argTypes)
	returns := make([]*types.Type, len(sig.Returns))
	for i, r := range sig.Returns {
		returns[i] = types.Substitute(r, sigma)
	}
	switch len(returns) {
	case 0:
		return types.Nil(), true, diag.InferFailReason{}
	case 1:
		if sig.ReturnsVary {
			return types.Variadic(returns), true, diag.InferFailReason{}
		}
		return returns[0], true, diag.InferFailReason{}
	default:
		if sig.ReturnsVary {
			return types.Variadic(returns), true, diag.InferFailReason{}
		}
		return types.Tuple(returns), true, diag.InferFailReason{}
	}
}

// resolveCallSignature finds the *index.Signature a call targets: a
// plain function value (calleeType.Kind == KSignature), or — for a
// class/instance callee — the type's registered OpCall metamethod
// (the default-call pattern §4.7/SPEC_FULL.md §5 installs).
func resolveCallSignature(ctx *Context, ce *parser.CallExpr, calleeType *types.Type) (*index.Signature, index.MemberOwner, bool) {
	if calleeType != nil && calleeType.Kind == types.KSignature {
		if sig, ok := ctx.Index.GetSignature(calleeType.Signature); ok {
			return sig, index.MemberOwner{}, true
		}
	}
	if ce.IsColon {
		methodType, ok, _ := ctx.Member.Of(calleeType, types.NameKey(ce.MethodName))
		if ok && methodType != nil && methodType.Kind == types.KSignature {
			if sig, ok := ctx.Index.GetSignature(methodType.Signature); ok {
				return sig, index.MemberOwner{}, true
			}
		}
	}
	if calleeType != nil && (calleeType.Kind == types.KDef || calleeType.Kind == types.KRef) {
		owner := index.TypeOwner(calleeType.TypeDecl)
		for _, opID := range ctx.Index.Operators(owner, index.OpCall) {
			if sig, ok := ctx.Index.GetSignature(opID.Sig); ok {
				return sig, owner, true
			}
		}
	}
	return nil, index.MemberOwner{}, false
}

// selectOverload implements SPEC_FULL.md §5 item 4: exact arity first,
// then the first variadic-tailed overload that accepts argc, trying
// sig itself before its registered ---@overload alternates in
// declaration order.
func selectOverload(sig *index.Signature, argc int) *index.Signature {
	candidates := append([]*index.Signature{sig}, sig.Overloads...)
	for _, c := range candidates {
		if !c.Variadic && c.Arity() == argc {
			return c
		}
	}
	for _, c := range candidates {
		if c.AcceptsArity(argc) {
			return c
		}
	}
	return sig
}

// instantiateGenerics binds sig's generic parameters from argument
// types by simple positional unification against each parameter's
// declared type: the first argument whose parameter type is exactly
// TplRef(i) binds generic i to that argument's concrete type.
func instantiateGenerics(sig *index.Signature, argTypes []*types.Type) *types.Substitutor {
	sigma := types.NewSubstitutor()
	if len(sig.Generics) == 0 {
		return sigma
	}
	for i, p := range sig.Params {
		if p.Type == nil || i >= len(argTypes) {
			continue
		}
		unify(p.Type, argTypes[i], sigma)
	}
	return sigma
}

// unify walks declared and actual types in lockstep, binding any
// TplRef position it encounters in declared to the corresponding
// structural position of actual — enough to cover the common shapes
// (bare `T`, `T[]`, `table<K,V>`) without a full bidirectional
// unification algorithm.
func unify(declared, actual *types.Type, sigma *types.Substitutor) {
	if declared == nil || actual == nil {
		return
	}
	switch declared.Kind {
	case types.KTplRef:
		if _, ok := sigma.Get(declared.TplIndex); !ok {
			sigma.Bind(declared.TplIndex, actual)
		}
	case types.KArray:
		if actual.Kind == types.KArray {
			unify(declared.Base, actual.Base, sigma)
		}
	case types.KTableGeneric:
		if actual.Kind == types.KTableGeneric {
			unify(declared.KeyBase, actual.KeyBase, sigma)
			unify(declared.Base, actual.Base, sigma)
		}
	case types.KGeneric:
		if actual.Kind == types.KGeneric && len(declared.GenericArgs) == len(actual.GenericArgs) {
			for i := range declared.GenericArgs {
				unify(declared.GenericArgs[i], actual.GenericArgs[i], sigma)
			}
		}
	}
}

// --- fixpoint wiring (component H) ---------------------------------------

// Attempts builds the fixpoint.Attempt table for every Kind the decl
// and inference passes defer: KindTableField (the decl pass's
// expression-keyed table fields), and KindDecl/KindExpr/KindMember
// (this pass's own deferred bindings). All of them share the same
// retry shape: re-infer the carried Node, and either write the
// resulting binding or report the still-failing reason.
func Attempts(ctx *Context) map[fixpoint.Kind]fixpoint.Attempt {
	return map[fixpoint.Kind]fixpoint.Attempt{
		fixpoint.KindTableField: attemptTableField(ctx),
		fixpoint.KindDecl:       attemptDecl(ctx),
		fixpoint.KindExpr:       attemptExpr(ctx),
		fixpoint.KindMember:     attemptExpr(ctx),
	}
}

func attemptTableField(ctx *Context) fixpoint.Attempt {
	return func(item *fixpoint.Item) (bool, diag.InferFailReason) {
		keyType, ok, reason := ctx.retry(item.KeyNode)
		if !ok {
			return false, reason
		}
		valType, ok, reason := ctx.retry(item.ValueNode)
		if !ok {
			return false, reason
		}
		ctx.Index.AddMember(&index.Member{
			ID:        types.MemberId{Syn: parser.SynID(item.ValueNode), File: item.File},
			Owner:     item.TableOwner,
			Key:       types.ExprTypeKey(keyType),
			Feature:   index.FeatureFileDefine,
			ValueType: demoteDefToRef(valType),
		})
		return true, diag.InferFailReason{}
	}
}

func attemptDecl(ctx *Context) fixpoint.Attempt {
	return func(item *fixpoint.Item) (bool, diag.InferFailReason) {
		d, ok := ctx.Index.GetDecl(item.DeclID)
		if !ok {
			return true, diag.InferFailReason{}
		}
		t, ok, reason := ctx.retry(item.Node)
		if !ok {
			return false, reason
		}
		d.Type = elementOf(t, item.RetIdx)
		return true, diag.InferFailReason{}
	}
}

func attemptExpr(ctx *Context) fixpoint.Attempt {
	return func(item *fixpoint.Item) (bool, diag.InferFailReason) {
		_, ok, reason := ctx.retry(item.Node)
		return ok, reason
	}
}

// Finalize binds whatever never resolved across the fixpoint loop to
// Unknown (§4.8): a KindDecl item's decl, or (for KindExpr/KindMember,
// which only exist to drive a retry of an already-cached expression)
// nothing further — the cache's own terminal Failed entry already
// stands in for Unknown at read time.
func Finalize(ctx *Context) fixpoint.Finalize {
	return func(item *fixpoint.Item) {
		switch item.Kind {
		case fixpoint.KindDecl:
			if d, ok := ctx.Index.GetDecl(item.DeclID); ok && d.Type == nil {
				d.Type = types.Unknown()
			}
		case fixpoint.KindTableField:
			ctx.Index.AddMember(&index.Member{
				ID:        types.MemberId{Syn: parser.SynID(item.ValueNode), File: item.File},
				Owner:     item.TableOwner,
				Key:       types.ExprTypeKey(types.Unknown()),
				Feature:   index.FeatureFileDefine,
				ValueType: types.Unknown(),
			})
		}
	}
}
