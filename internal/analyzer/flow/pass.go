// Package flow implements the control-flow narrowing pass (component
// F, spec.md §4.6): a walk that records, per read of a local variable
// guarded by a recognized conditional, the narrowed type that read
// should see. Facts are keyed by `VarRefId` (one read's exact source
// position) in the per-file inference cache (component C) and are
// consulted by the type-inference pass (G) before it falls back to
// the variable's declared type.
//
// This pass runs after the decl and doc passes (D, E) and before
// inference (G) in the per-file pipeline (§5's "D -> E -> F -> G -> H"
// ordering), so the only declared type it has to narrow from is
// whatever D/E already bound directly (`Decl.PresetType`, the
// `---@type` tag's result) — it has no opinion on variables whose type
// only inference (G) would produce, since G hasn't run yet.
package flow

import (
	"github.com/luasem/luasem/internal/cache"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
)

// Context carries the resources one file's narrowing walk reads (the
// index, to look up a name's declared type) and writes (the cache,
// to record narrowed facts for G to consult).
type Context struct {
	Index *index.Index
	Cache *cache.FileCache
	File  types.FileID
}

// facts maps a local variable's name to the type its reads should
// currently narrow to; scoped per block (a fresh copy is made on
// entry to any nested body) so narrowing a variable inside an `if`
// body does not leak to sibling or enclosing statements.
type facts map[string]*types.Type

func (f facts) clone() facts {
	out := make(facts, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Run walks tree's statements, the single narrowing pass §4.6
// describes, with no active narrowing facts at the top level.
func Run(ctx *Context, tree *parser.Tree) {
	walkStats(ctx, tree.Root.Stats, facts{})
}

func walkStats(ctx *Context, stats []parser.Stat, active facts) {
	active = active.clone()
	for _, s := range stats {
		walkStat(ctx, s, active)
	}
}

func walkStat(ctx *Context, s parser.Stat, active facts) {
	switch st := s.(type) {
	case *parser.LocalStat:
		for _, e := range st.Exprs {
			annotate(ctx, e, active)
		}
		// A fresh local shadows any outer narrowing fact under the
		// same name for the rest of this block.
		for _, name := range st.Names {
			delete(active, name)
		}
	case *parser.AssignStat:
		for _, e := range st.RHS {
			annotate(ctx, e, active)
		}
		for _, lhs := range st.LHS {
			// "Assignment to x between reads resets narrowing for
			// subsequent reads" (§4.6).
			if ne, ok := lhs.(*parser.NameExpr); ok {
				delete(active, ne.Name)
			} else {
				annotate(ctx, lhs, active)
			}
		}
	case *parser.CallStat:
		annotate(ctx, st.Call, active)
	case *parser.ReturnStat:
		for _, e := range st.Exprs {
			annotate(ctx, e, active)
		}
	case *parser.DoStat:
		walkStats(ctx, st.Body, active)
	case *parser.IfStat:
		walkIfStat(ctx, st, active)
	case *parser.WhileStat:
		annotate(ctx, st.Cond, active)
		then := active.clone()
		if name, narrowed, ok := narrowFromCond(ctx, st.Cond); ok {
			then[name] = narrowed
		}
		walkStats(ctx, st.Body, then)
	case *parser.RepeatStat:
		body := active.clone()
		walkStats(ctx, st.Body, body)
		annotate(ctx, st.Cond, body)
	case *parser.NumericForStat:
		annotate(ctx, st.Start, active)
		annotate(ctx, st.Stop, active)
		if st.Step != nil {
			annotate(ctx, st.Step, active)
		}
		walkStats(ctx, st.Body, active)
	case *parser.GenericForStat:
		for _, e := range st.Exprs {
			annotate(ctx, e, active)
		}
		walkStats(ctx, st.Body, active)
	case *parser.FuncStat:
		// Closure bodies are not walked with the enclosing block's
		// facts: a function value may run at any later time, after
		// the narrowed condition's guarantee no longer holds, so
		// narrowing does not cross a closure boundary (§4.6 is silent
		// here; this is the conservative reading).
	case *parser.LocalFuncStat:
	}
}

// walkIfStat narrows each clause's own body using only that clause's
// condition, and recurses into the else body with no extra narrowing
// (the spec only names narrowing "in the guarded branch", not its
// negation in a following branch or the else arm).
func walkIfStat(ctx *Context, st *parser.IfStat, active facts) {
	for _, clause := range st.Clauses {
		annotate(ctx, clause.Cond, active)
		then := active.clone()
		if name, narrowed, ok := narrowFromCond(ctx, clause.Cond); ok {
			then[name] = narrowed
		}
		walkStats(ctx, clause.Body, then)
	}
	walkStats(ctx, st.Else, active)
}

// narrowFromCond recognizes the three forms §4.6 names: a bare name
// (truthiness), `type(x) == "<typename>"`, and `x == <literal>`.
func narrowFromCond(ctx *Context, cond parser.Expr) (string, *types.Type, bool) {
	switch c := cond.(type) {
	case *parser.NameExpr:
		declared, ok := declaredType(ctx, c)
		if !ok {
			return "", nil, false
		}
		return c.Name, nonFalsy(declared), true
	case *parser.BinExpr:
		if c.Op != parser.OpEq {
			return "", nil, false
		}
		if name, t, ok := typeofCallPattern(c.Left, c.Right); ok {
			return name, t, true
		}
		if name, t, ok := typeofCallPattern(c.Right, c.Left); ok {
			return name, t, true
		}
		if name, t, ok := literalEqualsPattern(c.Left, c.Right); ok {
			return name, t, true
		}
		if name, t, ok := literalEqualsPattern(c.Right, c.Left); ok {
			return name, t, true
		}
	}
	return "", nil, false
}

// typeofCallPattern recognizes `type(x) == "<typename>"` with call on
// one side and the type-name string literal on the other.
func typeofCallPattern(callSide, litSide parser.Expr) (string, *types.Type, bool) {
	ce, ok := callSide.(*parser.CallExpr)
	if !ok || ce.IsColon {
		return "", nil, false
	}
	callee, ok := ce.Callee.(*parser.NameExpr)
	if !ok || callee.Name != "type" || len(ce.Args) != 1 {
		return "", nil, false
	}
	arg, ok := ce.Args[0].(*parser.NameExpr)
	if !ok {
		return "", nil, false
	}
	lit, ok := litSide.(*parser.StringLit)
	if !ok {
		return "", nil, false
	}
	t, ok := typeNameToType[lit.Value]
	if !ok {
		return "", nil, false
	}
	return arg.Name, t, true
}

// typeNameToType maps Lua's `type()` result strings to the closest
// algebra member; "function" has no generic callable Kind distinct
// from a specific Signature, so it narrows to Any rather than
// fabricating a signature id that names no real closure.
var typeNameToType = map[string]*types.Type{
	"nil":      types.Nil(),
	"boolean":  types.Boolean(),
	"number":   types.Number(),
	"string":   types.String(),
	"table":    types.Table(),
	"function": types.Any(),
	"thread":   types.Thread(),
}

// literalEqualsPattern recognizes `x == <literal>`, narrowing x to the
// literal's exact constant type.
func literalEqualsPattern(nameSide, litSide parser.Expr) (string, *types.Type, bool) {
	ne, ok := nameSide.(*parser.NameExpr)
	if !ok {
		return "", nil, false
	}
	switch lit := litSide.(type) {
	case *parser.StringLit:
		return ne.Name, types.StringConst(lit.Value), true
	case *parser.NumberLit:
		if lit.IsInt {
			return ne.Name, types.IntegerConst(lit.Int), true
		}
		return ne.Name, types.FloatConst(lit.Float), true
	case *parser.BoolLit:
		return ne.Name, types.BooleanConst(lit.Value), true
	case *parser.NilLit:
		return ne.Name, types.Nil(), true
	default:
		return "", nil, false
	}
}

// nonFalsy narrows declared by removing Nil and `false` from a union,
// the truthiness narrowing `if x then` performs (§4.6). Mirrors the
// same approximation the inference pass's `||`-operator handler uses.
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

// declaredType looks up the decl a NameExpr resolves to and returns
// whatever type D/E already bound it to (PresetType, or a Decl.Type a
// previous generation's inference run left behind); ok is false when
// there is nothing yet to narrow.
func declaredType(ctx *Context, ne *parser.NameExpr) (*types.Type, bool) {
	d, ok := ctx.Index.DeclAtPosition(ctx.File, ne.Name, ne.Range().Start)
	if !ok {
		return nil, false
	}
	if d.PresetType != nil {
		return d.PresetType, true
	}
	if d.Type != nil {
		return d.Type, true
	}
	return nil, false
}

// annotate walks e looking for reads of names carrying an active
// narrowing fact, recording one VarRefId -> Type entry per occurrence
// found. It does not descend into closures (see walkStat's FuncStat
// case for why).
func annotate(ctx *Context, e parser.Expr, active facts) {
	if e == nil || len(active) == 0 {
		return
	}
	switch ex := e.(type) {
	case *parser.NameExpr:
		if t, ok := active[ex.Name]; ok {
			ctx.Cache.SetNarrowedType(types.VarRefId{File: ctx.File, Pos: ex.Range().Start}, t)
		}
	case *parser.IndexExpr:
		annotate(ctx, ex.Prefix, active)
		if ex.Form == parser.IndexByBracketExpr {
			annotate(ctx, ex.KeyExpr, active)
		}
	case *parser.CallExpr:
		annotate(ctx, ex.Callee, active)
		for _, a := range ex.Args {
			annotate(ctx, a, active)
		}
	case *parser.BinExpr:
		annotate(ctx, ex.Left, active)
		annotate(ctx, ex.Right, active)
	case *parser.UnExpr:
		annotate(ctx, ex.Operand, active)
	case *parser.TableExpr:
		for _, f := range ex.Fields {
			if f.Form == parser.FieldExpr {
				annotate(ctx, f.Key, active)
			}
			annotate(ctx, f.Value, active)
		}
	}
}

