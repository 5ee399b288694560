// Package decl implements the declaration pass (component D, §4.4): a
// single walk over each parsed file that populates lexical
// declarations, members, and references in the index database, and
// queues the work items later passes need to retry.
//
// Dispatch follows §9's design note: a tagged-variant visit expressed
// as a pair of top-level match tables, statement kind to handler and
// expression kind to handler, rather than one large type switch
// buried in a recursive function.
package decl

import (
	"github.com/luasem/luasem/internal/analyzer/fixpoint"
	"github.com/luasem/luasem/internal/config"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
)

// Context carries the shared resources one file's decl-pass walk
// writes into (§5 Shared resources): the index database, the
// unresolved-work queue, the active file, and the merged
// configuration (class-constructor names, require names).
type Context struct {
	Index  *index.Index
	Queue  *fixpoint.Queue
	File   types.FileID
	Config *config.Config
}

// globalEnvNames are identifiers the decl pass treats as aliases for
// the global environment table itself; `_G.foo` and `foo` name the
// same global.
var globalEnvNames = map[string]bool{"_G": true, "_ENV": true}

// Run walks tree's statements, the single pass §4.4 describes.
func Run(ctx *Context, tree *parser.Tree) {
	for _, s := range tree.Root.Stats {
		walkStat(ctx, s)
	}
}

// --- statement dispatch table -------------------------------------------

type statHandler func(ctx *Context, s parser.Stat)

var statHandlers = map[parser.Kind]statHandler{
	parser.KLocalStat:      handleLocalStat,
	parser.KAssignStat:     handleAssignStat,
	parser.KFuncStat:       handleFuncStat,
	parser.KLocalFuncStat:  handleLocalFuncStat,
	parser.KNumericForStat: handleNumericForStat,
	parser.KGenericForStat: handleGenericForStat,
	parser.KIfStat:         handleIfStat,
	parser.KWhileStat:      handleWhileStat,
	parser.KRepeatStat:     handleRepeatStat,
	parser.KDoStat:         handleDoStat,
	parser.KCallStat:       handleCallStat,
	parser.KReturnStat:     handleReturnStat,
	parser.KBreakStat:      func(*Context, parser.Stat) {},
}

func walkStat(ctx *Context, s parser.Stat) {
	if s == nil {
		return
	}
	if h, ok := statHandlers[s.Kind()]; ok {
		h(ctx, s)
		return
	}
}

func walkStats(ctx *Context, stats []parser.Stat) {
	for _, s := range stats {
		walkStat(ctx, s)
	}
}

func handleLocalStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.LocalStat)
	for _, e := range st.Exprs {
		walkExpr(ctx, e)
	}
	for i, name := range st.Names {
		attr := index.LocalPlain
		if i < len(st.Attribs) {
			attr = localAttrOf(st.Attribs[i])
		}
		id := types.DeclId{File: ctx.File, Pos: st.NameRngs[i].Start}
		d := index.NewLocalDecl(id, name, st.NameRngs[i], attr)
		if i < len(st.Exprs) {
			eid := exprID(ctx.File, st.Exprs[i])
			d.InitExprID = &eid
		}
		ctx.Index.AddDecl(d)
	}
}

func localAttrOf(a parser.LocalAttrib) index.LocalAttr {
	switch a {
	case parser.AttribConst:
		return index.LocalConst
	case parser.AttribClose:
		return index.LocalClose
	default:
		return index.LocalPlain
	}
}

func handleAssignStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.AssignStat)
	for _, e := range st.RHS {
		walkExpr(ctx, e)
	}
	for _, lhs := range st.LHS {
		walkExpr(ctx, lhs)
	}
}

func handleFuncStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.FuncStat)
	walkExpr(ctx, st.Target)
	walkClosure(ctx, st.Fn, st.IsMethod)
}

func handleLocalFuncStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.LocalFuncStat)
	id := types.DeclId{File: ctx.File, Pos: st.NameRng.Start}
	d := index.NewLocalDecl(id, st.Name, st.NameRng, index.LocalPlain)
	ctx.Index.AddDecl(d)
	walkClosure(ctx, st.Fn, false)
}

func handleNumericForStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.NumericForStat)
	walkExpr(ctx, st.Start)
	walkExpr(ctx, st.Stop)
	if st.Step != nil {
		walkExpr(ctx, st.Step)
	}
	id := types.DeclId{File: ctx.File, Pos: st.VarRng.Start}
	ctx.Index.AddDecl(index.NewLocalDecl(id, st.Var, st.VarRng, index.LocalPlain))
	walkStats(ctx, st.Body)
}

func handleGenericForStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.GenericForStat)
	for _, e := range st.Exprs {
		walkExpr(ctx, e)
	}
	for i, name := range st.Names {
		id := types.DeclId{File: ctx.File, Pos: st.NameRngs[i].Start}
		ctx.Index.AddDecl(index.NewLocalDecl(id, name, st.NameRngs[i], index.LocalIterConst))
	}
	walkStats(ctx, st.Body)
}

func handleIfStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.IfStat)
	for _, c := range st.Clauses {
		walkExpr(ctx, c.Cond)
		walkStats(ctx, c.Body)
	}
	walkStats(ctx, st.Else)
}

func handleWhileStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.WhileStat)
	walkExpr(ctx, st.Cond)
	walkStats(ctx, st.Body)
}

func handleRepeatStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.RepeatStat)
	walkStats(ctx, st.Body)
	walkExpr(ctx, st.Cond)
}

func handleDoStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.DoStat)
	walkStats(ctx, st.Body)
}

func handleCallStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.CallStat)
	walkExpr(ctx, st.Call)
}

func handleReturnStat(ctx *Context, s parser.Stat) {
	st := s.(*parser.ReturnStat)
	for _, e := range st.Exprs {
		walkExpr(ctx, e)
	}
}

// --- expression dispatch table -------------------------------------------

type exprHandler func(ctx *Context, e parser.Expr)

var exprHandlers = map[parser.Kind]exprHandler{
	parser.KNameExpr:    handleNameExpr,
	parser.KIndexExpr:   handleIndexExpr,
	parser.KCallExpr:    handleCallExpr,
	parser.KClosureExpr: func(ctx *Context, e parser.Expr) { walkClosure(ctx, e.(*parser.ClosureExpr), false) },
	parser.KTableExpr:   handleTableExpr,
	parser.KBinExpr:     handleBinExpr,
	parser.KUnExpr:      handleUnExpr,
	parser.KStringLit:   handleStringLit,
	parser.KNumberLit:   func(*Context, parser.Expr) {},
	parser.KBoolLit:     func(*Context, parser.Expr) {},
	parser.KNilLit:      func(*Context, parser.Expr) {},
	parser.KVarargExpr:  func(*Context, parser.Expr) {},
}

func walkExpr(ctx *Context, e parser.Expr) {
	if e == nil {
		return
	}
	if h, ok := exprHandlers[e.Kind()]; ok {
		h(ctx, e)
	}
}

func exprID(file types.FileID, e parser.Expr) types.ExprId {
	return types.ExprId{File: file, Syn: parser.SynID(e)}
}

func handleNameExpr(ctx *Context, e parser.Expr) {
	ne := e.(*parser.NameExpr)
	d, ok := ctx.Index.DeclAtPosition(ctx.File, ne.Name, ne.Range().Start)
	if !ok {
		ctx.Index.AddGlobalReference(ctx.File, ne.Name, ne.Range())
		return
	}
	ctx.Index.AddDeclReference(ctx.File, d.ID, ne.Range())
	if d.Variant == index.DeclGlobal {
		ctx.Index.AddGlobalReference(ctx.File, ne.Name, ne.Range())
	}
}

func handleIndexExpr(ctx *Context, e parser.Expr) {
	ie := e.(*parser.IndexExpr)
	walkExpr(ctx, ie.Prefix)

	if name, ok := ie.Prefix.(*parser.NameExpr); ok && globalEnvNames[name.Name] {
		if ie.Form == parser.IndexByDotName {
			ctx.Index.AddGlobalReference(ctx.File, ie.Name, ie.Range())
		}
		return
	}

	switch ie.Form {
	case parser.IndexByDotName:
		ctx.Index.AddIndexKeyReference(ctx.File, types.NameKey(ie.Name), ie.Range())
	case parser.IndexByBracketExpr:
		walkExpr(ctx, ie.KeyExpr)
		if key, ok := staticKeyOf(ie.KeyExpr); ok {
			ctx.Index.AddIndexKeyReference(ctx.File, key, ie.Range())
		}
	}
}

// staticKeyOf derives a MemberKey from a statically-known key
// expression (string or integer literal), the cases the decl pass can
// resolve without waiting for type inference.
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

func handleCallExpr(ctx *Context, e parser.Expr) {
	ce := e.(*parser.CallExpr)
	walkExpr(ctx, ce.Callee)
	for _, a := range ce.Args {
		walkExpr(ctx, a)
	}

	calleeName, ok := calleeNameOf(ce)
	if !ok || len(ce.Args) == 0 {
		return
	}
	lit, ok := ce.Args[0].(*parser.StringLit)
	if !ok {
		return
	}

	if contains(ctx.Config.Runtime.RequireNames, calleeName) {
		if required, ok := ctx.Index.ResolveModule(lit.Value); ok {
			ctx.Index.AddFileDependency(ctx.File, required)
		}
		return
	}

	if contains(ctx.Config.Runtime.ClassConstructorNames, calleeName) {
		registerClassConstructor(ctx, ce, lit.Value)
	}
}

// calleeNameOf returns the plain name a call targets when its callee
// is a bare name (`require(...)`) or a dotted global path ending in
// that name (`m.require(...)`); colon calls never match a
// require/class-constructor name.
func calleeNameOf(ce *parser.CallExpr) (string, bool) {
	if ce.IsColon {
		return "", false
	}
	switch c := ce.Callee.(type) {
	case *parser.NameExpr:
		return c.Name, true
	case *parser.IndexExpr:
		if c.Form == parser.IndexByDotName {
			return c.Name, true
		}
	}
	return "", false
}

// registerClassConstructor implements §4.4's "class/entity-definition
// calls" generalized by SPEC_FULL.md §5.3: a call to a configured
// constructor name whose first argument is a string literal
// synthesizes a Local decl bound to Def(classId) and a Class type
// decl, at the call expression's own range (there is no separate
// declaring name token for this form, unlike `local`/`function`).
func registerClassConstructor(ctx *Context, ce *parser.CallExpr, className string) {
	id := types.DeclId{File: ctx.File, Pos: ce.Range().Start}
	d := index.NewLocalDecl(id, className, ce.Range(), index.LocalPlain)
	classID := types.TypeDeclId(className)
	d.PresetType = types.Def(classID)
	ctx.Index.AddDecl(d)

	td := ctx.Index.EnsureTypeDecl(classID)
	td.AddDefinition(ctx.File, ce.Range())
	_ = td
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func handleTableExpr(ctx *Context, e parser.Expr) {
	te := e.(*parser.TableExpr)
	owner := index.ElementOwner(ctx.File, te.Range())
	nextArrayIdx := int64(1)
	for _, f := range te.Fields {
		switch f.Form {
		case parser.FieldArray:
			walkExpr(ctx, f.Value)
			ctx.Index.AddMember(&index.Member{
				ID:      types.MemberId{Syn: parser.SynID(f.Value), File: ctx.File},
				Owner:   owner,
				Key:     types.IntKey(nextArrayIdx),
				Feature: index.FeatureFileDefine,
			})
			nextArrayIdx++
		case parser.FieldName:
			walkExpr(ctx, f.Value)
			ctx.Index.AddMember(&index.Member{
				ID:      types.MemberId{Syn: parser.SynID(f.Value), File: ctx.File},
				Owner:   owner,
				Key:     types.NameKey(f.Name),
				Feature: index.FeatureFileDefine,
			})
		case parser.FieldExpr:
			walkExpr(ctx, f.Key)
			walkExpr(ctx, f.Value)
			ctx.Queue.Enqueue(&fixpoint.Item{
				Kind:        fixpoint.KindTableField,
				File:        ctx.File,
				TableOwner:  owner,
				FieldExprID: exprID(ctx.File, f.Key),
				KeyNode:     f.Key,
				ValueNode:   f.Value,
			})
		}
	}
}

func handleBinExpr(ctx *Context, e parser.Expr) {
	be := e.(*parser.BinExpr)
	walkExpr(ctx, be.Left)
	walkExpr(ctx, be.Right)
}

func handleUnExpr(ctx *Context, e parser.Expr) {
	ue := e.(*parser.UnExpr)
	walkExpr(ctx, ue.Operand)
}

func handleStringLit(ctx *Context, e parser.Expr) {
	lit := e.(*parser.StringLit)
	ctx.Index.AddStringLiteralReference(ctx.File, lit.Value, lit.Range(), ctx.Config.References.ShortStringSearch)
}

// walkClosure allocates the closure's SignatureId, creates its Param
// decls in lexical order, and — for a method (colon-defined, or a
// Function-stat whose IsMethod is set) — prepends the implicit `self`
// decl at a synthetic one-byte range standing in for the colon token
// (§4.4: "whose range equals the method's colon token"; the AST
// contract this module walks does not carry a separate colon-token
// range, so the closure's own starting byte is reused).
func walkClosure(ctx *Context, fn *parser.ClosureExpr, isMethodStat bool) {
	if fn == nil {
		return
	}
	sigID := types.SignatureId{File: ctx.File, Range: fn.SignatureRange()}

	isMethod := fn.IsMethod || isMethodStat
	sig := &index.Signature{ID: sigID, Variadic: fn.Variadic, SelfReceiver: isMethod}

	paramIdx := 0
	if isMethod {
		colonRng := types.ByteRange{Start: fn.Range().Start, End: fn.Range().Start + 1}
		selfID := types.DeclId{File: ctx.File, Pos: colonRng.Start}
		ctx.Index.AddDecl(index.NewImplicitSelfDecl(selfID, colonRng, sigID, types.MemberId{}))
		paramIdx++
	}
	for i, name := range fn.Params {
		var rng types.ByteRange
		if i < len(fn.ParamRngs) {
			rng = fn.ParamRngs[i]
		} else {
			rng = fn.Range()
		}
		id := types.DeclId{File: ctx.File, Pos: rng.Start}
		ctx.Index.AddDecl(index.NewParamDecl(id, name, rng, paramIdx, sigID, nil))
		sig.Params = append(sig.Params, index.Param{Name: name})
		paramIdx++
	}
	ctx.Index.AddSignature(sig)

	walkStats(ctx, fn.Body)
}
