package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luasem/luasem/internal/config"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
)

// exprType reads the memoized type of e from file's cache the same
// way hover/goto-definition would, without reaching into infer's
// unexported exprID helper.
func exprType(t *testing.T, p *Pipeline, file types.FileID, e parser.Expr) *types.Type {
	t.Helper()
	entry, ok := p.Cache(file).Get(types.ExprId{File: file, Syn: parser.SynID(e)})
	require.True(t, ok, "no cached entry for expression")
	return entry.Type
}

// Scenario 1 (spec.md §8.1): `---@class A` / `function A:foo(x) end` /
// `local a; a:foo(1)` resolves a.foo to a self-receiver signature
// declared on A.
func TestScenarioClassMethodResolvesToReceiverSignature(t *testing.T) {
	const file = types.FileID(1)
	p := New(index.New(), config.Default())

	classDocs := []parser.DocTag{{Name: "class", Text: "A"}}
	localA := parser.NewLocal([]string{"A"}, []types.ByteRange{parser.Rng(6, 7)},
		[]parser.Expr{parser.NewTable(nil, parser.Rng(10, 12))}, parser.Rng(0, 12), classDocs...)

	fnRng := parser.Rng(20, 40)
	fn := parser.NewClosure([]string{"x"}, false, true, nil, fnRng)
	fn.ParamRngs = []types.ByteRange{parser.Rng(35, 36)}
	target := parser.NewDotIndex(parser.NewName("A", parser.Rng(16, 17)), "foo", parser.Rng(16, 20))
	fnStat := parser.NewFuncStat(target, true, "foo", fn, parser.Rng(16, 40))

	typeDocs := []parser.DocTag{{Name: "type", Text: "A"}}
	localA2 := parser.NewLocal([]string{"a"}, []types.ByteRange{parser.Rng(46, 47)}, nil, parser.Rng(42, 47), typeDocs...)

	callRng := parser.Rng(50, 60)
	call := parser.NewColonCall(parser.NewName("a", parser.Rng(50, 51)), "foo",
		[]parser.Expr{parser.NewInt(1, parser.Rng(58, 59))}, callRng)
	callStat := parser.NewCallStat(call, callRng)

	tree := &parser.Tree{File: file, Root: parser.NewChunk(
		[]parser.Stat{localA, fnStat, localA2, callStat}, parser.Rng(0, 60))}
	p.Analyze(tree)

	members := p.Index.Members(index.TypeOwner("A"))
	var foo *index.Member
	for _, m := range members {
		if m.Key.Kind == types.KeyName && m.Key.Name == "foo" {
			foo = m
		}
	}
	require.NotNil(t, foo, "A.foo should be a registered member")
	require.NotNil(t, foo.ValueType)
	require.Equal(t, types.KSignature, foo.ValueType.Kind)

	sig, ok := p.Index.GetSignature(foo.ValueType.Signature)
	require.True(t, ok)
	require.Equal(t, fnRng, sig.ID.Range)
	require.True(t, sig.SelfReceiver, "colon-defined method should carry a self receiver")
	require.Len(t, sig.Params, 1)
	require.Equal(t, "x", sig.Params[0].Name)

	selfID := types.DeclId{File: file, Pos: fnRng.Start}
	selfDecl, ok := p.Index.GetDecl(selfID)
	require.True(t, ok)
	require.Equal(t, index.DeclImplicitSelf, selfDecl.Variant)
}

// Scenario 2 (spec.md §8.2): `---@alias Box<T> { v: T }` / `---@type
// Box<string>` / `local b` / `b.v` infers b.v as String.
func TestScenarioGenericAliasFieldInfersSubstitutedType(t *testing.T) {
	const file = types.FileID(1)
	p := New(index.New(), config.Default())

	docs := []parser.DocTag{
		{Name: "alias", Text: "Box<T> { v: T }"},
		{Name: "type", Text: "Box<string>"},
	}
	localB := parser.NewLocal([]string{"b"}, []types.ByteRange{parser.Rng(6, 7)}, nil, parser.Rng(0, 7), docs...)

	bvExpr := parser.NewDotIndex(parser.NewName("b", parser.Rng(20, 21)), "v", parser.Rng(20, 23))
	readStat := parser.NewLocal([]string{"_"}, []types.ByteRange{parser.Rng(30, 31)},
		[]parser.Expr{bvExpr}, parser.Rng(26, 31))

	tree := &parser.Tree{File: file, Root: parser.NewChunk(
		[]parser.Stat{localB, readStat}, parser.Rng(0, 31))}
	p.Analyze(tree)

	td, ok := p.Index.GetTypeDecl("Box")
	require.True(t, ok)
	require.Equal(t, index.KindAlias, td.Kind)
	require.Equal(t, types.KObject, td.AliasOrigin.Kind)

	got := exprType(t, p, file, bvExpr)
	require.Equal(t, types.KString, got.Kind)
}

// Scenario 3 (spec.md §8.3): `---@type string|nil` / `local s` / `if s
// then` / read of s narrows to String inside the guarded block, stays
// String|Nil outside it.
func TestScenarioUnionNarrowingInsideGuardedBlock(t *testing.T) {
	const file = types.FileID(1)
	p := New(index.New(), config.Default())

	docs := []parser.DocTag{{Name: "type", Text: "string|nil"}}
	localS := parser.NewLocal([]string{"s"}, []types.ByteRange{parser.Rng(6, 7)}, nil, parser.Rng(0, 7), docs...)

	condRef := parser.NewName("s", parser.Rng(20, 21))
	innerRef := parser.NewName("s", parser.Rng(30, 31))
	innerRead := parser.NewLocal([]string{"_"}, []types.ByteRange{parser.Rng(34, 35)},
		[]parser.Expr{innerRef}, parser.Rng(30, 35))
	ifStat := parser.NewIf([]parser.IfClause{{Cond: condRef, Body: []parser.Stat{innerRead}}}, nil, parser.Rng(16, 40))

	afterRef := parser.NewName("s", parser.Rng(50, 51))
	afterRead := parser.NewLocal([]string{"__"}, []types.ByteRange{parser.Rng(54, 55)},
		[]parser.Expr{afterRef}, parser.Rng(50, 55))

	tree := &parser.Tree{File: file, Root: parser.NewChunk(
		[]parser.Stat{localS, ifStat, afterRead}, parser.Rng(0, 55))}
	p.Analyze(tree)

	inside := exprType(t, p, file, innerRef)
	require.Equal(t, types.KString, inside.Kind)

	outside := exprType(t, p, file, afterRef)
	require.Equal(t, types.KUnion, outside.Kind)
}

// Scenario 4 (spec.md §8.4): `---@type integer[3]` / `local a` /
// `a[2]` / `a[5]` — strict mode unions Nil onto an out-of-bounds
// constant index but not an in-bounds one.
func TestScenarioStrictArrayBoundsUnionsNilOutOfRange(t *testing.T) {
	const file = types.FileID(1)
	p := New(index.New(), config.Default())
	require.True(t, p.Config.Strict.ArrayIndex)

	docs := []parser.DocTag{{Name: "type", Text: "integer[3]"}}
	localA := parser.NewLocal([]string{"a"}, []types.ByteRange{parser.Rng(6, 7)}, nil, parser.Rng(0, 7), docs...)

	inBounds := parser.NewBracketIndex(parser.NewName("a", parser.Rng(20, 21)),
		parser.NewInt(2, parser.Rng(22, 23)), parser.Rng(20, 24))
	outOfBounds := parser.NewBracketIndex(parser.NewName("a", parser.Rng(30, 31)),
		parser.NewInt(5, parser.Rng(32, 33)), parser.Rng(30, 34))

	readIn := parser.NewLocal([]string{"_"}, []types.ByteRange{parser.Rng(26, 27)}, []parser.Expr{inBounds}, parser.Rng(20, 27))
	readOut := parser.NewLocal([]string{"__"}, []types.ByteRange{parser.Rng(36, 37)}, []parser.Expr{outOfBounds}, parser.Rng(30, 37))

	tree := &parser.Tree{File: file, Root: parser.NewChunk(
		[]parser.Stat{localA, readIn, readOut}, parser.Rng(0, 37))}
	p.Analyze(tree)

	in := exprType(t, p, file, inBounds)
	require.Equal(t, types.KInteger, in.Kind)

	out := exprType(t, p, file, outOfBounds)
	require.Equal(t, types.KUnion, out.Kind)
	require.Len(t, out.Elems, 2)
}

// Scenario 5 (spec.md §8.5): file x requires y, y requires x.
// Analyzing both against one shared Pipeline/Index must terminate and
// leave both files' dependency edges recorded, with the require
// result itself acceptable as Unknown.
func TestScenarioRequireCycleTerminates(t *testing.T) {
	const fileX = types.FileID(1)
	const fileY = types.FileID(2)
	p := New(index.New(), config.Default())
	p.Index.SetModule(fileX, "x", index.ClassMain)
	p.Index.SetModule(fileY, "y", index.ClassMain)

	requireY := parser.NewCall(parser.NewName("require", parser.Rng(0, 7)),
		[]parser.Expr{parser.NewString("y", parser.Rng(8, 11))}, parser.Rng(0, 12))
	localYX := parser.NewLocal([]string{"y"}, []types.ByteRange{parser.Rng(20, 21)}, []parser.Expr{requireY}, parser.Rng(16, 21))
	treeX := &parser.Tree{File: fileX, Root: parser.NewChunk([]parser.Stat{localYX}, parser.Rng(0, 21))}

	requireX := parser.NewCall(parser.NewName("require", parser.Rng(0, 7)),
		[]parser.Expr{parser.NewString("x", parser.Rng(8, 11))}, parser.Rng(0, 12))
	localXY := parser.NewLocal([]string{"x"}, []types.ByteRange{parser.Rng(20, 21)}, []parser.Expr{requireX}, parser.Rng(16, 21))
	treeY := &parser.Tree{File: fileY, Root: parser.NewChunk([]parser.Stat{localXY}, parser.Rng(0, 21))}

	// fixpoint.Run's progress-bounded loop (internal/analyzer/fixpoint)
	// guarantees this terminates even though x and y each reference an
	// entity the other file hasn't finished declaring yet.
	p.Analyze(treeX)
	p.Analyze(treeY)

	require.Contains(t, p.Index.Dependents(fileY), fileX)
	require.Contains(t, p.Index.Dependents(fileX), fileY)
}

// Scenario 6 (spec.md §8.6): `runtime.classDefaultCall.functionName =
// "new"` installs A.new as A's Call metamethod once declared.
func TestScenarioDefaultCallInstallsClassCallOperator(t *testing.T) {
	const file = types.FileID(1)
	p := New(index.New(), config.Default())
	require.Equal(t, "new", p.Config.Runtime.ClassDefaultCall.FunctionName)

	docs := []parser.DocTag{{Name: "class", Text: "A"}}
	localA := parser.NewLocal([]string{"A"}, []types.ByteRange{parser.Rng(6, 7)},
		[]parser.Expr{parser.NewTable(nil, parser.Rng(10, 12))}, parser.Rng(0, 12), docs...)

	fnRng := parser.Rng(20, 40)
	fn := parser.NewClosure(nil, false, false, nil, fnRng)
	target := parser.NewDotIndex(parser.NewName("A", parser.Rng(16, 17)), "new", parser.Rng(16, 20))
	fnStat := parser.NewFuncStat(target, false, "", fn, parser.Rng(16, 40))

	tree := &parser.Tree{File: file, Root: parser.NewChunk([]parser.Stat{localA, fnStat}, parser.Rng(0, 40))}
	p.Analyze(tree)

	ops := p.Index.Operators(index.TypeOwner("A"), index.OpCall)
	require.Len(t, ops, 1)
	sig, ok := p.Index.GetSignature(ops[0].Sig)
	require.True(t, ok)
	require.Equal(t, fnRng, sig.ID.Range)
}
