package infer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luasem/luasem/internal/analyzer/decl"
	"github.com/luasem/luasem/internal/analyzer/doc"
	"github.com/luasem/luasem/internal/analyzer/fixpoint"
	"github.com/luasem/luasem/internal/cache"
	"github.com/luasem/luasem/internal/config"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
)

const file = types.FileID(1)

// runAll mirrors doc/pass_test.go's runBoth helper, extended to also
// run the inference pass and drain the fixpoint queue to a fixpoint.
func runAll(t *testing.T, stats []parser.Stat) (*index.Index, *Context) {
	t.Helper()
	ix := index.New()
	q := fixpoint.New()
	cfg := config.Default()
	declCtx := &decl.Context{Index: ix, Queue: q, File: file, Config: cfg}
	tree := &parser.Tree{File: file, Root: parser.NewChunk(stats, parser.Rng(0, 1000))}

	decl.Run(declCtx, tree)
	doc.Run(&doc.Context{Index: ix, File: file}, tree)

	fc := cache.New()
	ctx := NewContext(ix, fc, q, file, cfg)
	Run(ctx, tree)
	fixpoint.Run(q, Attempts(ctx), Finalize(ctx))
	return ix, ctx
}

func TestLocalStatBindsLiteralType(t *testing.T) {
	local := parser.NewLocal([]string{"x"}, []types.ByteRange{parser.Rng(6, 7)},
		[]parser.Expr{parser.NewInt(42, parser.Rng(10, 12))}, parser.Rng(0, 12))

	ix, _ := runAll(t, []parser.Stat{local})

	d, ok := ix.GetDecl(types.DeclId{File: file, Pos: 6})
	require.True(t, ok)
	require.NotNil(t, d.Type)
	require.Equal(t, types.KIntegerConst, d.Type.Kind)
}

func TestLocalStatPadsTrailingNamesWithNil(t *testing.T) {
	local := parser.NewLocal([]string{"a", "b"},
		[]types.ByteRange{parser.Rng(6, 7), parser.Rng(9, 10)},
		[]parser.Expr{parser.NewInt(1, parser.Rng(13, 14))}, parser.Rng(0, 14))

	ix, _ := runAll(t, []parser.Stat{local})

	b, ok := ix.GetDecl(types.DeclId{File: file, Pos: 9})
	require.True(t, ok)
	require.NotNil(t, b.Type)
	require.Equal(t, types.KNil, b.Type.Kind)
}

func TestAssignDefaultPatternBindsRHSType(t *testing.T) {
	localRng := parser.Rng(0, 12)
	local := parser.NewLocal([]string{"opt"}, []types.ByteRange{parser.Rng(6, 9)}, nil, localRng)

	name := parser.NewName("opt", parser.Rng(20, 23))
	or := &parser.BinExpr{Op: parser.OpOr, Left: name, Right: parser.NewString("fallback", parser.Rng(27, 37))}
	assign := parser.NewAssign([]parser.Expr{parser.NewName("opt", parser.Rng(20, 23))}, []parser.Expr{or}, parser.Rng(20, 38))

	ix, _ := runAll(t, []parser.Stat{local, assign})

	d, ok := ix.GetDecl(types.DeclId{File: file, Pos: 6})
	require.True(t, ok)
	require.NotNil(t, d.Type)
	require.Equal(t, types.KStringConst, d.Type.Kind)
	require.Equal(t, "fallback", d.Type.StrVal)
}

func TestCallExprResolvesReturnTypeThroughSignature(t *testing.T) {
	fnRng := parser.Rng(20, 40)
	fn := parser.NewClosure(nil, false, false, []parser.Stat{
		parser.NewReturn([]parser.Expr{parser.NewBool(true, parser.Rng(30, 34))}, parser.Rng(30, 34)),
	}, fnRng)
	fnStat := parser.NewLocalFuncStat("check", parser.Rng(6, 11), fn, parser.Rng(0, 40),
		parser.DocTag{Name: "return", Text: "boolean"})

	call := parser.NewCall(parser.NewName("check", parser.Rng(50, 55)), nil, parser.Rng(50, 57))
	callStat := parser.NewCallStat(call, parser.Rng(50, 57))

	local := parser.NewLocal([]string{"ok"}, []types.ByteRange{parser.Rng(64, 66)},
		[]parser.Expr{parser.NewCall(parser.NewName("check", parser.Rng(70, 75)), nil, parser.Rng(70, 77))},
		parser.Rng(60, 77))

	ix, _ := runAll(t, []parser.Stat{fnStat, callStat, local})

	d, ok := ix.GetDecl(types.DeclId{File: file, Pos: 64})
	require.True(t, ok)
	require.NotNil(t, d.Type)
	require.Equal(t, types.KBoolean, d.Type.Kind)
}

func TestTableFieldValueTypeIsFilledIn(t *testing.T) {
	tbl := parser.NewTable([]parser.TableField{
		{Form: parser.FieldName, Name: "count", Value: parser.NewInt(0, parser.Rng(15, 16)), Rng: parser.Rng(10, 16)},
	}, parser.Rng(8, 18))
	local := parser.NewLocal([]string{"t"}, []types.ByteRange{parser.Rng(6, 7)}, []parser.Expr{tbl}, parser.Rng(0, 18))

	ix, _ := runAll(t, []parser.Stat{local})

	members := ix.Members(index.ElementOwner(file, tbl.Range()))
	require.Len(t, members, 1)
	require.NotNil(t, members[0].ValueType)
	require.Equal(t, types.KIntegerConst, members[0].ValueType.Kind)
}

func TestExpressionKeyedTableFieldResolvesThroughFixpoint(t *testing.T) {
	keyExpr := parser.NewName("k", parser.Rng(30, 31))
	tbl := parser.NewTable([]parser.TableField{
		{Form: parser.FieldExpr, Key: keyExpr, Value: parser.NewString("v", parser.Rng(34, 37)), Rng: parser.Rng(28, 37)},
	}, parser.Rng(20, 39))

	keyLocal := parser.NewLocal([]string{"k"}, []types.ByteRange{parser.Rng(6, 7)},
		[]parser.Expr{parser.NewString("field", parser.Rng(10, 17))}, parser.Rng(0, 17))
	tableLocal := parser.NewLocal([]string{"t"}, []types.ByteRange{parser.Rng(19, 20)}, []parser.Expr{tbl}, parser.Rng(18, 39))

	ix, _ := runAll(t, []parser.Stat{keyLocal, tableLocal})

	members := ix.Members(index.ElementOwner(file, tbl.Range()))
	require.Len(t, members, 1)
	require.NotNil(t, members[0].ValueType)
	require.Equal(t, types.KStringConst, members[0].ValueType.Kind)
}

func TestDefaultCallFunctionInstallsCallOperator(t *testing.T) {
	docs := []parser.DocTag{{Name: "class", Text: "Vec"}}
	local := parser.NewLocal([]string{"Vec"}, []types.ByteRange{parser.Rng(10, 13)},
		[]parser.Expr{parser.NewTable(nil, parser.Rng(16, 18))}, parser.Rng(0, 18), docs...)

	fnRng := parser.Rng(30, 50)
	fn := parser.NewClosure([]string{"x"}, false, false, nil, fnRng)
	target := parser.NewDotIndex(parser.NewName("Vec", parser.Rng(22, 25)), "new", parser.Rng(22, 29))
	fnStat := parser.NewFuncStat(target, false, "", fn, parser.Rng(22, 50))

	// config.Default()'s Runtime.ClassDefaultCall.FunctionName is "new",
	// matching the `Vec.new` target below.
	ix, _ := runAll(t, []parser.Stat{local, fnStat})

	ops := ix.Operators(index.TypeOwner("Vec"), index.OpCall)
	require.Len(t, ops, 1)
	sig, ok := ix.GetSignature(ops[0].Sig)
	require.True(t, ok)
	require.Equal(t, fnRng, sig.ID.Range)
}
