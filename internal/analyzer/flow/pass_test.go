package flow

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

// runDEF runs the decl, doc, and flow passes in pipeline order (D ->
// E -> F) against stats, returning the index and the file cache flow
// populated, so a test can inspect narrowed facts the way the
// inference pass (G) would consult them.
func runDEF(t *testing.T, stats []parser.Stat) (*index.Index, *cache.FileCache) {
	t.Helper()
	ix := index.New()
	declCtx := &decl.Context{Index: ix, Queue: fixpoint.New(), File: file, Config: config.Default()}
	tree := &parser.Tree{File: file, Root: parser.NewChunk(stats, parser.Rng(0, 1000))}

	decl.Run(declCtx, tree)
	doc.Run(&doc.Context{Index: ix, File: file}, tree)

	fc := cache.New()
	Run(&Context{Index: ix, Cache: fc, File: file}, tree)
	return ix, fc
}

func TestTruthyNarrowingRemovesNilInsideGuardedBranch(t *testing.T) {
	// ---@type string|nil
	// local s
	// if s then
	//   s:upper()
	// end
	local := parser.NewLocal([]string{"s"}, []types.ByteRange{parser.Rng(6, 7)}, nil, parser.Rng(0, 7),
		parser.DocTag{Name: "type", Text: "string|nil"})

	condRef := parser.NewName("s", parser.Rng(20, 21))
	innerRef := parser.NewName("s", parser.Rng(30, 31))
	call := parser.NewColonCall(innerRef, "upper", nil, parser.Rng(30, 40))
	callStat := parser.NewCallStat(call, parser.Rng(30, 40))

	ifStat := parser.NewIf([]parser.IfClause{
		{Cond: condRef, Body: []parser.Stat{callStat}},
	}, nil, parser.Rng(16, 45))

	_, fc := runDEF(t, []parser.Stat{local, ifStat})

	narrowed, ok := fc.NarrowedType(types.VarRefId{File: file, Pos: 30})
	require.True(t, ok)
	require.Equal(t, types.KString, narrowed.Kind)
}

func TestNoNarrowingOutsideGuardedBranch(t *testing.T) {
	local := parser.NewLocal([]string{"s"}, []types.ByteRange{parser.Rng(6, 7)}, nil, parser.Rng(0, 7),
		parser.DocTag{Name: "type", Text: "string|nil"})

	condRef := parser.NewName("s", parser.Rng(20, 21))
	innerRef := parser.NewName("s", parser.Rng(30, 31))
	callStat := parser.NewCallStat(parser.NewColonCall(innerRef, "upper", nil, parser.Rng(30, 40)), parser.Rng(30, 40))
	ifStat := parser.NewIf([]parser.IfClause{{Cond: condRef, Body: []parser.Stat{callStat}}}, nil, parser.Rng(16, 45))

	afterRef := parser.NewName("s", parser.Rng(50, 51))
	afterStat := parser.NewCallStat(parser.NewColonCall(afterRef, "upper", nil, parser.Rng(50, 60)), parser.Rng(50, 60))

	_, fc := runDEF(t, []parser.Stat{local, ifStat, afterStat})

	_, ok := fc.NarrowedType(types.VarRefId{File: file, Pos: 50})
	require.False(t, ok)
}

func TestReassignmentResetsNarrowing(t *testing.T) {
	local := parser.NewLocal([]string{"s"}, []types.ByteRange{parser.Rng(6, 7)}, nil, parser.Rng(0, 7),
		parser.DocTag{Name: "type", Text: "string|nil"})

	condRef := parser.NewName("s", parser.Rng(20, 21))
	reassign := parser.NewAssign([]parser.Expr{parser.NewName("s", parser.Rng(25, 26))},
		[]parser.Expr{parser.NewNil(parser.Rng(30, 33))}, parser.Rng(25, 33))
	afterRef := parser.NewName("s", parser.Rng(40, 41))
	afterStat := parser.NewCallStat(parser.NewColonCall(afterRef, "upper", nil, parser.Rng(40, 50)), parser.Rng(40, 50))

	ifStat := parser.NewIf([]parser.IfClause{
		{Cond: condRef, Body: []parser.Stat{reassign, afterStat}},
	}, nil, parser.Rng(16, 55))

	_, fc := runDEF(t, []parser.Stat{local, ifStat})

	_, ok := fc.NarrowedType(types.VarRefId{File: file, Pos: 40})
	require.False(t, ok)
}

func TestTypeOfEqualityNarrowsToString(t *testing.T) {
	local := parser.NewLocal([]string{"v"}, []types.ByteRange{parser.Rng(6, 7)}, nil, parser.Rng(0, 7),
		parser.DocTag{Name: "type", Text: "string|integer"})

	typeCall := parser.NewCall(parser.NewName("type", parser.Rng(20, 24)),
		[]parser.Expr{parser.NewName("v", parser.Rng(25, 26))}, parser.Rng(20, 27))
	cond := &parser.BinExpr{Op: parser.OpEq, Left: typeCall, Right: parser.NewString("string", parser.Rng(31, 39))}

	innerRef := parser.NewName("v", parser.Rng(50, 51))
	innerStat := parser.NewCallStat(parser.NewColonCall(innerRef, "upper", nil, parser.Rng(50, 60)), parser.Rng(50, 60))
	ifStat := parser.NewIf([]parser.IfClause{{Cond: cond, Body: []parser.Stat{innerStat}}}, nil, parser.Rng(16, 65))

	_, fc := runDEF(t, []parser.Stat{local, ifStat})

	narrowed, ok := fc.NarrowedType(types.VarRefId{File: file, Pos: 50})
	require.True(t, ok)
	require.Equal(t, types.KString, narrowed.Kind)
}

func TestLiteralEqualityNarrowsToConstant(t *testing.T) {
	local := parser.NewLocal([]string{"v"}, []types.ByteRange{parser.Rng(6, 7)}, nil, parser.Rng(0, 7),
		parser.DocTag{Name: "type", Text: "integer"})

	cond := &parser.BinExpr{Op: parser.OpEq, Left: parser.NewName("v", parser.Rng(20, 21)), Right: parser.NewInt(5, parser.Rng(25, 26))}
	innerRef := parser.NewName("v", parser.Rng(40, 41))
	innerStat := parser.NewCallStat(parser.NewCall(parser.NewName("print", parser.Rng(40, 45)),
		[]parser.Expr{innerRef}, parser.Rng(40, 48)), parser.Rng(40, 48))
	ifStat := parser.NewIf([]parser.IfClause{{Cond: cond, Body: []parser.Stat{innerStat}}}, nil, parser.Rng(16, 55))

	_, fc := runDEF(t, []parser.Stat{local, ifStat})

	narrowed, ok := fc.NarrowedType(types.VarRefId{File: file, Pos: 40})
	require.True(t, ok)
	require.Equal(t, types.KIntegerConst, narrowed.Kind)
	require.Equal(t, int64(5), narrowed.IntVal)
}
