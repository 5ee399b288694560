package decl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luasem/luasem/internal/analyzer/fixpoint"
	"github.com/luasem/luasem/internal/config"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
)

func newCtx(file types.FileID) *Context {
	return &Context{Index: index.New(), Queue: fixpoint.New(), File: file, Config: config.Default()}
}

func TestLocalStatCreatesDeclAndReference(t *testing.T) {
	ctx := newCtx(1)
	// local x = 1; print(x)
	localRng := parser.Rng(0, 1)
	local := parser.NewLocal([]string{"x"}, []types.ByteRange{localRng}, []parser.Expr{parser.NewInt(1, parser.Rng(8, 9))}, parser.Rng(0, 9))

	useRng := parser.Rng(20, 21)
	use := parser.NewCallStat(parser.NewCall(parser.NewName("print", parser.Rng(11, 16)), []parser.Expr{parser.NewName("x", useRng)}, parser.Rng(11, 22)), parser.Rng(11, 22))

	tree := &parser.Tree{File: 1, Root: parser.NewChunk([]parser.Stat{local, use}, parser.Rng(0, 22))}
	Run(ctx, tree)

	id := types.DeclId{File: 1, Pos: 0}
	d, ok := ctx.Index.GetDecl(id)
	require.True(t, ok)
	require.Equal(t, "x", d.Name)

	refs := ctx.Index.ReferencesToDecl(id)
	require.Contains(t, refs, useRng)
}

func TestFreeGlobalUseRecordsGlobalReferenceOnly(t *testing.T) {
	ctx := newCtx(1)
	nameRng := parser.Rng(0, 3)
	stat := parser.NewCallStat(parser.NewCall(parser.NewName("foo", nameRng), nil, parser.Rng(0, 5)), parser.Rng(0, 5))
	tree := &parser.Tree{File: 1, Root: parser.NewChunk([]parser.Stat{stat}, parser.Rng(0, 5))}
	Run(ctx, tree)

	require.Len(t, ctx.Index.GlobalDecls("foo"), 0)
}

func TestTableLiteralExprKeyedFieldQueuesWorkItem(t *testing.T) {
	ctx := newCtx(1)
	keyExpr := parser.NewName("k", parser.Rng(2, 3))
	field := parser.TableField{Form: parser.FieldExpr, Key: keyExpr, Value: parser.NewInt(1, parser.Rng(6, 7)), Rng: parser.Rng(1, 8)}
	table := parser.NewTable([]parser.TableField{field}, parser.Rng(0, 9))
	local := parser.NewLocal([]string{"t"}, []types.ByteRange{parser.Rng(20, 21)}, []parser.Expr{table}, parser.Rng(20, 30))

	tree := &parser.Tree{File: 1, Root: parser.NewChunk([]parser.Stat{local}, parser.Rng(0, 30))}
	Run(ctx, tree)

	require.Equal(t, 1, ctx.Queue.Len())
}

func TestTableLiteralStaticFieldsBecomeMembers(t *testing.T) {
	ctx := newCtx(1)
	arrField := parser.TableField{Form: parser.FieldArray, Value: parser.NewInt(10, parser.Rng(2, 4)), Rng: parser.Rng(2, 4)}
	nameField := parser.TableField{Form: parser.FieldName, Name: "x", Value: parser.NewInt(20, parser.Rng(10, 12)), Rng: parser.Rng(6, 12)}
	tableRng := parser.Rng(0, 13)
	table := parser.NewTable([]parser.TableField{arrField, nameField}, tableRng)
	local := parser.NewLocal([]string{"t"}, []types.ByteRange{parser.Rng(20, 21)}, []parser.Expr{table}, parser.Rng(20, 30))

	tree := &parser.Tree{File: 1, Root: parser.NewChunk([]parser.Stat{local}, parser.Rng(0, 30))}
	Run(ctx, tree)

	owner := index.ElementOwner(1, tableRng)
	members := ctx.Index.Members(owner)
	require.Len(t, members, 2)
}

func TestColonMethodPrependsImplicitSelf(t *testing.T) {
	ctx := newCtx(1)
	closureRng := parser.Rng(10, 40)
	fn := parser.NewClosure([]string{"x"}, false, true, nil, closureRng)
	fn.ParamRngs = []types.ByteRange{parser.Rng(30, 31)}
	target := parser.NewDotIndex(parser.NewName("A", parser.Rng(0, 1)), "foo", parser.Rng(0, 5))
	fnStat := parser.NewFuncStat(target, true, "foo", fn, parser.Rng(0, 40))

	tree := &parser.Tree{File: 1, Root: parser.NewChunk([]parser.Stat{fnStat}, parser.Rng(0, 40))}
	Run(ctx, tree)

	selfID := types.DeclId{File: 1, Pos: closureRng.Start}
	d, ok := ctx.Index.GetDecl(selfID)
	require.True(t, ok)
	require.Equal(t, "self", d.Name)
	require.Equal(t, index.DeclImplicitSelf, d.Variant)
}

func TestClassConstructorCallRegistersTypeDecl(t *testing.T) {
	ctx := newCtx(1)
	callRng := parser.Rng(0, 30)
	call := parser.NewCall(parser.NewName("DefineClass", parser.Rng(0, 11)), []parser.Expr{parser.NewString("Widget", parser.Rng(12, 20))}, callRng)
	local := parser.NewLocal([]string{"Widget"}, []types.ByteRange{parser.Rng(40, 46)}, []parser.Expr{call}, parser.Rng(40, 50))

	tree := &parser.Tree{File: 1, Root: parser.NewChunk([]parser.Stat{local}, parser.Rng(0, 50))}
	Run(ctx, tree)

	_, ok := ctx.Index.GetTypeDecl(types.TypeDeclId("Widget"))
	require.True(t, ok)

	synthID := types.DeclId{File: 1, Pos: callRng.Start}
	d, ok := ctx.Index.GetDecl(synthID)
	require.True(t, ok)
	require.NotNil(t, d.PresetType)
	require.Equal(t, types.KDef, d.PresetType.Kind)
}

func TestRequireCallAddsFileDependency(t *testing.T) {
	ctx := newCtx(1)
	ctx.Index.SetModule(2, "mymodule", index.ClassMain)

	call := parser.NewCallStat(parser.NewCall(parser.NewName("require", parser.Rng(0, 7)), []parser.Expr{parser.NewString("mymodule", parser.Rng(8, 18))}, parser.Rng(0, 19)), parser.Rng(0, 19))
	tree := &parser.Tree{File: 1, Root: parser.NewChunk([]parser.Stat{call}, parser.Rng(0, 19))}
	Run(ctx, tree)

	require.Contains(t, ctx.Index.Dependents(2), types.FileID(1))
}
