package member

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luasem/luasem/internal/diag"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/types"
)

func newResolver(ix *index.Index) *Resolver { return &Resolver{Index: ix, Strict: true} }

func TestAnyUnknownTableAlwaysAny(t *testing.T) {
	r := newResolver(index.New())
	for _, ty := range []*types.Type{types.Any(), types.Unknown(), types.Table()} {
		v, ok, _ := r.Of(ty, types.NameKey("x"))
		require.True(t, ok)
		require.Equal(t, types.KAny, v.Kind)
	}
}

func TestClassMethodResolvesAndWalksSupers(t *testing.T) {
	ix := index.New()
	dog := ix.EnsureTypeDecl("Dog")
	dog.AddSuper("Animal")
	ix.EnsureTypeDecl("Animal")
	ix.AddMember(&index.Member{
		ID: types.MemberId{File: 1}, Owner: index.TypeOwner("Animal"),
		Key: types.NameKey("speak"), ValueType: types.String(),
	})

	r := newResolver(ix)
	v, ok, _ := r.Of(types.Ref("Dog"), types.NameKey("speak"))
	require.True(t, ok)
	require.Equal(t, types.KString, v.Kind)
}

func TestArrayStrictOutOfBoundsUnionsNil(t *testing.T) {
	r := newResolver(index.New())
	arr := types.Array(types.Integer(), types.MaxLen(3))

	v, ok, _ := r.Of(arr, types.IntKey(2))
	require.True(t, ok)
	require.Equal(t, types.KInteger, v.Kind)

	v, ok, _ = r.Of(arr, types.IntKey(5))
	require.True(t, ok)
	require.Equal(t, types.KUnion, v.Kind)
}

func TestArrayLoopBoundConfirmedSkipsNil(t *testing.T) {
	ix := index.New()
	r := &Resolver{Index: ix, Strict: true, LoopBoundConfirmed: true}
	arr := types.Array(types.Integer(), types.NoLen())
	v, ok, _ := r.Of(arr, types.ExprTypeKey(types.Integer()))
	require.True(t, ok)
	require.Equal(t, types.KInteger, v.Kind)
}

func TestTupleIntegerKeyAndOutOfRangeYieldsNil(t *testing.T) {
	r := newResolver(index.New())
	tup := types.Tuple([]*types.Type{types.String(), types.Integer()})
	v, ok, _ := r.Of(tup, types.IntKey(1))
	require.True(t, ok)
	require.Equal(t, types.KString, v.Kind)

	v, ok, _ = r.Of(tup, types.IntKey(9))
	require.True(t, ok)
	require.Equal(t, types.KNil, v.Kind)
}

func TestObjectExactFieldAndIndexAccess(t *testing.T) {
	r := newResolver(index.New())
	obj := types.Object(map[string]*types.Type{"name": types.String()}, []string{"name"},
		[]types.IndexAccessEntry{{KeyType: types.String(), ValueType: types.Integer()}})

	v, ok, _ := r.Of(obj, types.NameKey("name"))
	require.True(t, ok)
	require.Equal(t, types.KString, v.Kind)

	v, ok, _ = r.Of(obj, types.NameKey("other"))
	require.True(t, ok)
	require.Equal(t, types.KInteger, v.Kind)
}

func TestUnionResolutionDropsNilWhenOtherArmSucceeds(t *testing.T) {
	ix := index.New()
	td := ix.EnsureTypeDecl("A")
	_ = td
	ix.AddMember(&index.Member{ID: types.MemberId{File: 1}, Owner: index.TypeOwner("A"), Key: types.NameKey("x"), ValueType: types.Integer()})
	r := newResolver(ix)

	u := types.UnionOf(types.Ref("A"), types.Nil())
	v, ok, _ := r.Of(u, types.NameKey("x"))
	require.True(t, ok)
	require.Equal(t, types.KInteger, v.Kind)
}

func TestGenericSubstitutesResolvedMember(t *testing.T) {
	ix := index.New()
	ix.EnsureTypeDecl("Box")
	ix.AddMember(&index.Member{ID: types.MemberId{File: 1}, Owner: index.TypeOwner("Box"), Key: types.NameKey("v"), ValueType: types.TplRef(0, "T")})
	r := newResolver(ix)

	g := types.Generic(types.Ref("Box"), []*types.Type{types.String()})
	v, ok, _ := r.Of(g, types.NameKey("v"))
	require.True(t, ok)
	require.Equal(t, types.KString, v.Kind)
}

func TestAliasOriginAnswersField(t *testing.T) {
	ix := index.New()
	alias := ix.EnsureTypeDecl("MyAlias")
	alias.Kind = index.KindAlias
	alias.AliasOrigin = types.Object(map[string]*types.Type{"v": types.String()}, []string{"v"}, nil)

	r := newResolver(ix)
	v, ok, _ := r.Of(types.Ref("MyAlias"), types.NameKey("v"))
	require.True(t, ok)
	require.Equal(t, types.KString, v.Kind)
}

func TestEnumIndexByVariableDefers(t *testing.T) {
	ix := index.New()
	e := ix.EnsureTypeDecl("Color")
	e.Kind = index.KindEnum
	r := newResolver(ix)

	_, ok, reason := r.Of(types.Ref("Color"), types.ExprTypeKey(types.Ref("Color")))
	require.False(t, ok)
	require.Equal(t, diag.ReasonNone, reason.Kind)
}

func TestNamespaceComposesAndResolvesRegisteredType(t *testing.T) {
	ix := index.New()
	ix.EnsureTypeDecl("pkg.Widget")
	r := newResolver(ix)

	v, ok, _ := r.Of(types.Namespace("pkg"), types.NameKey("Widget"))
	require.True(t, ok)
	require.Equal(t, types.KDef, v.Kind)

	v, ok, _ = r.Of(types.Namespace("pkg"), types.NameKey("Unregistered"))
	require.True(t, ok)
	require.Equal(t, types.KNamespace, v.Kind)
}

func TestCycleGuardStopsInfiniteSuperRecursion(t *testing.T) {
	ix := index.New()
	a := ix.EnsureTypeDecl("A")
	a.AddSuper("B")
	b := ix.EnsureTypeDecl("B")
	b.AddSuper("A")
	r := newResolver(ix)

	_, ok, reason := r.Of(types.Ref("A"), types.NameKey("missing"))
	require.False(t, ok)
	require.Equal(t, diag.ReasonNone, reason.Kind)
}
