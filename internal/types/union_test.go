package types

import "testing"

import "github.com/stretchr/testify/require"

func TestUnionAbsorbsAny(t *testing.T) {
	u := UnionOf(String(), Any(), Nil())
	require.True(t, isAny(u))
}

func TestUnionDropsUnknownWhenOtherPresent(t *testing.T) {
	u := UnionOf(Unknown(), String())
	require.True(t, Equal(u, String()))
}

func TestUnionOfUnknownAlone(t *testing.T) {
	u := UnionOf(Unknown())
	require.True(t, Equal(u, Unknown()))
}

func TestUnionEmptyNormalizesToUnknown(t *testing.T) {
	u := UnionOf()
	require.True(t, Equal(u, Unknown()))
}

func TestUnionCollapsesDuplicates(t *testing.T) {
	u := UnionOf(String(), String(), Nil())
	require.Equal(t, KUnion, u.Kind)
	require.Len(t, u.Elems, 2)
}

func TestUnionFlattensNested(t *testing.T) {
	inner := UnionOf(String(), Nil())
	outer := UnionOf(inner, Boolean())
	require.Equal(t, KUnion, outer.Kind)
	require.Len(t, outer.Elems, 3)
}

func TestUnionLiteralSubsumedByBase(t *testing.T) {
	u := UnionOf(IntegerConst(3), Integer())
	require.True(t, Equal(u, Integer()))
}

func TestUnionIdempotent(t *testing.T) {
	a := UnionOf(String(), Nil())
	b := UnionOf(a, a)
	require.True(t, Equal(a, b))
}

func TestUnionAssociativeModuloOrdering(t *testing.T) {
	a, b, c := String(), Nil(), Boolean()
	left := UnionOf(UnionOf(a, b), c)
	right := UnionOf(a, UnionOf(b, c))
	require.True(t, Equal(left, right), "left=%s right=%s", left, right)
}
