package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSupers map[TypeDeclId][]TypeDeclId // sub -> its declared supers

func (f fakeSupers) IsSuperOf(super, sub TypeDeclId) bool {
	if super == sub {
		return true
	}
	for _, s := range f[sub] {
		if f.IsSuperOf(super, s) {
			return true
		}
	}
	return false
}

func TestCheckCompactAnyAcceptsEverything(t *testing.T) {
	require.True(t, CheckCompact(Any(), String(), nil))
	require.True(t, CheckCompact(Any(), Nil(), nil))
}

func TestCheckCompactLiteralToBase(t *testing.T) {
	require.True(t, CheckCompact(Integer(), IntegerConst(3), nil))
	require.True(t, CheckCompact(String(), StringConst("x"), nil))
}

func TestCheckCompactUnionActualRequiresAllBranches(t *testing.T) {
	u := UnionOf(IntegerConst(1), IntegerConst(2))
	require.True(t, CheckCompact(Integer(), u, nil))

	mixed := UnionOf(IntegerConst(1), StringConst("x"))
	require.False(t, CheckCompact(Integer(), mixed, nil))
}

func TestCheckCompactNominalTransitiveSuper(t *testing.T) {
	supers := fakeSupers{
		"Dog":    {"Animal"},
		"Animal": {"Thing"},
	}
	// expected=Ref(Dog), actual=Ref(Animal): Animal is a transitive
	// super of Dog, so it is accepted.
	require.True(t, CheckCompact(Ref("Dog"), Ref("Animal"), supers))
	require.True(t, CheckCompact(Ref("Dog"), Ref("Thing"), supers))
	require.True(t, CheckCompact(Ref("Dog"), Ref("Dog"), supers))
	require.False(t, CheckCompact(Ref("Animal"), Ref("Dog"), supers))
}

func TestCheckCompactUnknownActualNeverDemandedButAlwaysAccepted(t *testing.T) {
	require.True(t, CheckCompact(String(), Unknown(), nil))
}
