package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luasem/luasem/internal/types"
)

func TestAddDeclInvariantFileMatches(t *testing.T) {
	ix := New()
	id := DeclId{File: 1, Pos: 10}
	ix.AddDecl(NewLocalDecl(id, "x", types.ByteRange{Start: 10, End: 11}, LocalPlain))

	d, ok := ix.GetDecl(id)
	require.True(t, ok)
	require.Equal(t, id.File, d.File)
}

func TestGlobalDeclEntersGlobalIndex(t *testing.T) {
	ix := New()
	id := DeclId{File: 1, Pos: 5}
	ix.AddDecl(NewGlobalDecl(id, "G", types.ByteRange{Start: 5, End: 6}))

	ids := ix.GlobalDecls("G")
	require.Contains(t, ids, id)
}

func TestMembersByKeyIsSubsetWithMatchingKey(t *testing.T) {
	ix := New()
	owner := TypeOwner("MyClass")
	k := types.NameKey("foo")
	m := &Member{ID: types.MemberId{File: 1}, Owner: owner, Key: k, Feature: FeatureFileDefine}
	ix.AddMember(m)

	all := ix.Members(owner)
	require.Len(t, all, 1)

	byKey := ix.MembersByKey(owner, k)
	require.Len(t, byKey, 1)
	require.True(t, byKey[0].Key.Equal(k))
}

func TestIsSuperOfTransitive(t *testing.T) {
	ix := New()
	dog := ix.EnsureTypeDecl("Dog")
	dog.AddSuper("Animal")
	animal := ix.EnsureTypeDecl("Animal")
	animal.AddSuper("Thing")
	ix.EnsureTypeDecl("Thing")

	require.True(t, ix.IsSuperOf("Thing", "Dog"))
	require.True(t, ix.IsSuperOf("Animal", "Dog"))
	require.True(t, ix.IsSuperOf("Dog", "Dog"))
	require.False(t, ix.IsSuperOf("Dog", "Thing"))
}

func TestClearFileRemovesDeclsAndElementMembers(t *testing.T) {
	ix := New()
	id := DeclId{File: 7, Pos: 1}
	ix.AddDecl(NewLocalDecl(id, "x", types.ByteRange{Start: 1, End: 2}, LocalPlain))

	owner := ElementOwner(7, types.ByteRange{Start: 0, End: 100})
	ix.AddMember(&Member{ID: types.MemberId{File: 7}, Owner: owner, Key: types.NameKey("a")})

	ix.ClearFile(7)

	_, ok := ix.GetDecl(id)
	require.False(t, ok)
	require.Empty(t, ix.Members(owner))
}

func TestClearFileKeepsOtherFilesContributionsToSharedClass(t *testing.T) {
	ix := New()
	td := ix.EnsureTypeDecl("Shared")
	td.AddDefinition(1, types.ByteRange{Start: 0, End: 5})
	td.AddDefinition(2, types.ByteRange{Start: 0, End: 5})

	owner := TypeOwner("Shared")
	ix.AddMember(&Member{ID: types.MemberId{File: 1}, Owner: owner, Key: types.NameKey("a")})
	ix.AddMember(&Member{ID: types.MemberId{File: 2}, Owner: owner, Key: types.NameKey("b")})

	ix.ClearFile(1)

	_, ok := ix.GetTypeDecl("Shared")
	require.True(t, ok, "class with remaining definitions from file 2 must survive")

	members := ix.Members(owner)
	require.Len(t, members, 1)
	require.Equal(t, "b", members[0].Key.Name)
}

func TestDeclAtPositionShadowing(t *testing.T) {
	ix := New()
	outer := DeclId{File: 1, Pos: 1}
	inner := DeclId{File: 1, Pos: 10}
	ix.AddDecl(NewLocalDecl(outer, "x", types.ByteRange{Start: 1, End: 2}, LocalPlain))
	ix.AddDecl(NewLocalDecl(inner, "x", types.ByteRange{Start: 10, End: 11}, LocalPlain))

	d, ok := ix.DeclAtPosition(1, "x", 15)
	require.True(t, ok)
	require.Equal(t, inner, d.ID)

	d, ok = ix.DeclAtPosition(1, "x", 5)
	require.True(t, ok)
	require.Equal(t, outer, d.ID)
}
