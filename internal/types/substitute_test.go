package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubstituteReplacesTplRef(t *testing.T) {
	sigma := NewSubstitutor()
	sigma.Bind(0, String())

	box := Object(map[string]*Type{"v": TplRef(0, "T")}, []string{"v"}, nil)
	got := Substitute(box, sigma)

	require.True(t, Equal(got.Fields["v"], String()))
}

func TestSubstituteIdempotentOnGroundSigma(t *testing.T) {
	sigma := NewSubstitutor()
	sigma.Bind(0, Integer())

	t1 := Array(TplRef(0, "T"), NoLen())
	once := Substitute(t1, sigma)
	twice := Substitute(once, sigma)

	require.True(t, Equal(once, twice))
}

func TestSubstituteExpandsVariadic(t *testing.T) {
	sigma := NewSubstitutor()
	sigma.BindVariadic(0, []*Type{String(), Integer()})

	tup := Tuple([]*Type{Boolean(), TplRef(0, "T")})
	got := Substitute(tup, sigma)

	require.Len(t, got.Elems, 3)
	require.True(t, Equal(got.Elems[0], Boolean()))
	require.True(t, Equal(got.Elems[1], String()))
	require.True(t, Equal(got.Elems[2], Integer()))
}

func TestSubstituteLeavesUnboundTplRefAlone(t *testing.T) {
	sigma := NewSubstitutor()
	got := Substitute(TplRef(2, "U"), sigma)
	require.Equal(t, KTplRef, got.Kind)
	require.Equal(t, 2, got.TplIndex)
}
