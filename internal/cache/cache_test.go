package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luasem/luasem/internal/diag"
	"github.com/luasem/luasem/internal/types"
)

func TestMarkResolvingThenCycleDetected(t *testing.T) {
	c := New()
	id := types.ExprId{File: 1, Syn: types.SyntaxID{Range: types.ByteRange{Start: 1, End: 2}}}

	require.False(t, c.IsCycle(id))
	c.MarkResolving(id)
	require.True(t, c.IsCycle(id))

	c.SetReady(id, types.String())
	require.False(t, c.IsCycle(id))
	e, ok := c.Get(id)
	require.True(t, ok)
	require.Equal(t, StateReady, e.State)
}

func TestSetFailedRecordsReason(t *testing.T) {
	c := New()
	id := types.ExprId{File: 1}
	c.SetFailed(id, diag.FieldNotFound())
	e, ok := c.Get(id)
	require.True(t, ok)
	require.Equal(t, StateFailed, e.State)
	require.Equal(t, diag.ReasonFieldNotFound, e.Reason.Kind)
}

func TestInvalidateClearsBothMaps(t *testing.T) {
	c := New()
	id := types.ExprId{File: 1}
	ref := types.VarRefId{File: 1, Pos: 5}
	c.SetReady(id, types.Any())
	c.SetNarrowedType(ref, types.String())

	c.Invalidate()

	_, ok := c.Get(id)
	require.False(t, ok)
	_, ok = c.NarrowedType(ref)
	require.False(t, ok)
}

func TestStoreResetsOnGenerationBump(t *testing.T) {
	s := NewStore()
	fc1 := s.For(1, 0)
	fc1.SetReady(types.ExprId{File: 1}, types.Integer())

	fc2 := s.For(1, 1)
	require.NotSame(t, fc1, fc2)
	_, ok := fc2.Get(types.ExprId{File: 1})
	require.False(t, ok)
}
