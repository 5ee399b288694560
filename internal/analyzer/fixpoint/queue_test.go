package fixpoint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luasem/luasem/internal/diag"
)

func TestRunResolvesAfterRetries(t *testing.T) {
	q := New()
	tries := 0
	q.Enqueue(&Item{Kind: KindExpr})

	attempts := map[Kind]Attempt{
		KindExpr: func(item *Item) (bool, diag.InferFailReason) {
			tries++
			// Each failed attempt reports a different reason: Run only
			// re-attempts an item while a pass makes progress, and a
			// changed reason counts as progress.
			switch tries {
			case 1:
				return false, diag.UnResolveExpr(item.ExprID)
			case 2:
				return false, diag.FieldNotFound()
			}
			return true, diag.InferFailReason{}
		},
	}

	finalized := 0
	Run(q, attempts, func(item *Item) { finalized++ })

	require.Equal(t, 3, tries)
	require.Equal(t, 0, finalized)
	require.Equal(t, 0, q.Len())
}

func TestRunFinalizesItemsThatNeverProgress(t *testing.T) {
	q := New()
	q.Enqueue(&Item{Kind: KindDecl})

	attempts := map[Kind]Attempt{
		KindDecl: func(item *Item) (bool, diag.InferFailReason) {
			return false, diag.UnResolveDecl(item.DeclID, 0)
		},
	}

	var finalizedItems []*Item
	Run(q, attempts, func(item *Item) { finalizedItems = append(finalizedItems, item) })

	require.Len(t, finalizedItems, 1)
	require.Equal(t, 0, q.Len())
}
