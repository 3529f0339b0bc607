package state

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hftexec/internal/model/enum"
)

func TestSnapshotRoundTrip(t *testing.T) {
	a, err := NewPosition("P-1", testFill("T-1", enum.OrderSideBuy, 10, 100, 1))
	require.NoError(t, err)
	b, err := NewPosition("P-2", testFill("T-2", enum.OrderSideSell, 4, 100, 1))
	require.NoError(t, err)

	snap := TakeSnapshot(10, []*Position{a, b})
	require.Len(t, snap.Positions, 1)
	assert.True(t, snap.Positions[0].SignedQty.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, 2, snap.Positions[0].Count)

	path := filepath.Join(t.TempDir(), "nested", "positions.json")
	require.NoError(t, WriteSnapshot(path, snap))
	loaded, err := ReadSnapshot(path)
	require.NoError(t, err)
	require.NoError(t, CompareSnapshots(snap, loaded))

	require.NoError(t, a.ApplyFill(testFill("T-3", enum.OrderSideSell, 6, 100, 2)))
	err = CompareSnapshots(snap, TakeSnapshot(11, []*Position{a, b}))
	require.Error(t, err)
}
