package state

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
)

var instrumentID = model.NewInstrumentID("ETHUSDT", "SIM")

func testFill(trade string, side enum.OrderSide, qty, px int64, ts int64) order.Filled {
	return order.Filled{
		EventHeader: order.EventHeader{
			StrategyID:    "S-001",
			InstrumentID:  instrumentID,
			ClientOrderID: model.ClientOrderID("O-" + trade),
			TsEvent:       ts,
		},
		TradeID: model.TradeID(trade),
		Side:    side,
		LastQty: decimal.NewFromInt(qty),
		LastPx:  decimal.NewFromInt(px),
	}
}

func TestPositionApplyFill(t *testing.T) {
	p, err := NewPosition("P-1", testFill("T-1", enum.OrderSideBuy, 10, 100, 1))
	require.NoError(t, err)
	assert.Equal(t, enum.PositionSideLong, p.Side)
	assert.True(t, p.IsOpen())

	require.NoError(t, p.ApplyFill(testFill("T-2", enum.OrderSideBuy, 10, 200, 2)))
	assert.True(t, p.AvgPxOpen.Equal(decimal.NewFromInt(150)))
	assert.True(t, p.SignedQty.Equal(decimal.NewFromInt(20)))

	require.NoError(t, p.ApplyFill(testFill("T-3", enum.OrderSideSell, 5, 300, 3)))
	assert.True(t, p.AvgPxOpen.Equal(decimal.NewFromInt(150)))
	assert.True(t, p.Quantity.Equal(decimal.NewFromInt(15)))

	require.NoError(t, p.ApplyFill(testFill("T-4", enum.OrderSideSell, 15, 300, 4)))
	assert.True(t, p.IsClosed())
	assert.Equal(t, enum.PositionSideFlat, p.Side)
	assert.Equal(t, int64(4), p.TsClosed)
	assert.True(t, p.PeakQty.Equal(decimal.NewFromInt(20)))

	require.NoError(t, p.ApplyFill(testFill("T-5", enum.OrderSideSell, 3, 250, 5)))
	assert.Equal(t, enum.PositionSideShort, p.Side)
	assert.True(t, p.AvgPxOpen.Equal(decimal.NewFromInt(250)))
	assert.Zero(t, p.TsClosed)
}

func TestPositionRejectsFlipAndDuplicates(t *testing.T) {
	p, err := NewPosition("P-1", testFill("T-1", enum.OrderSideBuy, 10, 100, 1))
	require.NoError(t, err)

	assert.True(t, p.WouldFlip(enum.OrderSideSell, decimal.NewFromInt(11)))
	assert.False(t, p.WouldFlip(enum.OrderSideSell, decimal.NewFromInt(10)))
	require.ErrorIs(t, p.ApplyFill(testFill("T-2", enum.OrderSideSell, 11, 100, 2)), ErrPositionFlip)
	require.Error(t, p.ApplyFill(testFill("T-1", enum.OrderSideBuy, 1, 100, 2)))
	assert.True(t, p.SignedQty.Equal(decimal.NewFromInt(10)))
}
