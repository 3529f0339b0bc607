package report

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/pkg/exception"
)

var instrumentID = model.NewInstrumentID("BTCUSDT", "SIM")

func orderReport(venueID string, qty, filled int64) OrderStatusReport {
	return OrderStatusReport{
		AccountID:    "SIM-001",
		Instrument:   instrumentID,
		VenueOrderID: model.VenueOrderID(venueID),
		Side:         enum.OrderSideBuy,
		Type:         enum.OrderTypeLimit,
		TimeInForce:  enum.TimeInForceGTC,
		Status:       enum.OrderStatusAccepted,
		Price:        decimal.NewNullDecimal(decimal.NewFromInt(100)),
		Quantity:     decimal.NewFromInt(qty),
		FilledQty:    decimal.NewFromInt(filled),
	}
}

func TestLeavesQtyNeverNegative(t *testing.T) {
	testCases := []struct {
		desc   string
		qty    int64
		filled int64
		want   int64
	}{
		{desc: "unfilled", qty: 100, filled: 0, want: 100},
		{desc: "partial", qty: 100, filled: 40, want: 60},
		{desc: "filled", qty: 100, filled: 100, want: 0},
		{desc: "overfilled", qty: 100, filled: 130, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			r := orderReport("V-1", tc.qty, tc.filled)
			assert.True(t, r.LeavesQty().Equal(decimal.NewFromInt(tc.want)), r.LeavesQty().String())
			assert.False(t, r.LeavesQty().IsNegative())
		})
	}
}

func TestOrderStatusReportValidate(t *testing.T) {
	testCases := []struct {
		desc   string
		modify func(r *OrderStatusReport)
		err    error
	}{
		{desc: "valid", modify: func(r *OrderStatusReport) {}},
		{desc: "zero quantity", modify: func(r *OrderStatusReport) { r.Quantity = decimal.Zero }, err: exception.ErrInvalidQuantity},
		{desc: "negative filled", modify: func(r *OrderStatusReport) { r.FilledQty = decimal.NewFromInt(-1) }, err: exception.ErrInvalidFilledQty},
		{desc: "trigger without type", modify: func(r *OrderStatusReport) {
			r.TriggerPrice = decimal.NewNullDecimal(decimal.NewFromInt(90))
		}, err: exception.ErrMissingTriggerType},
		{desc: "trigger with none type", modify: func(r *OrderStatusReport) {
			r.TriggerPrice = decimal.NewNullDecimal(decimal.NewFromInt(90))
			r.TriggerType = enum.TriggerTypeNone
		}, err: exception.ErrMissingTriggerType},
		{desc: "trigger with type", modify: func(r *OrderStatusReport) {
			r.TriggerPrice = decimal.NewNullDecimal(decimal.NewFromInt(90))
			r.TriggerType = enum.TriggerTypeLastTrade
		}},
		{desc: "offset without type", modify: func(r *OrderStatusReport) {
			r.TrailingOffset = decimal.NewNullDecimal(decimal.NewFromInt(5))
		}, err: exception.ErrMissingOffsetType},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			r := orderReport("V-1", 10, 0)
			tc.modify(&r)
			err := r.Validate()
			if tc.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestFlatPositionReport(t *testing.T) {
	r := NewFlatPositionReport("SIM-001", instrumentID, 5)
	assert.True(t, r.IsFlat())
	assert.Equal(t, enum.PositionSideFlat, r.Side)
	assert.True(t, r.Quantity.IsZero())

	short := NewPositionReport("SIM-001", instrumentID, decimal.NewFromInt(-3), 5)
	assert.Equal(t, enum.PositionSideShort, short.Side)
	assert.True(t, short.Quantity.Equal(decimal.NewFromInt(3)))
}

func TestMassStatusKeepsInsertionOrder(t *testing.T) {
	ms := NewExecutionMassStatus("SIM", "SIM-001", "SIM", 1)
	ms.AddOrderReports(orderReport("V-3", 1, 0), orderReport("V-1", 1, 0))
	ms.AddOrderReports(orderReport("V-2", 1, 0), orderReport("V-3", 5, 0))
	ms.AddFillReports(FillReport{VenueOrderID: "V-1", TradeID: "T-1", LastQty: decimal.NewFromInt(1)})
	ms.AddFillReports(FillReport{VenueOrderID: "V-1", TradeID: "T-2", LastQty: decimal.NewFromInt(1)})
	ms.AddPositionReports(NewFlatPositionReport("SIM-001", instrumentID, 1))

	reports := ms.OrderReports()
	require.Len(t, reports, 3)
	assert.Equal(t, model.VenueOrderID("V-3"), reports[0].VenueOrderID)
	assert.True(t, reports[0].Quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, model.VenueOrderID("V-1"), reports[1].VenueOrderID)
	assert.Equal(t, model.VenueOrderID("V-2"), reports[2].VenueOrderID)

	fills := ms.FillReports("V-1")
	require.Len(t, fills, 2)
	assert.Equal(t, model.TradeID("T-1"), fills[0].TradeID)
	assert.Len(t, ms.PositionReports()[instrumentID], 1)
}

func TestMassStatusJSON(t *testing.T) {
	ms := NewExecutionMassStatus("SIM", "SIM-001", "SIM", 1)
	ms.AddOrderReports(orderReport("V-2", 1, 0), orderReport("V-1", 2, 1))
	ms.AddFillReports(FillReport{VenueOrderID: "V-1", TradeID: "T-1", LastQty: decimal.NewFromInt(1)})
	ms.AddPositionReports(NewPositionReport("SIM-001", instrumentID, decimal.NewFromInt(1), 1))

	data, err := json.Marshal(ms)
	require.NoError(t, err)

	var back ExecutionMassStatus
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ms.ID, back.ID)
	reports := back.OrderReports()
	require.Len(t, reports, 2)
	assert.Equal(t, model.VenueOrderID("V-2"), reports[0].VenueOrderID)
	assert.Len(t, back.FillReports("V-1"), 1)
	assert.Len(t, back.PositionReports()[instrumentID], 1)
}
