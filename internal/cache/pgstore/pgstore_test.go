package pgstore

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"hftexec/internal/cache"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
	"hftexec/pkg/conn"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(conn.Option{Dialector: sqlite.Open(":memory:"), MaxConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	c := cache.New(s)
	id := model.NewInstrumentID("ETHUSDT", "SIM")
	c.AddInstrument(model.Instrument{ID: id, SizePrecision: 3, PricePrecision: 2, QuoteCurrency: "USDT"})
	require.NoError(t, c.SaveInstruments(t.Context()))

	o := order.New(order.Initialized{
		EventHeader: order.EventHeader{StrategyID: "S-001", InstrumentID: id, ClientOrderID: "O-1", TsEvent: 1, TsInit: 1},
		Side:        enum.OrderSideSell,
		Type:        enum.OrderTypeMarket,
		Quantity:    decimal.NewFromInt(2),
		TimeInForce: enum.TimeInForceIOC,
	})
	require.NoError(t, c.AddOrder(o, ""))
	require.NoError(t, c.Flush(t.Context()))

	h := order.NewHeader(o, 2, 2)
	h.VenueOrderID = "V-9"
	require.NoError(t, o.Apply(order.Accepted{EventHeader: h}))
	require.NoError(t, c.UpdateOrder(o))
	c.AddAccountState(model.AccountState{AccountID: "SIM-001", TsEvent: 2})
	c.AddAccountState(model.AccountState{AccountID: "SIM-001", TsEvent: 3})
	require.NoError(t, c.Flush(t.Context()))

	snap, err := s.Load(t.Context())
	require.NoError(t, err)
	require.Len(t, snap.Instruments, 1)
	assert.Equal(t, id, snap.Instruments[0].ID)
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, enum.OrderStatusAccepted, snap.Orders[0].Status)
	assert.Equal(t, model.VenueOrderID("V-9"), snap.Orders[0].VenueOrderID)
	require.Len(t, snap.AccountStates, 2)
	assert.Equal(t, int64(3), snap.AccountStates[1].TsEvent)

	restored := cache.New(s)
	require.NoError(t, restored.Load(t.Context()))
	coid, ok := restored.ClientOrderID("V-9")
	require.True(t, ok)
	assert.Equal(t, model.ClientOrderID("O-1"), coid)
}

func TestNewNilDB(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
