package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
	"hftexec/internal/state"
	"hftexec/pkg/exception"
)

var instrumentID = model.NewInstrumentID("BTCUSDT", "SIM")

func newOrder(id string, ts int64) *order.Order {
	return order.New(order.Initialized{
		EventHeader: order.EventHeader{
			StrategyID:    "S-001",
			InstrumentID:  instrumentID,
			ClientOrderID: model.ClientOrderID(id),
			TsEvent:       ts,
			TsInit:        ts,
		},
		Side:        enum.OrderSideBuy,
		Type:        enum.OrderTypeLimit,
		Quantity:    decimal.NewFromInt(10),
		TimeInForce: enum.TimeInForceGTC,
	})
}

func apply(t *testing.T, c *Cache, o *order.Order, e order.Event) {
	t.Helper()
	require.NoError(t, o.Apply(e))
	require.NoError(t, c.UpdateOrder(o))
}

func accepted(o *order.Order, venueID string, ts int64) order.Accepted {
	h := order.NewHeader(o, ts, ts)
	h.VenueOrderID = model.VenueOrderID(venueID)
	return order.Accepted{EventHeader: h}
}

func filled(o *order.Order, trade string, qty int64, ts int64) order.Filled {
	return order.Filled{
		EventHeader: order.NewHeader(o, ts, ts),
		TradeID:     model.TradeID(trade),
		Side:        o.Side,
		LastQty:     decimal.NewFromInt(qty),
		LastPx:      decimal.NewFromInt(100),
	}
}

func TestCacheOrderIndexes(t *testing.T) {
	c := New(nil)
	o := newOrder("O-1", 1)
	require.NoError(t, c.AddOrder(o, "P-1"))
	require.ErrorIs(t, c.AddOrder(o, ""), exception.ErrCacheOrderExists)

	apply(t, c, o, order.Submitted{EventHeader: order.NewHeader(o, 2, 2)})
	assert.Len(t, c.OrdersInflight(OrderFilter{}), 1)
	assert.Empty(t, c.OrdersOpen(OrderFilter{}))

	apply(t, c, o, accepted(o, "V-1", 3))
	assert.Empty(t, c.OrdersInflight(OrderFilter{}))
	assert.Len(t, c.OrdersOpen(OrderFilter{Instrument: instrumentID}), 1)
	assert.Empty(t, c.OrdersOpen(OrderFilter{Venue: "OTHER"}))

	coid, ok := c.ClientOrderID("V-1")
	require.True(t, ok)
	assert.Equal(t, model.ClientOrderID("O-1"), coid)
	pid, ok := c.PositionIDForOrder("O-1")
	require.True(t, ok)
	assert.Equal(t, model.PositionID("P-1"), pid)

	apply(t, c, o, order.Canceled{EventHeader: order.NewHeader(o, 4, 4)})
	assert.Len(t, c.OrdersClosed(OrderFilter{}), 1)
	assert.False(t, c.IsOrderOpen("O-1"))

	// late fill after cancel reopens the order
	apply(t, c, o, filled(o, "T-1", 4, 5))
	assert.True(t, c.IsOrderOpen("O-1"))
	assert.Empty(t, c.OrdersClosed(OrderFilter{}))
}

func TestCacheOrdersKeepInsertionOrder(t *testing.T) {
	c := New(nil)
	for _, id := range []string{"O-3", "O-1", "O-2"} {
		require.NoError(t, c.AddOrder(newOrder(id, 1), ""))
	}
	orders := c.Orders(OrderFilter{})
	require.Len(t, orders, 3)
	assert.Equal(t, model.ClientOrderID("O-3"), orders[0].ClientOrderID)
	assert.Equal(t, model.ClientOrderID("O-2"), orders[2].ClientOrderID)
}

func TestCachePurgeClosedOrders(t *testing.T) {
	c := New(nil)
	base := time.Unix(1_700_000_000, 0)
	o := newOrder("O-1", base.UnixNano())
	require.NoError(t, c.AddOrder(o, ""))
	apply(t, c, o, accepted(o, "V-1", base.UnixNano()))
	apply(t, c, o, order.Canceled{EventHeader: order.NewHeader(o, base.UnixNano(), base.UnixNano())})

	open := newOrder("O-2", base.UnixNano())
	require.NoError(t, c.AddOrder(open, ""))
	apply(t, c, open, accepted(open, "V-2", base.UnixNano()))

	testCases := []struct {
		desc   string
		now    time.Time
		buffer time.Duration
		want   int
	}{
		{desc: "inside buffer", now: base.Add(time.Minute), buffer: 2 * time.Minute, want: 0},
		{desc: "exactly at buffer", now: base.Add(2 * time.Minute), buffer: 2 * time.Minute, want: 1},
		{desc: "already purged", now: base.Add(time.Hour), buffer: 0, want: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, c.PurgeClosedOrders(tc.now, tc.buffer))
		})
	}

	_, ok := c.ClientOrderID("V-1")
	assert.False(t, ok)
	assert.True(t, c.OrderExists("O-2"))
}

func TestCachePositions(t *testing.T) {
	c := New(nil)
	o := newOrder("O-1", 1)
	p, err := state.NewPosition("P-1", filled(o, "T-1", 5, 1))
	require.NoError(t, err)
	require.NoError(t, c.AddPosition(p))
	require.ErrorIs(t, c.AddPosition(p), exception.ErrCachePositionExists)
	assert.Len(t, c.PositionsOpen(PositionFilter{Instrument: instrumentID}), 1)

	closing := filled(o, "T-2", 5, 2)
	closing.Side = enum.OrderSideSell
	require.NoError(t, p.ApplyFill(closing))
	c.UpdatePosition(p)
	assert.Empty(t, c.PositionsOpen(PositionFilter{}))
	assert.Len(t, c.PositionsClosed(PositionFilter{}), 1)

	assert.Equal(t, 0, c.PurgeClosedPositions(time.Unix(0, 1), 0))
	assert.Equal(t, 1, c.PurgeClosedPositions(time.Unix(0, 2), 0))
	_, ok := c.Position("P-1")
	assert.False(t, ok)
}

func TestCachePurgeAccountEventsKeepsLatest(t *testing.T) {
	c := New(nil)
	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < 3; i++ {
		c.AddAccountState(model.AccountState{AccountID: "SIM-001", TsEvent: base.Add(time.Duration(i) * time.Minute).UnixNano()})
	}

	assert.Equal(t, 1, c.PurgeAccountEvents(base.Add(2*time.Minute), 90*time.Second))
	assert.Len(t, c.AccountStates("SIM-001"), 2)

	assert.Equal(t, 1, c.PurgeAccountEvents(base.Add(time.Hour), time.Minute))
	states := c.AccountStates("SIM-001")
	require.Len(t, states, 1)
	latest, ok := c.LatestAccountState("SIM-001")
	require.True(t, ok)
	assert.Equal(t, states[0], latest)
	assert.Equal(t, base.Add(2*time.Minute).UnixNano(), latest.TsEvent)
}

func TestCacheFlushAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(NewFileStore(path))
	c.AddInstrument(model.Instrument{ID: instrumentID, SizePrecision: 3, QuoteCurrency: "USDT"})
	require.NoError(t, c.SaveInstruments(t.Context()))

	o := newOrder("O-1", 1)
	require.NoError(t, c.AddOrder(o, ""))
	apply(t, c, o, accepted(o, "V-1", 2))
	apply(t, c, o, filled(o, "T-1", 3, 3))
	c.AddAccountState(model.AccountState{AccountID: "SIM-001", TsEvent: 3})
	require.NoError(t, c.Flush(t.Context()))
	assert.True(t, c.TakeDirty().IsEmpty())

	restored := New(NewFileStore(path))
	require.NoError(t, restored.Load(t.Context()))
	got, ok := restored.Order("O-1")
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusPartiallyFilled, got.Status)
	assert.True(t, got.HasTradeID("T-1"))
	assert.True(t, restored.IsOrderOpen("O-1"))
	_, ok = restored.Instrument(instrumentID)
	assert.True(t, ok)
	assert.Len(t, restored.AccountStates("SIM-001"), 1)
}

type failingStore struct {
	*FileStore
	err error
}

func (s *failingStore) SaveOrders(context.Context, []*order.Order) error { return s.err }

func TestCacheFlushRequeuesOnFailure(t *testing.T) {
	store := &failingStore{FileStore: NewFileStore(filepath.Join(t.TempDir(), "c.json")), err: errors.New("disk full")}
	c := New(store)
	require.NoError(t, c.AddOrder(newOrder("O-1", 1), ""))

	require.Error(t, c.Flush(t.Context()))
	d := c.TakeDirty()
	require.Len(t, d.Orders, 1)
	assert.Equal(t, model.ClientOrderID("O-1"), d.Orders[0].ClientOrderID)
}
