package chaos

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hftexec/internal/bus"
	"hftexec/internal/cache"
	"hftexec/internal/command"
	"hftexec/internal/execution"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
	"hftexec/internal/report"
	"hftexec/internal/venue/paper"
	"hftexec/pkg/exception"
)

type recorder struct {
	mu      sync.Mutex
	ids     []model.ClientOrderID
	reports int
}

func (r *recorder) Process(ev order.Event) {
	r.mu.Lock()
	r.ids = append(r.ids, ev.Head().ClientOrderID)
	r.mu.Unlock()
}

func (r *recorder) ReconcileReport(report.ExecutionReport) bool {
	r.mu.Lock()
	r.reports++
	r.mu.Unlock()
	return true
}

func accepted(id string) order.Event {
	return order.Accepted{EventHeader: order.EventHeader{ClientOrderID: model.ClientOrderID(id)}}
}

func feed(w *Wrapper, ids ...string) {
	for _, id := range ids {
		w.Process(accepted(id))
	}
}

func TestWrapRejectsBadConfig(t *testing.T) {
	testCases := []struct {
		desc string
		cfg  Config
	}{
		{desc: "drop above one", cfg: Config{DropRate: 1.5}},
		{desc: "negative duplicate", cfg: Config{DuplicateRate: -0.1}},
		{desc: "negative window", cfg: Config{ReorderWindow: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Wrap(&recorder{}, tc.cfg)
			assert.ErrorIs(t, err, exception.ErrInvalidArgument)
		})
	}

	_, err := Wrap(nil, Config{})
	assert.ErrorIs(t, err, exception.ErrNilInstance)
}

func TestPassThrough(t *testing.T) {
	rec := &recorder{}
	w, err := Wrap(rec, Config{Seed: 1})
	require.NoError(t, err)

	feed(w, "A", "B", "C")
	assert.True(t, w.ReconcileReport(report.OrderStatusReport{}))

	assert.Equal(t, []model.ClientOrderID{"A", "B", "C"}, rec.ids)
	assert.Equal(t, 1, rec.reports)
	assert.Equal(t, Stats{Seen: 3, Delivered: 3}, w.Stats())
}

func TestDropAndDuplicate(t *testing.T) {
	testCases := []struct {
		desc string
		cfg  Config
		want Stats
		n    int
	}{
		{
			desc: "drop everything",
			cfg:  Config{Seed: 7, DropRate: 1},
			want: Stats{Seen: 4, Dropped: 4},
		},
		{
			desc: "duplicate everything",
			cfg:  Config{Seed: 7, DuplicateRate: 1},
			want: Stats{Seen: 4, Duplicated: 4, Delivered: 8},
			n:    8,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			rec := &recorder{}
			w, err := Wrap(rec, tc.cfg)
			require.NoError(t, err)

			feed(w, "A", "B", "C", "D")
			assert.Len(t, rec.ids, tc.n)
			assert.Equal(t, tc.want, w.Stats())
		})
	}
}

func TestReorderWindow(t *testing.T) {
	rec := &recorder{}
	w, err := Wrap(rec, Config{Seed: 42, ReorderWindow: 3})
	require.NoError(t, err)

	feed(w, "A", "B")
	assert.Empty(t, rec.ids)
	assert.Equal(t, 2, w.Pending())

	feed(w, "C", "D", "E")
	assert.Len(t, rec.ids, 3)
	assert.Equal(t, 2, w.Pending())

	w.Flush()
	assert.Zero(t, w.Pending())
	assert.ElementsMatch(t, []model.ClientOrderID{"A", "B", "C", "D", "E"}, rec.ids)
}

func TestSameSeedSameOrder(t *testing.T) {
	run := func() []model.ClientOrderID {
		rec := &recorder{}
		w, err := Wrap(rec, Config{Seed: 99, ReorderWindow: 4, DuplicateRate: 0.5})
		require.NoError(t, err)
		feed(w, "A", "B", "C", "D", "E", "F", "G", "H")
		w.Flush()
		return rec.ids
	}
	assert.Equal(t, run(), run())
}

func TestEngineToleratesDuplicatedVenueEvents(t *testing.T) {
	btc := model.NewInstrumentID("BTCUSDT", "SIM")
	inst := model.Instrument{
		ID:             btc,
		PricePrecision: 2,
		SizePrecision:  3,
		MakerFee:       decimal.RequireFromString("0.0005"),
		TakerFee:       decimal.RequireFromString("0.001"),
		BaseCurrency:   "BTC",
		QuoteCurrency:  "USDT",
	}
	c := cache.New(nil)
	c.AddInstrument(inst)
	e, err := execution.New(execution.DefaultConfig(), c, bus.NewMessageBus())
	require.NoError(t, err)

	w, err := Wrap(e, Config{Seed: 3, DuplicateRate: 1})
	require.NoError(t, err)
	client, err := paper.New(paper.Config{ID: "SIM-1", Venue: "SIM", Account: "SIM-001", FillOnSubmit: true}, w,
		paper.WithInstruments(inst))
	require.NoError(t, err)
	require.NoError(t, e.RegisterClient(client))
	require.NoError(t, e.Start(t.Context()))

	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC).UnixNano()
	o := order.New(order.Initialized{
		EventHeader: order.EventHeader{
			TraderID:      "TRADER-001",
			StrategyID:    "S-001",
			InstrumentID:  btc,
			ClientOrderID: "C-1",
			TsEvent:       ts,
			TsInit:        ts,
		},
		Side:        enum.OrderSideBuy,
		Type:        enum.OrderTypeLimit,
		Quantity:    decimal.RequireFromString("2"),
		TimeInForce: enum.TimeInForceGTC,
		Price:       decimal.NewNullDecimal(decimal.RequireFromString("100")),
	})
	e.Execute(command.SubmitOrder{
		Header: command.NewHeader(o.TraderID, o.StrategyID, o.InstrumentID, o.TsInit),
		Order:  o,
	})

	assert.Eventually(t, func() bool {
		return len(c.OrdersClosed(cache.OrderFilter{})) == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, e.Stop(t.Context()))

	assert.Equal(t, uint64(3), w.Stats().Duplicated)
	filled, ok := c.Order("C-1")
	require.True(t, ok)
	assert.Equal(t, enum.OrderStatusFilled, filled.Status)
	assert.Len(t, filled.TradeIDs, 1)
	open := c.PositionsOpen(cache.PositionFilter{Instrument: btc})
	require.Len(t, open, 1)
	assert.True(t, decimal.RequireFromString("2").Equal(open[0].SignedQty))
}
