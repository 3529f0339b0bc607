package execution

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hftexec/internal/cache"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
	"hftexec/internal/report"
)

func fillReport(void, trade, qty, px string, ts int64) report.FillReport {
	return report.FillReport{
		AccountID:    testAcct,
		Instrument:   btc,
		VenueOrderID: model.VenueOrderID(void),
		TradeID:      model.TradeID(trade),
		Side:         enum.OrderSideBuy,
		LastQty:      dec(qty),
		LastPx:       dec(px),
		Commission:   model.ZeroMoney("USDT"),
		TsEvent:      ts,
		TsInit:       ts,
		ID:           uuid.New(),
	}
}

func openPositionsSum(c *cache.Cache) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range c.PositionsOpen(cache.PositionFilter{Instrument: btc}) {
		sum = sum.Add(p.SignedQty)
	}
	return sum
}

func TestReconcileFillReportIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "10")
	h.accepted(t, o, "V-1")

	f := fillReport("V-1", "T-1", "4", "100", h.clk.NowNs())
	assert.True(t, h.e.ReconcileReport(f))
	assert.True(t, h.e.ReconcileReport(f))

	assert.True(t, dec("4").Equal(o.FilledQty))
	assert.Len(t, h.eventsOf(order.EventKindFilled), 1)
	assert.Equal(t, []string{"reports.execution.SIM.BTCUSDT", "reports.execution.SIM.BTCUSDT"}, h.reports)
}

func TestReconcileFillReportForUnknownOrder(t *testing.T) {
	h := newHarness(t, nil)
	assert.False(t, h.e.ReconcileReport(fillReport("V-404", "T-1", "1", "100", h.clk.NowNs())))
	assert.Len(t, h.reports, 1, "published whatever the outcome")
}

func TestLeavesQtyNeverNegative(t *testing.T) {
	rpt := openReport("C-1", "V-1", enum.OrderStatusFilled, "12", 1)
	assert.True(t, rpt.LeavesQty().IsZero())

	h := newHarness(t, nil)
	o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "10")
	h.accepted(t, o, "V-1")
	h.filled(t, o, "T-1", "12", "100")
	assert.True(t, o.LeavesQty.IsZero())
	assert.Equal(t, enum.OrderStatusFilled, o.Status)
}

func TestLateFillReopensCanceledOrder(t *testing.T) {
	h := newHarness(t, nil)
	o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "10")
	h.accepted(t, o, "V-1")
	require.True(t, h.e.ReconcileReport(openReport("C-1", "V-1", enum.OrderStatusCanceled, "0", h.clk.NowNs())))
	require.False(t, h.cache.IsOrderOpen("C-1"))

	require.True(t, h.e.ReconcileReport(fillReport("V-1", "T-late", "3", "100", h.clk.NowNs())))
	assert.Equal(t, enum.OrderStatusPartiallyFilled, o.Status)
	assert.True(t, h.cache.IsOrderOpen("C-1"))
}

func TestMassStatusSkipsDuplicateClientOrderID(t *testing.T) {
	h := newHarness(t, nil)
	o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "10")
	h.accepted(t, o, "V-1")

	ts := h.clk.NowNs()
	ms := report.NewExecutionMassStatus(testClient, testAcct, testVenue, ts)
	ms.AddOrderReports(
		openReport("C-1", "V-1", enum.OrderStatusAccepted, "0", ts),
		openReport("C-1", "V-2", enum.OrderStatusCanceled, "0", ts),
	)

	assert.True(t, h.e.ReconcileMassStatus(ms))
	assert.Equal(t, enum.OrderStatusAccepted, o.Status)
	assert.Equal(t, model.VenueOrderID("V-1"), o.VenueOrderID)
	assert.Len(t, h.cache.Orders(cache.OrderFilter{}), 1)
	assert.Contains(t, h.reports, "reports.execution.SIM")
}

func TestInferredFillClosesGap(t *testing.T) {
	h := newHarness(t, nil)
	o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "100")
	h.accepted(t, o, "V-1")
	h.filled(t, o, "T-1", "10", "100")

	ts := h.clk.NowNs()
	rpt := openReport("C-1", "V-1", enum.OrderStatusFilled, "100", ts)
	rpt.Quantity = dec("100")
	rpt.AvgPx = decimal.NewNullDecimal(dec("100.4"))
	ms := report.NewExecutionMassStatus(testClient, testAcct, testVenue, ts)
	ms.AddOrderReports(rpt)
	ms.AddFillReports(fillReport("V-1", "T-2", "50", "100", ts))

	require.True(t, h.e.ReconcileMassStatus(ms))

	assert.Equal(t, enum.OrderStatusFilled, o.Status)
	assert.True(t, dec("100").Equal(o.FilledQty))

	fills := h.eventsOf(order.EventKindFilled)
	require.Len(t, fills, 3)
	supplied := fills[1].(order.Filled)
	assert.Equal(t, model.TradeID("T-2"), supplied.TradeID)

	inferred := fills[2].(order.Filled)
	assert.True(t, inferred.Reconciliation)
	assert.True(t, dec("40").Equal(inferred.LastQty))
	assert.True(t, dec("101").Equal(inferred.LastPx))
	assert.Equal(t, enum.LiquiditySideNone, inferred.LiquiditySide)
	assert.True(t, dec("4.04").Equal(inferred.Commission.Amount))
	assert.Equal(t, "USDT", inferred.Commission.Currency)
}

func TestReconcileFilledQty(t *testing.T) {
	testCases := []struct {
		desc   string
		filled string
		avgPx  string
		want   bool
	}{
		{desc: "venue below cache fails", filled: "2", avgPx: "100", want: false},
		{desc: "gap without average price fails", filled: "8"},
		{desc: "gap with average price infers", filled: "8", avgPx: "100", want: true},
		{desc: "match", filled: "5", avgPx: "100", want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			h := newHarness(t, nil)
			o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "10")
			h.accepted(t, o, "V-1")
			h.filled(t, o, "T-1", "5", "100")

			rpt := openReport("C-1", "V-1", enum.OrderStatusPartiallyFilled, tc.filled, h.clk.NowNs())
			if tc.avgPx != "" {
				rpt.AvgPx = decimal.NewNullDecimal(dec(tc.avgPx))
			}
			assert.Equal(t, tc.want, h.e.ReconcileReport(rpt))
		})
	}
}

func TestRejectedReportAppliesOneReject(t *testing.T) {
	h := newHarness(t, nil)
	o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "10")
	h.accepted(t, o, "V-1")

	rpt := openReport("C-1", "V-1", enum.OrderStatusRejected, "0", h.clk.NowNs())
	require.True(t, h.e.ReconcileReport(rpt))
	require.True(t, h.e.ReconcileReport(rpt))

	rejects := h.eventsOf(order.EventKindRejected)
	require.Len(t, rejects, 1)
	assert.Equal(t, reasonUnknown, rejects[0].(order.Rejected).Reason)
	assert.Equal(t, enum.OrderStatusRejected, o.Status)
}

func TestAcceptedReportUpdatesChangedPrice(t *testing.T) {
	h := newHarness(t, nil)
	o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "10")
	h.accepted(t, o, "V-1")

	rpt := openReport("C-1", "V-1", enum.OrderStatusAccepted, "0", h.clk.NowNs())
	rpt.Price = decimal.NewNullDecimal(dec("101"))
	require.True(t, h.e.ReconcileReport(rpt))

	assert.Len(t, h.eventsOf(order.EventKindUpdated), 1)
	assert.True(t, dec("101").Equal(o.Price.Decimal))
}

func TestCanceledReportInfersFillBeforeCancel(t *testing.T) {
	h := newHarness(t, nil)
	o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "10")
	h.accepted(t, o, "V-1")

	rpt := openReport("C-1", "V-1", enum.OrderStatusCanceled, "4", h.clk.NowNs())
	rpt.AvgPx = decimal.NewNullDecimal(dec("99.5"))
	require.True(t, h.e.ReconcileReport(rpt))

	assert.Equal(t, enum.OrderStatusCanceled, o.Status)
	assert.True(t, dec("4").Equal(o.FilledQty))
	assert.Len(t, h.eventsOf(order.EventKindFilled), 1)
}

func TestExternalOrders(t *testing.T) {
	testCases := []struct {
		desc         string
		filter       bool
		claim        model.StrategyID
		wantCached   bool
		wantStrategy model.StrategyID
	}{
		{desc: "unclaimed and filtered", filter: true},
		{desc: "unclaimed kept", wantCached: true, wantStrategy: model.ExternalStrategyID},
		{desc: "claimed", filter: true, claim: "S-CLAIM", wantCached: true, wantStrategy: "S-CLAIM"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			h := newHarness(t, func(c *Config) { c.FilterUnclaimedExternalOrders = tc.filter })
			if tc.claim != "" {
				require.NoError(t, h.e.ClaimExternalOrders(btc, tc.claim))
			}

			rpt := openReport("", "V-EXT", enum.OrderStatusAccepted, "0", h.clk.NowNs())
			require.True(t, h.e.ReconcileReport(rpt))

			orders := h.cache.Orders(cache.OrderFilter{})
			if !tc.wantCached {
				assert.Empty(t, orders)
				return
			}
			require.Len(t, orders, 1)
			o := orders[0]
			assert.True(t, strings.HasPrefix(string(o.ClientOrderID), "O-"))
			assert.Equal(t, tc.wantStrategy, o.StrategyID)
			assert.Equal(t, tc.wantStrategy == model.ExternalStrategyID, o.HasTag(model.ExternalTag))
			assert.Equal(t, enum.OrderStatusAccepted, o.Status)
			assert.Equal(t, enum.TimeInForceGTC, o.TimeInForce)
			assert.Equal(t, model.VenueOrderID("V-EXT"), o.VenueOrderID)
		})
	}
}

func TestClaimExternalOrdersConflict(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.e.ClaimExternalOrders(btc, "S-1"))
	require.NoError(t, h.e.ClaimExternalOrders(btc, "S-1"))
	require.Error(t, h.e.ClaimExternalOrders(btc, "S-2"))
	require.Error(t, h.e.ClaimExternalOrders(model.InstrumentID{}, "S-2"))
}

func TestMissingInstrumentFailsUnit(t *testing.T) {
	h := newHarness(t, nil)
	eth := model.NewInstrumentID("ETHUSDT", testVenue)
	rpt := openReport("", "V-1", enum.OrderStatusAccepted, "0", h.clk.NowNs())
	rpt.Instrument = eth
	assert.False(t, h.e.ReconcileReport(rpt))
}

func TestNettingPositionSelfHeal(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.GenerateMissingOrders = true
		c.FilterUnclaimedExternalOrders = true
	})
	for i, s := range []model.StrategyID{"S-1", "S-2", "S-3"} {
		id := string(s) + "-O"
		o := h.newOrder(t, id, s, enum.OrderSideBuy, "10")
		h.accepted(t, o, "V-"+id)
		h.filled(t, o, "T-"+string(rune('a'+i)), "10", "100")
	}
	require.True(t, dec("30").Equal(openPositionsSum(h.cache)))

	rpt := report.NewPositionReport(testAcct, btc, dec("50"), h.clk.NowNs())
	rpt.AvgPxOpen = decimal.NewNullDecimal(dec("102"))
	require.True(t, h.e.ReconcileReport(rpt))

	var diffFills []order.Filled
	for _, ev := range h.eventsOf(order.EventKindFilled) {
		if ev.Head().StrategyID == model.InternalDiffStrategyID {
			diffFills = append(diffFills, ev.(order.Filled))
		}
	}
	require.Len(t, diffFills, 1)
	assert.Equal(t, enum.OrderSideBuy, diffFills[0].Side)
	assert.True(t, dec("20").Equal(diffFills[0].LastQty))
	assert.True(t, dec("102").Equal(diffFills[0].LastPx))
	assert.True(t, dec("50").Equal(openPositionsSum(h.cache)))

	diffOrders := h.cache.Orders(cache.OrderFilter{Strategy: model.InternalDiffStrategyID})
	require.Len(t, diffOrders, 1)
	assert.Equal(t, enum.OrderTypeMarket, diffOrders[0].Type)
	assert.Equal(t, enum.TimeInForceDAY, diffOrders[0].TimeInForce)
	assert.Equal(t, enum.OrderStatusFilled, diffOrders[0].Status)
}

func TestNettingPositionMismatch(t *testing.T) {
	testCases := []struct {
		desc     string
		generate bool
		venue    string
		want     bool
	}{
		{desc: "match", venue: "10", want: true},
		{desc: "mismatch without generation", venue: "12", want: false},
		{desc: "difference rounds to zero", generate: true, venue: "10.0001", want: true},
		{desc: "venue flat", generate: true, venue: "0", want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			h := newHarness(t, func(c *Config) { c.GenerateMissingOrders = tc.generate })
			o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "10")
			h.accepted(t, o, "V-1")
			h.filled(t, o, "T-1", "10", "100")

			rpt := report.NewPositionReport(testAcct, btc, dec(tc.venue), h.clk.NowNs())
			assert.Equal(t, tc.want, h.e.ReconcileReport(rpt))
		})
	}
}

func TestHedgedPositionMismatch(t *testing.T) {
	h := newHarness(t, nil)
	o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "100")
	h.accepted(t, o, "V-1")
	ts := h.clk.NowNs()
	h.apply(t, order.Filled{
		EventHeader: order.NewHeader(o, ts, ts),
		TradeID:     "T-1",
		PositionID:  "P-1",
		Side:        enum.OrderSideBuy,
		LastQty:     dec("100"),
		LastPx:      dec("100"),
	})

	rpt := report.NewPositionReport(testAcct, btc, dec("80"), ts)
	rpt.VenuePositionID = "P-1"
	assert.False(t, h.e.ReconcileReport(rpt))

	p, ok := h.cache.Position("P-1")
	require.True(t, ok)
	assert.True(t, dec("100").Equal(p.SignedQty))
	assert.Len(t, h.eventsOf(order.EventKindFilled), 1)
}

func TestMassStatusPositionReportsCanBeFiltered(t *testing.T) {
	testCases := []struct {
		desc   string
		filter bool
		want   bool
	}{
		{desc: "reconciled", want: false},
		{desc: "filtered", filter: true, want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			h := newHarness(t, func(c *Config) { c.FilterPositionReports = tc.filter })
			ms := report.NewExecutionMassStatus(testClient, testAcct, testVenue, h.clk.NowNs())
			ms.AddPositionReports(report.NewPositionReport(testAcct, btc, dec("5"), h.clk.NowNs()))
			assert.Equal(t, tc.want, h.e.ReconcileMassStatus(ms))
		})
	}
}

func TestReconcileNilMassStatus(t *testing.T) {
	h := newHarness(t, nil)
	assert.False(t, h.e.ReconcileMassStatus(nil))
}

func TestHedgedPositionMissingLocally(t *testing.T) {
	testCases := []struct {
		desc string
		qty  string
	}{
		{desc: "flat", qty: "0"},
		{desc: "long", qty: "3"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			out := captureLogs(t)
			h := newHarness(t, nil)
			rpt := report.NewPositionReport(testAcct, btc, dec(tc.qty), h.clk.NowNs())
			rpt.VenuePositionID = "P-404"

			assert.False(t, h.e.ReconcileReport(rpt))
			assert.Contains(t, out.String(), "level=ERROR")
			assert.Contains(t, out.String(), "P-404")
		})
	}
}

func TestTriggeredReport(t *testing.T) {
	testCases := []struct {
		desc         string
		prepare      func(t *testing.T, h *harness, o *order.Order)
		wantAccepted int
		wantTrigger  int
	}{
		{
			desc:         "accepted order triggers",
			prepare:      func(t *testing.T, h *harness, o *order.Order) { h.accepted(t, o, "V-1") },
			wantAccepted: 1,
			wantTrigger:  1,
		},
		{
			desc: "already triggered is a no-op",
			prepare: func(t *testing.T, h *harness, o *order.Order) {
				h.accepted(t, o, "V-1")
				ts := h.clk.NowNs()
				h.apply(t, order.Triggered{EventHeader: order.NewHeader(o, ts, ts)})
			},
			wantAccepted: 1,
			wantTrigger:  1,
		},
		{
			desc:         "submitted order is accepted first",
			prepare:      func(t *testing.T, h *harness, o *order.Order) { h.submitted(t, o) },
			wantAccepted: 1,
			wantTrigger:  1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			h := newHarness(t, nil)
			o := h.newTypedOrder(t, "C-1", enum.OrderTypeStopLimit, false)
			tc.prepare(t, h, o)

			h.clk.Advance(time.Second)
			ts := h.clk.NowNs()
			rpt := typedReport("C-1", "V-1", enum.OrderTypeStopLimit, enum.OrderStatusTriggered, "0", ts)
			rpt.TsTriggered = ts
			require.True(t, h.e.ReconcileReport(rpt))

			assert.Equal(t, enum.OrderStatusTriggered, o.Status)
			assert.Len(t, h.eventsOf(order.EventKindAccepted), tc.wantAccepted)
			assert.Len(t, h.eventsOf(order.EventKindTriggered), tc.wantTrigger)
			assert.NotZero(t, o.TsTriggered)
		})
	}
}

func TestClosedReportReplaysPendingTrigger(t *testing.T) {
	testCases := []struct {
		desc        string
		status      enum.OrderStatus
		triggered   bool
		wantKind    order.EventKind
		wantTrigger int
	}{
		{desc: "canceled after trigger", status: enum.OrderStatusCanceled, triggered: true, wantKind: order.EventKindCanceled, wantTrigger: 1},
		{desc: "expired after trigger", status: enum.OrderStatusExpired, triggered: true, wantKind: order.EventKindExpired, wantTrigger: 1},
		{desc: "expired untriggered", status: enum.OrderStatusExpired, wantKind: order.EventKindExpired},
		{desc: "canceled untriggered", status: enum.OrderStatusCanceled, wantKind: order.EventKindCanceled},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			h := newHarness(t, nil)
			o := h.newTypedOrder(t, "C-1", enum.OrderTypeStopLimit, false)
			h.accepted(t, o, "V-1")

			h.clk.Advance(time.Second)
			ts := h.clk.NowNs()
			rpt := typedReport("C-1", "V-1", enum.OrderTypeStopLimit, tc.status, "0", ts)
			if tc.triggered {
				rpt.TsTriggered = ts - 1
			}
			require.True(t, h.e.ReconcileReport(rpt))

			assert.Equal(t, tc.status, o.Status)
			assert.Len(t, h.eventsOf(order.EventKindTriggered), tc.wantTrigger)
			assert.Len(t, h.eventsOf(tc.wantKind), 1)
			if tc.triggered {
				assert.Equal(t, ts-1, o.TsTriggered)
				events := o.Events()
				assert.Equal(t, order.EventKindTriggered, events[len(events)-2].Kind())
				assert.Equal(t, tc.wantKind, events[len(events)-1].Kind())
			}

			require.True(t, h.e.ReconcileReport(rpt))
			assert.Len(t, h.eventsOf(tc.wantKind), 1, "closed order is left alone")
		})
	}
}

func TestCanceledReportWithBadFillStillCloses(t *testing.T) {
	out := captureLogs(t)
	h := newHarness(t, nil)
	o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "10")
	h.accepted(t, o, "V-1")

	ts := h.clk.NowNs()
	ms := report.NewExecutionMassStatus(testClient, testAcct, testVenue, ts)
	ms.AddOrderReports(openReport("C-1", "V-1", enum.OrderStatusCanceled, "0", ts))
	ms.AddFillReports(fillReport("V-1", "T-0", "0", "100", ts))

	assert.True(t, h.e.ReconcileMassStatus(ms))
	assert.Equal(t, enum.OrderStatusCanceled, o.Status)
	assert.Empty(t, h.eventsOf(order.EventKindFilled))
	assert.Contains(t, out.String(), "unapplied fills")
}

func TestOutOfOrderFillIsAppliedWithWarning(t *testing.T) {
	out := captureLogs(t)
	h := newHarness(t, nil)
	o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "10")
	early := h.clk.NowNs()
	h.clk.Advance(time.Minute)
	h.accepted(t, o, "V-1")
	h.filled(t, o, "T-2", "3", "100")

	require.True(t, h.e.ReconcileReport(fillReport("V-1", "T-1", "2", "100", early)))

	assert.True(t, dec("5").Equal(o.FilledQty))
	assert.True(t, o.HasTradeID("T-1"))
	assert.Greater(t, o.TsLast, early)
	assert.Contains(t, out.String(), "level=WARN")
	assert.Contains(t, out.String(), "older than")
}

func TestNonAcceptedReportAcceptsPendingOrder(t *testing.T) {
	testCases := []struct {
		desc       string
		submit     bool
		status     enum.OrderStatus
		filled     string
		wantStatus enum.OrderStatus
	}{
		{desc: "initialized partially filled", status: enum.OrderStatusPartiallyFilled, filled: "4", wantStatus: enum.OrderStatusPartiallyFilled},
		{desc: "submitted partially filled", submit: true, status: enum.OrderStatusPartiallyFilled, filled: "4", wantStatus: enum.OrderStatusPartiallyFilled},
		{desc: "submitted filled", submit: true, status: enum.OrderStatusFilled, filled: "10", wantStatus: enum.OrderStatusFilled},
		{desc: "initialized canceled", status: enum.OrderStatusCanceled, filled: "0", wantStatus: enum.OrderStatusCanceled},
		{desc: "submitted expired", submit: true, status: enum.OrderStatusExpired, filled: "0", wantStatus: enum.OrderStatusExpired},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			h := newHarness(t, nil)
			o := h.newOrder(t, "C-1", "S-001", enum.OrderSideBuy, "10")
			if tc.submit {
				h.submitted(t, o)
			}

			rpt := openReport("C-1", "V-1", tc.status, tc.filled, h.clk.NowNs())
			rpt.AvgPx = decimal.NewNullDecimal(dec("100"))
			require.True(t, h.e.ReconcileReport(rpt))

			accepts := h.eventsOf(order.EventKindAccepted)
			require.Len(t, accepts, 1)
			assert.True(t, accepts[0].Head().Reconciliation)
			assert.Equal(t, tc.wantStatus, o.Status)
			assert.Equal(t, model.VenueOrderID("V-1"), o.VenueOrderID)
			assert.True(t, dec(tc.filled).Equal(o.FilledQty))
		})
	}
}
