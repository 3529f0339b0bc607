package execution

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
	"hftexec/internal/report"
)

const reasonUnknown = "UNKNOWN"

// reportHeader stamps an event for o from a venue report.
func (e *Engine) reportHeader(o *order.Order, rpt report.OrderStatusReport, tsEvent int64) order.EventHeader {
	h := order.NewHeader(o, tsEvent, e.clock.NowNs())
	if rpt.VenueOrderID != "" {
		h.VenueOrderID = rpt.VenueOrderID
	}
	if rpt.AccountID != "" {
		h.AccountID = rpt.AccountID
	}
	h.Reconciliation = true
	return h
}

func (e *Engine) genAccepted(o *order.Order, rpt report.OrderStatusReport) order.Accepted {
	ts := rpt.TsAccepted
	if ts == 0 {
		ts = rpt.TsLast
	}
	return order.Accepted{EventHeader: e.reportHeader(o, rpt, ts)}
}

func (e *Engine) genRejected(o *order.Order, rpt report.OrderStatusReport) order.Rejected {
	reason := rpt.CancelReason
	if reason == "" {
		reason = reasonUnknown
	}
	return order.Rejected{EventHeader: e.reportHeader(o, rpt, rpt.TsLast), Reason: reason}
}

func (e *Engine) genTriggered(o *order.Order, rpt report.OrderStatusReport) order.Triggered {
	ts := rpt.TsTriggered
	if ts == 0 {
		ts = rpt.TsLast
	}
	return order.Triggered{EventHeader: e.reportHeader(o, rpt, ts)}
}

func (e *Engine) genUpdated(o *order.Order, rpt report.OrderStatusReport) order.Updated {
	return order.Updated{
		EventHeader:  e.reportHeader(o, rpt, rpt.TsLast),
		Quantity:     rpt.Quantity,
		Price:        rpt.Price,
		TriggerPrice: rpt.TriggerPrice,
	}
}

func (e *Engine) genClosed(o *order.Order, rpt report.OrderStatusReport) order.Event {
	h := e.reportHeader(o, rpt, rpt.TsLast)
	if rpt.Status == enum.OrderStatusExpired {
		return order.Expired{EventHeader: h}
	}
	return order.Canceled{EventHeader: h}
}

// genInferredFill builds the fill that accounts for the gap between the
// report's and the order's filled quantity. The price is backed out of the
// two average prices.
func (e *Engine) genInferredFill(o *order.Order, rpt report.OrderStatusReport, inst model.Instrument) (order.Filled, bool) {
	lastQty := inst.MakeQty(rpt.FilledQty.Sub(o.FilledQty))
	if !lastQty.IsPositive() {
		return order.Filled{}, false
	}

	var lastPx decimal.Decimal
	if !o.AvgPx.Valid || o.FilledQty.IsZero() {
		lastPx = inst.MakePrice(rpt.AvgPx.Decimal)
	} else {
		reportCost := rpt.AvgPx.Decimal.Mul(rpt.FilledQty)
		filledCost := o.AvgPx.Decimal.Mul(o.FilledQty)
		lastPx = inst.MakePrice(reportCost.Sub(filledCost).Div(lastQty))
	}
	if !lastPx.IsPositive() {
		logs.Errorf("execution: inferred fill price %s for order %s is not positive", lastPx, o.ClientOrderID)
		return order.Filled{}, false
	}

	liquidity := enum.LiquiditySideNone
	switch {
	case o.Type.IsTakerFamily():
		liquidity = enum.LiquiditySideTaker
	case rpt.PostOnly || o.PostOnly:
		liquidity = enum.LiquiditySideMaker
	}

	notional := inst.NotionalValue(lastQty, lastPx)
	fill := order.Filled{
		EventHeader:   e.reportHeader(o, rpt, rpt.TsLast),
		TradeID:       model.NewTradeID(),
		PositionID:    rpt.VenuePositionID,
		Side:          o.Side,
		Type:          o.Type,
		LastQty:       lastQty,
		LastPx:        lastPx,
		Commission:    model.NewMoney(notional.Amount.Mul(inst.TakerFee), notional.Currency),
		LiquiditySide: liquidity,
	}
	logs.Warnf("execution: inferred fill %s for order %s: %s %s @ %s", fill.TradeID, o.ClientOrderID, o.Side, lastQty, lastPx)
	e.metrics.IncInferredFill()
	return fill, true
}

// genExternalOrder builds a cached order for a report nobody here submitted.
// It returns nil when unclaimed external orders are filtered.
func (e *Engine) genExternalOrder(rpt report.OrderStatusReport, strategy model.StrategyID) *order.Order {
	var tags []string
	if strategy == "" {
		if claimed, ok := e.ExternalOrderClaim(rpt.Instrument); ok {
			strategy = claimed
		} else {
			strategy = model.ExternalStrategyID
			tags = []string{model.ExternalTag}
		}
	}
	if strategy == model.ExternalStrategyID && e.cfg.FilterUnclaimedExternalOrders {
		logs.Warnf("execution: filtering unclaimed external order %s (%s)", rpt.VenueOrderID, rpt.Instrument)
		return nil
	}

	tif := enum.TimeInForceGTC
	if rpt.ExpireTimeNs > 0 && rpt.TimeInForce.IsAvailable() {
		tif = rpt.TimeInForce
	}
	now := e.clock.NowNs()
	init := order.Initialized{
		EventHeader: order.EventHeader{
			EventID:        uuid.New(),
			TraderID:       e.trader,
			StrategyID:     strategy,
			InstrumentID:   rpt.Instrument,
			ClientOrderID:  rpt.ClientOrderID,
			Reconciliation: true,
			TsEvent:        now,
			TsInit:         now,
		},
		Side:            rpt.Side,
		Type:            rpt.Type,
		Quantity:        rpt.Quantity,
		TimeInForce:     tif,
		ExpireTimeNs:    rpt.ExpireTimeNs,
		PostOnly:        rpt.PostOnly,
		ReduceOnly:      rpt.ReduceOnly,
		OrderListID:     rpt.OrderListID,
		ContingencyType: rpt.ContingencyType,
		Tags:            tags,
	}
	if rpt.Price.Valid {
		init.Price = rpt.Price
	}
	if rpt.TriggerPrice.Valid {
		init.TriggerPrice = rpt.TriggerPrice
		init.TriggerType = rpt.TriggerType
	}
	if rpt.LimitOffset.Valid {
		init.LimitOffset = rpt.LimitOffset
		init.TrailingOffsetType = rpt.TrailingOffsetType
	}
	if rpt.TrailingOffset.Valid {
		init.TrailingOffset = rpt.TrailingOffset
		init.TrailingOffsetType = rpt.TrailingOffsetType
	}
	if rpt.DisplayQty.Valid {
		init.DisplayQty = rpt.DisplayQty
	}
	logs.Infof("execution: external order %s (%s) assigned to %s", rpt.ClientOrderID, rpt.VenueOrderID, strategy)
	return order.New(init)
}

// shouldUpdate reports whether the venue's quantity or prices differ from
// the cached order in a way its type cares about.
func shouldUpdate(o *order.Order, rpt report.OrderStatusReport) bool {
	if !rpt.Quantity.Equal(o.Quantity) {
		return true
	}
	switch o.Type {
	case enum.OrderTypeLimit:
		return differs(rpt.Price, o.Price)
	case enum.OrderTypeStopMarket, enum.OrderTypeTrailingStopMarket:
		return differs(rpt.TriggerPrice, o.TriggerPrice)
	case enum.OrderTypeStopLimit, enum.OrderTypeTrailingStopLimit:
		return differs(rpt.Price, o.Price) || differs(rpt.TriggerPrice, o.TriggerPrice)
	}
	return false
}

// differs is false when the venue reported no value.
func differs(reported, cached decimal.NullDecimal) bool {
	if !reported.Valid {
		return false
	}
	return !cached.Valid || !reported.Decimal.Equal(cached.Decimal)
}
