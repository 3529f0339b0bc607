package execution

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"hftexec/internal/cache"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
	"hftexec/internal/report"
	"hftexec/pkg/exception"
)

const (
	kindOrder    = "order"
	kindFill     = "fill"
	kindPosition = "position"
	kindMass     = "mass_status"
)

// ReconcileReport reconciles one venue report against the cache and
// publishes it on reports.execution.<venue>.<symbol> whatever the outcome.
func (e *Engine) ReconcileReport(rpt report.ExecutionReport) bool {
	e.reportCount.Add(1)
	var (
		ok   bool
		kind string
	)
	e.lock()
	switch r := rpt.(type) {
	case *report.OrderStatusReport:
		kind = kindOrder
		rpt, ok = e.reconcileOrderReport(*r, nil, "")
	case report.OrderStatusReport:
		kind = kindOrder
		rpt, ok = e.reconcileOrderReport(r, nil, "")
	case *report.FillReport:
		kind = kindFill
		ok = e.reconcileFillReport(*r)
	case report.FillReport:
		kind = kindFill
		ok = e.reconcileFillReport(r)
	case *report.PositionStatusReport:
		kind = kindPosition
		ok = e.reconcilePositionReport(*r)
	case report.PositionStatusReport:
		kind = kindPosition
		ok = e.reconcilePositionReport(r)
	default:
		e.unlock()
		logs.Errorf("execution: cannot reconcile report of type %T", rpt)
		return false
	}
	e.unlock()

	e.metrics.ObserveReconciliation(kind, ok)
	id := rpt.InstrumentID()
	e.bus.Publish("reports.execution."+string(id.Venue)+"."+id.Symbol, rpt)
	return ok
}

// ReconcileMassStatus reconciles every order report with its fills in
// insertion order, then the position reports. It is true only when every
// unit reconciled.
func (e *Engine) ReconcileMassStatus(ms *report.ExecutionMassStatus) bool {
	if ms == nil {
		logs.Errorf("execution: %+v", exception.ErrExecNoMassStatus)
		return false
	}
	e.reportCount.Add(1)
	e.lock()
	ok := e.reconcileMassStatusLocked(ms)
	e.unlock()

	e.metrics.ObserveReconciliation(kindMass, ok)
	e.bus.Publish("reports.execution."+string(ms.Venue), ms)
	return ok
}

func (e *Engine) reconcileMassStatusLocked(ms *report.ExecutionMassStatus) bool {
	logs.Infof("execution: reconciling mass status from %s (%s)", ms.ClientID, ms.Venue)
	all := true
	seenOrders := make(map[model.ClientOrderID]struct{})
	seenTrades := make(map[model.TradeID]struct{})

	for _, rpt := range ms.OrderReports() {
		if rpt.ClientOrderID != "" {
			if _, dup := seenOrders[rpt.ClientOrderID]; dup {
				logs.Errorf("execution: duplicate client order id %s in mass status (venue %s), skipped", rpt.ClientOrderID, rpt.VenueOrderID)
				continue
			}
		}
		fills := ms.FillReports(rpt.VenueOrderID)
		for _, f := range fills {
			if _, dup := seenTrades[f.TradeID]; dup {
				logs.Warnf("execution: duplicate trade id %s in mass status (venue order %s)", f.TradeID, rpt.VenueOrderID)
			}
			seenTrades[f.TradeID] = struct{}{}
		}
		resolved, ok := e.reconcileOrderReport(rpt, fills, "")
		e.metrics.ObserveReconciliation(kindOrder, ok)
		all = all && ok
		seenOrders[resolved.ClientOrderID] = struct{}{}
	}

	if e.cfg.FilterPositionReports {
		logs.Infof("execution: position reports from %s filtered", ms.ClientID)
		return all
	}
	positions := ms.PositionReports()
	instruments := make([]model.InstrumentID, 0, len(positions))
	for id := range positions {
		instruments = append(instruments, id)
	}
	sort.Slice(instruments, func(i, j int) bool { return instruments[i].String() < instruments[j].String() })
	for _, id := range instruments {
		for _, rpt := range positions[id] {
			ok := e.reconcilePositionReport(rpt)
			e.metrics.ObserveReconciliation(kindPosition, ok)
			all = all && ok
		}
	}
	return all
}

// reconcileOrderReport brings the cached order in line with rpt. strategy
// forces the owner of a synthesized order; empty uses the claim registry.
// It returns the report with its resolved client order id.
func (e *Engine) reconcileOrderReport(rpt report.OrderStatusReport, fills []report.FillReport, strategy model.StrategyID) (report.OrderStatusReport, bool) {
	if rpt.ClientOrderID == "" {
		coid, ok := e.cache.ClientOrderID(rpt.VenueOrderID)
		if !ok {
			coid = model.NewExternalClientOrderID()
		}
		rpt = rpt.WithClientOrderID(coid)
	}
	logs.Infof("execution: reconciling order %s (venue %s) %s filled %s/%s", rpt.ClientOrderID, rpt.VenueOrderID, rpt.Status, rpt.FilledQty, rpt.Quantity)
	e.clearInflightLocked(rpt.ClientOrderID)

	o, ok := e.cache.Order(rpt.ClientOrderID)
	if !ok {
		o = e.genExternalOrder(rpt, strategy)
		if o == nil {
			return rpt, true
		}
		if err := e.cache.AddOrder(o, rpt.VenuePositionID); err != nil {
			logs.Errorf("execution: cache external order %s, err: %+v", o.ClientOrderID, err)
			return rpt, false
		}
		e.metrics.IncExternalOrder()
	}

	inst, ok := e.cache.Instrument(o.InstrumentID)
	if !ok {
		logs.Errorf("execution: cannot reconcile order %s, err: %+v (%s)", o.ClientOrderID, exception.ErrExecInstrumentAbsent, o.InstrumentID)
		return rpt, false
	}

	switch rpt.Status {
	case enum.OrderStatusRejected:
		if o.Status == enum.OrderStatusRejected {
			return rpt, true
		}
		return rpt, e.handleEventLocked(e.genRejected(o, rpt))
	case enum.OrderStatusAccepted:
		ok := true
		if o.Status != enum.OrderStatusAccepted {
			ok = e.handleEventLocked(e.genAccepted(o, rpt))
		}
		if ok && shouldUpdate(o, rpt) {
			ok = e.handleEventLocked(e.genUpdated(o, rpt))
		}
		return rpt, ok
	}

	if o.Status == enum.OrderStatusInitialized || o.Status == enum.OrderStatusSubmitted {
		e.handleEventLocked(e.genAccepted(o, rpt))
	}
	if shouldUpdate(o, rpt) {
		e.handleEventLocked(e.genUpdated(o, rpt))
	}

	switch rpt.Status {
	case enum.OrderStatusTriggered:
		if o.Status == enum.OrderStatusTriggered {
			return rpt, true
		}
		return rpt, e.handleEventLocked(e.genTriggered(o, rpt))
	case enum.OrderStatusCanceled, enum.OrderStatusExpired:
		if o.Status == rpt.Status || !o.IsOpen() {
			return rpt, true
		}
		if rpt.TsTriggered > 0 && o.TsTriggered == 0 {
			e.handleEventLocked(e.genTriggered(o, rpt))
		}
		// The venue has closed the order; fills that fail are logged and
		// the close is still applied.
		if !e.reconcileFillsLocked(o, fills, inst) {
			logs.Errorf("execution: order %s %s with unapplied fills", o.ClientOrderID, rpt.Status)
		}
		if rpt.FilledQty.GreaterThan(o.FilledQty) && rpt.AvgPx.Valid {
			if fill, inferred := e.genInferredFill(o, rpt, inst); inferred && !e.handleEventLocked(fill) {
				logs.Errorf("execution: order %s %s, inferred fill %s not applied", o.ClientOrderID, rpt.Status, fill.TradeID)
			}
		}
		if o.IsOpen() {
			return rpt, e.handleEventLocked(e.genClosed(o, rpt))
		}
		return rpt, true
	}

	ok = e.reconcileFillsLocked(o, fills, inst)
	if rpt.FilledQty.LessThan(o.FilledQty) {
		logs.Errorf("execution: order %s venue filled %s below cached %s", o.ClientOrderID, rpt.FilledQty, o.FilledQty)
		return rpt, false
	}
	if rpt.FilledQty.Equal(o.FilledQty) {
		return rpt, ok
	}
	if !rpt.AvgPx.Valid {
		logs.Errorf("execution: order %s venue filled %s, cached %s, and no average price to infer a fill", o.ClientOrderID, rpt.FilledQty, o.FilledQty)
		return rpt, false
	}
	fill, inferred := e.genInferredFill(o, rpt, inst)
	if !inferred || !e.handleEventLocked(fill) {
		return rpt, false
	}
	if !rpt.FilledQty.Equal(o.FilledQty) {
		logs.Errorf("execution: order %s filled %s after inferred fill, venue reports %s", o.ClientOrderID, o.FilledQty, rpt.FilledQty)
		return rpt, false
	}
	if !o.AvgPx.Valid || !inst.MakePrice(o.AvgPx.Decimal).Equal(inst.MakePrice(rpt.AvgPx.Decimal)) {
		logs.Warnf("execution: order %s avg px %s, venue reports %s", o.ClientOrderID, o.AvgPx.Decimal, rpt.AvgPx.Decimal)
	}
	return rpt, ok
}

func (e *Engine) reconcileFillsLocked(o *order.Order, fills []report.FillReport, inst model.Instrument) bool {
	ok := true
	for _, f := range fills {
		if !e.reconcileFillLocked(o, f, inst) {
			ok = false
		}
	}
	return ok
}

// reconcileFillLocked applies f once. A trade already on the order is a no-op.
func (e *Engine) reconcileFillLocked(o *order.Order, f report.FillReport, inst model.Instrument) bool {
	if o.HasTradeID(f.TradeID) {
		return true
	}
	if err := f.Validate(); err != nil {
		logs.Errorf("execution: fill report for order %s, err: %+v", o.ClientOrderID, err)
		return false
	}
	if f.TsEvent < o.TsLast {
		logs.Warnf("execution: fill %s for order %s at %d is older than the order's last event %d", f.TradeID, o.ClientOrderID, f.TsEvent, o.TsLast)
	}

	h := order.NewHeader(o, f.TsEvent, e.clock.NowNs())
	if f.VenueOrderID != "" {
		h.VenueOrderID = f.VenueOrderID
	}
	if f.AccountID != "" {
		h.AccountID = f.AccountID
	}
	h.Reconciliation = true

	commission := f.Commission
	if commission.Currency == "" {
		commission.Currency = inst.SettlementCurrency()
	}
	side := f.Side
	if !side.IsAvailable() {
		side = o.Side
	}
	return e.handleEventLocked(order.Filled{
		EventHeader:   h,
		TradeID:       f.TradeID,
		PositionID:    f.VenuePositionID,
		Side:          side,
		Type:          o.Type,
		LastQty:       f.LastQty,
		LastPx:        inst.MakePrice(f.LastPx),
		Commission:    commission,
		LiquiditySide: f.LiquiditySide,
	})
}

// reconcileFillReport handles a fill report that arrived on its own.
func (e *Engine) reconcileFillReport(f report.FillReport) bool {
	coid := f.ClientOrderID
	if coid == "" {
		id, ok := e.cache.ClientOrderID(f.VenueOrderID)
		if !ok {
			logs.Errorf("execution: fill %s for unknown venue order %s", f.TradeID, f.VenueOrderID)
			return false
		}
		coid = id
	}
	o, ok := e.cache.Order(coid)
	if !ok {
		logs.Errorf("execution: fill %s for order %s not cached", f.TradeID, coid)
		return false
	}
	inst, ok := e.cache.Instrument(o.InstrumentID)
	if !ok {
		logs.Errorf("execution: fill %s for order %s, err: %+v (%s)", f.TradeID, coid, exception.ErrExecInstrumentAbsent, o.InstrumentID)
		return false
	}
	return e.reconcileFillLocked(o, f, inst)
}

func (e *Engine) reconcilePositionReport(rpt report.PositionStatusReport) bool {
	if rpt.VenuePositionID != "" {
		return e.reconcileHedgedPosition(rpt)
	}
	return e.reconcileNettedPosition(rpt)
}

func (e *Engine) reconcileHedgedPosition(rpt report.PositionStatusReport) bool {
	p, ok := e.cache.Position(rpt.VenuePositionID)
	if !ok {
		logs.Errorf("execution: venue position %s (%s) %s not cached", rpt.VenuePositionID, rpt.Instrument, rpt.SignedQty)
		return false
	}
	if !p.SignedQty.Equal(rpt.SignedQty) {
		logs.Errorf("execution: position %s cached %s, venue reports %s", p.ID, p.SignedQty, rpt.SignedQty)
		return false
	}
	return true
}

// reconcileNettedPosition compares the sum of open positions on the
// instrument with the venue and, when allowed, fills the difference with a
// synthetic market order.
func (e *Engine) reconcileNettedPosition(rpt report.PositionStatusReport) bool {
	open := e.cache.PositionsOpen(cache.PositionFilter{Instrument: rpt.Instrument})
	local := decimal.Zero
	for _, p := range open {
		local = local.Add(p.SignedQty)
	}
	if local.Equal(rpt.SignedQty) {
		return true
	}
	if !e.cfg.GenerateMissingOrders {
		logs.Errorf("execution: %s net position cached %s, venue reports %s", rpt.Instrument, local, rpt.SignedQty)
		return false
	}
	inst, ok := e.cache.Instrument(rpt.Instrument)
	if !ok {
		logs.Errorf("execution: cannot align %s, err: %+v", rpt.Instrument, exception.ErrExecInstrumentAbsent)
		return false
	}
	diff := inst.MakeQty(rpt.SignedQty.Sub(local))
	if diff.IsZero() {
		logs.Infof("execution: %s net position difference rounds to zero", rpt.Instrument)
		return true
	}

	var px decimal.Decimal
	switch {
	case rpt.AvgPxOpen.Valid && rpt.AvgPxOpen.Decimal.IsPositive():
		px = rpt.AvgPxOpen.Decimal
	case len(open) > 0 && open[0].AvgPxOpen.IsPositive():
		px = open[0].AvgPxOpen
	default:
		logs.Errorf("execution: cannot price %s difference %s, no average open price", rpt.Instrument, diff)
		return false
	}

	side := enum.OrderSideSell
	if diff.IsPositive() {
		side = enum.OrderSideBuy
	}
	qty := diff.Abs()
	now := e.clock.Now()
	ts := now.UnixNano()
	synthetic := report.OrderStatusReport{
		AccountID:    rpt.AccountID,
		Instrument:   rpt.Instrument,
		VenueOrderID: model.VenueOrderID("DIFF-" + uuid.NewString()),
		Side:         side,
		Type:         enum.OrderTypeMarket,
		TimeInForce:  enum.TimeInForceDAY,
		ExpireTimeNs: endOfDay(now).UnixNano(),
		Status:       enum.OrderStatusFilled,
		Quantity:     qty,
		FilledQty:    qty,
		AvgPx:        decimal.NewNullDecimal(px),
		TsAccepted:   ts,
		TsLast:       ts,
		TsInit:       ts,
		ID:           uuid.New(),
	}
	logs.Warnf("execution: %s net position cached %s, venue reports %s, generating %s %s @ %s", rpt.Instrument, local, rpt.SignedQty, side, qty, px)
	_, ok = e.reconcileOrderReport(synthetic, nil, model.InternalDiffStrategyID)
	return ok
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
