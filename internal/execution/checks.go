package execution

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"hftexec/internal/cache"
	"hftexec/internal/command"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
	"hftexec/internal/report"
)

const reasonInflightTimeout = "INFLIGHT_TIMEOUT"

func (e *Engine) startLoops(ctx context.Context) {
	e.every(ctx, "inflight check", e.cfg.inflightInterval(), e.checkInflightOrders)
	e.every(ctx, "open check", e.cfg.openCheckInterval(), e.checkOpenOrders)
	e.every(ctx, "purge closed orders", minutes(e.cfg.PurgeClosedOrdersIntervalMins), e.purgeClosedOrders)
	e.every(ctx, "purge closed positions", minutes(e.cfg.PurgeClosedPositionsIntervalMins), e.purgeClosedPositions)
	e.every(ctx, "purge account events", minutes(e.cfg.PurgeAccountEventsIntervalMins), e.purgeAccountEvents)
	e.every(ctx, "cache flush", e.cfg.snapshotInterval(), e.flushCache)
}

// every runs fn on each tick of interval until ctx is done. A zero
// interval disables the loop.
func (e *Engine) every(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		logs.Debugf("execution: %s disabled", name)
		return
	}
	e.loops.Add(1)
	go func() {
		defer e.loops.Done()
		logs.Infof("execution: %s every %s", name, interval)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logs.Debugf("execution: %s stopped", name)
				return
			case <-ticker.C:
				dispatch(name, func() { fn(ctx) })
			}
		}
	}()
}

func (e *Engine) clearInflightLocked(id model.ClientOrderID) {
	delete(e.retries, id)
	delete(e.lastQuery, id)
}

// checkInflightOrders queries the venue about orders waiting too long for an
// acknowledgement, and resolves them locally once retries run out.
func (e *Engine) checkInflightOrders(ctx context.Context) {
	for _, q := range e.collectInflightQueries() {
		e.executeCommand(ctx, q)
	}
}

func (e *Engine) collectInflightQueries() []command.QueryOrder {
	e.lock()
	defer e.unlock()

	now := e.clock.NowNs()
	threshold := e.cfg.inflightThreshold().Nanoseconds()
	var queries []command.QueryOrder
	for _, o := range e.cache.OrdersInflight(cache.OrderFilter{}) {
		if now-o.TsLast <= threshold {
			continue
		}
		id := o.ClientOrderID
		if last, ok := e.lastQuery[id]; ok && now-last < threshold {
			continue
		}
		if e.retries[id] >= e.cfg.InflightCheckRetries {
			e.resolveInflightLocked(o)
			continue
		}
		e.retries[id]++
		e.lastQuery[id] = now
		h := command.NewHeader(o.TraderID, o.StrategyID, o.InstrumentID, now)
		queries = append(queries, command.QueryOrder{Header: h, ClientOrderID: id, VenueOrderID: o.VenueOrderID})
		logs.Infof("execution: querying in-flight order %s (%s), attempt %d", id, o.Status, e.retries[id])
	}
	return queries
}

func (e *Engine) resolveInflightLocked(o *order.Order) {
	now := e.clock.NowNs()
	h := order.NewHeader(o, now, now)
	h.Reconciliation = true

	status := o.Status
	var ev order.Event
	switch status {
	case enum.OrderStatusSubmitted:
		ev = order.Rejected{EventHeader: h, Reason: reasonInflightTimeout}
	case enum.OrderStatusPendingUpdate:
		ev = order.ModifyRejected{EventHeader: h, Reason: reasonInflightTimeout}
	case enum.OrderStatusPendingCancel:
		ev = order.CancelRejected{EventHeader: h, Reason: reasonInflightTimeout}
	default:
		return
	}
	logs.Warnf("execution: order %s still %s after %d queries, resolving locally", o.ClientOrderID, status, e.retries[o.ClientOrderID])
	if e.handleEventLocked(ev) {
		e.metrics.IncInflightResolved(status.String())
	}
	e.clearInflightLocked(o.ClientOrderID)
}

type openCheck struct {
	client Client
	query  ReportQuery
	// local holds the locally open orders the query should cover.
	local []*order.Order
}

// checkOpenOrders compares the venue's view of open orders with the cache.
func (e *Engine) checkOpenOrders(ctx context.Context) {
	for _, chk := range e.planOpenChecks() {
		reports, err := chk.client.GenerateOrderStatusReports(ctx, chk.query)
		if err != nil {
			logs.Errorf("execution: open check on %s, err: %+v", chk.client.ID(), err)
			continue
		}
		listed := e.reconcileOpenReports(reports)
		if chk.query.OpenOnly {
			continue
		}
		for _, o := range chk.local {
			if _, ok := listed[o.VenueOrderID]; ok && o.VenueOrderID != "" {
				continue
			}
			e.queryMissingOrder(ctx, chk.client, o)
		}
	}
}

func (e *Engine) planOpenChecks() []openCheck {
	if e.cfg.OpenCheckOpenOnly {
		clients := e.Clients()
		checks := make([]openCheck, 0, len(clients))
		for _, c := range clients {
			checks = append(checks, openCheck{client: c, query: ReportQuery{OpenOnly: true}})
		}
		return checks
	}

	e.lock()
	open := e.cache.OrdersOpen(cache.OrderFilter{})
	byInstrument := make(map[model.InstrumentID][]*order.Order)
	var instruments []model.InstrumentID
	for _, o := range open {
		if _, ok := byInstrument[o.InstrumentID]; !ok {
			instruments = append(instruments, o.InstrumentID)
		}
		byInstrument[o.InstrumentID] = append(byInstrument[o.InstrumentID], o.Clone())
	}
	e.unlock()

	start := e.clock.Now().Add(-e.cfg.openCheckLookback())
	checks := make([]openCheck, 0, len(instruments))
	for _, id := range instruments {
		c, ok := e.route("", id.Venue)
		if !ok {
			logs.Warnf("execution: open check skips %s, no client", id)
			continue
		}
		checks = append(checks, openCheck{
			client: c,
			query:  ReportQuery{Instrument: id, Start: start},
			local:  byInstrument[id],
		})
	}
	return checks
}

// reconcileOpenReports reconciles the reports that disagree with the cache
// and returns the venue order ids seen.
func (e *Engine) reconcileOpenReports(reports []report.OrderStatusReport) map[model.VenueOrderID]struct{} {
	listed := make(map[model.VenueOrderID]struct{}, len(reports))
	e.lock()
	defer e.unlock()
	for _, rpt := range reports {
		listed[rpt.VenueOrderID] = struct{}{}
		if !e.needsReconcile(rpt) {
			continue
		}
		if _, ok := e.cache.Instrument(rpt.Instrument); !ok {
			logs.Warnf("execution: open check skips order %s, instrument %s not loaded yet", rpt.VenueOrderID, rpt.Instrument)
			continue
		}
		_, ok := e.reconcileOrderReport(rpt, nil, "")
		e.metrics.ObserveReconciliation(kindOrder, ok)
	}
	return listed
}

func (e *Engine) needsReconcile(rpt report.OrderStatusReport) bool {
	id := rpt.ClientOrderID
	if id == "" {
		resolved, ok := e.cache.ClientOrderID(rpt.VenueOrderID)
		if !ok {
			return true
		}
		id = resolved
	}
	o, ok := e.cache.Order(id)
	if !ok {
		return true
	}
	if rpt.IsOpen() != e.cache.IsOrderOpen(id) {
		return true
	}
	return rpt.Status != o.Status || !rpt.FilledQty.Equal(o.FilledQty)
}

func (e *Engine) queryMissingOrder(ctx context.Context, c Client, o *order.Order) {
	rpt, err := c.GenerateOrderStatusReport(ctx, OrderStatusQuery{
		Instrument:    o.InstrumentID,
		ClientOrderID: o.ClientOrderID,
		VenueOrderID:  o.VenueOrderID,
	})
	if err != nil {
		logs.Errorf("execution: query order %s on %s, err: %+v", o.ClientOrderID, c.ID(), err)
		return
	}
	if rpt == nil {
		logs.Warnf("execution: open order %s unknown to %s", o.ClientOrderID, c.ID())
		return
	}
	if rpt.ClientOrderID == "" {
		*rpt = rpt.WithClientOrderID(o.ClientOrderID)
	}
	e.lock()
	_, ok := e.reconcileOrderReport(*rpt, nil, "")
	e.unlock()
	e.metrics.ObserveReconciliation(kindOrder, ok)
}
