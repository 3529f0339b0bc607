package execution

import (
	"context"

	"github.com/yanun0323/logs"
)

func (e *Engine) purgeClosedOrders(context.Context) {
	e.lock()
	n := e.cache.PurgeClosedOrders(e.clock.Now(), minutes(e.cfg.PurgeClosedOrdersBufferMins))
	e.unlock()
	e.logPurged("closed orders", "orders", n)
}

func (e *Engine) purgeClosedPositions(context.Context) {
	e.lock()
	n := e.cache.PurgeClosedPositions(e.clock.Now(), minutes(e.cfg.PurgeClosedPositionsBufferMins))
	e.unlock()
	e.logPurged("closed positions", "positions", n)
}

func (e *Engine) purgeAccountEvents(context.Context) {
	n := e.cache.PurgeAccountEvents(e.clock.Now(), minutes(e.cfg.PurgeAccountEventsLookbackMins))
	e.logPurged("account events", "account_events", n)
}

func (e *Engine) logPurged(what, label string, n int) {
	e.metrics.AddPurged(label, n)
	if n > 0 {
		logs.Infof("execution: purged %d %s", n, what)
	}
}

// flushCache takes the dirty set under the state lock and writes it outside.
func (e *Engine) flushCache(ctx context.Context) {
	e.lock()
	d := e.cache.TakeDirty()
	e.unlock()
	if d.IsEmpty() {
		return
	}
	if err := e.cache.WriteDirty(ctx, d); err != nil {
		logs.Errorf("execution: flush cache, err: %+v", err)
	}
}
