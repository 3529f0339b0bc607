package execution

import (
	"context"

	"github.com/yanun0323/logs"

	"hftexec/internal/command"
	"hftexec/internal/model"
	"hftexec/internal/order"
	"hftexec/pkg/exception"
)

const reasonNoClient = "NO_EXECUTION_CLIENT"

// executeCommand updates the cache under the state lock and then calls the
// client without holding it.
func (e *Engine) executeCommand(ctx context.Context, cmd command.Command) {
	e.commandCount.Add(1)
	call := e.prepareCommand(cmd)
	if call == nil {
		return
	}
	if err := call(ctx); err != nil {
		logs.Errorf("execution: %s for %s failed, err: %+v", command.Name(cmd), cmd.Head().InstrumentID, err)
	}
}

func (e *Engine) prepareCommand(cmd command.Command) func(context.Context) error {
	e.lock()
	defer e.unlock()

	h := cmd.Head()
	client, ok := e.route(h.ClientID, h.InstrumentID.Venue)
	if !ok {
		logs.Errorf("execution: cannot execute %s for %s, err: %+v", command.Name(cmd), h.InstrumentID, exception.ErrExecClientNotFound)
		switch c := cmd.(type) {
		case command.SubmitOrder:
			e.denyLocked(c.Order, c.PositionID)
		case command.SubmitOrderList:
			for _, o := range c.Orders {
				e.denyLocked(o, c.PositionID)
			}
		}
		return nil
	}

	switch c := cmd.(type) {
	case command.SubmitOrder:
		if c.Order == nil {
			logs.Errorf("execution: SubmitOrder from %s without an order", h.StrategyID)
			return nil
		}
		if !e.addSubmittedLocked(c.Order, c) {
			return nil
		}
		return func(ctx context.Context) error { return client.SubmitOrder(ctx, c) }
	case command.SubmitOrderList:
		for _, o := range c.Orders {
			if o == nil {
				logs.Errorf("execution: SubmitOrderList %s holds a nil order", c.OrderListID)
				return nil
			}
			if !e.addSubmittedLocked(o, c) {
				return nil
			}
		}
		return func(ctx context.Context) error { return client.SubmitOrderList(ctx, c) }
	case command.ModifyOrder:
		return func(ctx context.Context) error { return client.ModifyOrder(ctx, c) }
	case command.CancelOrder:
		return func(ctx context.Context) error { return client.CancelOrder(ctx, c) }
	case command.CancelAllOrders:
		return func(ctx context.Context) error { return client.CancelAllOrders(ctx, c) }
	case command.QueryOrder:
		return func(ctx context.Context) error { return client.QueryOrder(ctx, c) }
	default:
		logs.Errorf("execution: %T, err: %+v", cmd, exception.ErrExecUnknownCommand)
		return nil
	}
}

// addSubmittedLocked caches an order the first time it is submitted.
func (e *Engine) addSubmittedLocked(o *order.Order, cmd command.Command) bool {
	if e.cache.OrderExists(o.ClientOrderID) {
		return true
	}
	if err := e.cache.AddOrder(o, positionOf(cmd)); err != nil {
		logs.Errorf("execution: cache order %s, err: %+v", o.ClientOrderID, err)
		return false
	}
	return true
}

func positionOf(cmd command.Command) model.PositionID {
	switch c := cmd.(type) {
	case command.SubmitOrder:
		return c.PositionID
	case command.SubmitOrderList:
		return c.PositionID
	}
	return ""
}

// denyLocked caches o if needed and denies it.
func (e *Engine) denyLocked(o *order.Order, pid model.PositionID) {
	if o == nil {
		return
	}
	if !e.cache.OrderExists(o.ClientOrderID) {
		if err := e.cache.AddOrder(o, pid); err != nil {
			logs.Errorf("execution: cache order %s, err: %+v", o.ClientOrderID, err)
			return
		}
	}
	now := e.clock.NowNs()
	e.handleEventLocked(order.Denied{EventHeader: order.NewHeader(o, now, now), Reason: reasonNoClient})
}
