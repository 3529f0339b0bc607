package execution

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"hftexec/internal/cache"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
	"hftexec/internal/state"
)

type PositionEventKind string

const (
	PositionOpened  PositionEventKind = "POSITION_OPENED"
	PositionChanged PositionEventKind = "POSITION_CHANGED"
	PositionClosed  PositionEventKind = "POSITION_CLOSED"
)

// PositionEvent is published on events.position.<strategy> after a fill
// moves a position.
type PositionEvent struct {
	Kind     PositionEventKind `json:"kind"`
	Position *state.Position   `json:"position"`
	TradeID  model.TradeID     `json:"tradeId"`
	TsEvent  int64             `json:"tsEvent"`
}

// flipSuffix names the position a flipping fill opens on the other side.
const flipSuffix = "F"

// handleEventLocked applies ev to its cached order. Failures are logged and
// reported as false; the order is left unchanged.
func (e *Engine) handleEventLocked(ev order.Event) bool {
	e.eventCount.Add(1)
	h := ev.Head()
	o, ok := e.cache.Order(h.ClientOrderID)
	if !ok && h.VenueOrderID != "" {
		o, ok = e.cache.OrderByVenueID(h.VenueOrderID)
	}
	if !ok {
		logs.Errorf("execution: cannot apply %s, order %s (venue %s) not cached", ev.Kind(), h.ClientOrderID, h.VenueOrderID)
		return false
	}

	fill, isFill := ev.(order.Filled)
	if isFill {
		if o.HasTradeID(fill.TradeID) {
			logs.Warnf("execution: duplicate trade %s for order %s ignored", fill.TradeID, o.ClientOrderID)
			return false
		}
		if fill.ClientOrderID == "" {
			fill.ClientOrderID = o.ClientOrderID
		}
		if fill.PositionID == "" {
			fill.PositionID = e.positionIDForFill(o)
		}
		ev = fill
	}

	if err := o.Apply(ev); err != nil {
		logs.Warnf("execution: %s not applied to order %s (%s), err: %+v", ev.Kind(), o.ClientOrderID, o.Status, err)
		return false
	}
	if err := e.cache.UpdateOrder(o); err != nil {
		logs.Errorf("execution: update cached order %s, err: %+v", o.ClientOrderID, err)
	}
	e.publishLocked("events.order."+string(o.StrategyID), ev)

	if isFill {
		e.applyFillLocked(fill)
	}
	return true
}

// positionIDForFill picks the position a fill without a venue position id
// lands in. Netting venues keep one open position per instrument and
// strategy; hedging venues give each order its own.
func (e *Engine) positionIDForFill(o *order.Order) model.PositionID {
	linked, hasLinked := e.cache.PositionIDForOrder(o.ClientOrderID)
	hasLinked = hasLinked && linked != ""
	if e.omsType(o.InstrumentID.Venue) == enum.OmsTypeHedging {
		if hasLinked {
			return linked
		}
		return model.PositionID(o.InstrumentID.String() + "-" + string(o.ClientOrderID))
	}
	open := e.cache.PositionsOpen(cache.PositionFilter{Instrument: o.InstrumentID, Strategy: o.StrategyID})
	if len(open) > 0 {
		return open[0].ID
	}
	if hasLinked {
		return linked
	}
	return model.PositionID(o.InstrumentID.String() + "-" + string(o.StrategyID))
}

func (e *Engine) applyFillLocked(fill order.Filled) {
	p, ok := e.cache.Position(fill.PositionID)
	if !ok {
		p, err := state.NewPosition(fill.PositionID, fill)
		if err != nil {
			logs.Errorf("execution: open position %s, err: %+v", fill.PositionID, err)
			return
		}
		if err := e.cache.AddPosition(p); err != nil {
			logs.Errorf("execution: cache position %s, err: %+v", p.ID, err)
			return
		}
		e.publishPositionLocked(PositionOpened, p, fill)
		return
	}

	if p.WouldFlip(fill.Side, fill.LastQty) {
		e.flipLocked(p, fill)
		return
	}

	wasOpen := p.IsOpen()
	if err := p.ApplyFill(fill); err != nil {
		logs.Errorf("execution: apply fill %s to position %s, err: %+v", fill.TradeID, p.ID, err)
		return
	}
	e.cache.UpdatePosition(p)
	switch {
	case p.IsClosed():
		e.publishPositionLocked(PositionClosed, p, fill)
	case !wasOpen:
		e.publishPositionLocked(PositionOpened, p, fill)
	default:
		e.publishPositionLocked(PositionChanged, p, fill)
	}
}

// flipLocked closes p with the part of fill that takes it flat and opens the
// residual on the flip position. Commission is split pro rata.
func (e *Engine) flipLocked(p *state.Position, fill order.Filled) {
	closeQty := p.Quantity
	residual := fill.LastQty.Sub(closeQty)
	closeFee := fill.Commission.Amount.Mul(closeQty).Div(fill.LastQty)

	closing := fill
	closing.LastQty = closeQty
	closing.Commission = model.NewMoney(closeFee, fill.Commission.Currency)

	opening := fill
	opening.LastQty = residual
	opening.Commission = model.NewMoney(fill.Commission.Amount.Sub(closeFee), fill.Commission.Currency)
	opening.PositionID = p.ID + flipSuffix

	if err := p.ApplyFill(closing); err != nil {
		logs.Errorf("execution: close position %s on flip, err: %+v", p.ID, err)
		return
	}
	e.cache.UpdatePosition(p)
	e.publishPositionLocked(PositionClosed, p, closing)
	logs.Infof("execution: position %s flipped by trade %s, residual %s on %s", p.ID, fill.TradeID, residual, opening.PositionID)

	if residual.GreaterThan(decimal.Zero) {
		e.applyFillLocked(opening)
	}
}

func (e *Engine) publishPositionLocked(kind PositionEventKind, p *state.Position, fill order.Filled) {
	e.publishLocked("events.position."+string(p.StrategyID), PositionEvent{
		Kind:     kind,
		Position: p.Clone(),
		TradeID:  fill.TradeID,
		TsEvent:  fill.TsEvent,
	})
}
