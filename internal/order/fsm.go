package order

import (
	"github.com/shopspring/decimal"

	"hftexec/internal/errors"
	"hftexec/internal/model/enum"
	"hftexec/pkg/exception"
)

type statusSet map[enum.OrderStatus]struct{}

func set(ss ...enum.OrderStatus) statusSet {
	m := make(statusSet, len(ss))
	for _, s := range ss {
		m[s] = struct{}{}
	}
	return m
}

// transitions lists the statuses reachable from each status. CANCELED and
// EXPIRED accept late fills because venues may report fills after a cancel ack.
var transitions = map[enum.OrderStatus]statusSet{
	enum.OrderStatusInitialized: set(
		enum.OrderStatusDenied, enum.OrderStatusSubmitted, enum.OrderStatusRejected,
		enum.OrderStatusAccepted, enum.OrderStatusCanceled, enum.OrderStatusExpired,
	),
	enum.OrderStatusSubmitted: set(
		enum.OrderStatusRejected, enum.OrderStatusAccepted, enum.OrderStatusCanceled,
		enum.OrderStatusExpired, enum.OrderStatusTriggered, enum.OrderStatusPendingUpdate,
		enum.OrderStatusPendingCancel, enum.OrderStatusPartiallyFilled, enum.OrderStatusFilled,
	),
	enum.OrderStatusAccepted: set(
		enum.OrderStatusRejected, enum.OrderStatusCanceled, enum.OrderStatusExpired,
		enum.OrderStatusTriggered, enum.OrderStatusPendingUpdate, enum.OrderStatusPendingCancel,
		enum.OrderStatusPartiallyFilled, enum.OrderStatusFilled,
	),
	enum.OrderStatusTriggered: set(
		enum.OrderStatusRejected, enum.OrderStatusCanceled, enum.OrderStatusExpired,
		enum.OrderStatusPendingUpdate, enum.OrderStatusPendingCancel,
		enum.OrderStatusPartiallyFilled, enum.OrderStatusFilled,
	),
	enum.OrderStatusPendingUpdate: set(
		enum.OrderStatusRejected, enum.OrderStatusAccepted, enum.OrderStatusCanceled,
		enum.OrderStatusExpired, enum.OrderStatusTriggered, enum.OrderStatusPendingUpdate,
		enum.OrderStatusPendingCancel, enum.OrderStatusPartiallyFilled, enum.OrderStatusFilled,
	),
	enum.OrderStatusPendingCancel: set(
		enum.OrderStatusRejected, enum.OrderStatusAccepted, enum.OrderStatusCanceled,
		enum.OrderStatusExpired, enum.OrderStatusPendingCancel,
		enum.OrderStatusPartiallyFilled, enum.OrderStatusFilled,
	),
	enum.OrderStatusPartiallyFilled: set(
		enum.OrderStatusCanceled, enum.OrderStatusExpired, enum.OrderStatusTriggered,
		enum.OrderStatusPendingUpdate, enum.OrderStatusPendingCancel,
		enum.OrderStatusPartiallyFilled, enum.OrderStatusFilled,
	),
	enum.OrderStatusCanceled: set(enum.OrderStatusPartiallyFilled, enum.OrderStatusFilled),
	enum.OrderStatusExpired:  set(enum.OrderStatusPartiallyFilled, enum.OrderStatusFilled),
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to enum.OrderStatus) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// Apply validates e against the current state and mutates the order. On
// error the order is left unchanged.
func (o *Order) Apply(e Event) error {
	if e == nil {
		return exception.ErrOrderUnknownEvent
	}
	h := e.Head()
	if h.ClientOrderID != "" && h.ClientOrderID != o.ClientOrderID {
		return errors.Wrapf(exception.ErrOrderInvalidTransition, "event for %s applied to %s", h.ClientOrderID, o.ClientOrderID)
	}
	if h.VenueOrderID != "" && o.VenueOrderID != "" && h.VenueOrderID != o.VenueOrderID {
		return errors.Wrapf(exception.ErrOrderVenueIDMismatch, "order %s has %s, event has %s", o.ClientOrderID, o.VenueOrderID, h.VenueOrderID)
	}

	switch ev := e.(type) {
	case Filled:
		if err := o.applyFill(ev); err != nil {
			return err
		}
	case Updated:
		if err := o.applyUpdate(ev); err != nil {
			return err
		}
	case ModifyRejected:
		if o.Status == enum.OrderStatusPendingUpdate {
			o.Status, o.PrevStatus = o.PrevStatus, o.Status
		}
	case CancelRejected:
		if o.Status == enum.OrderStatusPendingCancel {
			o.Status, o.PrevStatus = o.PrevStatus, o.Status
		}
	case Initialized:
		return errors.Wrap(exception.ErrOrderInvalidTransition, "order "+string(o.ClientOrderID)+" already initialized")
	default:
		to, ok := targetStatus(e.Kind())
		if !ok {
			return exception.ErrOrderUnknownEvent
		}
		if err := o.transition(to); err != nil {
			return err
		}
		switch e.Kind() {
		case EventKindAccepted:
			o.TsAccepted = h.TsEvent
		case EventKindTriggered:
			o.TsTriggered = h.TsEvent
		}
	}

	if o.VenueOrderID == "" && h.VenueOrderID != "" {
		o.VenueOrderID = h.VenueOrderID
	}
	if o.AccountID == "" && h.AccountID != "" {
		o.AccountID = h.AccountID
	}
	if h.TsEvent > o.TsLast {
		o.TsLast = h.TsEvent
	}
	if o.Status.IsClosed() {
		if o.TsClosed == 0 {
			o.TsClosed = h.TsEvent
		}
	} else {
		o.TsClosed = 0
	}
	o.record(e)
	return nil
}

func targetStatus(kind EventKind) (enum.OrderStatus, bool) {
	switch kind {
	case EventKindDenied:
		return enum.OrderStatusDenied, true
	case EventKindSubmitted:
		return enum.OrderStatusSubmitted, true
	case EventKindAccepted:
		return enum.OrderStatusAccepted, true
	case EventKindRejected:
		return enum.OrderStatusRejected, true
	case EventKindCanceled:
		return enum.OrderStatusCanceled, true
	case EventKindExpired:
		return enum.OrderStatusExpired, true
	case EventKindTriggered:
		return enum.OrderStatusTriggered, true
	case EventKindPendingUpdate:
		return enum.OrderStatusPendingUpdate, true
	case EventKindPendingCancel:
		return enum.OrderStatusPendingCancel, true
	default:
		return 0, false
	}
}

func (o *Order) transition(to enum.OrderStatus) error {
	if !CanTransition(o.Status, to) {
		return errors.Wrapf(exception.ErrOrderInvalidTransition, "order %s %s -> %s", o.ClientOrderID, o.Status, to)
	}
	if o.Status != to {
		o.PrevStatus = o.Status
	}
	o.Status = to
	return nil
}

func (o *Order) applyUpdate(ev Updated) error {
	if o.Status.IsClosed() {
		return errors.Wrapf(exception.ErrOrderInvalidTransition, "order %s is %s and cannot be updated", o.ClientOrderID, o.Status)
	}
	if ev.Quantity.IsPositive() {
		if ev.Quantity.LessThan(o.FilledQty) {
			return errors.Wrapf(exception.ErrOrderInvalidFill, "order %s update quantity %s below filled %s", o.ClientOrderID, ev.Quantity, o.FilledQty)
		}
		o.Quantity = ev.Quantity
		o.LeavesQty = decimal.Max(o.Quantity.Sub(o.FilledQty), decimal.Zero)
	}
	if ev.Price.Valid {
		o.Price = ev.Price
	}
	if ev.TriggerPrice.Valid {
		o.TriggerPrice = ev.TriggerPrice
	}
	if o.Status == enum.OrderStatusPendingUpdate {
		o.Status, o.PrevStatus = o.PrevStatus, o.Status
	}
	return nil
}

func (o *Order) applyFill(ev Filled) error {
	if !ev.LastQty.IsPositive() {
		return errors.Wrapf(exception.ErrOrderInvalidFill, "order %s fill qty %s", o.ClientOrderID, ev.LastQty)
	}
	if o.HasTradeID(ev.TradeID) {
		return errors.Wrapf(exception.ErrOrderDuplicateTrade, "order %s trade %s", o.ClientOrderID, ev.TradeID)
	}

	filled := o.FilledQty.Add(ev.LastQty)
	to := enum.OrderStatusPartiallyFilled
	if filled.GreaterThanOrEqual(o.Quantity) {
		to = enum.OrderStatusFilled
	}
	if !CanTransition(o.Status, to) {
		return errors.Wrapf(exception.ErrOrderInvalidTransition, "order %s %s -> %s", o.ClientOrderID, o.Status, to)
	}

	if o.AvgPx.Valid && o.FilledQty.IsPositive() {
		notional := o.AvgPx.Decimal.Mul(o.FilledQty).Add(ev.LastPx.Mul(ev.LastQty))
		o.AvgPx = decimal.NewNullDecimal(notional.Div(filled))
	} else {
		o.AvgPx = decimal.NewNullDecimal(ev.LastPx)
	}

	o.PrevStatus = o.Status
	o.Status = to
	o.FilledQty = filled
	o.LeavesQty = decimal.Max(o.Quantity.Sub(filled), decimal.Zero)
	o.LiquiditySide = ev.LiquiditySide
	if ev.PositionID != "" {
		o.PositionID = ev.PositionID
	}
	o.TradeIDs = append(o.TradeIDs, ev.TradeID)
	o.trades[ev.TradeID] = struct{}{}
	return nil
}
