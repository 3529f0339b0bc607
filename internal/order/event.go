package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hftexec/internal/model"
	"hftexec/internal/model/enum"
)

// Event is a state change applied to an Order.
type Event interface {
	Kind() EventKind
	Head() EventHeader
}

// EventHeader is shared by every order event.
type EventHeader struct {
	EventID       uuid.UUID           `json:"eventId"`
	TraderID      model.TraderID      `json:"traderId"`
	StrategyID    model.StrategyID    `json:"strategyId"`
	InstrumentID  model.InstrumentID  `json:"instrumentId"`
	ClientOrderID model.ClientOrderID `json:"clientOrderId"`
	VenueOrderID  model.VenueOrderID  `json:"venueOrderId,omitempty"`
	AccountID     model.AccountID     `json:"accountId,omitempty"`
	// Reconciliation marks events synthesized from venue reports.
	Reconciliation bool  `json:"reconciliation"`
	TsEvent        int64 `json:"tsEvent"`
	TsInit         int64 `json:"tsInit"`
}

// NewHeader stamps a header for an order with a fresh event id.
func NewHeader(o *Order, tsEvent, tsInit int64) EventHeader {
	return EventHeader{
		EventID:       uuid.New(),
		TraderID:      o.TraderID,
		StrategyID:    o.StrategyID,
		InstrumentID:  o.InstrumentID,
		ClientOrderID: o.ClientOrderID,
		VenueOrderID:  o.VenueOrderID,
		AccountID:     o.AccountID,
		TsEvent:       tsEvent,
		TsInit:        tsInit,
	}
}

func (h EventHeader) Head() EventHeader { return h }

// Initialized carries everything needed to build an Order.
type Initialized struct {
	EventHeader
	Side               enum.OrderSide          `json:"side"`
	Type               enum.OrderType          `json:"type"`
	Quantity           decimal.Decimal         `json:"quantity"`
	TimeInForce        enum.TimeInForce        `json:"timeInForce"`
	Price              decimal.NullDecimal     `json:"price"`
	TriggerPrice       decimal.NullDecimal     `json:"triggerPrice"`
	TriggerType        enum.TriggerType        `json:"triggerType"`
	LimitOffset        decimal.NullDecimal     `json:"limitOffset"`
	TrailingOffset     decimal.NullDecimal     `json:"trailingOffset"`
	TrailingOffsetType enum.TrailingOffsetType `json:"trailingOffsetType"`
	ExpireTimeNs       int64                   `json:"expireTimeNs"`
	DisplayQty         decimal.NullDecimal     `json:"displayQty"`
	PostOnly           bool                    `json:"postOnly"`
	ReduceOnly         bool                    `json:"reduceOnly"`
	OrderListID        model.OrderListID       `json:"orderListId,omitempty"`
	ContingencyType    enum.ContingencyType    `json:"contingencyType"`
	Tags               []string                `json:"tags,omitempty"`
}

type Denied struct {
	EventHeader
	Reason string `json:"reason"`
}

type Submitted struct {
	EventHeader
}

type Accepted struct {
	EventHeader
}

type Rejected struct {
	EventHeader
	Reason string `json:"reason"`
}

type Canceled struct {
	EventHeader
}

type Expired struct {
	EventHeader
}

type Triggered struct {
	EventHeader
}

type PendingUpdate struct {
	EventHeader
}

type PendingCancel struct {
	EventHeader
}

type ModifyRejected struct {
	EventHeader
	Reason string `json:"reason"`
}

type CancelRejected struct {
	EventHeader
	Reason string `json:"reason"`
}

// Updated replaces quantity and prices. Invalid NullDecimals leave the field as is.
type Updated struct {
	EventHeader
	Quantity     decimal.Decimal     `json:"quantity"`
	Price        decimal.NullDecimal `json:"price"`
	TriggerPrice decimal.NullDecimal `json:"triggerPrice"`
}

type Filled struct {
	EventHeader
	TradeID       model.TradeID      `json:"tradeId"`
	PositionID    model.PositionID   `json:"positionId,omitempty"`
	Side          enum.OrderSide     `json:"side"`
	Type          enum.OrderType     `json:"type"`
	LastQty       decimal.Decimal    `json:"lastQty"`
	LastPx        decimal.Decimal    `json:"lastPx"`
	Commission    model.Money        `json:"commission"`
	LiquiditySide enum.LiquiditySide `json:"liquiditySide"`
}

func (Initialized) Kind() EventKind    { return EventKindInitialized }
func (Denied) Kind() EventKind         { return EventKindDenied }
func (Submitted) Kind() EventKind      { return EventKindSubmitted }
func (Accepted) Kind() EventKind       { return EventKindAccepted }
func (Rejected) Kind() EventKind       { return EventKindRejected }
func (Canceled) Kind() EventKind       { return EventKindCanceled }
func (Expired) Kind() EventKind        { return EventKindExpired }
func (Triggered) Kind() EventKind      { return EventKindTriggered }
func (PendingUpdate) Kind() EventKind  { return EventKindPendingUpdate }
func (PendingCancel) Kind() EventKind  { return EventKindPendingCancel }
func (ModifyRejected) Kind() EventKind { return EventKindModifyRejected }
func (CancelRejected) Kind() EventKind { return EventKindCancelRejected }
func (Updated) Kind() EventKind        { return EventKindUpdated }
func (Filled) Kind() EventKind         { return EventKindFilled }
