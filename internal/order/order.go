package order

import (
	"github.com/shopspring/decimal"

	"hftexec/internal/model"
	"hftexec/internal/model/enum"
)

// Order is the locally cached view of one order. It is owned by the cache
// and mutated only through Apply.
type Order struct {
	TraderID      model.TraderID      `json:"traderId"`
	StrategyID    model.StrategyID    `json:"strategyId"`
	InstrumentID  model.InstrumentID  `json:"instrumentId"`
	ClientOrderID model.ClientOrderID `json:"clientOrderId"`
	VenueOrderID  model.VenueOrderID  `json:"venueOrderId,omitempty"`
	PositionID    model.PositionID    `json:"positionId,omitempty"`
	AccountID     model.AccountID     `json:"accountId,omitempty"`
	OrderListID   model.OrderListID   `json:"orderListId,omitempty"`

	Side               enum.OrderSide          `json:"side"`
	Type               enum.OrderType          `json:"type"`
	TimeInForce        enum.TimeInForce        `json:"timeInForce"`
	ContingencyType    enum.ContingencyType    `json:"contingencyType"`
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
	Tags               []string                `json:"tags,omitempty"`

	Status        enum.OrderStatus    `json:"status"`
	PrevStatus    enum.OrderStatus    `json:"prevStatus"`
	Quantity      decimal.Decimal     `json:"quantity"`
	FilledQty     decimal.Decimal     `json:"filledQty"`
	LeavesQty     decimal.Decimal     `json:"leavesQty"`
	AvgPx         decimal.NullDecimal `json:"avgPx"`
	LiquiditySide enum.LiquiditySide  `json:"liquiditySide"`
	TradeIDs      []model.TradeID     `json:"tradeIds,omitempty"`
	EventCount    int                 `json:"eventCount"`

	TsInit      int64 `json:"tsInit"`
	TsLast      int64 `json:"tsLast"`
	TsAccepted  int64 `json:"tsAccepted"`
	TsTriggered int64 `json:"tsTriggered"`
	TsClosed    int64 `json:"tsClosed"`

	events []Event
	trades map[model.TradeID]struct{}
}

// New builds an order in INITIALIZED state.
func New(init Initialized) *Order {
	o := &Order{
		TraderID:           init.TraderID,
		StrategyID:         init.StrategyID,
		InstrumentID:       init.InstrumentID,
		ClientOrderID:      init.ClientOrderID,
		VenueOrderID:       init.VenueOrderID,
		AccountID:          init.AccountID,
		OrderListID:        init.OrderListID,
		Side:               init.Side,
		Type:               init.Type,
		TimeInForce:        init.TimeInForce,
		ContingencyType:    init.ContingencyType,
		Price:              init.Price,
		TriggerPrice:       init.TriggerPrice,
		TriggerType:        init.TriggerType,
		LimitOffset:        init.LimitOffset,
		TrailingOffset:     init.TrailingOffset,
		TrailingOffsetType: init.TrailingOffsetType,
		ExpireTimeNs:       init.ExpireTimeNs,
		DisplayQty:         init.DisplayQty,
		PostOnly:           init.PostOnly,
		ReduceOnly:         init.ReduceOnly,
		Tags:               append([]string(nil), init.Tags...),
		Status:             enum.OrderStatusInitialized,
		Quantity:           init.Quantity,
		FilledQty:          decimal.Zero,
		LeavesQty:          init.Quantity,
		TsInit:             init.TsInit,
		TsLast:             init.TsEvent,
		trades:             make(map[model.TradeID]struct{}),
	}
	o.record(init)
	return o
}

func (o *Order) IsOpen() bool     { return o.Status.IsOpen() }
func (o *Order) IsClosed() bool   { return o.Status.IsClosed() }
func (o *Order) IsInflight() bool { return o.Status.IsInflight() }

// HasTradeID reports whether a fill with this trade id was applied.
func (o *Order) HasTradeID(id model.TradeID) bool {
	o.ensureTrades()
	_, ok := o.trades[id]
	return ok
}

// Events returns the events applied since the order was loaded.
func (o *Order) Events() []Event {
	return o.events
}

// LastEvent is nil for orders restored from a snapshot.
func (o *Order) LastEvent() Event {
	if len(o.events) == 0 {
		return nil
	}
	return o.events[len(o.events)-1]
}

// HasTag reports whether the order carries tag.
func (o *Order) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy without event history.
func (o *Order) Clone() *Order {
	c := *o
	c.Tags = append([]string(nil), o.Tags...)
	c.TradeIDs = append([]model.TradeID(nil), o.TradeIDs...)
	c.events = nil
	c.trades = nil
	return &c
}

func (o *Order) ensureTrades() {
	if o.trades != nil {
		return
	}
	o.trades = make(map[model.TradeID]struct{}, len(o.TradeIDs))
	for _, id := range o.TradeIDs {
		o.trades[id] = struct{}{}
	}
}

func (o *Order) record(e Event) {
	o.events = append(o.events, e)
	o.EventCount++
}
