package command

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
)

// Command is a trading instruction routed to an execution client.
type Command interface {
	Head() Header
}

// Header is shared by all trading commands. An empty ClientID routes by
// instrument venue.
type Header struct {
	TraderID     model.TraderID     `json:"traderId"`
	StrategyID   model.StrategyID   `json:"strategyId"`
	InstrumentID model.InstrumentID `json:"instrumentId"`
	ClientID     model.ClientID     `json:"clientId,omitempty"`
	CommandID    uuid.UUID          `json:"commandId"`
	TsInit       int64              `json:"tsInit"`
}

// NewHeader stamps a header with a fresh command id.
func NewHeader(trader model.TraderID, strategy model.StrategyID, instrument model.InstrumentID, ts int64) Header {
	return Header{
		TraderID:     trader,
		StrategyID:   strategy,
		InstrumentID: instrument,
		CommandID:    uuid.New(),
		TsInit:       ts,
	}
}

func (h Header) Head() Header { return h }

type SubmitOrder struct {
	Header
	Order      *order.Order     `json:"order"`
	PositionID model.PositionID `json:"positionId,omitempty"`
}

type SubmitOrderList struct {
	Header
	OrderListID model.OrderListID `json:"orderListId"`
	Orders      []*order.Order    `json:"orders"`
	PositionID  model.PositionID  `json:"positionId,omitempty"`
}

// ModifyOrder leaves fields untouched when their NullDecimal is invalid.
type ModifyOrder struct {
	Header
	ClientOrderID model.ClientOrderID `json:"clientOrderId"`
	VenueOrderID  model.VenueOrderID  `json:"venueOrderId,omitempty"`
	Quantity      decimal.NullDecimal `json:"quantity"`
	Price         decimal.NullDecimal `json:"price"`
	TriggerPrice  decimal.NullDecimal `json:"triggerPrice"`
}

type CancelOrder struct {
	Header
	ClientOrderID model.ClientOrderID `json:"clientOrderId"`
	VenueOrderID  model.VenueOrderID  `json:"venueOrderId,omitempty"`
}

// CancelAllOrders cancels every open order of the instrument. A zero Side
// means both sides.
type CancelAllOrders struct {
	Header
	Side enum.OrderSide `json:"side"`
}

type QueryOrder struct {
	Header
	ClientOrderID model.ClientOrderID `json:"clientOrderId"`
	VenueOrderID  model.VenueOrderID  `json:"venueOrderId,omitempty"`
}

// Name is used in logs and metrics labels.
func Name(cmd Command) string {
	switch cmd.(type) {
	case SubmitOrder:
		return "SubmitOrder"
	case SubmitOrderList:
		return "SubmitOrderList"
	case ModifyOrder:
		return "ModifyOrder"
	case CancelOrder:
		return "CancelOrder"
	case CancelAllOrders:
		return "CancelAllOrders"
	case QueryOrder:
		return "QueryOrder"
	default:
		return "Unknown"
	}
}
