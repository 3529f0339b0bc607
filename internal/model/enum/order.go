package enum

//go:generate enumer

// OrderSide buy, sell
type OrderSide uint8

const (
	_order_side_beg OrderSide = iota
	OrderSideBuy
	OrderSideSell
	_order_side_end
)

func (s OrderSide) IsAvailable() bool {
	return s > _order_side_beg && s < _order_side_end
}

// Opposite returns the other side. Unavailable sides are returned as is.
func (s OrderSide) Opposite() OrderSide {
	switch s {
	case OrderSideBuy:
		return OrderSideSell
	case OrderSideSell:
		return OrderSideBuy
	default:
		return s
	}
}

// OrderType market, limit and the conditional families
type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	OrderTypeStopMarket
	OrderTypeStopLimit
	OrderTypeMarketToLimit
	OrderTypeMarketIfTouched
	OrderTypeLimitIfTouched
	OrderTypeTrailingStopMarket
	OrderTypeTrailingStopLimit
	_order_type_end
)

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

// HasPrice reports whether orders of this type carry a limit price.
func (t OrderType) HasPrice() bool {
	switch t {
	case OrderTypeLimit, OrderTypeStopLimit, OrderTypeLimitIfTouched, OrderTypeTrailingStopLimit, OrderTypeMarketToLimit:
		return true
	default:
		return false
	}
}

// HasTriggerPrice reports whether orders of this type carry a trigger price.
func (t OrderType) HasTriggerPrice() bool {
	switch t {
	case OrderTypeStopMarket, OrderTypeStopLimit, OrderTypeMarketIfTouched, OrderTypeLimitIfTouched,
		OrderTypeTrailingStopMarket, OrderTypeTrailingStopLimit:
		return true
	default:
		return false
	}
}

// IsTakerFamily reports whether fills of this type always take liquidity.
func (t OrderType) IsTakerFamily() bool {
	switch t {
	case OrderTypeMarket, OrderTypeStopMarket, OrderTypeTrailingStopMarket:
		return true
	default:
		return false
	}
}

// TimeInForce GTC, IOC, FOK, GTD, DAY, AT_THE_OPEN, AT_THE_CLOSE
type TimeInForce uint8

const (
	_time_in_force_beg TimeInForce = iota
	TimeInForceGTC
	TimeInForceIOC
	TimeInForceFOK
	TimeInForceGTD
	TimeInForceDAY
	TimeInForceAtTheOpen
	TimeInForceAtTheClose
	_time_in_force_end
)

func (t TimeInForce) IsAvailable() bool {
	return t > _time_in_force_beg && t < _time_in_force_end
}

// OrderStatus lifecycle states of an order
type OrderStatus uint8

const (
	_order_status_beg OrderStatus = iota
	OrderStatusInitialized
	OrderStatusDenied
	OrderStatusSubmitted
	OrderStatusAccepted
	OrderStatusRejected
	OrderStatusCanceled
	OrderStatusExpired
	OrderStatusTriggered
	OrderStatusPendingUpdate
	OrderStatusPendingCancel
	OrderStatusPartiallyFilled
	OrderStatusFilled
	_order_status_end
)

func (s OrderStatus) IsAvailable() bool {
	return s > _order_status_beg && s < _order_status_end
}

// IsOpen reports whether the venue is still working the order.
func (s OrderStatus) IsOpen() bool {
	switch s {
	case OrderStatusAccepted, OrderStatusTriggered, OrderStatusPendingUpdate,
		OrderStatusPendingCancel, OrderStatusPartiallyFilled:
		return true
	default:
		return false
	}
}

// IsClosed reports whether the order reached a terminal state.
func (s OrderStatus) IsClosed() bool {
	switch s {
	case OrderStatusDenied, OrderStatusRejected, OrderStatusCanceled,
		OrderStatusExpired, OrderStatusFilled:
		return true
	default:
		return false
	}
}

// IsInflight reports whether a venue acknowledgement is outstanding.
func (s OrderStatus) IsInflight() bool {
	switch s {
	case OrderStatusSubmitted, OrderStatusPendingUpdate, OrderStatusPendingCancel:
		return true
	default:
		return false
	}
}

// TriggerType price source used to trigger conditional orders
type TriggerType uint8

const (
	_trigger_type_beg TriggerType = iota
	TriggerTypeNone
	TriggerTypeDefault
	TriggerTypeLastTrade
	TriggerTypeMarkPrice
	TriggerTypeIndexPrice
	TriggerTypeBidAsk
	_trigger_type_end
)

func (t TriggerType) IsAvailable() bool {
	return t > _trigger_type_beg && t < _trigger_type_end
}

// IsNone treats the zero value as none.
func (t TriggerType) IsNone() bool {
	return t == _trigger_type_beg || t == TriggerTypeNone
}

// TrailingOffsetType unit of a trailing offset
type TrailingOffsetType uint8

const (
	_trailing_offset_type_beg TrailingOffsetType = iota
	TrailingOffsetTypeNone
	TrailingOffsetTypePrice
	TrailingOffsetTypeBasisPoints
	TrailingOffsetTypeTicks
	_trailing_offset_type_end
)

func (t TrailingOffsetType) IsAvailable() bool {
	return t > _trailing_offset_type_beg && t < _trailing_offset_type_end
}

func (t TrailingOffsetType) IsNone() bool {
	return t == _trailing_offset_type_beg || t == TrailingOffsetTypeNone
}

// ContingencyType NONE, OCO, OTO, OUO
type ContingencyType uint8

const (
	_contingency_type_beg ContingencyType = iota
	ContingencyTypeNone
	ContingencyTypeOCO
	ContingencyTypeOTO
	ContingencyTypeOUO
	_contingency_type_end
)

func (t ContingencyType) IsAvailable() bool {
	return t > _contingency_type_beg && t < _contingency_type_end
}
