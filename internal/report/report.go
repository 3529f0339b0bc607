package report

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hftexec/internal/errors"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/pkg/exception"
)

// ExecutionReport is implemented by the single-unit venue reports.
type ExecutionReport interface {
	InstrumentID() model.InstrumentID
	ReportID() uuid.UUID
}

// OrderStatusReport is the venue-observed status of one order.
// A missing ClientOrderID means the order was placed outside this process.
type OrderStatusReport struct {
	AccountID          model.AccountID         `json:"accountId"`
	Instrument         model.InstrumentID      `json:"instrumentId"`
	ClientOrderID      model.ClientOrderID     `json:"clientOrderId,omitempty"`
	OrderListID        model.OrderListID       `json:"orderListId,omitempty"`
	VenueOrderID       model.VenueOrderID      `json:"venueOrderId"`
	VenuePositionID    model.PositionID        `json:"venuePositionId,omitempty"`
	Side               enum.OrderSide          `json:"side"`
	Type               enum.OrderType          `json:"type"`
	TimeInForce        enum.TimeInForce        `json:"timeInForce"`
	ContingencyType    enum.ContingencyType    `json:"contingencyType"`
	Status             enum.OrderStatus        `json:"status"`
	Price              decimal.NullDecimal     `json:"price"`
	TriggerPrice       decimal.NullDecimal     `json:"triggerPrice"`
	TriggerType        enum.TriggerType        `json:"triggerType"`
	LimitOffset        decimal.NullDecimal     `json:"limitOffset"`
	TrailingOffset     decimal.NullDecimal     `json:"trailingOffset"`
	TrailingOffsetType enum.TrailingOffsetType `json:"trailingOffsetType"`
	DisplayQty         decimal.NullDecimal     `json:"displayQty"`
	ExpireTimeNs       int64                   `json:"expireTimeNs"`
	Quantity           decimal.Decimal         `json:"quantity"`
	FilledQty          decimal.Decimal         `json:"filledQty"`
	AvgPx              decimal.NullDecimal     `json:"avgPx"`
	PostOnly           bool                    `json:"postOnly"`
	ReduceOnly         bool                    `json:"reduceOnly"`
	CancelReason       string                  `json:"cancelReason,omitempty"`
	TsAccepted         int64                   `json:"tsAccepted"`
	TsTriggered        int64                   `json:"tsTriggered"`
	TsLast             int64                   `json:"tsLast"`
	TsInit             int64                   `json:"tsInit"`
	ID                 uuid.UUID               `json:"reportId"`
}

func (r OrderStatusReport) InstrumentID() model.InstrumentID { return r.Instrument }
func (r OrderStatusReport) ReportID() uuid.UUID              { return r.ID }

// LeavesQty is never negative, even when a venue reports an overfill.
func (r OrderStatusReport) LeavesQty() decimal.Decimal {
	return decimal.Max(r.Quantity.Sub(r.FilledQty), decimal.Zero)
}

// IsOpen reports whether the venue still works the order.
func (r OrderStatusReport) IsOpen() bool {
	return r.Status.IsOpen()
}

// Validate checks the structural invariants of the report.
func (r OrderStatusReport) Validate() error {
	if !r.Quantity.IsPositive() {
		return errors.Wrapf(exception.ErrInvalidQuantity, "order report %s quantity %s", r.VenueOrderID, r.Quantity)
	}
	if r.FilledQty.IsNegative() {
		return errors.Wrapf(exception.ErrInvalidFilledQty, "order report %s filled %s", r.VenueOrderID, r.FilledQty)
	}
	if r.TriggerPrice.Valid && r.TriggerPrice.Decimal.IsPositive() && r.TriggerType.IsNone() {
		return errors.Wrapf(exception.ErrMissingTriggerType, "order report %s", r.VenueOrderID)
	}
	if r.TrailingOffset.Valid && r.TrailingOffsetType.IsNone() {
		return errors.Wrapf(exception.ErrMissingOffsetType, "order report %s", r.VenueOrderID)
	}
	return nil
}

// WithClientOrderID returns a copy carrying the resolved client order id.
func (r OrderStatusReport) WithClientOrderID(id model.ClientOrderID) OrderStatusReport {
	r.ClientOrderID = id
	return r
}

// FillReport is one venue-reported execution.
type FillReport struct {
	AccountID       model.AccountID     `json:"accountId"`
	Instrument      model.InstrumentID  `json:"instrumentId"`
	ClientOrderID   model.ClientOrderID `json:"clientOrderId,omitempty"`
	VenueOrderID    model.VenueOrderID  `json:"venueOrderId"`
	VenuePositionID model.PositionID    `json:"venuePositionId,omitempty"`
	TradeID         model.TradeID       `json:"tradeId"`
	Side            enum.OrderSide      `json:"side"`
	LastQty         decimal.Decimal     `json:"lastQty"`
	LastPx          decimal.Decimal     `json:"lastPx"`
	Commission      model.Money         `json:"commission"`
	LiquiditySide   enum.LiquiditySide  `json:"liquiditySide"`
	TsEvent         int64               `json:"tsEvent"`
	TsInit          int64               `json:"tsInit"`
	ID              uuid.UUID           `json:"reportId"`
}

func (r FillReport) InstrumentID() model.InstrumentID { return r.Instrument }
func (r FillReport) ReportID() uuid.UUID              { return r.ID }

func (r FillReport) Validate() error {
	if !r.LastQty.IsPositive() {
		return errors.Wrapf(exception.ErrInvalidQuantity, "fill report %s qty %s", r.TradeID, r.LastQty)
	}
	return nil
}

// PositionStatusReport is the venue-observed net position of an instrument,
// or of one venue position id on hedging venues.
type PositionStatusReport struct {
	AccountID       model.AccountID     `json:"accountId"`
	Instrument      model.InstrumentID  `json:"instrumentId"`
	VenuePositionID model.PositionID    `json:"venuePositionId,omitempty"`
	Side            enum.PositionSide   `json:"side"`
	Quantity        decimal.Decimal     `json:"quantity"`
	SignedQty       decimal.Decimal     `json:"signedQty"`
	AvgPxOpen       decimal.NullDecimal `json:"avgPxOpen"`
	TsLast          int64               `json:"tsLast"`
	TsInit          int64               `json:"tsInit"`
	ID              uuid.UUID           `json:"reportId"`
}

func (r PositionStatusReport) InstrumentID() model.InstrumentID { return r.Instrument }
func (r PositionStatusReport) ReportID() uuid.UUID              { return r.ID }

// NewPositionReport derives side and quantity from the signed quantity.
func NewPositionReport(account model.AccountID, instrument model.InstrumentID, signed decimal.Decimal, ts int64) PositionStatusReport {
	side := enum.PositionSideFlat
	switch signed.Sign() {
	case 1:
		side = enum.PositionSideLong
	case -1:
		side = enum.PositionSideShort
	}
	return PositionStatusReport{
		AccountID:  account,
		Instrument: instrument,
		Side:       side,
		Quantity:   signed.Abs(),
		SignedQty:  signed,
		TsLast:     ts,
		TsInit:     ts,
		ID:         uuid.New(),
	}
}

// NewFlatPositionReport is the zero quantity variant.
func NewFlatPositionReport(account model.AccountID, instrument model.InstrumentID, ts int64) PositionStatusReport {
	return NewPositionReport(account, instrument, decimal.Zero, ts)
}

func (r PositionStatusReport) IsFlat() bool {
	return r.SignedQty.IsZero()
}
