package state

import (
	"github.com/shopspring/decimal"

	"hftexec/internal/errors"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
	"hftexec/pkg/exception"
)

var (
	ErrPositionFlip        = errors.New("fill would flip position")
	ErrPositionInstrument  = errors.New("fill instrument does not match position")
	ErrPositionInvalidFill = errors.New("invalid fill quantity")
)

// Position tracks a signed quantity opened by fills. Closed positions are
// kept until purged so late reports can still be matched.
type Position struct {
	ID             model.PositionID    `json:"id"`
	TraderID       model.TraderID      `json:"traderId"`
	StrategyID     model.StrategyID    `json:"strategyId"`
	InstrumentID   model.InstrumentID  `json:"instrumentId"`
	AccountID      model.AccountID     `json:"accountId,omitempty"`
	OpeningOrderID model.ClientOrderID `json:"openingOrderId"`
	Side           enum.PositionSide   `json:"side"`
	SignedQty      decimal.Decimal     `json:"signedQty"`
	Quantity       decimal.Decimal     `json:"quantity"`
	PeakQty        decimal.Decimal     `json:"peakQty"`
	AvgPxOpen      decimal.Decimal     `json:"avgPxOpen"`
	TradeIDs       []model.TradeID     `json:"tradeIds,omitempty"`
	TsOpened       int64               `json:"tsOpened"`
	TsLast         int64               `json:"tsLast"`
	TsClosed       int64               `json:"tsClosed"`
}

// NewPosition opens a position from its first fill.
func NewPosition(id model.PositionID, fill order.Filled) (*Position, error) {
	if !fill.LastQty.IsPositive() {
		return nil, errors.Wrapf(ErrPositionInvalidFill, "position %s qty %s", id, fill.LastQty)
	}
	p := &Position{
		ID:             id,
		TraderID:       fill.TraderID,
		StrategyID:     fill.StrategyID,
		InstrumentID:   fill.InstrumentID,
		AccountID:      fill.AccountID,
		OpeningOrderID: fill.ClientOrderID,
		SignedQty:      decimal.Zero,
		Quantity:       decimal.Zero,
		PeakQty:        decimal.Zero,
		AvgPxOpen:      decimal.Zero,
	}
	if err := p.ApplyFill(fill); err != nil {
		return nil, err
	}
	return p, nil
}

func signedQty(side enum.OrderSide, qty decimal.Decimal) decimal.Decimal {
	if side == enum.OrderSideSell {
		return qty.Neg()
	}
	return qty
}

// WouldFlip reports whether a fill crosses through flat to the other side.
func (p *Position) WouldFlip(side enum.OrderSide, qty decimal.Decimal) bool {
	if p.SignedQty.IsZero() {
		return false
	}
	next := p.SignedQty.Add(signedQty(side, qty))
	return !next.IsZero() && next.Sign() != p.SignedQty.Sign()
}

// ApplyFill adds a fill that does not flip the position. Callers split
// flipping fills into a closing and an opening part.
func (p *Position) ApplyFill(fill order.Filled) error {
	if !fill.LastQty.IsPositive() {
		return errors.Wrapf(ErrPositionInvalidFill, "position %s qty %s", p.ID, fill.LastQty)
	}
	if fill.InstrumentID != p.InstrumentID {
		return errors.Wrapf(ErrPositionInstrument, "position %s on %s, fill on %s", p.ID, p.InstrumentID, fill.InstrumentID)
	}
	for _, id := range p.TradeIDs {
		if id == fill.TradeID {
			return errors.Wrapf(exception.ErrOrderDuplicateTrade, "position %s trade %s", p.ID, fill.TradeID)
		}
	}
	if p.WouldFlip(fill.Side, fill.LastQty) {
		return errors.Wrapf(ErrPositionFlip, "position %s signed %s, fill %s %s", p.ID, p.SignedQty, fill.Side, fill.LastQty)
	}

	delta := signedQty(fill.Side, fill.LastQty)
	if p.SignedQty.IsZero() {
		// opening or reopening a closed position
		p.AvgPxOpen = fill.LastPx
		p.TsOpened = fill.TsEvent
		p.TsClosed = 0
		p.OpeningOrderID = fill.ClientOrderID
	} else if p.SignedQty.Sign() == delta.Sign() {
		notional := p.AvgPxOpen.Mul(p.Quantity).Add(fill.LastPx.Mul(fill.LastQty))
		p.AvgPxOpen = notional.Div(p.Quantity.Add(fill.LastQty))
	}

	p.SignedQty = p.SignedQty.Add(delta)
	p.Quantity = p.SignedQty.Abs()
	if p.Quantity.GreaterThan(p.PeakQty) {
		p.PeakQty = p.Quantity
	}
	switch p.SignedQty.Sign() {
	case 1:
		p.Side = enum.PositionSideLong
	case -1:
		p.Side = enum.PositionSideShort
	default:
		p.Side = enum.PositionSideFlat
		p.TsClosed = fill.TsEvent
	}
	p.TradeIDs = append(p.TradeIDs, fill.TradeID)
	p.TsLast = fill.TsEvent
	return nil
}

func (p *Position) IsOpen() bool   { return !p.SignedQty.IsZero() }
func (p *Position) IsClosed() bool { return p.SignedQty.IsZero() }

// Clone returns a deep copy.
func (p *Position) Clone() *Position {
	c := *p
	c.TradeIDs = append([]model.TradeID(nil), p.TradeIDs...)
	return &c
}
