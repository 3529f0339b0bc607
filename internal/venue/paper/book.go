package paper

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hftexec/internal/errors"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
	"hftexec/internal/report"
	"hftexec/pkg/exception"
)

// venueOrder is the venue's view of one order.
type venueOrder struct {
	order      *order.Order
	positionID model.PositionID
	status     report.OrderStatusReport
	fills      []report.FillReport
}

// book updates venue orders from submits, fills, modifies and cancels.
type book struct {
	venue   model.Venue
	account model.AccountID
	seq     int
	orders  map[model.ClientOrderID]*venueOrder
	byVenue map[model.VenueOrderID]model.ClientOrderID
}

func newBook(venue model.Venue, account model.AccountID) *book {
	return &book{
		venue:   venue,
		account: account,
		orders:  make(map[model.ClientOrderID]*venueOrder),
		byVenue: make(map[model.VenueOrderID]model.ClientOrderID),
	}
}

// add accepts a copy of o and assigns a venue order id.
func (b *book) add(o *order.Order, pid model.PositionID, ts int64) (*venueOrder, error) {
	if o == nil || o.ClientOrderID == "" {
		return nil, exception.ErrVenueUnknownOrder
	}
	if _, ok := b.orders[o.ClientOrderID]; ok {
		return nil, errors.Wrapf(exception.ErrVenueDuplicateOrder, "client order %s", o.ClientOrderID)
	}
	b.seq++
	vid := model.VenueOrderID(fmt.Sprintf("%s-%d", b.venue, b.seq))

	c := o.Clone()
	c.VenueOrderID = vid
	c.AccountID = b.account
	if pid == "" {
		pid = o.PositionID
	}
	v := &venueOrder{
		order:      c,
		positionID: pid,
		status: report.OrderStatusReport{
			AccountID:          b.account,
			Instrument:         o.InstrumentID,
			ClientOrderID:      o.ClientOrderID,
			OrderListID:        o.OrderListID,
			VenueOrderID:       vid,
			VenuePositionID:    pid,
			Side:               o.Side,
			Type:               o.Type,
			TimeInForce:        o.TimeInForce,
			ContingencyType:    o.ContingencyType,
			Status:             enum.OrderStatusAccepted,
			Price:              o.Price,
			TriggerPrice:       o.TriggerPrice,
			TriggerType:        o.TriggerType,
			LimitOffset:        o.LimitOffset,
			TrailingOffset:     o.TrailingOffset,
			TrailingOffsetType: o.TrailingOffsetType,
			DisplayQty:         o.DisplayQty,
			ExpireTimeNs:       o.ExpireTimeNs,
			Quantity:           o.Quantity,
			FilledQty:          decimal.Zero,
			PostOnly:           o.PostOnly,
			ReduceOnly:         o.ReduceOnly,
			TsAccepted:         ts,
			TsLast:             ts,
			TsInit:             ts,
		},
	}
	b.orders[o.ClientOrderID] = v
	b.byVenue[vid] = o.ClientOrderID
	return v, nil
}

// get resolves by client order id first and falls back to the venue id.
func (b *book) get(coid model.ClientOrderID, vid model.VenueOrderID) (*venueOrder, error) {
	if v, ok := b.orders[coid]; ok {
		return v, nil
	}
	if id, ok := b.byVenue[vid]; ok {
		return b.orders[id], nil
	}
	return nil, errors.Wrapf(exception.ErrVenueUnknownOrder, "client order %s venue order %s", coid, vid)
}

// fill executes up to the leaves quantity at px.
func (b *book) fill(v *venueOrder, qty, px decimal.Decimal, fee decimal.Decimal, currency string, ts int64) (report.FillReport, error) {
	s := &v.status
	if s.Status.IsClosed() {
		return report.FillReport{}, errors.Wrapf(exception.ErrVenueInvalidTransition, "fill %s in %s", s.VenueOrderID, s.Status)
	}
	if !qty.IsPositive() || !px.IsPositive() {
		return report.FillReport{}, errors.Wrapf(exception.ErrVenueInvalidFill, "qty %s px %s", qty, px)
	}
	qty = decimal.Min(qty, s.LeavesQty())

	prevNotional := decimal.Zero
	if s.AvgPx.Valid {
		prevNotional = s.AvgPx.Decimal.Mul(s.FilledQty)
	}
	s.FilledQty = s.FilledQty.Add(qty)
	s.AvgPx = decimal.NewNullDecimal(prevNotional.Add(px.Mul(qty)).Div(s.FilledQty))
	s.Status = enum.OrderStatusPartiallyFilled
	if s.LeavesQty().IsZero() {
		s.Status = enum.OrderStatusFilled
	}
	s.TsLast = ts

	liquidity := enum.LiquiditySideMaker
	if s.Type.IsTakerFamily() {
		liquidity = enum.LiquiditySideTaker
	}
	f := report.FillReport{
		AccountID:       b.account,
		Instrument:      s.Instrument,
		ClientOrderID:   s.ClientOrderID,
		VenueOrderID:    s.VenueOrderID,
		VenuePositionID: v.positionID,
		TradeID:         model.NewTradeID(),
		Side:            s.Side,
		LastQty:         qty,
		LastPx:          px,
		Commission:      model.NewMoney(qty.Mul(px).Mul(fee), currency),
		LiquiditySide:   liquidity,
		TsEvent:         ts,
		TsInit:          ts,
		ID:              uuid.New(),
	}
	v.fills = append(v.fills, f)
	return f, nil
}

func (b *book) cancel(v *venueOrder, ts int64) error {
	s := &v.status
	if s.Status.IsClosed() {
		return errors.Wrapf(exception.ErrVenueInvalidTransition, "cancel %s in %s", s.VenueOrderID, s.Status)
	}
	s.Status = enum.OrderStatusCanceled
	s.TsLast = ts
	return nil
}

// modify replaces quantity and prices. A quantity below the filled amount is rejected.
func (b *book) modify(v *venueOrder, qty, px, trigger decimal.NullDecimal, ts int64) error {
	s := &v.status
	if s.Status.IsClosed() {
		return errors.Wrapf(exception.ErrVenueInvalidTransition, "modify %s in %s", s.VenueOrderID, s.Status)
	}
	if qty.Valid {
		if qty.Decimal.LessThanOrEqual(s.FilledQty) {
			return errors.Wrapf(exception.ErrVenueInvalidFill, "quantity %s <= filled %s", qty.Decimal, s.FilledQty)
		}
		s.Quantity = qty.Decimal
	}
	if px.Valid {
		s.Price = px
	}
	if trigger.Valid {
		s.TriggerPrice = trigger
	}
	s.TsLast = ts
	return nil
}

// open lists open orders of an instrument, or of all instruments when zero.
func (b *book) open(inst model.InstrumentID, side enum.OrderSide) []*venueOrder {
	var out []*venueOrder
	for _, v := range b.sorted() {
		if !v.status.IsOpen() {
			continue
		}
		if !inst.IsZero() && v.status.Instrument != inst {
			continue
		}
		if side.IsAvailable() && v.status.Side != side {
			continue
		}
		out = append(out, v)
	}
	return out
}

// sorted returns orders by venue id sequence.
func (b *book) sorted() []*venueOrder {
	out := make([]*venueOrder, 0, len(b.orders))
	for _, v := range b.orders {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].status.TsInit != out[j].status.TsInit {
			return out[i].status.TsInit < out[j].status.TsInit
		}
		return out[i].status.VenueOrderID < out[j].status.VenueOrderID
	})
	return out
}

// positions nets fills per instrument, or per venue position id on hedging venues.
func (b *book) positions(hedging bool, ts int64) []report.PositionStatusReport {
	type key struct {
		inst model.InstrumentID
		pid  model.PositionID
	}
	net := make(map[key]decimal.Decimal)
	var keys []key
	for _, v := range b.sorted() {
		k := key{inst: v.status.Instrument}
		if hedging {
			k.pid = v.positionID
		}
		for _, f := range v.fills {
			signed := f.LastQty
			if f.Side == enum.OrderSideSell {
				signed = signed.Neg()
			}
			if _, ok := net[k]; !ok {
				keys = append(keys, k)
			}
			net[k] = net[k].Add(signed)
		}
	}
	out := make([]report.PositionStatusReport, 0, len(keys))
	for _, k := range keys {
		r := report.NewPositionReport(b.account, k.inst, net[k], ts)
		r.VenuePositionID = k.pid
		out = append(out, r)
	}
	return out
}
