package paper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"hftexec/internal/clock"
	"hftexec/internal/command"
	"hftexec/internal/errors"
	"hftexec/internal/execution"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/order"
	"hftexec/internal/report"
	"hftexec/pkg/exception"
)

const reasonDisconnected = "VENUE_DISCONNECTED"

// Handler receives what the venue sends back. *execution.Engine satisfies it.
type Handler interface {
	Process(ev order.Event)
	ReconcileReport(rpt report.ExecutionReport) bool
}

// Config controls the paper venue behavior.
type Config struct {
	ID      model.ClientID
	Venue   model.Venue
	Account model.AccountID
	OmsType enum.OmsType
	// FillOnSubmit fills accepted orders in full at their limit price, or
	// at the mark for orders without one.
	FillOnSubmit      bool
	ResendOnReconnect bool
}

type Option func(*Client)

func WithClock(c clock.Clock) Option {
	return func(p *Client) { p.clock = c }
}

// WithInstruments sets fee and currency data used for commissions.
func WithInstruments(instruments ...model.Instrument) Option {
	return func(p *Client) {
		for _, inst := range instruments {
			p.instruments[inst.ID] = inst
		}
	}
}

// WithScript adds venue reports for orders this process never sent.
func WithScript(ms *report.ExecutionMassStatus) Option {
	return func(p *Client) { p.script = ms }
}

// Client is a paper execution client. It accepts every order, keeps a
// venue-side book and answers report queries from it and from the script.
type Client struct {
	cfg         Config
	handler     Handler
	clock       clock.Clock
	instruments map[model.InstrumentID]model.Instrument

	mu        sync.Mutex
	book      *book
	script    *report.ExecutionMassStatus
	marks     map[model.InstrumentID]decimal.Decimal
	connected bool
	pending   []command.SubmitOrder
}

var _ execution.Client = (*Client)(nil)

func New(cfg Config, handler Handler, opts ...Option) (*Client, error) {
	if handler == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "paper client handler")
	}
	if cfg.ID == "" || cfg.Venue == "" {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "paper client needs an id and a venue")
	}
	if !cfg.OmsType.IsAvailable() {
		cfg.OmsType = enum.OmsTypeNetting
	}
	c := &Client{
		cfg:         cfg,
		handler:     handler,
		clock:       clock.Live{},
		instruments: make(map[model.InstrumentID]model.Instrument),
		book:        newBook(cfg.Venue, cfg.Account),
		marks:       make(map[model.InstrumentID]decimal.Decimal),
		connected:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) ID() model.ClientID         { return c.cfg.ID }
func (c *Client) Venue() model.Venue         { return c.cfg.Venue }
func (c *Client) AccountID() model.AccountID { return c.cfg.Account }
func (c *Client) OmsType() enum.OmsType      { return c.cfg.OmsType }

// SetMark sets the price used to fill orders without a limit price.
func (c *Client) SetMark(inst model.InstrumentID, px decimal.Decimal) {
	c.mu.Lock()
	c.marks[inst] = px
	c.mu.Unlock()
}

// Disconnect makes every command and query fail until Reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

// Reconnect resends the orders submitted while disconnected, or rejects
// them when resending is off.
func (c *Client) Reconnect() {
	c.mu.Lock()
	c.connected = true
	pending := c.pending
	c.pending = nil
	var events []order.Event
	for _, cmd := range pending {
		if c.cfg.ResendOnReconnect {
			events = append(events, c.acceptLocked(cmd.Order, cmd.PositionID)...)
			continue
		}
		now := c.clock.NowNs()
		events = append(events, order.Rejected{EventHeader: c.header(cmd.Order, now), Reason: reasonDisconnected})
	}
	c.mu.Unlock()
	c.emit(events)
}

// Fill executes qty of an open order at px.
func (c *Client) Fill(coid model.ClientOrderID, qty, px decimal.Decimal) error {
	c.mu.Lock()
	ev, err := c.fillLocked(coid, "", qty, px)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.emit([]order.Event{ev})
	return nil
}

// Expire closes an open order the way a venue does at the end of its time in force.
func (c *Client) Expire(coid model.ClientOrderID) error {
	c.mu.Lock()
	v, err := c.book.get(coid, "")
	if err == nil {
		err = c.book.cancel(v, c.clock.NowNs())
	}
	var ev order.Event
	if err == nil {
		v.status.Status = enum.OrderStatusExpired
		ev = order.Expired{EventHeader: c.header(v.order, v.status.TsLast)}
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.emit([]order.Event{ev})
	return nil
}

func (c *Client) SubmitOrder(_ context.Context, cmd command.SubmitOrder) error {
	return c.submit(cmd)
}

func (c *Client) SubmitOrderList(_ context.Context, cmd command.SubmitOrderList) error {
	var errs []error
	for _, o := range cmd.Orders {
		if err := c.submit(command.SubmitOrder{Header: cmd.Header, Order: o, PositionID: cmd.PositionID}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) submit(cmd command.SubmitOrder) error {
	if cmd.Order == nil {
		return errors.Wrap(exception.ErrNilInstance, "submit without an order")
	}
	c.mu.Lock()
	now := c.clock.NowNs()
	events := []order.Event{order.Submitted{EventHeader: c.header(cmd.Order, now)}}
	if !c.connected {
		c.pending = append(c.pending, cmd)
		c.mu.Unlock()
		c.emit(events)
		return errors.Wrapf(exception.ErrVenueDisconnected, "submit %s", cmd.Order.ClientOrderID)
	}
	events = append(events, c.acceptLocked(cmd.Order, cmd.PositionID)...)
	c.mu.Unlock()
	c.emit(events)
	return nil
}

// acceptLocked books o and returns the accept, or reject, and any fill.
func (c *Client) acceptLocked(o *order.Order, pid model.PositionID) []order.Event {
	now := c.clock.NowNs()
	v, err := c.book.add(o, pid, now)
	if err != nil {
		logs.Warnf("paper: reject %s, err: %+v", o.ClientOrderID, err)
		return []order.Event{order.Rejected{EventHeader: c.header(o, now), Reason: err.Error()}}
	}
	events := []order.Event{order.Accepted{EventHeader: order.NewHeader(v.order, now, now)}}
	if !c.cfg.FillOnSubmit {
		return events
	}
	px, ok := c.fillPriceLocked(v)
	if !ok {
		return events
	}
	ev, err := c.fillLocked(o.ClientOrderID, "", v.status.LeavesQty(), px)
	if err != nil {
		logs.Warnf("paper: fill on submit %s, err: %+v", o.ClientOrderID, err)
		return events
	}
	return append(events, ev)
}

func (c *Client) fillPriceLocked(v *venueOrder) (decimal.Decimal, bool) {
	if v.status.Price.Valid {
		return v.status.Price.Decimal, true
	}
	px, ok := c.marks[v.status.Instrument]
	return px, ok
}

func (c *Client) fillLocked(coid model.ClientOrderID, vid model.VenueOrderID, qty, px decimal.Decimal) (order.Event, error) {
	v, err := c.book.get(coid, vid)
	if err != nil {
		return nil, err
	}
	inst := c.instruments[v.status.Instrument]
	fee := inst.MakerFee
	if v.status.Type.IsTakerFamily() {
		fee = inst.TakerFee
	}
	now := c.clock.NowNs()
	f, err := c.book.fill(v, qty, px, fee, inst.SettlementCurrency(), now)
	if err != nil {
		return nil, err
	}
	return order.Filled{
		EventHeader:   order.NewHeader(v.order, f.TsEvent, now),
		TradeID:       f.TradeID,
		PositionID:    f.VenuePositionID,
		Side:          f.Side,
		Type:          v.status.Type,
		LastQty:       f.LastQty,
		LastPx:        f.LastPx,
		Commission:    f.Commission,
		LiquiditySide: f.LiquiditySide,
	}, nil
}

func (c *Client) ModifyOrder(_ context.Context, cmd command.ModifyOrder) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return errors.Wrapf(exception.ErrVenueDisconnected, "modify %s", cmd.ClientOrderID)
	}
	now := c.clock.NowNs()
	var ev order.Event
	v, err := c.book.get(cmd.ClientOrderID, cmd.VenueOrderID)
	if err == nil {
		err = c.book.modify(v, cmd.Quantity, cmd.Price, cmd.TriggerPrice, now)
	}
	switch {
	case err != nil && v == nil:
		ev = order.ModifyRejected{EventHeader: commandHeader(cmd.Header, cmd.ClientOrderID, cmd.VenueOrderID, c.cfg.Account, now), Reason: err.Error()}
	case err != nil:
		ev = order.ModifyRejected{EventHeader: order.NewHeader(v.order, now, now), Reason: err.Error()}
	default:
		ev = order.Updated{
			EventHeader:  order.NewHeader(v.order, now, now),
			Quantity:     v.status.Quantity,
			Price:        cmd.Price,
			TriggerPrice: cmd.TriggerPrice,
		}
	}
	c.mu.Unlock()
	c.emit([]order.Event{ev})
	return nil
}

func (c *Client) CancelOrder(_ context.Context, cmd command.CancelOrder) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return errors.Wrapf(exception.ErrVenueDisconnected, "cancel %s", cmd.ClientOrderID)
	}
	now := c.clock.NowNs()
	var ev order.Event
	v, err := c.book.get(cmd.ClientOrderID, cmd.VenueOrderID)
	if err == nil {
		err = c.book.cancel(v, now)
	}
	switch {
	case err != nil && v == nil:
		ev = order.CancelRejected{EventHeader: commandHeader(cmd.Header, cmd.ClientOrderID, cmd.VenueOrderID, c.cfg.Account, now), Reason: err.Error()}
	case err != nil:
		ev = order.CancelRejected{EventHeader: order.NewHeader(v.order, now, now), Reason: err.Error()}
	default:
		ev = order.Canceled{EventHeader: order.NewHeader(v.order, now, now)}
	}
	c.mu.Unlock()
	c.emit([]order.Event{ev})
	return nil
}

func (c *Client) CancelAllOrders(_ context.Context, cmd command.CancelAllOrders) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return errors.Wrapf(exception.ErrVenueDisconnected, "cancel all %s", cmd.InstrumentID)
	}
	now := c.clock.NowNs()
	var events []order.Event
	for _, v := range c.book.open(cmd.InstrumentID, cmd.Side) {
		if err := c.book.cancel(v, now); err != nil {
			continue
		}
		events = append(events, order.Canceled{EventHeader: order.NewHeader(v.order, now, now)})
	}
	c.mu.Unlock()
	c.emit(events)
	return nil
}

// QueryOrder answers with a status report through the handler.
func (c *Client) QueryOrder(ctx context.Context, cmd command.QueryOrder) error {
	rpt, err := c.GenerateOrderStatusReport(ctx, execution.OrderStatusQuery{
		Instrument:    cmd.InstrumentID,
		ClientOrderID: cmd.ClientOrderID,
		VenueOrderID:  cmd.VenueOrderID,
	})
	if err != nil {
		return err
	}
	if rpt == nil {
		return errors.Wrapf(exception.ErrVenueUnknownOrder, "query %s", cmd.ClientOrderID)
	}
	c.handler.ReconcileReport(*rpt)
	return nil
}

func (c *Client) GenerateOrderStatusReport(_ context.Context, q execution.OrderStatusQuery) (*report.OrderStatusReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, exception.ErrVenueDisconnected
	}
	now := c.clock.NowNs()
	if v, err := c.book.get(q.ClientOrderID, q.VenueOrderID); err == nil {
		r := stamp(v.status, now)
		return &r, nil
	}
	for _, r := range c.scriptOrders() {
		if (q.VenueOrderID != "" && r.VenueOrderID == q.VenueOrderID) ||
			(q.ClientOrderID != "" && r.ClientOrderID == q.ClientOrderID) {
			r = stamp(r, now)
			return &r, nil
		}
	}
	return nil, nil
}

func (c *Client) GenerateOrderStatusReports(_ context.Context, q execution.ReportQuery) ([]report.OrderStatusReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, exception.ErrVenueDisconnected
	}
	return c.orderReportsLocked(q), nil
}

func (c *Client) GenerateFillReports(_ context.Context, q execution.ReportQuery) ([]report.FillReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, exception.ErrVenueDisconnected
	}
	return c.fillReportsLocked(q), nil
}

func (c *Client) GeneratePositionStatusReports(_ context.Context, q execution.ReportQuery) ([]report.PositionStatusReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, exception.ErrVenueDisconnected
	}
	return c.positionReportsLocked(q), nil
}

func (c *Client) GenerateMassStatus(_ context.Context, lookbackMins int) (*report.ExecutionMassStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, exception.ErrVenueDisconnected
	}
	now := c.clock.Now()
	var q execution.ReportQuery
	if lookbackMins > 0 {
		q.Start = now.Add(-time.Duration(lookbackMins) * time.Minute)
	}
	ms := report.NewExecutionMassStatus(c.cfg.ID, c.cfg.Account, c.cfg.Venue, now.UnixNano())
	ms.AddOrderReports(c.orderReportsLocked(q)...)
	ms.AddFillReports(c.fillReportsLocked(q)...)
	ms.AddPositionReports(c.positionReportsLocked(execution.ReportQuery{})...)
	return ms, nil
}

func (c *Client) orderReportsLocked(q execution.ReportQuery) []report.OrderStatusReport {
	now := c.clock.NowNs()
	var out []report.OrderStatusReport
	seen := make(map[model.VenueOrderID]struct{})
	add := func(r report.OrderStatusReport) {
		if _, ok := seen[r.VenueOrderID]; ok {
			return
		}
		if !matchOrder(q, r) {
			return
		}
		seen[r.VenueOrderID] = struct{}{}
		out = append(out, stamp(r, now))
	}
	for _, v := range c.book.sorted() {
		add(v.status)
	}
	for _, r := range c.scriptOrders() {
		add(r)
	}
	return out
}

func (c *Client) fillReportsLocked(q execution.ReportQuery) []report.FillReport {
	var out []report.FillReport
	keep := func(f report.FillReport) {
		if !q.Instrument.IsZero() && f.Instrument != q.Instrument {
			return
		}
		if q.VenueOrderID != "" && f.VenueOrderID != q.VenueOrderID {
			return
		}
		if !inWindow(q, f.TsEvent) {
			return
		}
		out = append(out, f)
	}
	for _, v := range c.book.sorted() {
		for _, f := range v.fills {
			keep(f)
		}
	}
	if c.script != nil {
		for _, r := range c.script.OrderReports() {
			for _, f := range c.script.FillReports(r.VenueOrderID) {
				keep(f)
			}
		}
	}
	return out
}

// positionReportsLocked prefers the book and falls back to scripted
// reports for instruments the book never traded.
func (c *Client) positionReportsLocked(q execution.ReportQuery) []report.PositionStatusReport {
	now := c.clock.NowNs()
	traded := make(map[model.InstrumentID]struct{})
	var out []report.PositionStatusReport
	for _, r := range c.book.positions(c.cfg.OmsType == enum.OmsTypeHedging, now) {
		traded[r.Instrument] = struct{}{}
		if q.Instrument.IsZero() || r.Instrument == q.Instrument {
			out = append(out, r)
		}
	}
	if c.script == nil {
		return out
	}
	for inst, reports := range c.script.PositionReports() {
		if _, ok := traded[inst]; ok {
			continue
		}
		if !q.Instrument.IsZero() && inst != q.Instrument {
			continue
		}
		out = append(out, reports...)
	}
	return out
}

func (c *Client) scriptOrders() []report.OrderStatusReport {
	if c.script == nil {
		return nil
	}
	return c.script.OrderReports()
}

// header stamps an event for an order the venue has not booked.
func (c *Client) header(o *order.Order, ts int64) order.EventHeader {
	h := order.NewHeader(o, ts, ts)
	h.AccountID = c.cfg.Account
	return h
}

func (c *Client) emit(events []order.Event) {
	for _, ev := range events {
		c.handler.Process(ev)
	}
}

func commandHeader(h command.Header, coid model.ClientOrderID, vid model.VenueOrderID, account model.AccountID, ts int64) order.EventHeader {
	return order.EventHeader{
		EventID:       uuid.New(),
		TraderID:      h.TraderID,
		StrategyID:    h.StrategyID,
		InstrumentID:  h.InstrumentID,
		ClientOrderID: coid,
		VenueOrderID:  vid,
		AccountID:     account,
		TsEvent:       ts,
		TsInit:        ts,
	}
}

func stamp(r report.OrderStatusReport, ts int64) report.OrderStatusReport {
	r.ID = uuid.New()
	r.TsInit = ts
	return r
}

func matchOrder(q execution.ReportQuery, r report.OrderStatusReport) bool {
	if !q.Instrument.IsZero() && r.Instrument != q.Instrument {
		return false
	}
	if q.VenueOrderID != "" && r.VenueOrderID != q.VenueOrderID {
		return false
	}
	if q.OpenOnly && !r.IsOpen() {
		return false
	}
	return inWindow(q, r.TsLast)
}

func inWindow(q execution.ReportQuery, ts int64) bool {
	if !q.Start.IsZero() && ts < q.Start.UnixNano() {
		return false
	}
	if !q.End.IsZero() && ts > q.End.UnixNano() {
		return false
	}
	return true
}
