package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"hftexec/internal/errors"
	"hftexec/internal/model"
	"hftexec/internal/order"
	"hftexec/internal/state"
	"hftexec/pkg/exception"
)

// Store persists cache state. Implementations must be safe for use by one
// flushing goroutine at a time.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	SaveOrders(ctx context.Context, orders []*order.Order) error
	SavePositions(ctx context.Context, positions []*state.Position) error
	SaveAccountStates(ctx context.Context, states []model.AccountState) error
	SaveInstruments(ctx context.Context, instruments []model.Instrument) error
	Close() error
}

// Snapshot is the full persisted state.
type Snapshot struct {
	Instruments   []model.Instrument   `json:"instruments"`
	Orders        []*order.Order       `json:"orders"`
	Positions     []*state.Position    `json:"positions"`
	AccountStates []model.AccountState `json:"accountStates"`
}

type set[K comparable] map[K]struct{}

func (s set[K]) add(k K) { s[k] = struct{}{} }
func (s set[K]) del(k K) { delete(s, k) }
func (s set[K]) has(k K) bool {
	_, ok := s[k]
	return ok
}

// Cache holds orders, positions, instruments and account events with the
// indexes reconciliation queries. The indexes are safe for concurrent use;
// the cached orders and positions are mutated by the execution engine, so
// copies taken outside it (Snapshot, TakeDirty) must run under its state lock.
type Cache struct {
	mu sync.RWMutex

	instruments map[model.InstrumentID]model.Instrument

	orders         map[model.ClientOrderID]*order.Order
	orderSeq       map[model.ClientOrderID]uint64
	venueOrderIDs  map[model.VenueOrderID]model.ClientOrderID
	ordersOpen     set[model.ClientOrderID]
	ordersClosed   set[model.ClientOrderID]
	ordersInflight set[model.ClientOrderID]
	orderPosition  map[model.ClientOrderID]model.PositionID
	seq            uint64

	positions       map[model.PositionID]*state.Position
	positionSeq     map[model.PositionID]uint64
	positionsOpen   set[model.PositionID]
	positionsClosed set[model.PositionID]

	accountStates map[model.AccountID][]model.AccountState

	dirtyOrders    set[model.ClientOrderID]
	dirtyPositions set[model.PositionID]
	dirtyAccounts  []model.AccountState

	store Store
}

// New creates an empty cache. store may be nil for a memory-only cache.
func New(store Store) *Cache {
	return &Cache{
		instruments:     make(map[model.InstrumentID]model.Instrument),
		orders:          make(map[model.ClientOrderID]*order.Order),
		orderSeq:        make(map[model.ClientOrderID]uint64),
		venueOrderIDs:   make(map[model.VenueOrderID]model.ClientOrderID),
		ordersOpen:      make(set[model.ClientOrderID]),
		ordersClosed:    make(set[model.ClientOrderID]),
		ordersInflight:  make(set[model.ClientOrderID]),
		orderPosition:   make(map[model.ClientOrderID]model.PositionID),
		positions:       make(map[model.PositionID]*state.Position),
		positionSeq:     make(map[model.PositionID]uint64),
		positionsOpen:   make(set[model.PositionID]),
		positionsClosed: make(set[model.PositionID]),
		accountStates:   make(map[model.AccountID][]model.AccountState),
		dirtyOrders:     make(set[model.ClientOrderID]),
		dirtyPositions:  make(set[model.PositionID]),
		store:           store,
	}
}

// Instruments

func (c *Cache) AddInstrument(inst model.Instrument) {
	c.mu.Lock()
	c.instruments[inst.ID] = inst
	c.mu.Unlock()
}

func (c *Cache) Instrument(id model.InstrumentID) (model.Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.instruments[id]
	return inst, ok
}

func (c *Cache) Instruments() []model.Instrument {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Instrument, 0, len(c.instruments))
	for _, inst := range c.instruments {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Orders

// AddOrder caches a new order, optionally linked to a position.
func (c *Cache) AddOrder(o *order.Order, positionID model.PositionID) error {
	if o == nil {
		return exception.ErrNilInstance
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.orders[o.ClientOrderID]; ok {
		return errors.Wrapf(exception.ErrCacheOrderExists, "client order id %s", o.ClientOrderID)
	}
	c.seq++
	c.orders[o.ClientOrderID] = o
	c.orderSeq[o.ClientOrderID] = c.seq
	if positionID != "" {
		c.orderPosition[o.ClientOrderID] = positionID
	}
	c.indexOrderLocked(o)
	logs.Debugf("cache: added order %s (%s)", o.ClientOrderID, o.Status)
	return nil
}

// UpdateOrder refreshes the indexes after an event was applied to o.
func (c *Cache) UpdateOrder(o *order.Order) error {
	if o == nil {
		return exception.ErrNilInstance
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.orders[o.ClientOrderID]; !ok {
		return errors.Wrapf(exception.ErrCacheOrderMissing, "client order id %s", o.ClientOrderID)
	}
	c.indexOrderLocked(o)
	if o.PositionID != "" {
		c.orderPosition[o.ClientOrderID] = o.PositionID
	}
	return nil
}

func (c *Cache) indexOrderLocked(o *order.Order) {
	id := o.ClientOrderID
	if o.VenueOrderID != "" {
		c.venueOrderIDs[o.VenueOrderID] = id
	}
	c.ordersOpen.del(id)
	c.ordersClosed.del(id)
	c.ordersInflight.del(id)
	switch {
	case o.IsOpen():
		c.ordersOpen.add(id)
	case o.IsClosed():
		c.ordersClosed.add(id)
	}
	if o.IsInflight() {
		c.ordersInflight.add(id)
	}
	c.dirtyOrders.add(id)
}

func (c *Cache) Order(id model.ClientOrderID) (*order.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.orders[id]
	return o, ok
}

func (c *Cache) OrderExists(id model.ClientOrderID) bool {
	_, ok := c.Order(id)
	return ok
}

// ClientOrderID resolves a venue order id.
func (c *Cache) ClientOrderID(id model.VenueOrderID) (model.ClientOrderID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coid, ok := c.venueOrderIDs[id]
	return coid, ok
}

// OrderByVenueID resolves a venue order id to the cached order.
func (c *Cache) OrderByVenueID(id model.VenueOrderID) (*order.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coid, ok := c.venueOrderIDs[id]
	if !ok {
		return nil, false
	}
	o, ok := c.orders[coid]
	return o, ok
}

// OrderFilter narrows order queries. Zero fields match everything.
type OrderFilter struct {
	Instrument model.InstrumentID
	Venue      model.Venue
	Strategy   model.StrategyID
}

func (f OrderFilter) match(o *order.Order) bool {
	if !f.Instrument.IsZero() && o.InstrumentID != f.Instrument {
		return false
	}
	if f.Venue != "" && o.InstrumentID.Venue != f.Venue {
		return false
	}
	if f.Strategy != "" && o.StrategyID != f.Strategy {
		return false
	}
	return true
}

func (c *Cache) Orders(f OrderFilter) []*order.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*order.Order, 0, len(c.orders))
	for _, o := range c.orders {
		if f.match(o) {
			out = append(out, o)
		}
	}
	c.sortOrdersLocked(out)
	return out
}

func (c *Cache) OrdersOpen(f OrderFilter) []*order.Order {
	return c.ordersIn(func() set[model.ClientOrderID] { return c.ordersOpen }, f)
}

func (c *Cache) OrdersClosed(f OrderFilter) []*order.Order {
	return c.ordersIn(func() set[model.ClientOrderID] { return c.ordersClosed }, f)
}

func (c *Cache) OrdersInflight(f OrderFilter) []*order.Order {
	return c.ordersIn(func() set[model.ClientOrderID] { return c.ordersInflight }, f)
}

func (c *Cache) IsOrderOpen(id model.ClientOrderID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ordersOpen.has(id)
}

func (c *Cache) ordersIn(index func() set[model.ClientOrderID], f OrderFilter) []*order.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := index()
	out := make([]*order.Order, 0, len(ids))
	for id := range ids {
		if o, ok := c.orders[id]; ok && f.match(o) {
			out = append(out, o)
		}
	}
	c.sortOrdersLocked(out)
	return out
}

func (c *Cache) sortOrdersLocked(out []*order.Order) {
	sort.Slice(out, func(i, j int) bool {
		return c.orderSeq[out[i].ClientOrderID] < c.orderSeq[out[j].ClientOrderID]
	})
}

// PositionIDForOrder returns the position an order fills into.
func (c *Cache) PositionIDForOrder(id model.ClientOrderID) (model.PositionID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pid, ok := c.orderPosition[id]
	return pid, ok
}

// Positions

func (c *Cache) AddPosition(p *state.Position) error {
	if p == nil {
		return exception.ErrNilInstance
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.positions[p.ID]; ok {
		return errors.Wrapf(exception.ErrCachePositionExists, "position id %s", p.ID)
	}
	c.seq++
	c.positions[p.ID] = p
	c.positionSeq[p.ID] = c.seq
	c.indexPositionLocked(p)
	return nil
}

func (c *Cache) UpdatePosition(p *state.Position) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.positions[p.ID]; !ok {
		c.seq++
		c.positions[p.ID] = p
		c.positionSeq[p.ID] = c.seq
	}
	c.indexPositionLocked(p)
}

func (c *Cache) indexPositionLocked(p *state.Position) {
	c.positionsOpen.del(p.ID)
	c.positionsClosed.del(p.ID)
	if p.IsOpen() {
		c.positionsOpen.add(p.ID)
	} else {
		c.positionsClosed.add(p.ID)
	}
	c.dirtyPositions.add(p.ID)
}

func (c *Cache) Position(id model.PositionID) (*state.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.positions[id]
	return p, ok
}

// PositionFilter narrows position queries. Zero fields match everything.
type PositionFilter struct {
	Instrument model.InstrumentID
	Strategy   model.StrategyID
}

func (f PositionFilter) match(p *state.Position) bool {
	if !f.Instrument.IsZero() && p.InstrumentID != f.Instrument {
		return false
	}
	if f.Strategy != "" && p.StrategyID != f.Strategy {
		return false
	}
	return true
}

func (c *Cache) Positions(f PositionFilter) []*state.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*state.Position, 0, len(c.positions))
	for _, p := range c.positions {
		if f.match(p) {
			out = append(out, p)
		}
	}
	c.sortPositionsLocked(out)
	return out
}

func (c *Cache) PositionsOpen(f PositionFilter) []*state.Position {
	return c.positionsIn(true, f)
}

func (c *Cache) PositionsClosed(f PositionFilter) []*state.Position {
	return c.positionsIn(false, f)
}

func (c *Cache) positionsIn(open bool, f PositionFilter) []*state.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.positionsClosed
	if open {
		ids = c.positionsOpen
	}
	out := make([]*state.Position, 0, len(ids))
	for id := range ids {
		if p, ok := c.positions[id]; ok && f.match(p) {
			out = append(out, p)
		}
	}
	c.sortPositionsLocked(out)
	return out
}

func (c *Cache) sortPositionsLocked(out []*state.Position) {
	sort.Slice(out, func(i, j int) bool {
		return c.positionSeq[out[i].ID] < c.positionSeq[out[j].ID]
	})
}

// Accounts

func (c *Cache) AddAccountState(s model.AccountState) {
	c.mu.Lock()
	c.accountStates[s.AccountID] = append(c.accountStates[s.AccountID], s)
	c.dirtyAccounts = append(c.dirtyAccounts, s)
	c.mu.Unlock()
}

func (c *Cache) AccountStates(id model.AccountID) []model.AccountState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.AccountState(nil), c.accountStates[id]...)
}

func (c *Cache) LatestAccountState(id model.AccountID) (model.AccountState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	states := c.accountStates[id]
	if len(states) == 0 {
		return model.AccountState{}, false
	}
	return states[len(states)-1], true
}

// Purges

// PurgeClosedOrders drops closed orders whose close time plus buffer is not
// after now. It returns the number purged.
func (c *Cache) PurgeClosedOrders(now time.Time, buffer time.Duration) int {
	tsNow := now.UnixNano()
	c.mu.Lock()
	defer c.mu.Unlock()
	purged := 0
	for id := range c.ordersClosed {
		o, ok := c.orders[id]
		if !ok || o.TsClosed == 0 {
			continue
		}
		if o.TsClosed+buffer.Nanoseconds() > tsNow {
			continue
		}
		delete(c.orders, id)
		delete(c.orderSeq, id)
		delete(c.orderPosition, id)
		if o.VenueOrderID != "" {
			delete(c.venueOrderIDs, o.VenueOrderID)
		}
		c.ordersClosed.del(id)
		c.dirtyOrders.del(id)
		purged++
		logs.Infof("cache: purged order %s", id)
	}
	return purged
}

// PurgeClosedPositions drops closed positions whose close time plus buffer is
// not after now.
func (c *Cache) PurgeClosedPositions(now time.Time, buffer time.Duration) int {
	tsNow := now.UnixNano()
	c.mu.Lock()
	defer c.mu.Unlock()
	purged := 0
	for id := range c.positionsClosed {
		p, ok := c.positions[id]
		if !ok || p.TsClosed == 0 {
			continue
		}
		if p.TsClosed+buffer.Nanoseconds() > tsNow {
			continue
		}
		delete(c.positions, id)
		delete(c.positionSeq, id)
		for coid, pid := range c.orderPosition {
			if pid == id {
				delete(c.orderPosition, coid)
			}
		}
		c.positionsClosed.del(id)
		c.dirtyPositions.del(id)
		purged++
		logs.Infof("cache: purged position %s", id)
	}
	return purged
}

// PurgeAccountEvents drops account events older than the lookback window.
// The latest event of each account is always kept.
func (c *Cache) PurgeAccountEvents(now time.Time, lookback time.Duration) int {
	cutoff := now.UnixNano() - lookback.Nanoseconds()
	c.mu.Lock()
	defer c.mu.Unlock()
	purged := 0
	for id, states := range c.accountStates {
		if len(states) <= 1 {
			continue
		}
		kept := make([]model.AccountState, 0, len(states))
		last := len(states) - 1
		for i, s := range states {
			if i == last || s.TsEvent >= cutoff {
				kept = append(kept, s)
			}
		}
		if n := len(states) - len(kept); n > 0 {
			purged += n
			c.accountStates[id] = kept
			logs.Infof("cache: purged %d event(s) from account %s", n, id)
		}
	}
	return purged
}

// Persistence

// Dirty holds copies of everything changed since the last TakeDirty.
type Dirty struct {
	Orders        []*order.Order
	Positions     []*state.Position
	AccountStates []model.AccountState
}

func (d Dirty) IsEmpty() bool {
	return len(d.Orders) == 0 && len(d.Positions) == 0 && len(d.AccountStates) == 0
}

// TakeDirty copies and clears the changed set.
func (c *Cache) TakeDirty() Dirty {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := Dirty{
		Orders:        make([]*order.Order, 0, len(c.dirtyOrders)),
		Positions:     make([]*state.Position, 0, len(c.dirtyPositions)),
		AccountStates: c.dirtyAccounts,
	}
	for id := range c.dirtyOrders {
		if o, ok := c.orders[id]; ok {
			d.Orders = append(d.Orders, o.Clone())
		}
	}
	for id := range c.dirtyPositions {
		if p, ok := c.positions[id]; ok {
			d.Positions = append(d.Positions, p.Clone())
		}
	}
	c.dirtyOrders = make(set[model.ClientOrderID])
	c.dirtyPositions = make(set[model.PositionID])
	c.dirtyAccounts = nil
	return d
}

// WriteDirty persists d. On failure the entries are marked dirty again.
func (c *Cache) WriteDirty(ctx context.Context, d Dirty) error {
	if c.store == nil || d.IsEmpty() {
		return nil
	}
	var errs []error
	if len(d.Orders) > 0 {
		errs = append(errs, errors.Wrap(c.store.SaveOrders(ctx, d.Orders), "save orders"))
	}
	if len(d.Positions) > 0 {
		errs = append(errs, errors.Wrap(c.store.SavePositions(ctx, d.Positions), "save positions"))
	}
	if len(d.AccountStates) > 0 {
		errs = append(errs, errors.Wrap(c.store.SaveAccountStates(ctx, d.AccountStates), "save account states"))
	}
	if err := errors.Join(errs...); err != nil {
		c.requeue(d.Orders, d.Positions, d.AccountStates)
		return err
	}
	return nil
}

// Flush is TakeDirty followed by WriteDirty.
func (c *Cache) Flush(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.WriteDirty(ctx, c.TakeDirty())
}

func (c *Cache) requeue(orders []*order.Order, positions []*state.Position, accounts []model.AccountState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range orders {
		if _, ok := c.orders[o.ClientOrderID]; ok {
			c.dirtyOrders.add(o.ClientOrderID)
		}
	}
	for _, p := range positions {
		if _, ok := c.positions[p.ID]; ok {
			c.dirtyPositions.add(p.ID)
		}
	}
	c.dirtyAccounts = append(accounts, c.dirtyAccounts...)
}

// SaveInstruments persists the instrument set.
func (c *Cache) SaveInstruments(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.SaveInstruments(ctx, c.Instruments())
}

// Load replaces the cache content with the store snapshot.
func (c *Cache) Load(ctx context.Context) error {
	if c.store == nil {
		return exception.ErrCacheNilStore
	}
	snap, err := c.store.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load cache")
	}
	c.Restore(snap)
	logs.Infof("cache: loaded %d instrument(s), %d order(s), %d position(s)", len(snap.Instruments), len(snap.Orders), len(snap.Positions))
	return nil
}

// Restore replaces the cache content with snap.
func (c *Cache) Restore(snap Snapshot) {
	fresh := New(c.store)
	for _, inst := range snap.Instruments {
		fresh.instruments[inst.ID] = inst
	}
	for _, o := range snap.Orders {
		if o == nil {
			continue
		}
		fresh.seq++
		fresh.orders[o.ClientOrderID] = o
		fresh.orderSeq[o.ClientOrderID] = fresh.seq
		if o.PositionID != "" {
			fresh.orderPosition[o.ClientOrderID] = o.PositionID
		}
		fresh.indexOrderLocked(o)
	}
	for _, p := range snap.Positions {
		if p == nil {
			continue
		}
		fresh.seq++
		fresh.positions[p.ID] = p
		fresh.positionSeq[p.ID] = fresh.seq
		fresh.indexPositionLocked(p)
	}
	for _, s := range snap.AccountStates {
		fresh.accountStates[s.AccountID] = append(fresh.accountStates[s.AccountID], s)
	}
	fresh.dirtyOrders = make(set[model.ClientOrderID])
	fresh.dirtyPositions = make(set[model.PositionID])

	c.mu.Lock()
	defer c.mu.Unlock()
	c.instruments = fresh.instruments
	c.orders = fresh.orders
	c.orderSeq = fresh.orderSeq
	c.venueOrderIDs = fresh.venueOrderIDs
	c.ordersOpen = fresh.ordersOpen
	c.ordersClosed = fresh.ordersClosed
	c.ordersInflight = fresh.ordersInflight
	c.orderPosition = fresh.orderPosition
	c.positions = fresh.positions
	c.positionSeq = fresh.positionSeq
	c.positionsOpen = fresh.positionsOpen
	c.positionsClosed = fresh.positionsClosed
	c.accountStates = fresh.accountStates
	c.dirtyOrders = fresh.dirtyOrders
	c.dirtyPositions = fresh.dirtyPositions
	c.dirtyAccounts = nil
	c.seq = fresh.seq
}

// Snapshot copies the full cache content.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{
		Instruments:   make([]model.Instrument, 0, len(c.instruments)),
		Orders:        make([]*order.Order, 0, len(c.orders)),
		Positions:     make([]*state.Position, 0, len(c.positions)),
		AccountStates: make([]model.AccountState, 0),
	}
	for _, inst := range c.instruments {
		snap.Instruments = append(snap.Instruments, inst)
	}
	sort.Slice(snap.Instruments, func(i, j int) bool { return snap.Instruments[i].ID.String() < snap.Instruments[j].ID.String() })
	for _, o := range c.orders {
		snap.Orders = append(snap.Orders, o.Clone())
	}
	sort.Slice(snap.Orders, func(i, j int) bool {
		return c.orderSeq[snap.Orders[i].ClientOrderID] < c.orderSeq[snap.Orders[j].ClientOrderID]
	})
	for _, p := range c.positions {
		snap.Positions = append(snap.Positions, p.Clone())
	}
	sort.Slice(snap.Positions, func(i, j int) bool {
		return c.positionSeq[snap.Positions[i].ID] < c.positionSeq[snap.Positions[j].ID]
	})
	accounts := make([]model.AccountID, 0, len(c.accountStates))
	for id := range c.accountStates {
		accounts = append(accounts, id)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })
	for _, id := range accounts {
		snap.AccountStates = append(snap.AccountStates, c.accountStates[id]...)
	}
	return snap
}

// Close closes the store.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
