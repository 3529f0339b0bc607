package execution

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"hftexec/internal/bus"
	"hftexec/internal/cache"
	"hftexec/internal/clock"
	"hftexec/internal/command"
	"hftexec/internal/errors"
	"hftexec/internal/model"
	"hftexec/internal/model/enum"
	"hftexec/internal/obs"
	"hftexec/internal/order"
	"hftexec/internal/report"
	"hftexec/pkg/exception"
)

const (
	EndpointReconcileReport     = "ExecEngine.reconcile_report"
	EndpointReconcileMassStatus = "ExecEngine.reconcile_mass_status"

	queueCommands = "commands"
	queueEvents   = "events"
)

type eventMsg struct {
	event   order.Event
	account *model.AccountState
}

type published struct {
	topic string
	msg   any
}

// Engine routes commands to execution clients, applies venue events to the
// cache and reconciles cached state against venue reports.
type Engine struct {
	cfg     Config
	trader  model.TraderID
	cache   *cache.Cache
	bus     *bus.MessageBus
	clock   clock.Clock
	metrics *obs.Metrics

	clientsMu     sync.RWMutex
	clients       map[model.ClientID]Client
	venueClients  map[model.Venue]model.ClientID
	defaultClient model.ClientID

	claimsMu sync.RWMutex
	claims   map[model.InstrumentID]model.StrategyID

	// mu serializes every mutation of cached orders and positions and
	// guards the fields below.
	mu        sync.Mutex
	pending   []published
	retries   map[model.ClientOrderID]int
	lastQuery map[model.ClientOrderID]int64

	cmdQ *bus.Queue[command.Command]
	evtQ *bus.Queue[eventMsg]

	warnMu       sync.Mutex
	lastFullWarn map[string]time.Time

	commandCount atomic.Int64
	eventCount   atomic.Int64
	reportCount  atomic.Int64

	lifeMu       sync.Mutex
	running      bool
	ctxMu        sync.RWMutex
	runCtx       context.Context
	cancelLoops  context.CancelFunc
	cancelQueues context.CancelFunc
	loops        sync.WaitGroup
	queues       sync.WaitGroup
}

type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithMetrics(m *obs.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithTraderID(id model.TraderID) Option {
	return func(e *Engine) { e.trader = id }
}

// New builds an engine over c and registers its endpoints on b.
func New(cfg Config, c *cache.Cache, b *bus.MessageBus, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "cache")
	}
	if b == nil {
		b = bus.NewMessageBus()
	}
	e := &Engine{
		cfg:          cfg,
		trader:       "TRADER-001",
		cache:        c,
		bus:          b,
		clock:        clock.Live{},
		clients:      make(map[model.ClientID]Client),
		venueClients: make(map[model.Venue]model.ClientID),
		claims:       make(map[model.InstrumentID]model.StrategyID),
		retries:      make(map[model.ClientOrderID]int),
		lastQuery:    make(map[model.ClientOrderID]int64),
		cmdQ:         bus.NewQueue[command.Command](cfg.QSize),
		evtQ:         bus.NewQueue[eventMsg](cfg.QSize),
		lastFullWarn: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.registerEndpoints(); err != nil {
		return nil, err
	}
	logs.Infof("execution: engine created, reconciliation=%t qsize=%d inflight_check_interval_ms=%d inflight_check_threshold_ms=%d",
		cfg.Reconciliation, cfg.QSize, cfg.InflightCheckIntervalMs, cfg.InflightCheckThresholdMs)
	return e, nil
}

func (e *Engine) registerEndpoints() error {
	if err := e.bus.RegisterEndpoint(EndpointReconcileReport, func(msg any) (any, error) {
		rpt, ok := msg.(report.ExecutionReport)
		if !ok {
			return nil, errors.Wrapf(exception.ErrEndpointBadPayload, "%s got %T", EndpointReconcileReport, msg)
		}
		return e.ReconcileReport(rpt), nil
	}); err != nil {
		return err
	}
	return e.bus.RegisterEndpoint(EndpointReconcileMassStatus, func(msg any) (any, error) {
		ms, ok := msg.(*report.ExecutionMassStatus)
		if !ok {
			return nil, errors.Wrapf(exception.ErrEndpointBadPayload, "%s got %T", EndpointReconcileMassStatus, msg)
		}
		return e.ReconcileMassStatus(ms), nil
	})
}

func (e *Engine) Cache() *cache.Cache     { return e.cache }
func (e *Engine) Bus() *bus.MessageBus    { return e.bus }
func (e *Engine) Config() Config          { return e.cfg }
func (e *Engine) TraderID() model.TraderID { return e.trader }

func (e *Engine) CommandCount() int64 { return e.commandCount.Load() }
func (e *Engine) EventCount() int64   { return e.eventCount.Load() }
func (e *Engine) ReportCount() int64  { return e.reportCount.Load() }

func (e *Engine) CommandQueueSize() int { return e.cmdQ.Len() }
func (e *Engine) EventQueueSize() int   { return e.evtQ.Len() }

// Clients

// RegisterClient routes commands for the client's venue to it.
func (e *Engine) RegisterClient(c Client) error {
	if c == nil {
		return exception.ErrNilInstance
	}
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()
	if _, ok := e.clients[c.ID()]; ok {
		return errors.Wrapf(exception.ErrExecClientRegistered, "client %s", c.ID())
	}
	e.clients[c.ID()] = c
	if c.Venue() != "" {
		e.venueClients[c.Venue()] = c.ID()
	}
	logs.Infof("execution: registered client %s for venue %s (%s)", c.ID(), c.Venue(), c.OmsType())
	return nil
}

// RegisterDefaultClient also makes c the fallback for unrouted commands.
func (e *Engine) RegisterDefaultClient(c Client) error {
	if err := e.RegisterClient(c); err != nil {
		return err
	}
	e.clientsMu.Lock()
	e.defaultClient = c.ID()
	e.clientsMu.Unlock()
	return nil
}

func (e *Engine) DeregisterClient(id model.ClientID) error {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()
	c, ok := e.clients[id]
	if !ok {
		return errors.Wrapf(exception.ErrExecClientNotFound, "client %s", id)
	}
	delete(e.clients, id)
	if e.venueClients[c.Venue()] == id {
		delete(e.venueClients, c.Venue())
	}
	if e.defaultClient == id {
		e.defaultClient = ""
	}
	return nil
}

// Clients returns the registered clients ordered by id.
func (e *Engine) Clients() []Client {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()
	out := make([]Client, 0, len(e.clients))
	for _, c := range e.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// route picks the explicit client, then the venue client, then the default.
func (e *Engine) route(clientID model.ClientID, venue model.Venue) (Client, bool) {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()
	if clientID != "" {
		c, ok := e.clients[clientID]
		return c, ok
	}
	if id, ok := e.venueClients[venue]; ok {
		return e.clients[id], true
	}
	if e.defaultClient != "" {
		c, ok := e.clients[e.defaultClient]
		return c, ok
	}
	return nil, false
}

func (e *Engine) omsType(venue model.Venue) enum.OmsType {
	if c, ok := e.route("", venue); ok {
		return c.OmsType()
	}
	return enum.OmsTypeNetting
}

// Lifecycle

// Start launches the queue loops and the periodic checks.
func (e *Engine) Start(ctx context.Context) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if e.running {
		return exception.ErrExecEngineRunning
	}
	queueCtx, cancelQueues := context.WithCancel(ctx)
	loopCtx, cancelLoops := context.WithCancel(queueCtx)
	e.ctxMu.Lock()
	e.runCtx = queueCtx
	e.ctxMu.Unlock()
	e.cancelQueues = cancelQueues
	e.cancelLoops = cancelLoops
	e.running = true

	if n := e.cmdQ.DropSentinels() + e.evtQ.DropSentinels(); n > 0 {
		logs.Warnf("execution: dropped %d stale stop marker(s)", n)
	}
	e.queues.Add(2)
	go e.runCommandQueue(queueCtx)
	go e.runEventQueue(queueCtx)
	e.startLoops(loopCtx)
	logs.Infof("execution: engine started")
	return nil
}

// Stop cancels the periodic checks, drains both queues and flushes the cache.
func (e *Engine) Stop(ctx context.Context) error {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if !e.running {
		return exception.ErrExecEngineStopped
	}
	e.cancelLoops()
	e.loops.Wait()

	drained := true
	if err := e.cmdQ.PublishSentinel(ctx); err != nil {
		logs.Warnf("execution: command queue sentinel, err: %+v", err)
		drained = false
	}
	if err := e.evtQ.PublishSentinel(ctx); err != nil {
		logs.Warnf("execution: event queue sentinel, err: %+v", err)
		drained = false
	}
	if !drained {
		// A runner without its sentinel never returns on its own.
		e.cancelQueues()
	}

	done := make(chan struct{})
	go func() {
		e.queues.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logs.Warnf("execution: stop abandoned %d command(s) and %d event(s), err: %+v", e.cmdQ.Len(), e.evtQ.Len(), ctx.Err())
		e.cancelQueues()
		<-done
	}
	e.cancelQueues()
	e.running = false

	e.flushCache(ctx)
	logs.Infof("execution: engine stopped")
	return nil
}

// Kill cancels everything without draining the queues.
func (e *Engine) Kill() {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	if !e.running {
		return
	}
	e.cancelQueues()
	e.loops.Wait()
	e.queues.Wait()
	e.running = false
	logs.Warnf("execution: engine killed with %d command(s) and %d event(s) queued", e.cmdQ.Len(), e.evtQ.Len())
}

func (e *Engine) IsRunning() bool {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()
	return e.running
}

// runContext is separate from lifeMu so handlers can enqueue while Stop waits.
func (e *Engine) runContext() context.Context {
	e.ctxMu.RLock()
	defer e.ctxMu.RUnlock()
	if e.runCtx == nil {
		return context.Background()
	}
	return e.runCtx
}

// Enqueue

// Execute queues a command. It blocks only while the command queue is full.
func (e *Engine) Execute(cmd command.Command) {
	enqueue(e, e.cmdQ, queueCommands, cmd)
}

// Process queues an order event from a client.
func (e *Engine) Process(ev order.Event) {
	enqueue(e, e.evtQ, queueEvents, eventMsg{event: ev})
}

// ProcessAccountState queues an account update from a client.
func (e *Engine) ProcessAccountState(s model.AccountState) {
	enqueue(e, e.evtQ, queueEvents, eventMsg{account: &s})
}

func enqueue[T any](e *Engine, q *bus.Queue[T], name string, msg T) {
	err := q.TryPublish(msg)
	if err == nil {
		e.metrics.SetQueueDepth(name, q.Len())
		return
	}
	if errors.Is(err, exception.ErrQueueClosed) {
		logs.Errorf("execution: %s queue closed, message dropped", name)
		return
	}
	e.metrics.IncQueueFullWait(name)
	e.warnQueueFull(name, q.Cap())
	if err := q.Publish(e.runContext(), msg); err != nil {
		logs.Errorf("execution: %s queue publish, message dropped, err: %+v", name, err)
	}
}

func (e *Engine) warnQueueFull(name string, capacity int) {
	now := e.clock.Now()
	e.warnMu.Lock()
	last := e.lastFullWarn[name]
	warn := now.Sub(last) >= time.Second
	if warn {
		e.lastFullWarn[name] = now
	}
	e.warnMu.Unlock()
	if warn {
		logs.Warnf("execution: %s queue at capacity (%d), producer waiting", name, capacity)
	}
}

// Queue loops

func (e *Engine) runCommandQueue(ctx context.Context) {
	defer e.queues.Done()
	logs.Infof("execution: command queue processing starting (qsize=%d)", e.cmdQ.Len())
	err := e.cmdQ.Run(ctx, func(cmd command.Command) {
		start := time.Now()
		dispatch(queueCommands, func() { e.executeCommand(ctx, cmd) })
		e.metrics.ObserveDispatch(queueCommands, time.Since(start))
		e.metrics.SetQueueDepth(queueCommands, e.cmdQ.Len())
	})
	e.logQueueStopped(queueCommands, err, e.cmdQ.Len())
}

func (e *Engine) runEventQueue(ctx context.Context) {
	defer e.queues.Done()
	logs.Infof("execution: event queue processing starting (qsize=%d)", e.evtQ.Len())
	err := e.evtQ.Run(ctx, func(m eventMsg) {
		start := time.Now()
		dispatch(queueEvents, func() { e.handleMessage(m) })
		e.metrics.ObserveDispatch(queueEvents, time.Since(start))
		e.metrics.SetQueueDepth(queueEvents, e.evtQ.Len())
	})
	e.logQueueStopped(queueEvents, err, e.evtQ.Len())
}

func (e *Engine) logQueueStopped(name string, err error, remaining int) {
	if err != nil && remaining > 0 {
		logs.Warnf("execution: %s queue processing stopped with %d message(s) on queue", name, remaining)
		return
	}
	logs.Debugf("execution: %s queue processing stopped", name)
}

// dispatch keeps a panicking handler from taking down its loop.
func dispatch(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("execution: %s handler panicked: %v", name, r)
		}
	}()
	fn()
}

func (e *Engine) handleMessage(m eventMsg) {
	if m.account != nil {
		e.cache.AddAccountState(*m.account)
		e.bus.Publish("events.account."+string(m.account.AccountID), *m.account)
		return
	}
	if m.event == nil {
		return
	}
	e.lock()
	e.handleEventLocked(m.event)
	e.unlock()
}

// Locking

func (e *Engine) lock() { e.mu.Lock() }

// unlock releases the state lock and then publishes what was queued while
// it was held, so bus subscribers may call back into the engine.
func (e *Engine) unlock() {
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()
	for _, p := range pending {
		e.bus.Publish(p.topic, p.msg)
	}
}

func (e *Engine) publishLocked(topic string, msg any) {
	e.pending = append(e.pending, published{topic: topic, msg: msg})
}

// Claims

// ClaimExternalOrders makes strategy the owner of orders found on the venue
// for instrument that this process did not submit.
func (e *Engine) ClaimExternalOrders(instrument model.InstrumentID, strategy model.StrategyID) error {
	if instrument.IsZero() || strategy == "" {
		return errors.Wrap(exception.ErrInvalidArgument, "claim needs an instrument and a strategy")
	}
	e.claimsMu.Lock()
	defer e.claimsMu.Unlock()
	if owner, ok := e.claims[instrument]; ok && owner != strategy {
		return errors.Wrapf(exception.ErrInvalidArgument, "external orders for %s already claimed by %s", instrument, owner)
	}
	e.claims[instrument] = strategy
	logs.Infof("execution: %s claims external orders for %s", strategy, instrument)
	return nil
}

// ExternalOrderClaim returns the strategy claiming instrument, if any.
func (e *Engine) ExternalOrderClaim(instrument model.InstrumentID) (model.StrategyID, bool) {
	e.claimsMu.RLock()
	defer e.claimsMu.RUnlock()
	s, ok := e.claims[instrument]
	return s, ok
}
