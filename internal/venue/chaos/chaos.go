// Package chaos perturbs the order events a venue client delivers, for
// exercising the engine against lossy and unordered venue feeds.
package chaos

import (
	"math/rand"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"hftexec/internal/errors"
	"hftexec/internal/order"
	"hftexec/internal/report"
	"hftexec/pkg/exception"
)

// Handler is what a venue client delivers to.
type Handler interface {
	Process(ev order.Event)
	ReconcileReport(rpt report.ExecutionReport) bool
}

type Config struct {
	// Seed zero seeds from the clock.
	Seed          int64
	DropRate      float64
	DuplicateRate float64
	// ReorderWindow buffers this many events and releases a random one
	// each time the buffer fills. One keeps arrival order.
	ReorderWindow int
}

func (c Config) Validate() error {
	switch {
	case c.DropRate < 0 || c.DropRate > 1:
		return errors.Wrapf(exception.ErrInvalidArgument, "drop_rate must be within [0, 1], got %v", c.DropRate)
	case c.DuplicateRate < 0 || c.DuplicateRate > 1:
		return errors.Wrapf(exception.ErrInvalidArgument, "duplicate_rate must be within [0, 1], got %v", c.DuplicateRate)
	case c.ReorderWindow < 0:
		return errors.Wrapf(exception.ErrInvalidArgument, "reorder_window must be >= 0, got %d", c.ReorderWindow)
	}
	return nil
}

// Stats counts what the wrapper did to the event stream.
type Stats struct {
	Seen       uint64
	Dropped    uint64
	Duplicated uint64
	Delivered  uint64
}

// Wrapper sits between a venue client and the engine. Reports pass through
// untouched; only order events are perturbed.
type Wrapper struct {
	next Handler
	cfg  Config

	mu      sync.Mutex
	rng     *rand.Rand
	pending []order.Event
	stats   Stats
}

func Wrap(next Handler, cfg Config) (*Wrapper, error) {
	if next == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "chaos handler")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ReorderWindow == 0 {
		cfg.ReorderWindow = 1
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	logs.Infof("chaos: seed=%d drop=%v duplicate=%v reorder=%d", cfg.Seed, cfg.DropRate, cfg.DuplicateRate, cfg.ReorderWindow)
	return &Wrapper{
		next: next,
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (w *Wrapper) Process(ev order.Event) {
	w.mu.Lock()
	w.stats.Seen++
	var out []order.Event
	switch {
	case w.hit(w.cfg.DropRate):
		w.stats.Dropped++
	case w.cfg.ReorderWindow <= 1:
		out = w.duplicate(ev)
	default:
		w.pending = append(w.pending, ev)
		if len(w.pending) >= w.cfg.ReorderWindow {
			out = w.duplicate(w.takeRandom())
		}
	}
	w.stats.Delivered += uint64(len(out))
	w.mu.Unlock()

	w.deliver(out)
}

func (w *Wrapper) ReconcileReport(rpt report.ExecutionReport) bool {
	return w.next.ReconcileReport(rpt)
}

// Flush releases every buffered event in random order.
func (w *Wrapper) Flush() {
	w.mu.Lock()
	var out []order.Event
	for len(w.pending) > 0 {
		out = append(out, w.duplicate(w.takeRandom())...)
	}
	w.stats.Delivered += uint64(len(out))
	w.mu.Unlock()

	w.deliver(out)
}

func (w *Wrapper) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Wrapper) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Wrapper) deliver(evs []order.Event) {
	for _, ev := range evs {
		w.next.Process(ev)
	}
}

func (w *Wrapper) hit(rate float64) bool {
	return rate > 0 && w.rng.Float64() < rate
}

func (w *Wrapper) takeRandom() order.Event {
	idx := w.rng.Intn(len(w.pending))
	ev := w.pending[idx]
	w.pending = append(w.pending[:idx], w.pending[idx+1:]...)
	return ev
}

func (w *Wrapper) duplicate(ev order.Event) []order.Event {
	if w.hit(w.cfg.DuplicateRate) {
		w.stats.Duplicated++
		return []order.Event{ev, ev}
	}
	return []order.Event{ev}
}
