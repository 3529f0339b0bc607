package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"hftexec/internal/bus"
	"hftexec/internal/clock"
	"hftexec/internal/obs"
)

const defaultBufferSize = 4096

// Envelope is the wire form of a bus message.
type Envelope struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	TsPub   int64           `json:"tsPub"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher delivers envelopes to an external system.
type Publisher interface {
	Name() string
	Send(ctx context.Context, e Envelope) error
	Close() error
}

// Bridge is a bus.Sink that buffers messages and forwards them to a
// Publisher from its own goroutine, so bus publishers never wait on the
// network. Messages are dropped when the buffer is full.
type Bridge struct {
	pub     Publisher
	queue   *bus.Queue[Envelope]
	clock   clock.Clock
	metrics *obs.Metrics
	topics  []string

	mu       sync.Mutex
	lastWarn time.Time
}

var _ bus.Sink = (*Bridge)(nil)

type Option func(*Bridge)

func WithBufferSize(n int) Option {
	return func(b *Bridge) { b.queue = bus.NewQueue[Envelope](n) }
}

func WithClock(c clock.Clock) Option {
	return func(b *Bridge) { b.clock = c }
}

func WithMetrics(m *obs.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithTopics forwards only topics matching one of patterns. No patterns
// forwards everything.
func WithTopics(patterns ...string) Option {
	return func(b *Bridge) { b.topics = append([]string(nil), patterns...) }
}

func New(pub Publisher, opts ...Option) *Bridge {
	b := &Bridge{
		pub:   pub,
		queue: bus.NewQueue[Envelope](defaultBufferSize),
		clock: clock.Live{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish encodes msg and queues it for delivery.
func (b *Bridge) Publish(topic string, msg any) {
	if !b.forwards(topic) {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		logs.Errorf("bridge %s: encode %T on %s, err: %+v", b.pub.Name(), msg, topic, err)
		b.metrics.IncBridgeError(b.pub.Name())
		return
	}
	e := Envelope{Topic: topic, Type: typeName(msg), TsPub: b.clock.NowNs(), Payload: payload}
	if err := b.queue.TryPublish(e); err != nil {
		b.metrics.IncBridgeDropped(b.pub.Name())
		b.warnDrop(topic, err)
	}
}

func (b *Bridge) forwards(topic string) bool {
	if len(b.topics) == 0 {
		return true
	}
	for _, p := range b.topics {
		if bus.Match(p, topic) {
			return true
		}
	}
	return false
}

func (b *Bridge) warnDrop(topic string, err error) {
	now := b.clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Sub(b.lastWarn) < time.Second {
		return
	}
	b.lastWarn = now
	logs.Warnf("bridge %s: dropped message on %s, err: %+v", b.pub.Name(), topic, err)
}

// Run delivers queued envelopes until ctx is done or Stop is called.
func (b *Bridge) Run(ctx context.Context) error {
	err := b.queue.Run(ctx, func(e Envelope) {
		if err := b.pub.Send(ctx, e); err != nil {
			b.metrics.IncBridgeError(b.pub.Name())
			logs.Errorf("bridge %s: send %s, err: %+v", b.pub.Name(), e.Topic, err)
		}
	})
	if cerr := b.pub.Close(); cerr != nil {
		logs.Warnf("bridge %s: close, err: %+v", b.pub.Name(), cerr)
	}
	return err
}

// Stop lets Run deliver what is buffered and return.
func (b *Bridge) Stop() {
	b.queue.Close()
}

func (b *Bridge) Pending() int { return b.queue.Len() }

// typeName is the Go type of msg, e.g. "order.Filled".
func typeName(msg any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", msg), "*")
}
