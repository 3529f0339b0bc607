package bus

import (
	"path"
	"sort"
	"sync"

	"github.com/yanun0323/logs"

	"hftexec/internal/errors"
	"hftexec/pkg/exception"
)

// Handler receives messages published on a matching topic.
type Handler func(topic string, msg any)

// Endpoint answers a point to point request.
type Endpoint func(msg any) (any, error)

// Sink forwards published messages out of the process. Publish must not
// block on network I/O.
type Sink interface {
	Publish(topic string, msg any)
}

type subscription struct {
	id      uint64
	pattern string
	handler Handler
}

// MessageBus is an in-process pub/sub bus with named endpoints. Patterns
// use path.Match syntax, so "reports.execution.*" matches every venue and
// symbol below it.
type MessageBus struct {
	mu        sync.RWMutex
	seq       uint64
	subs      []subscription
	endpoints map[string]Endpoint
	sinks     []Sink
}

func NewMessageBus() *MessageBus {
	return &MessageBus{endpoints: make(map[string]Endpoint)}
}

// Subscribe registers h for topics matching pattern and returns a func
// that removes it.
func (b *MessageBus) Subscribe(pattern string, h Handler) func() {
	b.mu.Lock()
	b.seq++
	id := b.seq
	b.subs = append(b.subs, subscription{id: id, pattern: pattern, handler: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// AddSink forwards every published message to s.
func (b *MessageBus) AddSink(s Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

// Publish delivers msg synchronously to the matching subscribers in
// subscription order, then hands it to the sinks.
func (b *MessageBus) Publish(topic string, msg any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if Match(s.pattern, topic) {
			handlers = append(handlers, s.handler)
		}
	}
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, h := range handlers {
		deliver(h, topic, msg)
	}
	for _, s := range sinks {
		s.Publish(topic, msg)
	}
}

func deliver(h Handler, topic string, msg any) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("bus: handler on %s panicked: %v", topic, r)
		}
	}()
	h(topic, msg)
}

// Match reports whether topic matches a subscription pattern. * spans dots.
func Match(pattern, topic string) bool {
	if pattern == topic || pattern == "*" {
		return true
	}
	ok, err := path.Match(pattern, topic)
	return err == nil && ok
}

// RegisterEndpoint binds name to e.
func (b *MessageBus) RegisterEndpoint(name string, e Endpoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.endpoints[name]; ok {
		return errors.Wrap(exception.ErrEndpointRegistered, name)
	}
	b.endpoints[name] = e
	return nil
}

func (b *MessageBus) DeregisterEndpoint(name string) {
	b.mu.Lock()
	delete(b.endpoints, name)
	b.mu.Unlock()
}

// Send calls the endpoint registered under name.
func (b *MessageBus) Send(name string, msg any) (any, error) {
	b.mu.RLock()
	e, ok := b.endpoints[name]
	b.mu.RUnlock()
	if !ok {
		return nil, errors.Wrap(exception.ErrEndpointNotFound, name)
	}
	return e(msg)
}

// Endpoints lists the registered endpoint names.
func (b *MessageBus) Endpoints() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.endpoints))
	for name := range b.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
