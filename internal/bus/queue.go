package bus

import (
	"context"
	"sync"

	"hftexec/pkg/exception"
)

type envelope[T any] struct {
	msg      T
	sentinel bool
}

// Queue is a bounded FIFO with a single consumer. A sentinel pushed with
// PublishSentinel ends Run once everything queued before it was handled.
type Queue[T any] struct {
	ch        chan envelope[T]
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue allocates a queue with the given capacity.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{
		ch:   make(chan envelope[T], capacity),
		done: make(chan struct{}),
	}
}

func (q *Queue[T]) isClosed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// TryPublish enqueues without blocking.
func (q *Queue[T]) TryPublish(msg T) error {
	if q.isClosed() {
		return exception.ErrQueueClosed
	}
	select {
	case q.ch <- envelope[T]{msg: msg}:
		return nil
	default:
		return exception.ErrQueueFull
	}
}

// Publish blocks until there is room, the queue closes or ctx is done.
func (q *Queue[T]) Publish(ctx context.Context, msg T) error {
	return q.push(ctx, envelope[T]{msg: msg})
}

// PublishSentinel queues the stop marker behind the pending messages.
func (q *Queue[T]) PublishSentinel(ctx context.Context) error {
	return q.push(ctx, envelope[T]{sentinel: true})
}

func (q *Queue[T]) push(ctx context.Context, e envelope[T]) error {
	if q.isClosed() {
		return exception.ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	case <-q.done:
		return exception.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DropSentinels removes stop markers left behind by an interrupted stop and
// keeps the messages in order. It must not run alongside Run.
func (q *Queue[T]) DropSentinels() int {
	var dropped int
	for range len(q.ch) {
		select {
		case e := <-q.ch:
			if e.sentinel {
				dropped++
				continue
			}
			select {
			case q.ch <- e:
			default:
				return dropped
			}
		default:
			return dropped
		}
	}
	return dropped
}

func (q *Queue[T]) Len() int { return len(q.ch) }
func (q *Queue[T]) Cap() int { return cap(q.ch) }

// Close stops the queue from accepting new messages. Run drains what is
// already buffered and returns.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Run consumes messages until a sentinel, Close or ctx cancellation. It
// returns ctx.Err() when cancelled and nil otherwise.
func (q *Queue[T]) Run(ctx context.Context, handler func(T)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-q.ch:
			if e.sentinel {
				return nil
			}
			handler(e.msg)
		case <-q.done:
			for {
				select {
				case e := <-q.ch:
					if e.sentinel {
						return nil
					}
					handler(e.msg)
				default:
					return nil
				}
			}
		}
	}
}
