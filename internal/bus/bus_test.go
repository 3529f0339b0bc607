package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hftexec/pkg/exception"
)

func TestQueueTryPublishFull(t *testing.T) {
	q := NewQueue[int](2)
	require.NoError(t, q.TryPublish(1))
	require.NoError(t, q.TryPublish(2))
	require.ErrorIs(t, q.TryPublish(3), exception.ErrQueueFull)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2, q.Cap())

	q.Close()
	require.ErrorIs(t, q.TryPublish(4), exception.ErrQueueClosed)
}

func TestQueueSentinelDrainsInOrder(t *testing.T) {
	q := NewQueue[int](8)
	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Publish(t.Context(), i))
	}
	require.NoError(t, q.PublishSentinel(t.Context()))

	var got []int
	require.NoError(t, q.Run(t.Context(), func(v int) { got = append(got, v) }))
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestQueuePublishBlocksUntilSpace(t *testing.T) {
	q := NewQueue[int](1)
	require.NoError(t, q.TryPublish(1))

	published := make(chan error, 1)
	go func() { published <- q.Publish(t.Context(), 2) }()

	select {
	case <-published:
		t.Fatal("publish returned while queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	var (
		mu  sync.Mutex
		got []int
	)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() {
		_ = q.Run(ctx, func(v int) {
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		})
	}()

	require.NoError(t, <-published)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []int{1, 2}, got)
	mu.Unlock()
}

func TestQueueRunCancelled(t *testing.T) {
	q := NewQueue[int](1)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.ErrorIs(t, q.Run(ctx, func(int) {}), context.Canceled)

	blocked := NewQueue[int](1)
	require.NoError(t, blocked.TryPublish(1))
	require.ErrorIs(t, blocked.Publish(ctx, 2), context.Canceled)
}

func TestQueueCloseDrains(t *testing.T) {
	q := NewQueue[string](4)
	require.NoError(t, q.TryPublish("a"))
	require.NoError(t, q.TryPublish("b"))
	q.Close()

	var got []string
	require.NoError(t, q.Run(t.Context(), func(v string) { got = append(got, v) }))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestQueueDropSentinels(t *testing.T) {
	q := NewQueue[int](4)
	require.NoError(t, q.TryPublish(1))
	require.NoError(t, q.PublishSentinel(t.Context()))
	require.NoError(t, q.TryPublish(2))

	assert.Equal(t, 1, q.DropSentinels())
	assert.Equal(t, 2, q.Len())
	require.NoError(t, q.PublishSentinel(t.Context()))

	var got []int
	require.NoError(t, q.Run(t.Context(), func(v int) { got = append(got, v) }))
	assert.Equal(t, []int{1, 2}, got)
	assert.Zero(t, q.DropSentinels())
}

type recordSink struct {
	topics []string
}

func (s *recordSink) Publish(topic string, _ any) { s.topics = append(s.topics, topic) }

func TestMessageBusSubscribe(t *testing.T) {
	testCases := []struct {
		desc    string
		pattern string
		topic   string
		want    bool
	}{
		{desc: "exact", pattern: "events.order.S-001", topic: "events.order.S-001", want: true},
		{desc: "venue wildcard", pattern: "reports.execution.*", topic: "reports.execution.SIM", want: true},
		{desc: "nested wildcard", pattern: "reports.execution.*", topic: "reports.execution.SIM.BTCUSDT", want: true},
		{desc: "all", pattern: "*", topic: "events.position.S-001", want: true},
		{desc: "other prefix", pattern: "events.order.*", topic: "events.position.S-001", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			b := NewMessageBus()
			var got []any
			b.Subscribe(tc.pattern, func(_ string, msg any) { got = append(got, msg) })
			b.Publish(tc.topic, 1)
			assert.Equal(t, tc.want, len(got) == 1)
		})
	}
}

func TestMessageBusUnsubscribeAndSinks(t *testing.T) {
	b := NewMessageBus()
	sink := &recordSink{}
	b.AddSink(sink)

	count := 0
	unsubscribe := b.Subscribe("a.*", func(string, any) { count++ })
	b.Subscribe("a.*", func(string, any) { panic("boom") })

	b.Publish("a.b", nil)
	unsubscribe()
	b.Publish("a.c", nil)

	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"a.b", "a.c"}, sink.topics)
}

func TestMessageBusEndpoints(t *testing.T) {
	b := NewMessageBus()
	require.NoError(t, b.RegisterEndpoint("echo", func(msg any) (any, error) { return msg, nil }))
	require.ErrorIs(t, b.RegisterEndpoint("echo", nil), exception.ErrEndpointRegistered)

	got, err := b.Send("echo", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, []string{"echo"}, b.Endpoints())

	b.DeregisterEndpoint("echo")
	_, err = b.Send("echo", 1)
	require.ErrorIs(t, err, exception.ErrEndpointNotFound)
}
