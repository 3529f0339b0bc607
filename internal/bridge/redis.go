package bridge

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

// Redis publishes envelopes on a pub/sub channel named prefix + topic.
type Redis struct {
	client redisPublisher
	prefix string
}

var _ Publisher = (*Redis)(nil)

func NewRedis(client redisPublisher, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Send(ctx context.Context, e Envelope) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.prefix+e.Topic, data).Err()
}

func (r *Redis) Close() error { return r.client.Close() }
