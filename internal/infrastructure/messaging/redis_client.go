package messaging

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// goRedisClient adapts a go-redis client to RedisClient.
type goRedisClient struct {
	client redis.UniversalClient
	pubsub *redis.PubSub
}

// NewGoRedisClient wraps client. Close closes the subscription only; the
// client itself stays owned by the caller.
func NewGoRedisClient(client redis.UniversalClient) RedisClient {
	return &goRedisClient{client: client}
}

func (c *goRedisClient) Publish(ctx context.Context, channel string, message any) error {
	return c.client.Publish(ctx, channel, message).Err()
}

func (c *goRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error) {
	c.pubsub = c.client.Subscribe(ctx, channels...)
	if _, err := c.pubsub.Receive(ctx); err != nil {
		_ = c.pubsub.Close()
		return nil, err
	}

	out := make(chan RedisMessage)
	go func() {
		defer close(out)
		for msg := range c.pubsub.Channel() {
			select {
			case out <- RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *goRedisClient) Close() error {
	if c.pubsub == nil {
		return nil
	}
	return c.pubsub.Close()
}
