package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"basegraph.app/crmsync/internal/attio"
)

// RedisProducer hands deliveries to the delivery worker through a Redis stream.
// It satisfies attio.Sender, so the dispatcher can enqueue instead of POSTing.
type RedisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) *RedisProducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *RedisProducer) Send(ctx context.Context, d attio.Delivery) error {
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: messageValues(d),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue delivery: %w", err)
	}

	p.logger.DebugContext(ctx, "enqueued delivery", "delivery_id", d.ID, "endpoint_id", d.EndpointID, "event", d.Event)
	return nil
}

func (p *RedisProducer) Close() error {
	return p.client.Close()
}
