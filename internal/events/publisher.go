package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type redisPublisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

// NewRedisPublisher writes events onto a Redis stream. Consumers read with
// consumer groups; this side only appends.
func NewRedisPublisher(client *redis.Client, stream string, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}

	fields := map[string]any{
		"event":          string(payload),
		"event_type":     event.Type,
		"correlation_id": event.CorrelationID,
	}
	if subID := event.SubscriptionID(); subID != "" {
		fields["subscription_id"] = subID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", event.Type, err)
	}

	p.logger.InfoContext(ctx, "published event", "event_id", event.ID, "event_type", event.Type, "correlation_id", event.CorrelationID)
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}
