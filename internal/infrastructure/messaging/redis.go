package messaging

import (
	"context"
	"encoding/json"

	"github.com/wekeepgrowing/shop-settlement/internal/domain/model"
	pkgmessaging "github.com/wekeepgrowing/shop-settlement/pkg/messaging"
)

// Envelope is the JSON body published on the redis channel.
type Envelope struct {
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
}

type RedisPublisher struct {
	client  pkgmessaging.RedisClient
	channel string
}

func NewRedisPublisher(client pkgmessaging.RedisClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *model.OutboxEvent) error {
	return p.client.Publish(ctx, p.channel, Envelope{
		EventType:   event.EventType,
		AggregateID: event.AggregateID,
		Payload:     json.RawMessage(event.Payload),
	})
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
