package messaging

import (
	"context"
	"fmt"

	"github.com/wekeepgrowing/shop-settlement/internal/config"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/model"
	pkgmessaging "github.com/wekeepgrowing/shop-settlement/pkg/messaging"
	"go.uber.org/zap"
)

// Publisher delivers one outbox event to a downstream sink.
type Publisher interface {
	Publish(ctx context.Context, event *model.OutboxEvent) error
	Close() error
}

// NewPublisher builds the sink named by outbox.sink. "none" (or empty)
// yields a nil publisher and no relay should be started.
func NewPublisher(cfg *config.Config, logger *zap.Logger) (Publisher, error) {
	switch cfg.Outbox.Sink {
	case "", "none":
		return nil, nil
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic), nil
	case "redis":
		client, err := pkgmessaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return NewRedisPublisher(client, cfg.Outbox.Channel), nil
	default:
		return nil, fmt.Errorf("unknown outbox sink %q", cfg.Outbox.Sink)
	}
}
