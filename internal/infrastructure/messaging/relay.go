package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"github.com/wekeepgrowing/shop-settlement/internal/middleware/metrics"
	"go.uber.org/zap"
)

const (
	defaultRelayInterval  = 2 * time.Second
	defaultRelayBatchSize = 100
	publishTimeout        = 5 * time.Second
)

// OutboxRelay publishes events written in the settlement transaction.
// Delivery is at least once: an event published but not marked is sent
// again on the next pass.
type OutboxRelay struct {
	outbox    repository.OutboxRepository
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

func NewOutboxRelay(outbox repository.OutboxRepository, publisher Publisher, interval time.Duration, batchSize int, logger *zap.Logger) *OutboxRelay {
	if interval <= 0 {
		interval = defaultRelayInterval
	}
	if batchSize <= 0 {
		batchSize = defaultRelayBatchSize
	}
	return &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// RelayReport counts one pass.
type RelayReport struct {
	Published int
	Failed    int
}

func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Outbox relay started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("Outbox relay pass failed", zap.Error(err))
			}
		}
	}
}

// RunOnce publishes one batch. A failed event is marked and left for the
// next pass; it does not stop the batch.
func (r *OutboxRelay) RunOnce(ctx context.Context) (*RelayReport, error) {
	events, err := r.outbox.GetUnprocessed(ctx, r.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox events: %w", err)
	}

	report := &RelayReport{}
	for _, event := range events {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := r.publisher.Publish(pubCtx, event)
		cancel()

		if err != nil {
			report.Failed++
			metrics.RecordOutboxPublished("failed")
			r.logger.Warn("Failed to publish outbox event",
				zap.Int64("id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Int("attempts", event.Attempts+1),
				zap.Error(err))
			if markErr := r.outbox.MarkFailed(ctx, event.ID, err); markErr != nil {
				r.logger.Error("Failed to mark outbox event failed", zap.Int64("id", event.ID), zap.Error(markErr))
			}
			continue
		}

		if err := r.outbox.MarkProcessed(ctx, event.ID); err != nil {
			r.logger.Error("Failed to mark outbox event processed", zap.Int64("id", event.ID), zap.Error(err))
			continue
		}
		report.Published++
		metrics.RecordOutboxPublished("published")
	}

	if len(events) > 0 {
		r.logger.Debug("Outbox relay pass complete",
			zap.Int("published", report.Published),
			zap.Int("failed", report.Failed))
	}
	return report, nil
}
