package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/wekeepgrowing/shop-settlement/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type outboxRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOutboxRepository creates a new outbox repository instance
func NewOutboxRepository(db *gorm.DB, logger *zap.Logger) domainRepo.OutboxRepository {
	return &outboxRepository{
		db:     db,
		logger: logger,
	}
}

func (r *outboxRepository) GetUnprocessed(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	var events []*model.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get unprocessed outbox events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_at": now,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark outbox event processed: %w", err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id int64, cause error) error {
	msg := cause.Error()
	err := r.db.WithContext(ctx).
		Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
		}).Error
	if err != nil {
		r.logger.Error("Failed to mark outbox event failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark outbox event failed: %w", err)
	}
	return nil
}
