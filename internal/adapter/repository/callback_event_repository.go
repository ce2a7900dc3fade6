package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type callbackEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCallbackEventRepository creates a new callback audit repository
func NewCallbackEventRepository(db *gorm.DB, logger *zap.Logger) domainRepo.CallbackEventRepository {
	return &callbackEventRepository{
		db:     db,
		logger: logger,
	}
}

func (r *callbackEventRepository) Record(ctx context.Context, event *entity.CallbackEvent) error {
	payload := []byte("{}")
	if len(event.Payload) > 0 {
		b, err := json.Marshal(event.Payload)
		if err != nil {
			r.logger.Warn("Failed to marshal callback payload",
				zap.String("ref", event.Ref),
				zap.Error(err))
		} else {
			payload = b
		}
	}

	row := &model.CallbackEvent{
		Provider:          event.Provider,
		Ref:               event.Ref,
		ProviderPaymentID: event.ProviderPaymentID,
		Outcome:           event.Outcome,
		Payload:           datatypes.JSON(payload),
		RemoteIP:          event.RemoteIP,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to record callback event: %w", err)
	}
	event.CreatedAt = row.CreatedAt
	return nil
}
