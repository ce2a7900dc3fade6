package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/wekeepgrowing/shop-settlement/internal/domain/errors"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type settlementRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSettlementRepository creates a new settlement repository instance
func NewSettlementRepository(db *gorm.DB, logger *zap.Logger) domainRepo.SettlementRepository {
	return &settlementRepository{
		db:     db,
		logger: logger,
	}
}

// cartPaidPayload is the outbox body for model.EventTypeCartPaid.
type cartPaidPayload struct {
	Ref         string    `json:"ref"`
	CartID      string    `json:"cart_id"`
	CartCode    string    `json:"cart_code"`
	UserID      string    `json:"user_id"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Provider    string    `json:"provider"`
	CompletedAt time.Time `json:"completed_at"`
}

func (r *settlementRepository) ApplySettlement(ctx context.Context, ref string, cartID uuid.UUID, userID uuid.UUID) (*domainRepo.SettlementResult, error) {
	var result *domainRepo.SettlementResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock serializes concurrent deliveries for the same ref
		var locked model.Transaction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("ref = ?", ref).
			First(&locked).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to lock transaction: %w", err)
		}

		if locked.Status == model.TransactionStatusCompleted {
			r.logger.Info("Settlement already applied (idempotency)",
				zap.String("ref", ref),
				zap.String("cart_id", locked.CartID.String()))
			result = &domainRepo.SettlementResult{
				Transaction:      toTransactionEntity(&locked),
				AlreadyCompleted: true,
			}
			return nil
		}

		if locked.CartID != cartID {
			return fmt.Errorf("transaction %s belongs to cart %s, not %s", ref, locked.CartID, cartID)
		}

		now := time.Now().UTC()
		res := tx.Model(&model.Transaction{}).
			Where("ref = ? AND status = ?", ref, model.TransactionStatusPending).
			Updates(map[string]interface{}{
				"status":       model.TransactionStatusCompleted,
				"completed_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete transaction: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return domainErrors.ErrTransactionNotPending
		}

		res = tx.Model(&model.Cart{}).
			Where("id = ?", cartID).
			Updates(map[string]interface{}{
				"paid":       true,
				"user_id":    userID,
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark cart paid: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("cart %s not found", cartID)
		}

		var cart model.Cart
		if err := tx.Select("id", "cart_code").Where("id = ?", cartID).First(&cart).Error; err != nil {
			return fmt.Errorf("failed to load cart: %w", err)
		}
		locked.Cart = &cart
		cartCode := cart.CartCode
		payload, err := json.Marshal(cartPaidPayload{
			Ref:         ref,
			CartID:      cartID.String(),
			CartCode:    cartCode,
			UserID:      userID.String(),
			Amount:      locked.Amount.StringFixed(2),
			Currency:    locked.Currency,
			Provider:    locked.Provider,
			CompletedAt: now,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal outbox payload: %w", err)
		}

		if err := tx.Create(&model.OutboxEvent{
			AggregateID: ref,
			EventType:   model.EventTypeCartPaid,
			Payload:     datatypes.JSON(payload),
		}).Error; err != nil {
			return fmt.Errorf("failed to write outbox event: %w", err)
		}

		locked.Status = model.TransactionStatusCompleted
		locked.CompletedAt = &now
		locked.UpdatedAt = now
		result = &domainRepo.SettlementResult{Transaction: toTransactionEntity(&locked)}

		r.logger.Info("Settlement applied",
			zap.String("ref", ref),
			zap.String("cart_id", cartID.String()),
			zap.String("cart_code", cartCode),
			zap.String("user_id", userID.String()),
			zap.String("amount", locked.Amount.String()))
		return nil
	})
	if err != nil {
		r.logger.Error("Settlement transaction failed", zap.String("ref", ref), zap.Error(err))
		return nil, err
	}

	return result, nil
}
