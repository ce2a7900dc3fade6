package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

// CreateTransaction inserts a pending transaction. The unique index on ref is
// the last guard against a reused reference.
func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *entity.Transaction) error {
	m := toTransactionModel(tx)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		r.logger.Error("Failed to create transaction",
			zap.String("ref", tx.Ref),
			zap.String("cart_id", tx.CartID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	tx.ID = m.ID
	tx.Status = entity.TransactionStatus(m.Status)
	tx.CreatedAt = m.CreatedAt
	tx.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *transactionRepository) GetTransactionByRef(ctx context.Context, ref string) (*entity.Transaction, error) {
	var m model.Transaction
	err := r.db.WithContext(ctx).
		Preload("Cart").
		Where("ref = ?", ref).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction", zap.String("ref", ref), zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return toTransactionEntity(&m), nil
}

func (r *transactionRepository) UpdateTransaction(ctx context.Context, ref string, update domainRepo.TransactionUpdate) error {
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if update.ProviderPaymentID != nil {
		updates["provider_payment_id"] = *update.ProviderPaymentID
	}

	res := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("ref = ?", ref).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %s not found", ref)
	}
	return nil
}

func (r *transactionRepository) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*entity.Transaction, error) {
	var rows []model.Transaction
	err := r.db.WithContext(ctx).
		Preload("Cart").
		Where("status = ? AND created_at < ?", model.TransactionStatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}

	result := make([]*entity.Transaction, 0, len(rows))
	for i := range rows {
		result = append(result, toTransactionEntity(&rows[i]))
	}
	return result, nil
}
