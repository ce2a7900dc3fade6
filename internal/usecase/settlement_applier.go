package usecase

import (
	"context"

	domainErrors "github.com/wekeepgrowing/shop-settlement/internal/domain/errors"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"go.uber.org/zap"
)

// SettlementApplier completes a verified transaction and marks its cart
// paid. Applying the same transaction twice is a no-op.
type SettlementApplier struct {
	settlements repository.SettlementRepository
	logger      *zap.Logger
}

func NewSettlementApplier(settlements repository.SettlementRepository, logger *zap.Logger) *SettlementApplier {
	return &SettlementApplier{
		settlements: settlements,
		logger:      logger,
	}
}

// Apply runs the pending to completed transition for tx. The cart is
// assigned to the user recorded on the transaction at initiation.
func (a *SettlementApplier) Apply(ctx context.Context, tx *entity.Transaction) (*repository.SettlementResult, error) {
	if tx.IsCompleted() {
		return &repository.SettlementResult{Transaction: tx, AlreadyCompleted: true}, nil
	}

	result, err := a.settlements.ApplySettlement(ctx, tx.Ref, tx.CartID, tx.UserID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, domainErrors.ErrTransactionNotFound
	}

	if result.AlreadyCompleted {
		a.logger.Info("Duplicate settlement ignored", zap.String("ref", tx.Ref))
	}
	return result, nil
}
