package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cartRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCartRepository creates a new cart repository instance
func NewCartRepository(db *gorm.DB, logger *zap.Logger) domainRepo.CartRepository {
	return &cartRepository{
		db:     db,
		logger: logger,
	}
}

func (r *cartRepository) GetCart(ctx context.Context, code string, paid bool) (*entity.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id") }).
		Preload("Items.Product").
		Where("cart_code = ? AND paid = ?", code, paid).
		Order("created_at DESC").
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get cart",
			zap.String("cart_code", code),
			zap.Bool("paid", paid),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return toCartEntity(&cart), nil
}

// GetOrCreateCart relies on the partial unique index on unpaid cart codes so
// concurrent creators converge on one row.
func (r *cartRepository) GetOrCreateCart(ctx context.Context, code string) (*entity.Cart, error) {
	cart := &model.Cart{CartCode: code}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "cart_code"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Name: "paid"}, Value: false}}},
			DoNothing:   true,
		}).
		Create(cart).Error
	if err != nil {
		r.logger.Error("Failed to create cart", zap.String("cart_code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	existing, err := r.GetCart(ctx, code, false)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("cart %s vanished after create", code)
	}
	return existing, nil
}

func (r *cartRepository) AddItem(ctx context.Context, cartID uuid.UUID, productID int64, quantity int) (*entity.CartItem, error) {
	item := &model.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("cart_items.quantity + ?", quantity),
			}),
		}).
		Create(item).Error
	if err != nil {
		r.logger.Error("Failed to add cart item",
			zap.String("cart_id", cartID.String()),
			zap.Int64("product_id", productID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	var stored model.CartItem
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to reload cart item: %w", err)
	}

	result := toCartItemEntity(&stored)
	return &result, nil
}

func (r *cartRepository) UpdateCart(ctx context.Context, cartID uuid.UUID, update domainRepo.CartUpdate) error {
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if update.Paid != nil {
		updates["paid"] = *update.Paid
	}
	if update.UserID != nil {
		updates["user_id"] = *update.UserID
	}

	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart %s not found", cartID)
	}
	return nil
}
