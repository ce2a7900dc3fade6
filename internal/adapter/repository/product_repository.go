package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type productRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository instance
func NewProductRepository(db *gorm.DB, logger *zap.Logger) domainRepo.ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

func (r *productRepository) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get product", zap.Int64("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return toProductEntity(&product), nil
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	m := &model.Product{
		Name:     product.Name,
		Slug:     product.Slug,
		Price:    product.Price,
		Category: product.Category,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	product.ID = m.ID
	return nil
}
