package usecase

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	domainErrors "github.com/wekeepgrowing/shop-settlement/internal/domain/errors"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"go.uber.org/zap"
)

// CartSummary is an unpaid cart with its computed amounts.
type CartSummary struct {
	Cart     *entity.Cart    `json:"cart"`
	Items    int             `json:"item_count"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	tax      decimal.Decimal
	currency string
	logger   *zap.Logger
}

func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	tax decimal.Decimal,
	currency string,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		tax:      tax,
		currency: currency,
		logger:   logger,
	}
}

// AddItem puts quantity units of the product in the unpaid cart for code,
// creating the cart on first use. A zero quantity means one.
func (s *CartService) AddItem(ctx context.Context, cartCode string, productID int64, quantity int) (*entity.CartItem, error) {
	cartCode = strings.TrimSpace(cartCode)
	if cartCode == "" {
		return nil, domainErrors.NewValidationError("cart_code is required", nil)
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, domainErrors.NewValidationError(domainErrors.ErrInvalidQuantity.Error(), domainErrors.ErrInvalidQuantity)
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to load product", err)
	}
	if product == nil {
		return nil, domainErrors.NewNotFoundError("product not found", domainErrors.ErrProductNotFound)
	}

	cart, err := s.carts.GetOrCreateCart(ctx, cartCode)
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to load cart", err)
	}

	item, err := s.carts.AddItem(ctx, cart.ID, product.ID, quantity)
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to add item", err)
	}
	item.Product = *product

	s.logger.Debug("Cart item added",
		zap.String("cart_code", cartCode),
		zap.Int64("product_id", product.ID),
		zap.Int("quantity", item.Quantity))

	return item, nil
}

// GetCart returns the unpaid cart for code with its totals.
func (s *CartService) GetCart(ctx context.Context, cartCode string) (*CartSummary, error) {
	cart, err := s.carts.GetCart(ctx, strings.TrimSpace(cartCode), false)
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to load cart", err)
	}
	if cart == nil {
		return nil, domainErrors.NewNotFoundError(domainErrors.ErrCartNotFound.Error(), domainErrors.ErrCartNotFound)
	}

	return &CartSummary{
		Cart:     cart,
		Items:    cart.ItemCount(),
		Subtotal: Subtotal(cart.Items),
		Tax:      s.tax,
		Total:    CalculateTotal(cart.Items, s.tax),
		Currency: s.currency,
	}, nil
}
