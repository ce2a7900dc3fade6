package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/usecase"
	"go.uber.org/zap"
)

type CartService interface {
	AddItem(ctx context.Context, cartCode string, productID int64, quantity int) (*entity.CartItem, error)
	GetCart(ctx context.Context, cartCode string) (*usecase.CartSummary, error)
}

type CartHandler struct {
	carts  CartService
	logger *zap.Logger
}

func NewCartHandler(carts CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:  carts,
		logger: logger,
	}
}

type AddItemRequest struct {
	CartCode  string `json:"cart_code" validate:"required,max=64"`
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=1000"`
}

type CartItemResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
}

type CartResponse struct {
	CartCode  string             `json:"cart_code"`
	Paid      bool               `json:"paid"`
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Subtotal  string             `json:"subtotal"`
	Tax       string             `json:"tax"`
	Total     string             `json:"total"`
	Currency  string             `json:"currency"`
}

func toItemResponse(item entity.CartItem) CartItemResponse {
	return CartItemResponse{
		ProductID: item.ProductID,
		Name:      item.Product.Name,
		Price:     item.Product.Price.StringFixed(2),
		Quantity:  item.Quantity,
		Total:     item.LineTotal().StringFixed(2),
	}
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(c echo.Context) error {
	var req AddItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	item, err := h.carts.AddItem(c.Request().Context(), req.CartCode, req.ProductID, req.Quantity)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"data":    toItemResponse(*item),
		"message": "Cart item updated successfully",
	})
}

// GetCart handles GET /api/v1/cart?cart_code=
func (h *CartHandler) GetCart(c echo.Context) error {
	cartCode := c.QueryParam("cart_code")
	if cartCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "cart_code is required")
	}

	summary, err := h.carts.GetCart(c.Request().Context(), cartCode)
	if err != nil {
		return err
	}

	items := make([]CartItemResponse, 0, len(summary.Cart.Items))
	for _, item := range summary.Cart.Items {
		items = append(items, toItemResponse(item))
	}

	return c.JSON(http.StatusOK, CartResponse{
		CartCode:  summary.Cart.CartCode,
		Paid:      summary.Cart.Paid,
		Items:     items,
		ItemCount: summary.Items,
		Subtotal:  summary.Subtotal.StringFixed(2),
		Tax:       summary.Tax.StringFixed(2),
		Total:     summary.Total.StringFixed(2),
		Currency:  summary.Currency,
	})
}
