package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	"github.com/wekeepgrowing/shop-settlement/internal/middleware/auth"
	"github.com/wekeepgrowing/shop-settlement/internal/usecase"
	"go.uber.org/zap"
)

type PaymentInitiator interface {
	Initiate(ctx context.Context, req usecase.InitiateRequest) (*usecase.InitiateResult, error)
}

type PaymentHandler struct {
	initiator PaymentInitiator
	logger    *zap.Logger
}

func NewPaymentHandler(initiator PaymentInitiator, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		initiator: initiator,
		logger:    logger,
	}
}

type InitiatePaymentRequest struct {
	CartCode string `json:"cart_code" validate:"required,max=64"`
	Provider string `json:"provider" validate:"omitempty,oneof=flutterwave paypal stripe"`
}

type InitiatePaymentResponse struct {
	Ref         string `json:"ref"`
	RedirectURL string `json:"redirect_url"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Provider    string `json:"provider"`
	// Link and ApprovalURL repeat RedirectURL under the names the storefront
	// already reads for Flutterwave and PayPal.
	Link        string `json:"link,omitempty"`
	ApprovalURL string `json:"approval_url,omitempty"`
}

// InitiatePayment handles POST /api/v1/payments/initiate
func (h *PaymentHandler) InitiatePayment(c echo.Context) error {
	customer, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req InitiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.initiator.Initiate(c.Request().Context(), usecase.InitiateRequest{
		User:     *customer,
		CartCode: req.CartCode,
		Provider: provider.ProviderType(req.Provider),
	})
	if err != nil {
		return err
	}

	resp := InitiatePaymentResponse{
		Ref:         result.Ref,
		RedirectURL: result.RedirectURL,
		Amount:      result.Amount.StringFixed(2),
		Currency:    result.Currency,
		Provider:    result.Provider,
	}
	switch provider.ProviderType(result.Provider) {
	case provider.ProviderTypeFlutterwave:
		resp.Link = result.RedirectURL
	case provider.ProviderTypePayPal:
		resp.ApprovalURL = result.RedirectURL
	}

	return c.JSON(http.StatusOK, resp)
}
