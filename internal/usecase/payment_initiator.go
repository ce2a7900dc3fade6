package usecase

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	domainErrors "github.com/wekeepgrowing/shop-settlement/internal/domain/errors"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"github.com/wekeepgrowing/shop-settlement/internal/middleware/metrics"
	"go.uber.org/zap"
)

const defaultProviderTimeout = 15 * time.Second

// ProviderResolver looks a configured payment provider up by type. An
// empty type selects the default provider.
type ProviderResolver interface {
	Get(providerType provider.ProviderType) (provider.PaymentProvider, error)
}

// InitiatorSettings are the payment settings the initiator applies to
// every cart.
type InitiatorSettings struct {
	Currency    string
	Tax         decimal.Decimal
	ClientURL   string
	Title       string
	Description string
	Timeout     time.Duration
}

type InitiateRequest struct {
	User     entity.Customer
	CartCode string
	Provider provider.ProviderType
}

type InitiateResult struct {
	Ref         string          `json:"ref"`
	RedirectURL string          `json:"redirect_url"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Provider    string          `json:"provider"`
}

// PaymentInitiator prices a cart, records a pending transaction and opens
// a hosted payment with the provider.
type PaymentInitiator struct {
	carts        repository.CartRepository
	transactions repository.TransactionRepository
	providers    ProviderResolver
	settings     InitiatorSettings
	logger       *zap.Logger
	newRef       func() string
}

func NewPaymentInitiator(
	carts repository.CartRepository,
	transactions repository.TransactionRepository,
	providers ProviderResolver,
	settings InitiatorSettings,
	logger *zap.Logger,
) *PaymentInitiator {
	if settings.Timeout <= 0 {
		settings.Timeout = defaultProviderTimeout
	}
	return &PaymentInitiator{
		carts:        carts,
		transactions: transactions,
		providers:    providers,
		settings:     settings,
		logger:       logger,
		newRef:       uuid.NewString,
	}
}

// Initiate starts a payment for the caller's unpaid cart. The pending
// transaction is written before the provider is called and is kept when the
// provider call fails.
func (i *PaymentInitiator) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	cartCode := strings.TrimSpace(req.CartCode)
	if cartCode == "" {
		return nil, domainErrors.NewValidationError("cart_code is required", nil)
	}
	if req.User.ID == uuid.Nil {
		return nil, domainErrors.NewValidationError("authenticated user is required", nil)
	}

	p, err := i.providers.Get(req.Provider)
	if err != nil {
		if errors.Is(err, domainErrors.ErrProviderNotConfigured) {
			return nil, domainErrors.NewValidationError("payment provider is not available", err)
		}
		return nil, domainErrors.NewInternalError("failed to resolve payment provider", err)
	}
	providerName := p.GetProviderName()

	cart, err := i.carts.GetCart(ctx, cartCode, false)
	if err != nil {
		i.logger.Error("Failed to load cart", zap.String("cart_code", cartCode), zap.Error(err))
		metrics.RecordInitiation(providerName, "error")
		return nil, domainErrors.NewInternalError("failed to load cart", err)
	}
	if cart == nil {
		metrics.RecordInitiation(providerName, "not_found")
		return nil, domainErrors.NewNotFoundError("cart not found", domainErrors.ErrCartNotFound)
	}

	amount := CalculateTotal(cart.Items, i.settings.Tax)
	tx := &entity.Transaction{
		Ref:      i.newRef(),
		CartID:   cart.ID,
		CartCode: cart.CartCode,
		Amount:   amount,
		Currency: i.settings.Currency,
		UserID:   req.User.ID,
		Status:   entity.TransactionStatusPending,
		Provider: providerName,
	}
	if err := i.transactions.CreateTransaction(ctx, tx); err != nil {
		i.logger.Error("Failed to create transaction",
			zap.String("cart_code", cartCode),
			zap.Error(err))
		metrics.RecordInitiation(providerName, "error")
		return nil, domainErrors.NewInternalError("failed to create transaction", err)
	}

	returnURL, cancelURL := i.redirectURLs(provider.ProviderType(providerName), tx.Ref)

	callCtx, cancel := context.WithTimeout(ctx, i.settings.Timeout)
	defer cancel()

	resp, err := p.CreatePayment(callCtx, &provider.CreatePaymentRequest{
		Ref:      tx.Ref,
		CartCode: cart.CartCode,
		Amount:   amount,
		Currency: tx.Currency,
		Customer: provider.Customer{
			ID:    req.User.ID.String(),
			Email: req.User.Email,
			Name:  req.User.Name,
			Phone: req.User.Phone,
		},
		Title:       i.settings.Title,
		Description: i.settings.Description,
		ReturnURL:   returnURL,
		CancelURL:   cancelURL,
	})
	if err != nil {
		i.logger.Error("Payment provider rejected initiation",
			zap.String("ref", tx.Ref),
			zap.String("provider", providerName),
			zap.Error(err))
		metrics.RecordInitiation(providerName, "gateway_error")
		return nil, domainErrors.NewGatewayError(err)
	}

	if resp.ProviderPaymentID != "" {
		id := resp.ProviderPaymentID
		if err := i.transactions.UpdateTransaction(ctx, tx.Ref, repository.TransactionUpdate{ProviderPaymentID: &id}); err != nil {
			i.logger.Warn("Failed to record provider payment id",
				zap.String("ref", tx.Ref),
				zap.String("provider_payment_id", id),
				zap.Error(err))
		}
	}

	i.logger.Info("Payment initiated",
		zap.String("ref", tx.Ref),
		zap.String("cart_code", cart.CartCode),
		zap.String("provider", providerName),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("user_id", req.User.ID.String()))
	metrics.RecordInitiation(providerName, "success")

	return &InitiateResult{
		Ref:         tx.Ref,
		RedirectURL: resp.RedirectURL,
		Amount:      amount,
		Currency:    tx.Currency,
		Provider:    providerName,
	}, nil
}

// redirectURLs builds the client pages the provider sends the payer back to.
func (i *PaymentInitiator) redirectURLs(providerType provider.ProviderType, ref string) (string, string) {
	base := strings.TrimRight(i.settings.ClientURL, "/")
	if providerType == provider.ProviderTypeFlutterwave {
		return base + "/payment-status/", ""
	}

	status := func(s string) string {
		q := url.Values{}
		q.Set("paymentStatus", s)
		q.Set("ref", ref)
		return base + "/payment-status?" + q.Encode()
	}
	return status("success"), status("cancel")
}
