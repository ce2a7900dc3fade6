package stripe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	"go.uber.org/zap"
)

// sessionPlaceholder is replaced by Stripe with the checkout session id.
const sessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// StripeProvider implements the PaymentProvider interface with Stripe
// Checkout Sessions.
type StripeProvider struct {
	sessions *session.Client
	logger   *zap.Logger
}

// NewStripeProvider creates a new Stripe provider. A nil backend uses the
// default Stripe API backend.
func NewStripeProvider(secretKey string, backend stripeapi.Backend, logger *zap.Logger) *StripeProvider {
	if backend == nil {
		backend = stripeapi.GetBackend(stripeapi.APIBackend)
	}
	return &StripeProvider{
		sessions: &session.Client{B: backend, Key: secretKey},
		logger:   logger,
	}
}

// GetProviderName returns the provider name
func (s *StripeProvider) GetProviderName() string {
	return string(provider.ProviderTypeStripe)
}

// CreatePayment opens a checkout session for the cart total.
func (s *StripeProvider) CreatePayment(ctx context.Context, req *provider.CreatePaymentRequest) (*provider.CreatePaymentResponse, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode: stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{{
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripeapi.String(strings.ToLower(req.Currency)),
				UnitAmount: stripeapi.Int64(minorUnits(req.Amount)),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String("Cart Items"),
				},
			},
			Quantity: stripeapi.Int64(1),
		}},
		SuccessURL:        stripeapi.String(withSessionID(req.ReturnURL)),
		ClientReferenceID: stripeapi.String(req.Ref),
	}
	if req.CancelURL != "" {
		params.CancelURL = stripeapi.String(req.CancelURL)
	}
	if req.Customer.Email != "" {
		params.CustomerEmail = stripeapi.String(req.Customer.Email)
	}
	params.AddMetadata("ref", req.Ref)
	params.AddMetadata("cart_code", req.CartCode)
	params.Context = ctx

	cs, err := s.sessions.New(params)
	if err != nil {
		s.logger.Error("StripeProvider: checkout session not created",
			zap.String("ref", req.Ref),
			zap.Error(err))
		return nil, toProviderError(err)
	}

	s.logger.Info("StripeProvider: checkout session created",
		zap.String("ref", req.Ref),
		zap.String("session_id", cs.ID))

	return &provider.CreatePaymentResponse{
		RedirectURL:       cs.URL,
		ProviderPaymentID: cs.ID,
		ProviderData:      map[string]interface{}{"status": string(cs.Status)},
	}, nil
}

// Verify retrieves the checkout session named by PaymentID.
func (s *StripeProvider) Verify(ctx context.Context, req *provider.VerifyRequest) (*provider.VerifyResponse, error) {
	if req.PaymentID == "" {
		return nil, &provider.ProviderError{
			Code:    provider.ErrCodeRequest,
			Message: "session_id required",
		}
	}

	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := s.sessions.Get(req.PaymentID, params)
	if err != nil {
		return nil, toProviderError(err)
	}

	ref := cs.ClientReferenceID
	if ref == "" {
		ref = cs.Metadata["ref"]
	}

	return &provider.VerifyResponse{
		Success:   true,
		Status:    normalizeStatus(cs),
		RawStatus: string(cs.PaymentStatus),
		Amount:    decimal.New(cs.AmountTotal, -2),
		Currency:  strings.ToUpper(string(cs.Currency)),
		Ref:       ref,
		PaymentID: cs.ID,
		ProviderData: map[string]interface{}{
			"session_status": string(cs.Status),
		},
	}, nil
}

func normalizeStatus(cs *stripeapi.CheckoutSession) provider.PaymentStatus {
	switch {
	case cs.PaymentStatus == stripeapi.CheckoutSessionPaymentStatusPaid:
		return provider.PaymentStatusSuccessful
	case cs.Status == stripeapi.CheckoutSessionStatusExpired:
		return provider.PaymentStatusFailed
	default:
		return provider.PaymentStatusPending
	}
}

// minorUnits converts a two-decimal amount to cents.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func withSessionID(returnURL string) string {
	if strings.Contains(returnURL, sessionPlaceholder) {
		return returnURL
	}
	sep := "?"
	if strings.Contains(returnURL, "?") {
		sep = "&"
	}
	return returnURL + sep + "session_id=" + sessionPlaceholder
}

func toProviderError(err error) *provider.ProviderError {
	perr := &provider.ProviderError{
		Code:    provider.ErrCodeAPI,
		Message: "Stripe API request failed",
		Details: err.Error(),
	}
	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) {
		perr.StatusCode = stripeErr.HTTPStatusCode
		if stripeErr.Code != "" {
			perr.Code = string(stripeErr.Code)
		}
		if stripeErr.Msg != "" {
			perr.Message = stripeErr.Msg
		}
		if stripeErr.HTTPStatusCode == http.StatusUnauthorized {
			perr.Code = provider.ErrCodeAuth
		}
	}
	return perr
}
