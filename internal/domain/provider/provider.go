package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentProvider defines the interface for hosted payment gateways
// (Flutterwave, PayPal, Stripe). Initiation and verification depend only on
// this interface.
type PaymentProvider interface {
	// CreatePayment opens a hosted payment and returns the URL the payer is
	// redirected to.
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentResponse, error)

	// Verify asks the provider, server to server, for the authoritative state
	// of a payment.
	Verify(ctx context.Context, req *VerifyRequest) (*VerifyResponse, error)

	// GetProviderName returns the provider name
	GetProviderName() string
}

// Executor is implemented by providers that capture an approved payment with
// a separate call. Execute moves money, so it runs only after Verify's answer
// has been matched against the stored transaction.
type Executor interface {
	Execute(ctx context.Context, req *VerifyRequest) (*VerifyResponse, error)
}

// Customer is passed to providers as payer metadata.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// CreatePaymentRequest represents a provider-agnostic payment creation request
type CreatePaymentRequest struct {
	Ref         string          `json:"ref"`
	CartCode    string          `json:"cart_code"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Customer    Customer        `json:"customer"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	// ReturnURL receives the payer after approval. CancelURL is used by
	// providers with a separate cancel redirect.
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url,omitempty"`
}

// CreatePaymentResponse represents the response from payment creation
type CreatePaymentResponse struct {
	RedirectURL string `json:"redirect_url"`
	// ProviderPaymentID is empty when the provider only assigns an id after
	// the payer completes checkout.
	ProviderPaymentID string                 `json:"provider_payment_id,omitempty"`
	ProviderData      map[string]interface{} `json:"provider_data,omitempty"`
}

// VerifyRequest identifies a payment either by the provider's id or, when
// the provider supports it, by our ref.
type VerifyRequest struct {
	PaymentID string `json:"payment_id,omitempty"`
	PayerID   string `json:"payer_id,omitempty"`
	Ref       string `json:"ref,omitempty"`
}

// VerifyResponse carries the provider's view of a payment.
type VerifyResponse struct {
	// Success reports whether the lookup call itself succeeded.
	Success   bool            `json:"success"`
	Status    PaymentStatus   `json:"status"`
	RawStatus string          `json:"raw_status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	// Ref is the merchant reference echoed by the provider, if any.
	Ref          string                 `json:"ref,omitempty"`
	PaymentID    string                 `json:"payment_id,omitempty"`
	ProviderData map[string]interface{} `json:"provider_data,omitempty"`
}

// PaymentStatus is the provider status normalized across gateways.
type PaymentStatus string

const (
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// ProviderType represents the type of payment provider
type ProviderType string

const (
	ProviderTypeFlutterwave ProviderType = "flutterwave"
	ProviderTypePayPal      ProviderType = "paypal"
	ProviderTypeStripe      ProviderType = "stripe"
)

func (t ProviderType) Valid() bool {
	switch t {
	case ProviderTypeFlutterwave, ProviderTypePayPal, ProviderTypeStripe:
		return true
	}
	return false
}

// Error codes reported in ProviderError.Code
const (
	ErrCodeMarshal  = "MARSHAL_ERROR"
	ErrCodeRequest  = "REQUEST_ERROR"
	ErrCodeAPI      = "API_ERROR"
	ErrCodeResponse = "RESPONSE_ERROR"
	ErrCodeParse    = "PARSE_ERROR"
	ErrCodeAuth     = "AUTH_ERROR"
)

// Error types for provider operations
type ProviderError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
