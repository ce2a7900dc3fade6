package flutterwave

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	"github.com/wekeepgrowing/shop-settlement/internal/infrastructure/provider/apiclient"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.flutterwave.com"

// FlutterwaveProvider implements the PaymentProvider interface for
// Flutterwave Standard (hosted checkout).
type FlutterwaveProvider struct {
	secretKey string
	client    *apiclient.Client
	logger    *zap.Logger
}

// NewFlutterwaveProvider creates a new Flutterwave provider
func NewFlutterwaveProvider(secretKey, baseURL string, timeout time.Duration, logger *zap.Logger) *FlutterwaveProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &FlutterwaveProvider{
		secretKey: secretKey,
		client:    apiclient.New("flutterwave", baseURL, timeout, logger),
		logger:    logger,
	}
}

// GetProviderName returns the provider name
func (f *FlutterwaveProvider) GetProviderName() string {
	return string(provider.ProviderTypeFlutterwave)
}

type customer struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phonenumber,omitempty"`
}

type customizations struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type paymentRequest struct {
	TxRef          string            `json:"tx_ref"`
	Amount         string            `json:"amount"`
	Currency       string            `json:"currency"`
	RedirectURL    string            `json:"redirect_url"`
	Customer       customer          `json:"customer"`
	Customizations customizations    `json:"customizations"`
	Meta           map[string]string `json:"meta,omitempty"`
}

type paymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID       int64           `json:"id"`
		TxRef    string          `json:"tx_ref"`
		FlwRef   string          `json:"flw_ref"`
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	} `json:"data"`
}

func (f *FlutterwaveProvider) authHeader() http.Header {
	return http.Header{"Authorization": []string{"Bearer " + f.secretKey}}
}

// CreatePayment creates a hosted payment link
// POST /v3/payments
func (f *FlutterwaveProvider) CreatePayment(ctx context.Context, req *provider.CreatePaymentRequest) (*provider.CreatePaymentResponse, error) {
	body := paymentRequest{
		TxRef:       req.Ref,
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		RedirectURL: req.ReturnURL,
		Customer: customer{
			Email:       req.Customer.Email,
			Name:        req.Customer.Name,
			PhoneNumber: req.Customer.Phone,
		},
		Customizations: customizations{
			Title:       req.Title,
			Description: req.Description,
		},
		Meta: map[string]string{"cart_code": req.CartCode},
	}

	var resp paymentResponse
	if err := f.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/v3/payments",
		Header: f.authHeader(),
		Body:   body,
	}, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "success" || resp.Data.Link == "" {
		f.logger.Error("FlutterwaveProvider: payment link not created",
			zap.String("ref", req.Ref),
			zap.String("status", resp.Status),
			zap.String("message", resp.Message))
		return nil, &provider.ProviderError{
			Code:    provider.ErrCodeAPI,
			Message: "Flutterwave did not return a payment link",
			Details: resp.Message,
		}
	}

	f.logger.Info("FlutterwaveProvider: payment link created", zap.String("ref", req.Ref))

	return &provider.CreatePaymentResponse{RedirectURL: resp.Data.Link}, nil
}

// Verify looks the transaction up by id, or by tx_ref when no id is known.
// GET /v3/transactions/{id}/verify
// GET /v3/transactions/verify_by_reference?tx_ref=
func (f *FlutterwaveProvider) Verify(ctx context.Context, req *provider.VerifyRequest) (*provider.VerifyResponse, error) {
	apiReq := apiclient.Request{Method: http.MethodGet, Header: f.authHeader()}
	switch {
	case req.PaymentID != "":
		apiReq.Path = "/v3/transactions/" + url.PathEscape(req.PaymentID) + "/verify"
	case req.Ref != "":
		apiReq.Path = "/v3/transactions/verify_by_reference"
		apiReq.Query = url.Values{"tx_ref": {req.Ref}}
	default:
		return nil, &provider.ProviderError{
			Code:    provider.ErrCodeRequest,
			Message: "transaction id or reference required",
		}
	}

	var resp verifyResponse
	if err := f.client.Do(ctx, apiReq, &resp); err != nil {
		return nil, err
	}

	result := &provider.VerifyResponse{
		Success:   resp.Status == "success",
		Status:    normalizeStatus(resp.Data.Status),
		RawStatus: resp.Data.Status,
		Amount:    resp.Data.Amount,
		Currency:  resp.Data.Currency,
		Ref:       resp.Data.TxRef,
		ProviderData: map[string]interface{}{
			"flw_ref": resp.Data.FlwRef,
			"message": resp.Message,
		},
	}
	if resp.Data.ID != 0 {
		result.PaymentID = strconv.FormatInt(resp.Data.ID, 10)
	}

	f.logger.Info("FlutterwaveProvider: transaction verified",
		zap.String("ref", resp.Data.TxRef),
		zap.String("transaction_id", result.PaymentID),
		zap.String("status", resp.Data.Status))

	return result, nil
}

func normalizeStatus(status string) provider.PaymentStatus {
	switch status {
	case "successful":
		return provider.PaymentStatusSuccessful
	case "failed", "cancelled":
		return provider.PaymentStatusFailed
	default:
		return provider.PaymentStatusPending
	}
}
