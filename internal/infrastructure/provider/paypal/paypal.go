package paypal

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	"github.com/wekeepgrowing/shop-settlement/internal/infrastructure/provider/apiclient"
	"go.uber.org/zap"
)

// tokens are refreshed this long before PayPal says they expire
const tokenExpiryMargin = time.Minute

// PayPalProvider implements the PaymentProvider and Executor interfaces on
// the PayPal v1 payments API (create, approve, execute).
type PayPalProvider struct {
	clientID     string
	clientSecret string
	client       *apiclient.Client
	logger       *zap.Logger
	now          func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewPayPalProvider creates a new PayPal provider against apiBase
// (sandbox or live).
func NewPayPalProvider(clientID, clientSecret, apiBase string, timeout time.Duration, logger *zap.Logger) *PayPalProvider {
	return &PayPalProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       apiclient.New("paypal", apiBase, timeout, logger),
		logger:       logger,
		now:          time.Now,
	}
}

// GetProviderName returns the provider name
func (p *PayPalProvider) GetProviderName() string {
	return string(provider.ProviderTypePayPal)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type amount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type item struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

type itemList struct {
	Items []item `json:"items"`
}

type transaction struct {
	ItemList    *itemList `json:"item_list,omitempty"`
	Amount      amount    `json:"amount"`
	Description string    `json:"description,omitempty"`
	Custom      string    `json:"custom,omitempty"`
}

type redirectURLs struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type paymentRequest struct {
	Intent       string            `json:"intent"`
	Payer        map[string]string `json:"payer"`
	RedirectURLs redirectURLs      `json:"redirect_urls"`
	Transactions []transaction     `json:"transactions"`
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type payment struct {
	ID           string        `json:"id"`
	State        string        `json:"state"`
	Transactions []transaction `json:"transactions"`
	Links        []link        `json:"links"`
	Payer        struct {
		PaymentMethod string `json:"payment_method"`
		PayerInfo     struct {
			PayerID string `json:"payer_id"`
			Email   string `json:"email"`
		} `json:"payer_info"`
	} `json:"payer"`
}

// token returns a cached OAuth access token, fetching a new one when the
// cached token is missing or about to expire.
// POST /v1/oauth2/token
func (p *PayPalProvider) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && p.now().Before(p.expiresAt) {
		return p.accessToken, nil
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(p.clientID + ":" + p.clientSecret))
	var resp tokenResponse
	if err := p.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/oauth2/token",
		Header: http.Header{"Authorization": []string{"Basic " + credentials}},
		Body:   url.Values{"grant_type": {"client_credentials"}},
	}, &resp); err != nil {
		var perr *provider.ProviderError
		if errors.As(err, &perr) && perr.StatusCode == http.StatusUnauthorized {
			perr.Code = provider.ErrCodeAuth
		}
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &provider.ProviderError{
			Code:    provider.ErrCodeAuth,
			Message: "PayPal did not return an access token",
		}
	}

	p.accessToken = resp.AccessToken
	p.expiresAt = p.now().Add(time.Duration(resp.ExpiresIn)*time.Second - tokenExpiryMargin)
	return p.accessToken, nil
}

func (p *PayPalProvider) authorized(ctx context.Context, req apiclient.Request, out interface{}) error {
	accessToken, err := p.token(ctx)
	if err != nil {
		return err
	}
	req.Header = http.Header{"Authorization": []string{"Bearer " + accessToken}}
	return p.client.Do(ctx, req, out)
}

// CreatePayment creates a sale and returns its approval URL.
// POST /v1/payments/payment
func (p *PayPalProvider) CreatePayment(ctx context.Context, req *provider.CreatePaymentRequest) (*provider.CreatePaymentResponse, error) {
	total := req.Amount.StringFixed(2)
	body := paymentRequest{
		Intent: "sale",
		Payer:  map[string]string{"payment_method": "paypal"},
		RedirectURLs: redirectURLs{
			ReturnURL: req.ReturnURL,
			CancelURL: req.CancelURL,
		},
		Transactions: []transaction{{
			ItemList: &itemList{Items: []item{{
				Name:     "Cart Items",
				SKU:      req.CartCode,
				Price:    total,
				Currency: req.Currency,
				Quantity: 1,
			}}},
			Amount:      amount{Total: total, Currency: req.Currency},
			Description: req.Description,
			Custom:      req.Ref,
		}},
	}

	var resp payment
	if err := p.authorized(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/payments/payment",
		Body:   body,
	}, &resp); err != nil {
		return nil, err
	}

	approvalURL := ""
	for _, l := range resp.Links {
		if l.Rel == "approval_url" {
			approvalURL = l.Href
			break
		}
	}
	if approvalURL == "" {
		p.logger.Error("PayPalProvider: approval url missing",
			zap.String("ref", req.Ref),
			zap.String("payment_id", resp.ID),
			zap.String("state", resp.State))
		return nil, &provider.ProviderError{
			Code:    provider.ErrCodeResponse,
			Message: "PayPal did not return an approval URL",
		}
	}

	p.logger.Info("PayPalProvider: payment created",
		zap.String("ref", req.Ref),
		zap.String("payment_id", resp.ID))

	return &provider.CreatePaymentResponse{
		RedirectURL:       approvalURL,
		ProviderPaymentID: resp.ID,
		ProviderData:      map[string]interface{}{"state": resp.State},
	}, nil
}

// Verify fetches the payment. It never executes it.
// GET /v1/payments/payment/{id}
func (p *PayPalProvider) Verify(ctx context.Context, req *provider.VerifyRequest) (*provider.VerifyResponse, error) {
	if req.PaymentID == "" {
		return nil, &provider.ProviderError{
			Code:    provider.ErrCodeRequest,
			Message: "paymentId required",
		}
	}

	var resp payment
	if err := p.authorized(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   paymentPath(req.PaymentID),
	}, &resp); err != nil {
		return nil, err
	}
	return toVerifyResponse(&resp)
}

// Execute captures a payment the payer has approved and returns its state
// after execution.
// POST /v1/payments/payment/{id}/execute
func (p *PayPalProvider) Execute(ctx context.Context, req *provider.VerifyRequest) (*provider.VerifyResponse, error) {
	if req.PaymentID == "" || req.PayerID == "" {
		return nil, &provider.ProviderError{
			Code:    provider.ErrCodeRequest,
			Message: "paymentId and PayerID required",
		}
	}

	var resp payment
	if err := p.authorized(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   paymentPath(req.PaymentID) + "/execute",
		Body:   map[string]string{"payer_id": req.PayerID},
	}, &resp); err != nil {
		return nil, err
	}

	p.logger.Info("PayPalProvider: payment executed",
		zap.String("payment_id", resp.ID),
		zap.String("state", resp.State))
	return toVerifyResponse(&resp)
}

func paymentPath(id string) string {
	return "/v1/payments/payment/" + url.PathEscape(id)
}

func toVerifyResponse(resp *payment) (*provider.VerifyResponse, error) {
	result := &provider.VerifyResponse{
		Success:   true,
		Status:    normalizeState(resp.State),
		RawStatus: resp.State,
		PaymentID: resp.ID,
		ProviderData: map[string]interface{}{
			"payer_id": resp.Payer.PayerInfo.PayerID,
		},
	}
	if len(resp.Transactions) > 0 {
		tx := resp.Transactions[0]
		parsed, err := decimal.NewFromString(tx.Amount.Total)
		if err != nil {
			return nil, &provider.ProviderError{
				Code:    provider.ErrCodeParse,
				Message: "Failed to parse PayPal amount",
				Details: err.Error(),
			}
		}
		result.Amount = parsed
		result.Currency = strings.ToUpper(tx.Amount.Currency)
		result.Ref = tx.Custom
	}
	return result, nil
}

func normalizeState(state string) provider.PaymentStatus {
	switch state {
	case "approved":
		return provider.PaymentStatusSuccessful
	case "failed", "canceled", "expired":
		return provider.PaymentStatusFailed
	default:
		return provider.PaymentStatusPending
	}
}
