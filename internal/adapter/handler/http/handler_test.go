package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	handlers "github.com/wekeepgrowing/shop-settlement/internal/adapter/handler/http"
	domainErrors "github.com/wekeepgrowing/shop-settlement/internal/domain/errors"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	"github.com/wekeepgrowing/shop-settlement/internal/middleware/auth"
	"github.com/wekeepgrowing/shop-settlement/internal/usecase"
	"github.com/wekeepgrowing/shop-settlement/pkg/logger"
)

const (
	jwtSecret       = "test-secret"
	flutterwaveHash = "fw-hash"
	stripeSecret    = "whsec_test"
)

type MockInitiator struct {
	mock.Mock
}

func (m *MockInitiator) Initiate(ctx context.Context, req usecase.InitiateRequest) (*usecase.InitiateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.InitiateResult), args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, req usecase.CallbackRequest) (*usecase.CallbackResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CallbackResult), args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddItem(ctx context.Context, cartCode string, productID int64, quantity int) (*entity.CartItem, error) {
	args := m.Called(ctx, cartCode, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CartItem), args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, cartCode string) (*usecase.CartSummary, error) {
	args := m.Called(ctx, cartCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CartSummary), args.Error(1)
}

type testServer struct {
	echo      *echo.Echo
	initiator *MockInitiator
	verifier  *MockVerifier
	carts     *MockCartService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()

	e := echo.New()
	e.Validator = handlers.NewRequestValidator()
	logger.WithEchoLogger(e, log)

	s := &testServer{
		echo:      e,
		initiator: new(MockInitiator),
		verifier:  new(MockVerifier),
		carts:     new(MockCartService),
	}

	payments := handlers.NewPaymentHandler(s.initiator, log)
	callbacks := handlers.NewCallbackHandler(s.verifier, flutterwaveHash, stripeSecret, log)
	carts := handlers.NewCartHandler(s.carts, log)

	v1 := e.Group("/api/v1")
	protected := v1.Group("", auth.JWTMiddleware(auth.JWTConfig{Secret: jwtSecret, Logger: log}))
	protected.POST("/payments/initiate", payments.InitiatePayment)
	v1.Match([]string{http.MethodGet, http.MethodPost}, "/payments/callback", callbacks.FlutterwaveCallback)
	v1.Match([]string{http.MethodGet, http.MethodPost}, "/payments/paypal/callback", callbacks.PayPalCallback)
	v1.Match([]string{http.MethodGet, http.MethodPost}, "/payments/stripe/callback", callbacks.StripeCallback)
	v1.POST("/payments/webhook/flutterwave", callbacks.FlutterwaveWebhook)
	v1.POST("/payments/webhook/stripe", callbacks.StripeWebhook)
	v1.POST("/cart/items", carts.AddItem)
	v1.GET("/cart", carts.GetCart)

	return s
}

func (s *testServer) do(method, target, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, sub uuid.UUID) http.Header {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub.String(),
		"email": "buyer@example.com",
		"name":  "buyer",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + token}}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestInitiatePayment(t *testing.T) {
	userID := uuid.New()

	t.Run("returns the redirect url", func(t *testing.T) {
		s := newTestServer(t)
		s.initiator.On("Initiate", mock.Anything, mock.MatchedBy(func(req usecase.InitiateRequest) bool {
			return req.CartCode == "ABC123" && req.User.ID == userID && req.User.Email == "buyer@example.com"
		})).Return(&usecase.InitiateResult{
			Ref:         "ref-1",
			RedirectURL: "https://checkout.flutterwave.com/pay/x",
			Amount:      decimal.RequireFromString("24"),
			Currency:    "USD",
			Provider:    "flutterwave",
		}, nil)

		rec := s.do(http.MethodPost, "/api/v1/payments/initiate", `{"cart_code":"ABC123"}`, bearer(t, userID))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "ref-1", body["ref"])
		assert.Equal(t, "24.00", body["amount"])
		assert.Equal(t, "https://checkout.flutterwave.com/pay/x", body["redirect_url"])
		assert.Equal(t, "https://checkout.flutterwave.com/pay/x", body["link"])
		assert.NotContains(t, body, "approval_url")
	})

	t.Run("requires a token", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(http.MethodPost, "/api/v1/payments/initiate", `{"cart_code":"ABC123"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		s.initiator.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything)
	})

	t.Run("validates the body", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(http.MethodPost, "/api/v1/payments/initiate", `{"provider":"venmo"}`, bearer(t, userID))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "cart_code is required")
	})

	t.Run("maps usecase errors to status codes", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{domainErrors.NewNotFoundError("cart not found", domainErrors.ErrCartNotFound), http.StatusNotFound},
			{domainErrors.NewGatewayError(&provider.ProviderError{Message: "upstream secret detail"}), http.StatusBadGateway},
			{domainErrors.NewInternalError("failed to create transaction", assert.AnError), http.StatusInternalServerError},
		}
		for _, tt := range tests {
			s := newTestServer(t)
			s.initiator.On("Initiate", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := s.do(http.MethodPost, "/api/v1/payments/initiate", `{"cart_code":"ABC123"}`, bearer(t, userID))
			assert.Equal(t, tt.want, rec.Code)
			assert.NotContains(t, rec.Body.String(), "upstream secret detail")
		}
	})
}

func TestFlutterwaveCallback(t *testing.T) {
	tests := []struct {
		name        string
		outcome     usecase.Outcome
		wantStatus  int
		wantMessage string
		wantSub     string
	}{
		{"success", usecase.OutcomeSuccess, http.StatusOK, "Payment successful!", "You have successfully completed your payment."},
		{"mismatch", usecase.OutcomeMismatch, http.StatusBadRequest, "Payment verification failed!", "Transaction details do not match."},
		{"not found", usecase.OutcomeTransactionNotFound, http.StatusNotFound, "Transaction not found!", "No transaction found with the provided reference."},
		{"provider failure", usecase.OutcomeVerificationFailed, http.StatusBadRequest, "Payment verification failed!", "Flutterwave API verification failed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.verifier.On("Verify", mock.Anything, mock.MatchedBy(func(req usecase.CallbackRequest) bool {
				return req.Provider == provider.ProviderTypeFlutterwave &&
					req.Ref == "ref-1" &&
					req.PaymentID == "288200108" &&
					req.StatusHint == usecase.HintNone
			})).Return(&usecase.CallbackResult{Outcome: tt.outcome, Ref: "ref-1"}, nil)

			rec := s.do(http.MethodPost, "/api/v1/payments/callback?status=successful&tx_ref=ref-1&transaction_id=288200108", "", nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.wantMessage, body["message"])
			assert.Equal(t, tt.wantSub, body["subMessage"])
		})
	}

	t.Run("cancelled payment carries a failed hint", func(t *testing.T) {
		s := newTestServer(t)
		s.verifier.On("Verify", mock.Anything, mock.MatchedBy(func(req usecase.CallbackRequest) bool {
			return req.StatusHint == usecase.HintFailed
		})).Return(&usecase.CallbackResult{Outcome: usecase.OutcomePaymentFailed}, nil)

		rec := s.do(http.MethodGet, "/api/v1/payments/callback?status=cancelled&tx_ref=ref-1", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Payment failed!", decode(t, rec)["message"])
	})

	t.Run("internal error is a 500", func(t *testing.T) {
		s := newTestServer(t)
		s.verifier.On("Verify", mock.Anything, mock.Anything).
			Return(&usecase.CallbackResult{Outcome: usecase.OutcomeInternalError}, assert.AnError)

		rec := s.do(http.MethodGet, "/api/v1/payments/callback?status=successful&tx_ref=ref-1&transaction_id=1", "", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestPayPalCallback(t *testing.T) {
	t.Run("approved payment", func(t *testing.T) {
		s := newTestServer(t)
		s.verifier.On("Verify", mock.Anything, mock.MatchedBy(func(req usecase.CallbackRequest) bool {
			return req.Provider == provider.ProviderTypePayPal && req.PaymentID == "PAYID-1" && req.PayerID == "PAYER-9" && req.Ref == "ref-1"
		})).Return(&usecase.CallbackResult{Outcome: usecase.OutcomeSuccess}, nil)

		rec := s.do(http.MethodPost, "/api/v1/payments/paypal/callback?paymentId=PAYID-1&PayerID=PAYER-9&ref=ref-1", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "Payment successful", body["message"])
		assert.Equal(t, "You have successfully made a payment for the items you purchased.", body["subMessage"])
	})

	t.Run("missing payer is invalid without verification", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(http.MethodPost, "/api/v1/payments/paypal/callback?paymentId=PAYID-1&ref=ref-1", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid payment details.", decode(t, rec)["message"])
		s.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("not approved", func(t *testing.T) {
		s := newTestServer(t)
		s.verifier.On("Verify", mock.Anything, mock.Anything).Return(&usecase.CallbackResult{Outcome: usecase.OutcomeMismatch}, nil)

		rec := s.do(http.MethodGet, "/api/v1/payments/paypal/callback?paymentId=PAYID-1&PayerID=PAYER-9&ref=ref-1", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Transaction details do not match.", decode(t, rec)["subMessage"])
	})
}

func TestStripeCallback(t *testing.T) {
	s := newTestServer(t)
	s.verifier.On("Verify", mock.Anything, mock.MatchedBy(func(req usecase.CallbackRequest) bool {
		return req.Provider == provider.ProviderTypeStripe && req.PaymentID == "cs_test_1" && req.Ref == "ref-1"
	})).Return(&usecase.CallbackResult{Outcome: usecase.OutcomeSuccess}, nil)

	rec := s.do(http.MethodGet, "/api/v1/payments/stripe/callback?paymentStatus=success&ref=ref-1&session_id=cs_test_1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/payments/stripe/callback?paymentStatus=success&ref=ref-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	s.verifier.AssertNumberOfCalls(t, "Verify", 1)
}

func TestFlutterwaveWebhook(t *testing.T) {
	payload := `{"event":"charge.completed","data":{"id":288200108,"tx_ref":"ref-1","status":"successful","amount":24,"currency":"USD"}}`

	t.Run("rejects a wrong hash", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(http.MethodPost, "/api/v1/payments/webhook/flutterwave", payload, http.Header{"Verif-Hash": {"nope"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		s.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("verifies the charge", func(t *testing.T) {
		s := newTestServer(t)
		s.verifier.On("Verify", mock.Anything, mock.MatchedBy(func(req usecase.CallbackRequest) bool {
			return req.Source == "webhook" && req.Ref == "ref-1" && req.PaymentID == "288200108" && req.StatusHint == usecase.HintNone
		})).Return(&usecase.CallbackResult{Outcome: usecase.OutcomeMismatch}, nil)

		rec := s.do(http.MethodPost, "/api/v1/payments/webhook/flutterwave", payload, http.Header{"Verif-Hash": {flutterwaveHash}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "mismatch", decode(t, rec)["outcome"])
	})

	t.Run("asks for a retry on internal errors", func(t *testing.T) {
		s := newTestServer(t)
		s.verifier.On("Verify", mock.Anything, mock.Anything).
			Return(&usecase.CallbackResult{Outcome: usecase.OutcomeInternalError}, assert.AnError)

		rec := s.do(http.MethodPost, "/api/v1/payments/webhook/flutterwave", payload, http.Header{"Verif-Hash": {flutterwaveHash}})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestStripeWebhook(t *testing.T) {
	sign := func(payload string) http.Header {
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   []byte(payload),
			Secret:    stripeSecret,
			Timestamp: time.Now(),
		})
		return http.Header{"Stripe-Signature": {signed.Header}}
	}

	t.Run("completed session is verified", func(t *testing.T) {
		s := newTestServer(t)
		s.verifier.On("Verify", mock.Anything, mock.MatchedBy(func(req usecase.CallbackRequest) bool {
			return req.Provider == provider.ProviderTypeStripe && req.PaymentID == "cs_test_1" && req.Ref == "ref-1"
		})).Return(&usecase.CallbackResult{Outcome: usecase.OutcomeSuccess}, nil)

		payload := `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_test_1","object":"checkout.session","client_reference_id":"ref-1"}}}`
		rec := s.do(http.MethodPost, "/api/v1/payments/webhook/stripe", payload, sign(payload))
		assert.Equal(t, http.StatusOK, rec.Code)
		s.verifier.AssertExpectations(t)
	})

	t.Run("other events are ignored", func(t *testing.T) {
		s := newTestServer(t)
		payload := `{"id":"evt_2","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`
		rec := s.do(http.MethodPost, "/api/v1/payments/webhook/stripe", payload, sign(payload))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ignored", decode(t, rec)["status"])
	})

	t.Run("bad signature", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(http.MethodPost, "/api/v1/payments/webhook/stripe", `{"id":"evt_3"}`, http.Header{"Stripe-Signature": {"t=1,v1=deadbeef"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCartHandler(t *testing.T) {
	t.Run("add item", func(t *testing.T) {
		s := newTestServer(t)
		s.carts.On("AddItem", mock.Anything, "ABC123", int64(7), 2).Return(&entity.CartItem{
			ProductID: 7,
			Quantity:  2,
			Product:   entity.Product{ID: 7, Name: "Mug", Price: decimal.RequireFromString("10")},
		}, nil)

		rec := s.do(http.MethodPost, "/api/v1/cart/items", `{"cart_code":"ABC123","product_id":7,"quantity":2}`, nil)
		assert.Equal(t, http.StatusCreated, rec.Code)
		data := decode(t, rec)["data"].(map[string]interface{})
		assert.Equal(t, "20.00", data["total"])
	})

	t.Run("rejects a missing product id", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(http.MethodPost, "/api/v1/cart/items", `{"cart_code":"ABC123"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "product_id is required")
	})

	t.Run("get cart", func(t *testing.T) {
		s := newTestServer(t)
		s.carts.On("GetCart", mock.Anything, "ABC123").Return(&usecase.CartSummary{
			Cart: &entity.Cart{CartCode: "ABC123", Items: []entity.CartItem{{
				ProductID: 7, Quantity: 2, Product: entity.Product{Name: "Mug", Price: decimal.RequireFromString("10.00")},
			}}},
			Items:    2,
			Subtotal: decimal.RequireFromString("20"),
			Tax:      decimal.RequireFromString("4"),
			Total:    decimal.RequireFromString("24"),
			Currency: "USD",
		}, nil)

		rec := s.do(http.MethodGet, "/api/v1/cart?cart_code=ABC123", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "24.00", body["total"])
		assert.Equal(t, float64(2), body["item_count"])
	})

	t.Run("unknown cart", func(t *testing.T) {
		s := newTestServer(t)
		s.carts.On("GetCart", mock.Anything, "NOPE").
			Return(nil, domainErrors.NewNotFoundError(domainErrors.ErrCartNotFound.Error(), domainErrors.ErrCartNotFound))

		rec := s.do(http.MethodGet, "/api/v1/cart?cart_code=NOPE", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "cart not found or already paid")
	})
}
