package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	"go.uber.org/zap"
)

const sessionJSON = `{
	"id": "cs_test_1",
	"object": "checkout.session",
	"url": "https://checkout.stripe.com/c/pay/cs_test_1",
	"status": "%s",
	"payment_status": "%s",
	"amount_total": 2400,
	"currency": "usd",
	"client_reference_id": "ref-1",
	"metadata": {"ref": "ref-1", "cart_code": "ABC123"}
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *StripeProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
		URL:               stripeapi.String(server.URL),
		HTTPClient:        server.Client(),
		MaxNetworkRetries: stripeapi.Int64(0),
		LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelNull},
	})
	return NewStripeProvider("sk_test_123", backend, zap.NewNop())
}

func TestCreatePayment(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "2400", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "ref-1", r.PostForm.Get("client_reference_id"))
		assert.Equal(t, "ABC123", r.PostForm.Get("metadata[cart_code]"))
		assert.Equal(t,
			"https://shop.example.com/payment-status?paymentStatus=success&ref=ref-1&session_id={CHECKOUT_SESSION_ID}",
			r.PostForm.Get("success_url"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fmt.Sprintf(sessionJSON, "open", "unpaid")))
	})

	resp, err := p.CreatePayment(context.Background(), &provider.CreatePaymentRequest{
		Ref:       "ref-1",
		CartCode:  "ABC123",
		Amount:    decimal.RequireFromString("24.00"),
		Currency:  "USD",
		ReturnURL: "https://shop.example.com/payment-status?paymentStatus=success&ref=ref-1",
		CancelURL: "https://shop.example.com/payment-status?paymentStatus=cancel&ref=ref-1",
		Customer:  provider.Customer{Email: "buyer@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", resp.RedirectURL)
	assert.Equal(t, "cs_test_1", resp.ProviderPaymentID)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name          string
		status        string
		paymentStatus string
		want          provider.PaymentStatus
	}{
		{"paid", "complete", "paid", provider.PaymentStatusSuccessful},
		{"open", "open", "unpaid", provider.PaymentStatusPending},
		{"expired", "expired", "unpaid", provider.PaymentStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(fmt.Sprintf(sessionJSON, tt.status, tt.paymentStatus)))
			})

			resp, err := p.Verify(context.Background(), &provider.VerifyRequest{PaymentID: "cs_test_1"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Status)
			assert.True(t, decimal.RequireFromString("24.00").Equal(resp.Amount))
			assert.Equal(t, "USD", resp.Currency)
			assert.Equal(t, "ref-1", resp.Ref)
		})
	}
}

func TestVerifyMissingSession(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such checkout.session: 'cs_missing'"}}`))
	})

	_, err := p.Verify(context.Background(), &provider.VerifyRequest{PaymentID: "cs_missing"})
	var perr *provider.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusNotFound, perr.StatusCode)
	assert.Equal(t, "resource_missing", perr.Code)
}

func TestVerifyRequiresSessionID(t *testing.T) {
	p := NewStripeProvider("sk_test_123", nil, zap.NewNop())
	_, err := p.Verify(context.Background(), &provider.VerifyRequest{Ref: "ref-1"})
	assert.Error(t, err)
}

func TestWithSessionID(t *testing.T) {
	assert.Equal(t, "https://a.example/done?session_id={CHECKOUT_SESSION_ID}", withSessionID("https://a.example/done"))
	assert.Equal(t, "https://a.example/done?x=1&session_id={CHECKOUT_SESSION_ID}", withSessionID("https://a.example/done?x=1"))
	assert.Equal(t, "https://a.example/done?id={CHECKOUT_SESSION_ID}", withSessionID("https://a.example/done?id={CHECKOUT_SESSION_ID}"))
}

func TestParseWebhook(t *testing.T) {
	const secret = "whsec_test"
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_1", "object": "checkout.session", "client_reference_id": "ref-1"}}
	}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})

	event, err := ParseWebhook(signed.Payload, signed.Header, secret)
	require.NoError(t, err)
	assert.True(t, event.Settles())
	assert.Equal(t, "cs_test_1", event.SessionID)
	assert.Equal(t, "ref-1", event.Ref)

	_, err = ParseWebhook(payload, signed.Header, "whsec_other")
	assert.Error(t, err)
}

func TestParseWebhookIgnoresOtherEvents(t *testing.T) {
	const secret = "whsec_test"
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(`{"id":"evt_2","object":"event","type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`),
		Secret:    secret,
		Timestamp: time.Now(),
	})

	event, err := ParseWebhook(signed.Payload, signed.Header, secret)
	require.NoError(t, err)
	assert.False(t, event.Settles())
}
