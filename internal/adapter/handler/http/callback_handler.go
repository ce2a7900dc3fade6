package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	stripeProvider "github.com/wekeepgrowing/shop-settlement/internal/infrastructure/provider/stripe"
	"github.com/wekeepgrowing/shop-settlement/internal/usecase"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

type CallbackVerifier interface {
	Verify(ctx context.Context, req usecase.CallbackRequest) (*usecase.CallbackResult, error)
}

// CallbackResponse is the body the storefront's payment status page shows.
type CallbackResponse struct {
	Message    string `json:"message"`
	SubMessage string `json:"subMessage,omitempty"`
}

type callbackReply struct {
	status int
	body   CallbackResponse
}

var callbackReplies = map[usecase.Outcome]callbackReply{
	usecase.OutcomeSuccess: {http.StatusOK, CallbackResponse{
		"Payment successful!", "You have successfully completed your payment."}},
	usecase.OutcomePaymentFailed: {http.StatusBadRequest, CallbackResponse{
		"Payment failed!", "The payment status was not successful."}},
	usecase.OutcomeInvalidRequest: {http.StatusBadRequest, CallbackResponse{
		"Invalid payment details.", ""}},
	usecase.OutcomeVerificationFailed: {http.StatusBadRequest, CallbackResponse{
		"Payment verification failed!", "Payment provider verification failed."}},
	usecase.OutcomeTransactionNotFound: {http.StatusNotFound, CallbackResponse{
		"Transaction not found!", "No transaction found with the provided reference."}},
	usecase.OutcomeMismatch: {http.StatusBadRequest, CallbackResponse{
		"Payment verification failed!", "Transaction details do not match."}},
	usecase.OutcomeInternalError: {http.StatusInternalServerError, CallbackResponse{
		"Payment processing error!", "Please try again later."}},
}

// providerReplies override the default wording per provider.
var providerReplies = map[provider.ProviderType]map[usecase.Outcome]CallbackResponse{
	provider.ProviderTypeFlutterwave: {
		usecase.OutcomeVerificationFailed: {"Payment verification failed!", "Flutterwave API verification failed."},
	},
	provider.ProviderTypePayPal: {
		usecase.OutcomeSuccess:            {"Payment successful", "You have successfully made a payment for the items you purchased."},
		usecase.OutcomePaymentFailed:      {"Payment not approved or failed.", ""},
		usecase.OutcomeVerificationFailed: {"Payment not approved or failed.", "PayPal API verification failed."},
	},
	provider.ProviderTypeStripe: {
		usecase.OutcomeVerificationFailed: {"Payment verification failed!", "Stripe API verification failed."},
	},
}

func replyFor(providerType provider.ProviderType, outcome usecase.Outcome) callbackReply {
	reply, ok := callbackReplies[outcome]
	if !ok {
		reply = callbackReplies[usecase.OutcomeInternalError]
	}
	if body, ok := providerReplies[providerType][outcome]; ok {
		reply.body = body
	}
	return reply
}

type CallbackHandler struct {
	verifier            CallbackVerifier
	flutterwaveHash     string
	stripeWebhookSecret string
	logger              *zap.Logger
}

func NewCallbackHandler(verifier CallbackVerifier, flutterwaveHash, stripeWebhookSecret string, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		verifier:            verifier,
		flutterwaveHash:     flutterwaveHash,
		stripeWebhookSecret: stripeWebhookSecret,
		logger:              logger,
	}
}

func (h *CallbackHandler) respond(c echo.Context, req usecase.CallbackRequest) error {
	result, err := h.verifier.Verify(c.Request().Context(), req)
	outcome := usecase.OutcomeInternalError
	if result != nil {
		outcome = result.Outcome
	}
	if err != nil {
		h.logger.Error("Callback verification error",
			zap.String("provider", string(req.Provider)),
			zap.String("ref", req.Ref),
			zap.Error(err))
	}

	reply := replyFor(req.Provider, outcome)
	return c.JSON(reply.status, reply.body)
}

// FlutterwaveCallback handles GET|POST /api/v1/payments/callback
// ?status=&tx_ref=&transaction_id=
func (h *CallbackHandler) FlutterwaveCallback(c echo.Context) error {
	status := c.QueryParam("status")
	req := usecase.CallbackRequest{
		Provider:  provider.ProviderTypeFlutterwave,
		Ref:       c.QueryParam("tx_ref"),
		PaymentID: c.QueryParam("transaction_id"),
		Source:    "redirect",
		RemoteIP:  c.RealIP(),
		Payload: map[string]interface{}{
			"status":         status,
			"tx_ref":         c.QueryParam("tx_ref"),
			"transaction_id": c.QueryParam("transaction_id"),
		},
	}
	if status != "successful" {
		req.StatusHint = usecase.HintFailed
	}
	return h.respond(c, req)
}

// PayPalCallback handles GET|POST /api/v1/payments/paypal/callback
// ?paymentId=&PayerID=&ref=
func (h *CallbackHandler) PayPalCallback(c echo.Context) error {
	paymentID := c.QueryParam("paymentId")
	payerID := c.QueryParam("PayerID")
	req := usecase.CallbackRequest{
		Provider:  provider.ProviderTypePayPal,
		Ref:       c.QueryParam("ref"),
		PaymentID: paymentID,
		PayerID:   payerID,
		Source:    "redirect",
		RemoteIP:  c.RealIP(),
		Payload: map[string]interface{}{
			"paymentId":     paymentID,
			"PayerID":       payerID,
			"paymentStatus": c.QueryParam("paymentStatus"),
		},
	}

	switch {
	case c.QueryParam("paymentStatus") == "cancel":
		req.StatusHint = usecase.HintFailed
	case paymentID == "" || payerID == "":
		// nothing was approved, so there is nothing to look up
		reply := replyFor(req.Provider, usecase.OutcomeInvalidRequest)
		return c.JSON(reply.status, reply.body)
	}
	return h.respond(c, req)
}

// StripeCallback handles GET|POST /api/v1/payments/stripe/callback
// ?paymentStatus=&ref=&session_id=
func (h *CallbackHandler) StripeCallback(c echo.Context) error {
	req := usecase.CallbackRequest{
		Provider:  provider.ProviderTypeStripe,
		Ref:       c.QueryParam("ref"),
		PaymentID: c.QueryParam("session_id"),
		Source:    "redirect",
		RemoteIP:  c.RealIP(),
		Payload: map[string]interface{}{
			"paymentStatus": c.QueryParam("paymentStatus"),
			"session_id":    c.QueryParam("session_id"),
		},
	}
	if c.QueryParam("paymentStatus") == "cancel" {
		req.StatusHint = usecase.HintFailed
	} else if req.PaymentID == "" {
		reply := replyFor(req.Provider, usecase.OutcomeInvalidRequest)
		return c.JSON(reply.status, reply.body)
	}
	return h.respond(c, req)
}

type flutterwaveWebhook struct {
	Event string `json:"event"`
	Data  struct {
		ID     int64  `json:"id"`
		TxRef  string `json:"tx_ref"`
		Status string `json:"status"`
	} `json:"data"`
}

func readBody(c echo.Context) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
}

// webhookAck answers a webhook. Only internal errors ask the provider to
// retry; every other outcome is final.
func webhookAck(c echo.Context, result *usecase.CallbackResult) error {
	if result == nil || result.Outcome == usecase.OutcomeInternalError {
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "retry"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "outcome": result.Outcome})
}

// FlutterwaveWebhook handles POST /api/v1/payments/webhook/flutterwave
func (h *CallbackHandler) FlutterwaveWebhook(c echo.Context) error {
	hash := c.Request().Header.Get("verif-hash")
	if h.flutterwaveHash == "" || subtle.ConstantTimeCompare([]byte(hash), []byte(h.flutterwaveHash)) != 1 {
		h.logger.Warn("Flutterwave webhook with invalid hash", zap.String("ip", c.RealIP()))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook signature")
	}

	body, err := readBody(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}
	var payload flutterwaveWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid webhook payload")
	}

	h.logger.Info("Processing Flutterwave webhook event",
		zap.String("event", payload.Event),
		zap.String("tx_ref", payload.Data.TxRef),
		zap.String("status", payload.Data.Status))

	req := usecase.CallbackRequest{
		Provider: provider.ProviderTypeFlutterwave,
		Ref:      payload.Data.TxRef,
		Source:   "webhook",
		RemoteIP: c.RealIP(),
		Payload: map[string]interface{}{
			"event":  payload.Event,
			"status": payload.Data.Status,
		},
	}
	if payload.Data.ID != 0 {
		req.PaymentID = strconv.FormatInt(payload.Data.ID, 10)
	}
	if payload.Data.Status != "successful" {
		req.StatusHint = usecase.HintFailed
	}

	result, err := h.verifier.Verify(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Flutterwave webhook verification error", zap.String("ref", req.Ref), zap.Error(err))
	}
	return webhookAck(c, result)
}

// StripeWebhook handles POST /api/v1/payments/webhook/stripe
func (h *CallbackHandler) StripeWebhook(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	event, err := stripeProvider.ParseWebhook(body, c.Request().Header.Get("Stripe-Signature"), h.stripeWebhookSecret)
	if err != nil {
		h.logger.Warn("Stripe webhook rejected", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook signature")
	}

	if !event.Settles() {
		h.logger.Debug("Ignoring Stripe webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type))
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	}

	result, err := h.verifier.Verify(c.Request().Context(), usecase.CallbackRequest{
		Provider:  provider.ProviderTypeStripe,
		Ref:       event.Ref,
		PaymentID: event.SessionID,
		Source:    "webhook",
		RemoteIP:  c.RealIP(),
		Payload: map[string]interface{}{
			"event_id": event.ID,
			"type":     event.Type,
		},
	})
	if err != nil {
		h.logger.Error("Stripe webhook verification error", zap.String("ref", event.Ref), zap.Error(err))
	}
	return webhookAck(c, result)
}
