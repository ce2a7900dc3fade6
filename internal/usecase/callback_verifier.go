package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	domainErrors "github.com/wekeepgrowing/shop-settlement/internal/domain/errors"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"github.com/wekeepgrowing/shop-settlement/internal/middleware/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/wekeepgrowing/shop-settlement/internal/usecase")

// Outcome is the verifier's decision for one callback.
type Outcome string

const (
	OutcomeSuccess             Outcome = "success"
	OutcomePaymentFailed       Outcome = "payment_failed"
	OutcomeInvalidRequest      Outcome = "invalid_request"
	OutcomeVerificationFailed  Outcome = "verification_failed"
	OutcomeTransactionNotFound Outcome = "transaction_not_found"
	OutcomeMismatch            Outcome = "mismatch"
	OutcomeInternalError       Outcome = "internal_error"
)

// StatusHint is the caller supplied payment status. It only decides
// whether verification is attempted at all.
type StatusHint string

const (
	HintNone   StatusHint = ""
	HintFailed StatusHint = "failed"
)

type CallbackRequest struct {
	Provider   provider.ProviderType
	StatusHint StatusHint
	Ref        string
	PaymentID  string
	PayerID    string
	// Source and RemoteIP are kept on the audit record.
	Source   string
	RemoteIP string
	Payload  map[string]interface{}
}

type CallbackResult struct {
	Outcome        Outcome `json:"outcome"`
	Ref            string  `json:"ref"`
	AlreadySettled bool    `json:"already_settled"`
}

// Settler applies a verified transaction.
type Settler interface {
	Apply(ctx context.Context, tx *entity.Transaction) (*repository.SettlementResult, error)
}

// CallbackVerifier confirms a callback with the provider's own API and
// settles the cart when the provider's status, amount and currency match
// the stored transaction.
type CallbackVerifier struct {
	transactions repository.TransactionRepository
	callbacks    repository.CallbackEventRepository
	providers    ProviderResolver
	settler      Settler
	timeout      time.Duration
	logger       *zap.Logger
}

func NewCallbackVerifier(
	transactions repository.TransactionRepository,
	callbacks repository.CallbackEventRepository,
	providers ProviderResolver,
	settler Settler,
	timeout time.Duration,
	logger *zap.Logger,
) *CallbackVerifier {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &CallbackVerifier{
		transactions: transactions,
		callbacks:    callbacks,
		providers:    providers,
		settler:      settler,
		timeout:      timeout,
		logger:       logger,
	}
}

// Verify decides the outcome of a callback. The returned error is set only
// for OutcomeInternalError.
func (v *CallbackVerifier) Verify(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	ctx, span := tracer.Start(ctx, "CallbackVerifier.Verify", trace.WithAttributes(
		attribute.String("payment.provider", string(req.Provider)),
		attribute.String("payment.ref", req.Ref),
	))
	defer span.End()

	result, err := v.verify(ctx, req)
	span.SetAttributes(attribute.String("payment.outcome", string(result.Outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(result.Outcome))
	}

	log := v.logger.With(
		zap.String("provider", string(req.Provider)),
		zap.String("ref", req.Ref),
		zap.String("payment_id", req.PaymentID),
		zap.String("outcome", string(result.Outcome)))
	switch result.Outcome {
	case OutcomeSuccess:
		log.Info("Callback settled", zap.Bool("already_settled", result.AlreadySettled))
	case OutcomeInternalError:
		log.Error("Callback failed", zap.Error(err))
	default:
		log.Warn("Callback rejected")
	}

	metrics.RecordCallback(string(req.Provider), string(result.Outcome))
	v.audit(ctx, req, result.Outcome)
	return result, err
}

func (v *CallbackVerifier) verify(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	result := &CallbackResult{Ref: req.Ref}
	outcome := func(o Outcome) (*CallbackResult, error) {
		result.Outcome = o
		return result, nil
	}

	if req.StatusHint == HintFailed {
		return outcome(OutcomePaymentFailed)
	}
	if req.Ref == "" {
		return outcome(OutcomeInvalidRequest)
	}

	p, err := v.providers.Get(req.Provider)
	if err != nil {
		v.logger.Warn("Callback for unavailable provider",
			zap.String("provider", string(req.Provider)),
			zap.Error(err))
		return outcome(OutcomeInvalidRequest)
	}

	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	verified, err := p.Verify(callCtx, &provider.VerifyRequest{
		PaymentID: req.PaymentID,
		PayerID:   req.PayerID,
		Ref:       req.Ref,
	})
	if err != nil {
		v.logger.Warn("Provider verification call failed",
			zap.String("ref", req.Ref),
			zap.Error(err))
		return outcome(OutcomeVerificationFailed)
	}
	if !verified.Success {
		return outcome(OutcomeVerificationFailed)
	}

	tx, err := v.transactions.GetTransactionByRef(ctx, req.Ref)
	if err != nil {
		result.Outcome = OutcomeInternalError
		return result, domainErrors.NewInternalError("failed to load transaction", err)
	}
	if tx == nil {
		return outcome(OutcomeTransactionNotFound)
	}

	// approved but not yet captured: execute only once the terms agree
	if ex, ok := p.(provider.Executor); ok && verified.Status == provider.PaymentStatusPending && req.PayerID != "" {
		if reason := termsMismatch(p.GetProviderName(), tx, verified); reason != "" {
			v.logMismatch(tx, verified, reason)
			return outcome(OutcomeMismatch)
		}
		executed, err := ex.Execute(callCtx, &provider.VerifyRequest{
			PaymentID: req.PaymentID,
			PayerID:   req.PayerID,
			Ref:       req.Ref,
		})
		if err != nil {
			v.logger.Warn("Provider execute call failed",
				zap.String("ref", req.Ref),
				zap.Error(err))
			return outcome(OutcomeVerificationFailed)
		}
		verified = executed
	}

	if reason := mismatch(p.GetProviderName(), tx, verified); reason != "" {
		v.logMismatch(tx, verified, reason)
		return outcome(OutcomeMismatch)
	}

	settled, err := v.settler.Apply(ctx, tx)
	if err != nil {
		if errors.Is(err, domainErrors.ErrTransactionNotFound) {
			return outcome(OutcomeTransactionNotFound)
		}
		result.Outcome = OutcomeInternalError
		return result, domainErrors.NewInternalError("failed to apply settlement", err)
	}

	result.AlreadySettled = settled.AlreadyCompleted
	return outcome(OutcomeSuccess)
}

// mismatch names the first field on which the provider's view disagrees
// with the stored transaction, or returns "".
func mismatch(providerName string, tx *entity.Transaction, verified *provider.VerifyResponse) string {
	if reason := termsMismatch(providerName, tx, verified); reason != "" {
		return reason
	}
	if verified.Status != provider.PaymentStatusSuccessful {
		return "status"
	}
	return ""
}

// termsMismatch compares everything except the payment status.
func termsMismatch(providerName string, tx *entity.Transaction, verified *provider.VerifyResponse) string {
	switch {
	case tx.Provider != providerName:
		return "provider"
	case verified.Ref != "" && verified.Ref != tx.Ref:
		return "ref"
	case !verified.Amount.Equal(tx.Amount):
		return "amount"
	case !strings.EqualFold(verified.Currency, tx.Currency):
		return "currency"
	}
	return ""
}

func (v *CallbackVerifier) logMismatch(tx *entity.Transaction, verified *provider.VerifyResponse, reason string) {
	v.logger.Warn("Provider confirmation does not match transaction",
		zap.String("ref", tx.Ref),
		zap.String("reason", reason),
		zap.String("expected_amount", tx.Amount.String()),
		zap.String("provider_amount", verified.Amount.String()),
		zap.String("expected_currency", tx.Currency),
		zap.String("provider_currency", verified.Currency),
		zap.String("provider_status", verified.RawStatus))
}

func (v *CallbackVerifier) audit(ctx context.Context, req CallbackRequest, outcome Outcome) {
	if v.callbacks == nil {
		return
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	if req.Source != "" {
		payload["source"] = req.Source
	}

	err := v.callbacks.Record(context.WithoutCancel(ctx), &entity.CallbackEvent{
		Provider:          string(req.Provider),
		Ref:               req.Ref,
		ProviderPaymentID: req.PaymentID,
		Outcome:           string(outcome),
		Payload:           payload,
		RemoteIP:          req.RemoteIP,
	})
	if err != nil {
		v.logger.Warn("Failed to record callback event",
			zap.String("ref", req.Ref),
			zap.Error(err))
	}
}
