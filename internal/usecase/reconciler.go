package usecase

import (
	"context"
	"time"

	"github.com/wekeepgrowing/shop-settlement/internal/domain/entity"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/repository"
	"go.uber.org/zap"
)

// ReconcileReport counts what one reconciliation pass did.
type ReconcileReport struct {
	Checked      int `json:"checked"`
	Settled      int `json:"settled"`
	StillPending int `json:"still_pending"`
	Failed       int `json:"failed"`
}

// Reconciler settles pending transactions whose callback never arrived by
// asking the provider directly.
type Reconciler struct {
	transactions repository.TransactionRepository
	providers    ProviderResolver
	settler      Settler
	timeout      time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewReconciler(
	transactions repository.TransactionRepository,
	providers ProviderResolver,
	settler Settler,
	timeout time.Duration,
	logger *zap.Logger,
) *Reconciler {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Reconciler{
		transactions: transactions,
		providers:    providers,
		settler:      settler,
		timeout:      timeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Run checks up to limit pending transactions older than minAge. Verified
// transactions are settled with the same rules as a callback.
func (r *Reconciler) Run(ctx context.Context, minAge time.Duration, limit int) (*ReconcileReport, error) {
	pending, err := r.transactions.ListPending(ctx, r.now().Add(-minAge), limit)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{}
	for _, tx := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		switch r.reconcile(ctx, tx) {
		case reconcileSettled:
			report.Settled++
		case reconcilePending:
			report.StillPending++
		default:
			report.Failed++
		}
	}

	r.logger.Info("Reconciliation pass finished",
		zap.Int("checked", report.Checked),
		zap.Int("settled", report.Settled),
		zap.Int("still_pending", report.StillPending),
		zap.Int("failed", report.Failed))

	return report, nil
}

type reconcileResult int

const (
	reconcileSettled reconcileResult = iota
	reconcilePending
	reconcileFailed
)

func (r *Reconciler) reconcile(ctx context.Context, tx *entity.Transaction) reconcileResult {
	log := r.logger.With(zap.String("ref", tx.Ref), zap.String("provider", tx.Provider))

	p, err := r.providers.Get(provider.ProviderType(tx.Provider))
	if err != nil {
		log.Warn("Skipping transaction of unavailable provider", zap.Error(err))
		return reconcileFailed
	}

	req := &provider.VerifyRequest{Ref: tx.Ref}
	if tx.ProviderPaymentID != nil {
		req.PaymentID = *tx.ProviderPaymentID
	} else if tx.Provider != string(provider.ProviderTypeFlutterwave) {
		// only Flutterwave can be looked up by our ref
		return reconcilePending
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	verified, err := p.Verify(callCtx, req)
	if err != nil || !verified.Success {
		log.Warn("Reconciliation lookup failed", zap.Error(err))
		return reconcileFailed
	}

	switch verified.Status {
	case provider.PaymentStatusPending:
		return reconcilePending
	case provider.PaymentStatusFailed:
		log.Info("Provider reports the payment failed", zap.String("provider_status", verified.RawStatus))
		return reconcileFailed
	}
	if reason := mismatch(p.GetProviderName(), tx, verified); reason != "" {
		log.Warn("Provider confirmation does not match transaction", zap.String("reason", reason))
		return reconcileFailed
	}

	if _, err := r.settler.Apply(ctx, tx); err != nil {
		log.Error("Failed to apply settlement", zap.Error(err))
		return reconcileFailed
	}
	log.Info("Pending transaction settled by reconciliation")
	return reconcileSettled
}
