// Package app assembles the settlement services from configuration. The
// server and the operator CLI share it.
package app

import (
	"context"
	"fmt"

	"github.com/wekeepgrowing/shop-settlement/internal/config"
	"github.com/wekeepgrowing/shop-settlement/internal/infrastructure/database"
	"github.com/wekeepgrowing/shop-settlement/internal/infrastructure/messaging"
	"github.com/wekeepgrowing/shop-settlement/internal/infrastructure/provider"
	"github.com/wekeepgrowing/shop-settlement/internal/usecase"
	"github.com/wekeepgrowing/shop-settlement/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	Repos       *database.Repositories
	Providers   *provider.Registry
	Carts       *usecase.CartService
	Initiator   *usecase.PaymentInitiator
	Verifier    *usecase.CallbackVerifier
	Settlement  *usecase.SettlementApplier
	Reconciler  *usecase.Reconciler
	OutboxRelay *messaging.OutboxRelay
	publisher   messaging.Publisher
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.NewZapLogger(logger.Config{
		Service:     cfg.Service.Name,
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		Development: cfg.Log.Development,
	})
}

// New connects to the database and wires every usecase. The outbox relay is
// nil when outbox.sink is "none".
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repos := database.NewRepositories(db, log)
	providers := provider.NewRegistry(cfg, log)
	if len(providers.Names()) == 0 {
		log.Warn("No payment provider is configured")
	}

	settlement := usecase.NewSettlementApplier(repos.Settlement, log)
	a := &App{
		Config:     cfg,
		Logger:     log,
		DB:         db,
		Repos:      repos,
		Providers:  providers,
		Settlement: settlement,
		Carts: usecase.NewCartService(
			repos.Cart, repos.Product, cfg.Payment.Tax(), cfg.Payment.Currency, log),
		Initiator: usecase.NewPaymentInitiator(
			repos.Cart, repos.Transaction, providers,
			usecase.InitiatorSettings{
				Currency:    cfg.Payment.Currency,
				Tax:         cfg.Payment.Tax(),
				ClientURL:   cfg.Service.ClientURL,
				Title:       cfg.Payment.Title,
				Description: cfg.Payment.Description,
				Timeout:     cfg.Payment.ProviderTimeout,
			}, log),
		Verifier: usecase.NewCallbackVerifier(
			repos.Transaction, repos.Callback, providers, settlement, cfg.Payment.ProviderTimeout, log),
		Reconciler: usecase.NewReconciler(
			repos.Transaction, providers, settlement, cfg.Payment.ProviderTimeout, log),
	}

	publisher, err := messaging.NewPublisher(cfg, log)
	if err != nil {
		_ = database.Close(db, log)
		return nil, fmt.Errorf("failed to create outbox publisher: %w", err)
	}
	if publisher != nil {
		a.publisher = publisher
		a.OutboxRelay = messaging.NewOutboxRelay(repos.Outbox, publisher, cfg.Outbox.Interval, cfg.Outbox.BatchSize, log)
	}

	return a, nil
}

func (a *App) Ping(ctx context.Context) error {
	return database.Ping(ctx, a.DB)
}

func (a *App) Close() error {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.Logger.Error("Failed to close outbox publisher", zap.Error(err))
		}
	}
	return database.Close(a.DB, a.Logger)
}
