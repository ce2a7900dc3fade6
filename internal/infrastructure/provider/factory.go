package provider

import (
	"fmt"
	"sort"

	"github.com/wekeepgrowing/shop-settlement/internal/config"
	domainErrors "github.com/wekeepgrowing/shop-settlement/internal/domain/errors"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	flutterwaveProvider "github.com/wekeepgrowing/shop-settlement/internal/infrastructure/provider/flutterwave"
	paypalProvider "github.com/wekeepgrowing/shop-settlement/internal/infrastructure/provider/paypal"
	stripeProvider "github.com/wekeepgrowing/shop-settlement/internal/infrastructure/provider/stripe"
	"go.uber.org/zap"
)

// Registry holds the payment providers that have credentials configured.
type Registry struct {
	providers       map[provider.ProviderType]provider.PaymentProvider
	defaultProvider provider.ProviderType
}

// NewRegistry creates a provider for every gateway with credentials in cfg.
// Gateways without credentials are skipped and reported by Get.
func NewRegistry(cfg *config.Config, logger *zap.Logger) *Registry {
	r := &Registry{
		providers:       make(map[provider.ProviderType]provider.PaymentProvider),
		defaultProvider: provider.ProviderType(cfg.Payment.DefaultProvider),
	}
	timeout := cfg.Payment.ProviderTimeout

	if cfg.Flutterwave.SecretKey != "" {
		r.Register(flutterwaveProvider.NewFlutterwaveProvider(
			cfg.Flutterwave.SecretKey,
			cfg.Flutterwave.BaseURL,
			timeout,
			logger,
		))
	}
	if cfg.PayPal.ClientID != "" && cfg.PayPal.ClientSecret != "" {
		r.Register(paypalProvider.NewPayPalProvider(
			cfg.PayPal.ClientID,
			cfg.PayPal.ClientSecret,
			cfg.PayPal.APIBase(),
			timeout,
			logger,
		))
	}
	if cfg.Stripe.SecretKey != "" {
		r.Register(stripeProvider.NewStripeProvider(cfg.Stripe.SecretKey, nil, logger))
	}

	logger.Info("Payment providers configured",
		zap.Strings("providers", r.Names()),
		zap.String("default", string(r.defaultProvider)))

	return r
}

// NewStaticRegistry builds a registry from ready providers.
func NewStaticRegistry(defaultProvider provider.ProviderType, providers ...provider.PaymentProvider) *Registry {
	r := &Registry{
		providers:       make(map[provider.ProviderType]provider.PaymentProvider),
		defaultProvider: defaultProvider,
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider under its own name.
func (r *Registry) Register(p provider.PaymentProvider) {
	r.providers[provider.ProviderType(p.GetProviderName())] = p
}

// Get returns the provider for providerType. An empty type selects the
// default provider.
func (r *Registry) Get(providerType provider.ProviderType) (provider.PaymentProvider, error) {
	if providerType == "" {
		providerType = r.defaultProvider
	}
	if !providerType.Valid() {
		return nil, fmt.Errorf("unsupported provider type %q: %w", providerType, domainErrors.ErrProviderNotConfigured)
	}
	p, ok := r.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", providerType, domainErrors.ErrProviderNotConfigured)
	}
	return p, nil
}

// Names lists the configured providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}
