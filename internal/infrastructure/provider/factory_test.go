package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/shop-settlement/internal/config"
	domainErrors "github.com/wekeepgrowing/shop-settlement/internal/domain/errors"
	"github.com/wekeepgrowing/shop-settlement/internal/domain/provider"
	"go.uber.org/zap"
)

func TestNewRegistry(t *testing.T) {
	cfg := &config.Config{
		Payment:     config.PaymentConfig{DefaultProvider: "flutterwave", ProviderTimeout: time.Second},
		Flutterwave: config.FlutterwaveConfig{SecretKey: "FLWSECK_TEST"},
		Stripe:      config.StripeConfig{SecretKey: "sk_test"},
	}

	registry := NewRegistry(cfg, zap.NewNop())
	assert.Equal(t, []string{"flutterwave", "stripe"}, registry.Names())

	p, err := registry.Get("")
	require.NoError(t, err)
	assert.Equal(t, "flutterwave", p.GetProviderName())

	p, err = registry.Get(provider.ProviderTypeStripe)
	require.NoError(t, err)
	assert.Equal(t, "stripe", p.GetProviderName())

	_, err = registry.Get(provider.ProviderTypePayPal)
	assert.ErrorIs(t, err, domainErrors.ErrProviderNotConfigured)

	_, err = registry.Get("venmo")
	assert.ErrorIs(t, err, domainErrors.ErrProviderNotConfigured)
}
