package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
service:
  client_url: https://shop.example.com
jwt:
  secret: test-secret
database:
  name: shop
  user: shop
flutterwave:
  secret_key: FLWSECK_TEST-abc
paypal:
  client_id: id
  client_secret: secret
`

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settlement.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SETTLEMENT_PAYMENT_PROVIDER_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.Payment.Currency)
	assert.True(t, decimal.RequireFromString("4.00").Equal(cfg.Payment.Tax()))
	assert.Equal(t, 5*time.Second, cfg.Payment.ProviderTimeout)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "FLWSECK_TEST-abc", cfg.Flutterwave.SecretKey)
	assert.Equal(t, "https://api-m.sandbox.paypal.com", cfg.PayPal.APIBase())
	assert.Equal(t, "host=localhost port=5432 user=shop password= dbname=shop sslmode=disable", cfg.Database.DSN())
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settlement.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  client_url: https://shop.example.com\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestPaymentConfigValidate(t *testing.T) {
	valid := PaymentConfig{Currency: "USD", FixedTax: "4.00", ProviderTimeout: time.Second}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*PaymentConfig)
	}{
		{"lower-case currency", func(c *PaymentConfig) { c.Currency = "usd" }},
		{"bad tax", func(c *PaymentConfig) { c.FixedTax = "four" }},
		{"negative tax", func(c *PaymentConfig) { c.FixedTax = "-1" }},
		{"no timeout", func(c *PaymentConfig) { c.ProviderTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
