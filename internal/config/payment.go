package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentConfig holds the settlement settings shared by every provider.
type PaymentConfig struct {
	Currency        string        `yaml:"currency"`
	FixedTax        string        `yaml:"fixed_tax"`
	Title           string        `yaml:"title"`
	Description     string        `yaml:"description"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	DefaultProvider string        `yaml:"default_provider"`
}

// Tax returns the fixed tax added to every cart total.
func (c PaymentConfig) Tax() decimal.Decimal {
	tax, err := decimal.NewFromString(c.FixedTax)
	if err != nil {
		return decimal.Zero
	}
	return tax
}

func (c PaymentConfig) Validate() error {
	if len(c.Currency) != 3 || strings.ToUpper(c.Currency) != c.Currency {
		return fmt.Errorf("payment.currency must be an upper-case ISO 4217 code, got %q", c.Currency)
	}
	tax, err := decimal.NewFromString(c.FixedTax)
	if err != nil {
		return fmt.Errorf("payment.fixed_tax is not a decimal: %w", err)
	}
	if tax.IsNegative() {
		return fmt.Errorf("payment.fixed_tax must not be negative")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("payment.provider_timeout must be positive")
	}
	return nil
}

// FlutterwaveConfig holds hosted-checkout credentials.
type FlutterwaveConfig struct {
	SecretKey   string `yaml:"secret_key"`
	BaseURL     string `yaml:"base_url"`
	WebhookHash string `yaml:"webhook_hash"`
}

// PayPalConfig holds hosted payment-session credentials.
// Mode is "sandbox" or "live"; BaseURL overrides it when set.
type PayPalConfig struct {
	Mode         string `yaml:"mode"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	BaseURL      string `yaml:"base_url"`
}

func (c PayPalConfig) APIBase() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.Mode == "live" {
		return "https://api-m.paypal.com"
	}
	return "https://api-m.sandbox.paypal.com"
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}
