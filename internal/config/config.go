package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/wekeepgrowing/shop-settlement/pkg/config"
)

// ServiceName is the config file name and the env var prefix (SETTLEMENT_*).
const ServiceName = "settlement"

type Config struct {
	Service     ServiceConfig     `yaml:"service"`
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	JWT         JWTConfig         `yaml:"jwt"`
	Payment     PaymentConfig     `yaml:"payment"`
	Flutterwave FlutterwaveConfig `yaml:"flutterwave"`
	PayPal      PayPalConfig      `yaml:"paypal"`
	Stripe      StripeConfig      `yaml:"stripe"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Outbox      OutboxConfig      `yaml:"outbox"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Output      string `yaml:"output"`
	FilePath    string `yaml:"file_path"`
	Development bool   `yaml:"development"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// OutboxConfig controls the relay that publishes settlement events.
// Sink is "kafka", "redis" or "none".
type OutboxConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Sink      string        `yaml:"sink"`
	Channel   string        `yaml:"channel"`
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

type ReconcileConfig struct {
	MinAge    time.Duration `yaml:"min_age"`
	BatchSize int           `yaml:"batch_size"`
}

// Defaults are registered before the config file is read, so every key
// below can also be set through its SETTLEMENT_* env var.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"service.name":               ServiceName,
		"service.environment":        "dev",
		"server.http.host":           "0.0.0.0",
		"server.http.port":           8080,
		"server.grpc.host":           "0.0.0.0",
		"server.grpc.port":           9090,
		"database.host":              "localhost",
		"database.port":              5432,
		"database.sslmode":           "disable",
		"database.max_open_conns":    25,
		"database.max_idle_conns":    5,
		"database.conn_max_lifetime": "30m",
		"log.level":                  "info",
		"log.format":                 "json",
		"log.output":                 "stdout",
		"payment.currency":           "USD",
		"payment.fixed_tax":          "4.00",
		"payment.title":              "Cart Payment",
		"payment.description":        "Payment for cart items",
		"payment.provider_timeout":   "15s",
		"payment.default_provider":   "flutterwave",
		"flutterwave.base_url":       "https://api.flutterwave.com",
		"paypal.mode":                "sandbox",
		"redis.addr":                 "localhost:6379",
		"kafka.topic":                "settlement-outbox",
		"outbox.sink":                "none",
		"outbox.channel":             "settlement.events",
		"outbox.interval":            "2s",
		"outbox.batch_size":          100,
		"reconcile.min_age":          "10m",
		"reconcile.batch_size":       50,
	}
}

// LoadConfig reads configs/{APP_ENV}/settlement.yaml (or CONFIG_PATH) and
// applies env overrides.
func LoadConfig() (*Config, error) {
	src, err := pkgconfig.LoadWithDefaults(ServiceName, Defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := src.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Service.ClientURL == "" {
		return fmt.Errorf("service.client_url is required")
	}
	if err := c.Payment.Validate(); err != nil {
		return err
	}
	switch c.Outbox.Sink {
	case "", "none", "redis":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required for kafka outbox sink")
		}
	default:
		return fmt.Errorf("unknown outbox sink %q", c.Outbox.Sink)
	}
	return nil
}
