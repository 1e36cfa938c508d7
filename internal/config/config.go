package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Currency      string
}

type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type RabbitConfig struct {
	URL   string
	Queue string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type Config struct {
	Port        string
	PostgresURL string
	Stripe      StripeConfig
	ObjectStore ObjectStoreConfig
	Rabbit      RabbitConfig
	SMTP        SMTPConfig
}

// Load reads the environment once into a typed config. A .env file is
// honored when present so local runs match deployed behavior.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        envOr("PORT", "8080"),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			SuccessURL:    envOr("CHECKOUT_SUCCESS_URL", "https://app.fotolio.dev/pay/success"),
			CancelURL:     envOr("CHECKOUT_CANCEL_URL", "https://app.fotolio.dev/pay/cancel"),
			Currency:      envOr("CHECKOUT_CURRENCY", "usd"),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Bucket:    envOr("S3_BUCKET", "fotolio-galleries"),
			UseSSL:    envBool("S3_USE_SSL", true),
		},
		Rabbit: RabbitConfig{
			URL:   os.Getenv("RABBIT_URL"),
			Queue: envOr("RABBIT_GATEWAY_QUEUE", "gateway-events"),
		},
		SMTP: SMTPConfig{
			Host:     envOr("SMTP_HOST", "smtp.gmail.com"),
			Port:     envInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			FromName: envOr("SMTP_FROM_NAME", "Fotolio"),
		},
	}

	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("POSTGRES_URL is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
