package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultAccessSecret  = "default_access_secret"
	defaultRefreshSecret = "default_refresh_secret"
	defaultForgotSecret  = "default_forgot_password_secret"
)

// Config holds all configuration for the application. It is assembled once by
// Load and treated as read-only afterwards.
type Config struct {
	Port        string
	Environment string
	ClientURL   string
	PublicURL   string
	CORSOrigins []string

	Database  DatabaseConfig
	JWT       JWTConfig
	Stripe    StripeConfig
	SSL       SSLCommerzConfig
	Mailer    MailerConfig
	RateLimit RateLimitConfig
	Kafka     KafkaConfig

	BcryptCost           int
	UploadDir            string
	UnpaidAppointmentTTL time.Duration
	ReconcileInterval    time.Duration
	RedisURL             string
}

// DatabaseConfig holds database connection details.
type DatabaseConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// JWTConfig holds token secrets and lifetimes.
type JWTConfig struct {
	AccessSecret         string
	AccessExpires        time.Duration
	RefreshSecret        string
	RefreshExpires       time.Duration
	ForgotPasswordSecret string
	ForgotPasswordExpiry time.Duration
	ResetPasswordURL     string
}

// StripeConfig holds checkout and webhook settings.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

// SSLCommerzConfig holds the SSLCommerz store credentials and callback URLs.
type SSLCommerzConfig struct {
	StoreID       string
	StorePassword string
	PaymentAPI    string
	ValidationAPI string
	SuccessURL    string
	FailURL       string
	CancelURL     string
	IPNURL        string
}

// MailerConfig holds SMTP settings.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// RateLimitConfig holds fixed-window limits for the general API and the auth endpoints.
type RateLimitConfig struct {
	APIMax     int
	APIWindow  time.Duration
	AuthMax    int
	AuthWindow time.Duration
}

// KafkaConfig holds domain event publishing settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("PUBLIC_URL", "http://localhost:5000")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("JWT_ACCESS_TOKEN_SECRET", defaultAccessSecret)
	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRES", "24h")
	v.SetDefault("JWT_REFRESH_TOKEN_SECRET", defaultRefreshSecret)
	v.SetDefault("JWT_REFRESH_TOKEN_EXPIRES", "720h")
	v.SetDefault("FORGOT_PASS_TOKEN_SECRET", defaultForgotSecret)
	v.SetDefault("FORGOT_PASS_TOKEN_EXPIRES", "10m")
	v.SetDefault("RESET_PASS_URL", "http://localhost:3000/reset-password")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("WEBHOOK_SECRET", "")
	v.SetDefault("PAYMENT_CURRENCY", "usd")
	v.SetDefault("SSL_STORE_ID", "")
	v.SetDefault("SSL_STORE_PASSWORD", "")
	v.SetDefault("SSL_PAYMENT_API", "https://sandbox.sslcommerz.com/gwprocess/v4/api.php")
	v.SetDefault("SSL_VALIDATION_API", "https://sandbox.sslcommerz.com/validator/api/validationserverAPI.php")
	v.SetDefault("SSL_SUCCESS_URL", "http://localhost:3000/payment?status=success")
	v.SetDefault("SSL_FAIL_URL", "http://localhost:3000/payment?status=failed")
	v.SetDefault("SSL_CANCEL_URL", "http://localhost:3000/payment?status=cancel")
	v.SetDefault("SSL_IPN_URL", "http://localhost:5000/api/v1/payment/ipn")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RATE_LIMIT_API_MAX", 100)
	v.SetDefault("RATE_LIMIT_API_WINDOW", "15m")
	v.SetDefault("RATE_LIMIT_AUTH_MAX", 5)
	v.SetDefault("RATE_LIMIT_AUTH_WINDOW", "15m")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "medicare.events")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UNPAID_APPOINTMENT_TTL", "30m")
	v.SetDefault("RECONCILE_INTERVAL", "1m")

	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENV"),
		ClientURL:   v.GetString("CLIENT_URL"),
		PublicURL:   strings.TrimRight(v.GetString("PUBLIC_URL"), "/"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		Database: DatabaseConfig{
			Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:          v.GetString("DATABASE_URL"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		},
		JWT: JWTConfig{
			AccessSecret:         v.GetString("JWT_ACCESS_TOKEN_SECRET"),
			AccessExpires:        v.GetDuration("JWT_ACCESS_TOKEN_EXPIRES"),
			RefreshSecret:        v.GetString("JWT_REFRESH_TOKEN_SECRET"),
			RefreshExpires:       v.GetDuration("JWT_REFRESH_TOKEN_EXPIRES"),
			ForgotPasswordSecret: v.GetString("FORGOT_PASS_TOKEN_SECRET"),
			ForgotPasswordExpiry: v.GetDuration("FORGOT_PASS_TOKEN_EXPIRES"),
			ResetPasswordURL:     v.GetString("RESET_PASS_URL"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: v.GetString("WEBHOOK_SECRET"),
			Currency:      strings.ToLower(v.GetString("PAYMENT_CURRENCY")),
		},
		SSL: SSLCommerzConfig{
			StoreID:       v.GetString("SSL_STORE_ID"),
			StorePassword: v.GetString("SSL_STORE_PASSWORD"),
			PaymentAPI:    v.GetString("SSL_PAYMENT_API"),
			ValidationAPI: v.GetString("SSL_VALIDATION_API"),
			SuccessURL:    v.GetString("SSL_SUCCESS_URL"),
			FailURL:       v.GetString("SSL_FAIL_URL"),
			CancelURL:     v.GetString("SSL_CANCEL_URL"),
			IPNURL:        v.GetString("SSL_IPN_URL"),
		},
		Mailer: MailerConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		RateLimit: RateLimitConfig{
			APIMax:     v.GetInt("RATE_LIMIT_API_MAX"),
			APIWindow:  v.GetDuration("RATE_LIMIT_API_WINDOW"),
			AuthMax:    v.GetInt("RATE_LIMIT_AUTH_MAX"),
			AuthWindow: v.GetDuration("RATE_LIMIT_AUTH_WINDOW"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		BcryptCost:           v.GetInt("BCRYPT_COST"),
		UploadDir:            v.GetString("UPLOAD_DIR"),
		UnpaidAppointmentTTL: v.GetDuration("UNPAID_APPOINTMENT_TTL"),
		ReconcileInterval:    v.GetDuration("RECONCILE_INTERVAL"),
		RedisURL:             v.GetString("REDIS_URL"),
	}

	if cfg.Mailer.From == "" {
		cfg.Mailer.From = cfg.Mailer.Username
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be mysql, postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWT.AccessExpires <= 0 || c.JWT.RefreshExpires <= 0 || c.JWT.ForgotPasswordExpiry <= 0 {
		return fmt.Errorf("token lifetimes must be positive durations")
	}
	if c.UnpaidAppointmentTTL <= 0 {
		return fmt.Errorf("UNPAID_APPOINTMENT_TTL must be positive")
	}
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive")
	}

	if c.IsProduction() {
		if c.JWT.AccessSecret == defaultAccessSecret ||
			c.JWT.RefreshSecret == defaultRefreshSecret ||
			c.JWT.ForgotPasswordSecret == defaultForgotSecret {
			return fmt.Errorf("JWT secrets must be set in production")
		}
		if c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("WEBHOOK_SECRET is required in production")
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
