package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("expected default port 5000, got %q", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Errorf("expected development mode by default")
	}
	if cfg.UnpaidAppointmentTTL != 30*time.Minute {
		t.Errorf("expected 30m unpaid ttl, got %v", cfg.UnpaidAppointmentTTL)
	}
	if cfg.JWT.AccessExpires != 24*time.Hour {
		t.Errorf("expected 24h access token lifetime, got %v", cfg.JWT.AccessExpires)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("unexpected cors origins %v", cfg.CORSOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/medicare")
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("PORT", "8080")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("UNPAID_APPOINTMENT_TTL", "45m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected lower-cased driver, got %q", cfg.Database.Driver)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.UnpaidAppointmentTTL != 45*time.Minute {
		t.Errorf("expected 45m, got %v", cfg.UnpaidAppointmentTTL)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment: "development",
			Database:    DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"},
			JWT: JWTConfig{
				AccessSecret:         defaultAccessSecret,
				AccessExpires:        time.Hour,
				RefreshSecret:        defaultRefreshSecret,
				RefreshExpires:       time.Hour,
				ForgotPasswordSecret: defaultForgotSecret,
				ForgotPasswordExpiry: time.Minute,
			},
			UnpaidAppointmentTTL: 30 * time.Minute,
			ReconcileInterval:    time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid development", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, true},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }, true},
		{"zero ttl", func(c *Config) { c.UnpaidAppointmentTTL = 0 }, true},
		{"production with default secrets", func(c *Config) { c.Environment = "production" }, true},
		{"production configured", func(c *Config) {
			c.Environment = "production"
			c.JWT.AccessSecret = "a"
			c.JWT.RefreshSecret = "b"
			c.JWT.ForgotPasswordSecret = "c"
			c.Stripe.WebhookSecret = "whsec"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
