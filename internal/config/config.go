// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full environment surface of the service. A .env file is
// loaded first when present, then the OS environment wins.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBName     string `env:"DB_NAME" envDefault:"whatsapp"`

	// Empty AMQP_URL means dispatch jobs run in-process instead of going
	// through RabbitMQ.
	AMQPURL       string `env:"AMQP_URL"`
	DispatchQueue string `env:"DISPATCH_QUEUE" envDefault:"campaign_dispatch"`

	VerifyToken string `env:"VERIFY_TOKEN" envDefault:"test_token"`

	WhatsAppAccessToken   string `env:"WHATSAPP_ACCESS_TOKEN"`
	WhatsAppPhoneNumberID string `env:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppAPIVersion    string `env:"WHATSAPP_API_VERSION" envDefault:"v19.0"`

	SendTimeout    time.Duration `env:"SEND_TIMEOUT" envDefault:"30s"`
	SendWorkers    int           `env:"SEND_WORKERS" envDefault:"4"`
	SendRatePerSec int           `env:"SEND_RATE_PER_SEC" envDefault:"10"`

	// Retention bounds for the inbound event store.
	ResponseMaxAge   time.Duration `env:"RESPONSE_MAX_AGE" envDefault:"720h"`
	ResponseMaxCount int           `env:"RESPONSE_MAX_COUNT" envDefault:"100000"`
	PurgeInterval    time.Duration `env:"PURGE_INTERVAL" envDefault:"1h"`
}

// Load reads .env (if any) and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}
