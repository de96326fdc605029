package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"basegraph.app/crmsync/core/db"
)

type Config struct {
	Features    Features
	OTel        OTelConfig
	Redis       RedisConfig
	Attio       AttioConfig
	Env         string
	Port        string
	AdminAPIKey string
	NodeID      int64
	DB          db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type RedisConfig struct {
	URL      string
	Stream   string
	Group    string
	Consumer string
}

type AuthMode string

const (
	// AuthModeBody expects the shared secret in the request body, the way Attio workflow
	// webhooks deliver it.
	AuthModeBody AuthMode = "body"
	// AuthModeSignature expects a hex HMAC-SHA256 of the raw body in the Attio-Signature header.
	AuthModeSignature AuthMode = "signature"
)

type DeliveryMode string

const (
	DeliveryModeInline     DeliveryMode = "inline"
	DeliveryModeBackground DeliveryMode = "background"
	DeliveryModeQueue      DeliveryMode = "queue"
)

type AttioConfig struct {
	WebhookSecret   string
	AuthMode        AuthMode
	MappingsFile    string
	DeliveryMode    DeliveryMode
	DeliveryTimeout time.Duration
	InboundRPS      float64
	InboundBurst    int
}

type Features struct {
	Organizations bool
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeWorker ServiceType = "worker"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the API server
//   - .env.worker for the delivery worker
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("CRMSYNC_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:         getEnv("CRMSYNC_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
		NodeID:      getEnvInt64("NODE_ID", 1),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "crmsync-"+string(serviceType)),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Stream:   getEnv("REDIS_STREAM", "crmsync_deliveries"),
			Group:    getEnv("REDIS_CONSUMER_GROUP", "crmsync_delivery_workers"),
			Consumer: getEnv("REDIS_CONSUMER_NAME", "worker-1"),
		},
		Attio: AttioConfig{
			WebhookSecret:   getEnv("ATTIO_WEBHOOK_SECRET", ""),
			AuthMode:        AuthMode(getEnv("ATTIO_AUTH_MODE", string(AuthModeBody))),
			MappingsFile:    getEnv("ATTIO_MAPPINGS_FILE", ""),
			DeliveryMode:    DeliveryMode(getEnv("ATTIO_DELIVERY_MODE", string(DeliveryModeInline))),
			DeliveryTimeout: getEnvDuration("ATTIO_DELIVERY_TIMEOUT", 10*time.Second),
			InboundRPS:      getEnvFloat("ATTIO_INBOUND_RPS", 20),
			InboundBurst:    getEnvInt("ATTIO_INBOUND_BURST", 40),
		},
		Features: Features{
			Organizations: getEnvBool("FEATURE_ORGANIZATIONS", true),
		},
	}

	if cfg.Attio.WebhookSecret == "" {
		return Config{}, fmt.Errorf("ATTIO_WEBHOOK_SECRET is required")
	}

	switch cfg.Attio.AuthMode {
	case AuthModeBody, AuthModeSignature:
	default:
		return Config{}, fmt.Errorf("ATTIO_AUTH_MODE must be %q or %q, got %q", AuthModeBody, AuthModeSignature, cfg.Attio.AuthMode)
	}

	switch cfg.Attio.DeliveryMode {
	case DeliveryModeInline, DeliveryModeBackground, DeliveryModeQueue:
	default:
		return Config{}, fmt.Errorf("ATTIO_DELIVERY_MODE must be inline, background or queue, got %q", cfg.Attio.DeliveryMode)
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c RedisConfig) Enabled() bool {
	return c.URL != "" && c.Stream != ""
}

func (c AttioConfig) MappingsEnabled() bool {
	return c.MappingsFile != ""
}

func (c AttioConfig) RateLimitEnabled() bool {
	return c.InboundRPS > 0
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
