// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN for the relationship store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// InfluxURL is the InfluxDB base URL for the telemetry store (e.g. http://localhost:8086).
	InfluxURL string `mapstructure:"INFLUX_URL"`
	// InfluxToken is the InfluxDB API token.
	InfluxToken string `mapstructure:"INFLUX_TOKEN"`
	// InfluxOrg is the InfluxDB organization name.
	InfluxOrg string `mapstructure:"INFLUX_ORG"`
	// InfluxBucket is the bucket sensor readings are written to.
	InfluxBucket string `mapstructure:"INFLUX_BUCKET"`
	// JWTPublicKey is the PEM-encoded public key (RSA or ECDSA) or path to file; used to verify bearer tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the expected iss claim on bearer tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the expected aud claim on bearer tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// RequireAuthForReads selects authenticated-read mode. When false the
	// deployment serves telemetry reads to anonymous callers.
	RequireAuthForReads bool `mapstructure:"REQUIRE_AUTH_FOR_READS"`
	// DefaultResults is the default and maximum number of readings returned per query.
	DefaultResults int `mapstructure:"DEFAULT_RESULTS"`
	// StoreTimeout is the per-call timeout for backing store operations (e.g. "5s").
	StoreTimeout string `mapstructure:"STORE_TIMEOUT"`
	// LogLevel is the slog level: debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Events (optional). When Kafka brokers are set, ownership and ingest
	// events are emitted to Kafka.
	// EventsKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	EventsKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the Kafka topic for ownership/ingest events (default tagnet-events).
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("INFLUX_URL", "")
	v.SetDefault("INFLUX_TOKEN", "")
	v.SetDefault("INFLUX_ORG", "tagnet")
	v.SetDefault("INFLUX_BUCKET", "readings")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "tagnet-auth")
	v.SetDefault("JWT_AUDIENCE", "tagnet-api")
	v.SetDefault("REQUIRE_AUTH_FOR_READS", true)
	v.SetDefault("DEFAULT_RESULTS", 15)
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "tagnet-events")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.DefaultResults <= 0 {
		return nil, errors.New("config: DEFAULT_RESULTS must be positive")
	}

	return &cfg, nil
}

// StoreCallTimeout parses StoreTimeout as a time.Duration. Returns 5s if unset or invalid.
func (c *Config) StoreCallTimeout() time.Duration {
	d, err := time.ParseDuration(c.StoreTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// EventsKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event emission is enabled (non-empty list) and to create the producer.
func (c *Config) EventsKafkaBrokersList() []string {
	if c == nil || c.EventsKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.EventsKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if b := strings.TrimSpace(p); b != "" {
			out = append(out, b)
		}
	}
	return out
}
