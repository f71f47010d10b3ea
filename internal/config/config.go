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
	// DatabaseURL is the Postgres DSN; required by cmd/migrate and cmd/worker.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPublicKey is the PEM-encoded public key (or path to file) used to validate platform access tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the expected iss claim (e.g. "credvault-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the expected aud claim (e.g. "credvault-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// CredentialKey is the base64-encoded 32-byte key for the shared-credential cipher.
	CredentialKey string `mapstructure:"CREDENTIAL_KEY"`
	// AppURL is the web app base URL used in invitation email links.
	AppURL string `mapstructure:"APP_URL"`
	// MailAPIKey is the API key for the HTTP mail provider. Empty disables invitation email.
	MailAPIKey string `mapstructure:"MAIL_API_KEY"`
	// MailFrom is the sender address for invitation email.
	MailFrom string `mapstructure:"MAIL_FROM"`
	// MailBaseURL is the mail provider endpoint (default https://api.resend.com/emails).
	MailBaseURL string `mapstructure:"MAIL_BASE_URL"`
	// AutoRevokeDelay is the delay before an auto-revoke-after-use share is revoked (e.g. "30s").
	AutoRevokeDelay string `mapstructure:"AUTO_REVOKE_DELAY"`
	// ExpirySweepInterval is how often the worker sweeps overdue invitations (e.g. "1m").
	ExpirySweepInterval string `mapstructure:"EXPIRY_SWEEP_INTERVAL"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. Empty disables the event pipeline.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// RevocationKafkaTopic carries revocation events between nodes (default credvault-revocations).
	RevocationKafkaTopic string `mapstructure:"REVOCATION_KAFKA_TOPIC"`
	// AuditKafkaTopic carries audit entries to the ops log shipper (default credvault-audit).
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for cmd/worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Loki base URL the worker pushes audit entries to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "credvault-auth")
	v.SetDefault("JWT_AUDIENCE", "credvault-api")
	v.SetDefault("CREDENTIAL_KEY", "")
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("MAIL_API_KEY", "")
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("MAIL_BASE_URL", "https://api.resend.com/emails")
	v.SetDefault("AUTO_REVOKE_DELAY", "30s")
	v.SetDefault("EXPIRY_SWEEP_INTERVAL", "1m")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("REVOCATION_KAFKA_TOPIC", "credvault-revocations")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "credvault-audit")
	v.SetDefault("KAFKA_GROUP_ID", "credvault-worker")
	v.SetDefault("LOKI_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.MailAPIKey != "" && cfg.MailFrom == "" {
		return nil, errors.New("config: MAIL_FROM must be set when MAIL_API_KEY is set")
	}

	return &cfg, nil
}

// AutoRevokeDelayDuration parses AutoRevokeDelay as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) AutoRevokeDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.AutoRevokeDelay)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ExpirySweepIntervalDuration parses ExpirySweepInterval as a time.Duration. Returns 1m if unset or invalid.
func (c *Config) ExpirySweepIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.ExpirySweepInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the event pipeline is enabled (non-empty list) and to create writers/readers.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
