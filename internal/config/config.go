package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// ServiceName and Environment are attached to every log line.
	ServiceName string
	Environment string
	LogLevel    string

	DatabaseURL    string
	HTTPListenAddr string
	MetricsAddr    string

	// Origins allowed to call the API from a browser (the partner portal).
	CORSAllowedOrigins []string

	TemporalAddress   string
	TemporalNamespace string
	// TemporalTLSCert/Key/CACert enable mTLS to the Temporal frontend.
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string

	// Health monitor intervals. Checks and the metrics rollup run on
	// independent schedules.
	HealthCheckInterval   time.Duration
	MetricsRollupInterval time.Duration
	ProbeTimeout          time.Duration
	ProbeConfigPath       string

	// Transactional mail delivery.
	MailerBaseURL string
	MailerAPIKey  string
	EmailFrom     string

	// Worker queue and retention knobs.
	EmailBatchSize         int
	EmailRetentionDays     int
	AuditLogRetentionDays  int
	HealthLogRetentionDays int

	// S3-compatible object storage for partner/provider media.
	S3Endpoint    string
	S3Region      string
	S3AccessKey   string
	S3SecretKey   string
	S3MediaBucket string
	MediaBaseURL  string

	// Identity service that resolves a user to (role, tier).
	EntitlementBaseURL string
	EntitlementAPIKey  string

	// OpenAI-compatible endpoint for the trip assistant.
	LLMBaseURL string
	LLMAPIKey  string

	// The assistant's tools call back into the public API, so the model
	// only ever sees what an API client could see. Loopback by default.
	InternalAPIBaseURL string
	InternalAPIKey     string

	// Marketplace fan-out budget per provider request.
	MarketplaceTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", ""),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:    getEnv("METRICS_ADDR", ":9100"),

		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS"),

		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace:     getEnv("TEMPORAL_NAMESPACE", "default"),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),

		HealthCheckInterval:   getDuration("HEALTH_CHECK_INTERVAL", 5*time.Minute),
		MetricsRollupInterval: getDuration("METRICS_ROLLUP_INTERVAL", time.Hour),
		ProbeTimeout:          getDuration("PROBE_TIMEOUT", 10*time.Second),
		ProbeConfigPath:       getEnv("PROBE_CONFIG_PATH", ""),

		EmailBatchSize:         getInt("EMAIL_BATCH_SIZE", 25),
		EmailRetentionDays:     getInt("EMAIL_RETENTION_DAYS", 30),
		AuditLogRetentionDays:  getInt("AUDIT_LOG_RETENTION_DAYS", 90),
		HealthLogRetentionDays: getInt("HEALTH_LOG_RETENTION_DAYS", 14),

		MailerBaseURL: getEnv("MAILER_BASE_URL", ""),
		MailerAPIKey:  getEnv("MAILER_API_KEY", ""),
		EmailFrom:     getEnv("EMAIL_FROM", "no-reply@voyara.example"),

		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		S3Region:      getEnv("S3_REGION", "us-east-1"),
		S3AccessKey:   getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:   getEnv("S3_SECRET_KEY", ""),
		S3MediaBucket: getEnv("S3_MEDIA_BUCKET", "voyara-media"),
		MediaBaseURL:  getEnv("MEDIA_BASE_URL", ""),

		EntitlementBaseURL: getEnv("ENTITLEMENT_BASE_URL", ""),
		EntitlementAPIKey:  getEnv("ENTITLEMENT_API_KEY", ""),

		LLMBaseURL: getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),

		InternalAPIBaseURL: getEnv("INTERNAL_API_BASE_URL", "http://127.0.0.1:8090"),
		InternalAPIKey:     getEnv("INTERNAL_API_KEY", ""),

		MarketplaceTimeout: getDuration("MARKETPLACE_TIMEOUT", 8*time.Second),
	}

	return cfg, nil
}

// Validate checks that the fields a given service cannot run without are
// present. Services only validate what they dial: the API server does not
// need mailer credentials, the worker does not need a listen address.
func (c *Config) Validate(service string) error {
	switch service {
	case "platform-api":
		if c.DatabaseURL == "" {
			return fmt.Errorf("platform-api: DATABASE_URL is required")
		}
	case "monitor":
		if c.DatabaseURL == "" {
			return fmt.Errorf("monitor: DATABASE_URL is required")
		}
		if c.HealthCheckInterval <= 0 || c.MetricsRollupInterval <= 0 {
			return fmt.Errorf("monitor: check and rollup intervals must be positive")
		}
	case "worker":
		if c.DatabaseURL == "" {
			return fmt.Errorf("worker: DATABASE_URL is required")
		}
		if c.MailerBaseURL == "" {
			return fmt.Errorf("worker: MAILER_BASE_URL is required")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
