package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string

	TokenPepper      string
	SigningTokenTTL  time.Duration
	SigningTokenMax  time.Duration
	MaxDocumentBytes int64
	ConsumeLockWait  time.Duration
	PublicBaseURL    string

	JWTIssuer       string
	JWTAudience     string
	JWTAccessSecret string

	PublicRateLimitPerMin int
	RateLimitFailMode     string
	RedisAddr             string
	RedisPassword         string

	ArchiveEnabled   bool
	ArchiveEndpoint  string
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveBucket    string
	ArchiveUseSSL    bool

	LogLevel  string
	LogFormat string

	OTELServiceName          string
	OTELEnvironment          string
	OTELTracingEnabled       bool
	OTELMetricsEnabled       bool
	OTELExporterOTLPEndpoint string
	OTELExporterOTLPInsecure bool
	OTELTraceSamplingRatio   float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPPort:                 getEnv("HTTP_PORT", "8080"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		TokenPepper:              os.Getenv("SIGNING_TOKEN_PEPPER"),
		MaxDocumentBytes:         getEnvInt64("MAX_DOCUMENT_BYTES", 10<<20),
		PublicBaseURL:            getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		JWTIssuer:                getEnv("JWT_ISSUER", "rafc-go-backend"),
		JWTAudience:              getEnv("JWT_AUDIENCE", "rafc-go-backend-api"),
		JWTAccessSecret:          os.Getenv("JWT_ACCESS_SECRET"),
		PublicRateLimitPerMin:    getEnvInt("PUBLIC_RATE_LIMIT_PER_MIN", 60),
		RateLimitFailMode:        strings.ToLower(getEnv("RATE_LIMIT_FAIL_MODE", "fail_closed")),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		ArchiveEnabled:           getEnvBool("ARCHIVE_ENABLED", false),
		ArchiveEndpoint:          os.Getenv("ARCHIVE_S3_ENDPOINT"),
		ArchiveAccessKey:         os.Getenv("ARCHIVE_S3_ACCESS_KEY"),
		ArchiveSecretKey:         os.Getenv("ARCHIVE_S3_SECRET_KEY"),
		ArchiveBucket:            getEnv("ARCHIVE_S3_BUCKET", "contratos-firmados"),
		ArchiveUseSSL:            getEnvBool("ARCHIVE_S3_USE_SSL", true),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		LogFormat:                strings.ToLower(getEnv("LOG_FORMAT", "json")),
		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "rafc-go-backend"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", "development"),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", false),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", false),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
	}

	ttl, err := time.ParseDuration(getEnv("SIGNING_TOKEN_TTL", "72h"))
	if err != nil {
		return nil, fmt.Errorf("parse SIGNING_TOKEN_TTL: %w", err)
	}
	cfg.SigningTokenTTL = ttl

	maxTTL, err := time.ParseDuration(getEnv("SIGNING_TOKEN_MAX_TTL", "336h"))
	if err != nil {
		return nil, fmt.Errorf("parse SIGNING_TOKEN_MAX_TTL: %w", err)
	}
	cfg.SigningTokenMax = maxTTL

	lockWait, err := time.ParseDuration(getEnv("CONSUME_LOCK_WAIT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("parse CONSUME_LOCK_WAIT: %w", err)
	}
	cfg.ConsumeLockWait = lockWait

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.TokenPepper) < 16 {
		errs = append(errs, "SIGNING_TOKEN_PEPPER must be at least 16 chars")
	}
	if len(c.JWTAccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 chars")
	}
	if c.SigningTokenTTL <= 0 || c.SigningTokenTTL > c.SigningTokenMax {
		errs = append(errs, "SIGNING_TOKEN_TTL must be between 1s and SIGNING_TOKEN_MAX_TTL")
	}
	if c.SigningTokenMax <= 0 || c.SigningTokenMax > (30*24*time.Hour) {
		errs = append(errs, "SIGNING_TOKEN_MAX_TTL must be between 1s and 30d")
	}
	if c.MaxDocumentBytes <= 0 || c.MaxDocumentBytes > (50<<20) {
		errs = append(errs, "MAX_DOCUMENT_BYTES must be between 1 and 50MiB")
	}
	if c.ConsumeLockWait <= 0 || c.ConsumeLockWait > time.Minute {
		errs = append(errs, "CONSUME_LOCK_WAIT must be between 1ms and 1m")
	}
	if c.PublicRateLimitPerMin <= 0 {
		errs = append(errs, "PUBLIC_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.RateLimitFailMode != "fail_open" && c.RateLimitFailMode != "fail_closed" {
		errs = append(errs, "RATE_LIMIT_FAIL_MODE must be fail_open or fail_closed")
	}
	if c.ArchiveEnabled {
		if c.ArchiveEndpoint == "" {
			errs = append(errs, "ARCHIVE_S3_ENDPOINT is required when ARCHIVE_ENABLED")
		}
		if c.ArchiveAccessKey == "" || c.ArchiveSecretKey == "" {
			errs = append(errs, "ARCHIVE_S3_ACCESS_KEY and ARCHIVE_S3_SECRET_KEY are required when ARCHIVE_ENABLED")
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
