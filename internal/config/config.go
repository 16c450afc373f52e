package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Prediction service.
	PredictionBaseURL string
	PredictionTimeout time.Duration
	CancelSuperseded  bool

	// Browser-facing API.
	CORSAllowedOrigins []string
	SelectionRateLimit float64
	SelectionRateBurst int

	// Outcome publishing.
	KafkaBrokers      []string
	KafkaOutcomeTopic string
	KafkaEnabled      bool

	TracingEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	predictionTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("PREDICTION_TIMEOUT", "10s"))
	if err != nil || predictionTimeout <= 0 {
		return nil, errors.New("invalid PREDICTION_TIMEOUT")
	}

	cancelSuperseded, err := parseBool("CANCEL_SUPERSEDED", false)
	if err != nil {
		return nil, err
	}
	tracingEnabled, err := parseBool("TRACING_ENABLED", false)
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("SELECTION_RATE_LIMIT", "5"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid SELECTION_RATE_LIMIT")
	}
	rateBurst, err := strconv.Atoi(sharedcfg.EnvOrDefault("SELECTION_RATE_BURST", "10"))
	if err != nil || rateBurst <= 0 {
		return nil, errors.New("invalid SELECTION_RATE_BURST")
	}

	brokers := splitList(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		PredictionBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("PREDICTION_BASE_URL", "http://127.0.0.1:5000"), "/"),
		PredictionTimeout: predictionTimeout,
		CancelSuperseded:  cancelSuperseded,

		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		SelectionRateLimit: rateLimit,
		SelectionRateBurst: rateBurst,

		KafkaBrokers:      brokers,
		KafkaOutcomeTopic: sharedcfg.EnvOrDefault("KAFKA_OUTCOME_TOPIC", "no2-prediction-outcomes"),
		KafkaEnabled:      kafkaEnabled,

		TracingEnabled: tracingEnabled,
	}

	if err := validateBaseURL(cfg.PredictionBaseURL); err != nil {
		return nil, err
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaOutcomeTopic == "" {
		return nil, errors.New("KAFKA_OUTCOME_TOPIC is required")
	}

	return cfg, nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid PREDICTION_BASE_URL %q: must be an absolute http(s) URL", raw)
	}
	return nil
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
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
