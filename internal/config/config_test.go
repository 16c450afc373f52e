package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBroker = "broker1:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://127.0.0.1:5000", cfg.PredictionBaseURL)
	assert.Equal(t, 10*time.Second, cfg.PredictionTimeout)
	assert.False(t, cfg.CancelSuperseded)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.InDelta(t, 5.0, cfg.SelectionRateLimit, 0)
	assert.Equal(t, 10, cfg.SelectionRateBurst)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "no2-prediction-outcomes", cfg.KafkaOutcomeTopic)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("PREDICTION_BASE_URL", "https://predict.example.com/")
	t.Setenv("PREDICTION_TIMEOUT", "2500ms")
	t.Setenv("CANCEL_SUPERSEDED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://map.example.com, https://admin.example.com")
	t.Setenv("SELECTION_RATE_LIMIT", "0.5")
	t.Setenv("SELECTION_RATE_BURST", "3")
	t.Setenv("KAFKA_BROKERS", testBroker+",broker2:9092")
	t.Setenv("KAFKA_OUTCOME_TOPIC", "custom-outcomes")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "https://predict.example.com", cfg.PredictionBaseURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.PredictionTimeout)
	assert.True(t, cfg.CancelSuperseded)
	assert.Equal(t, []string{"https://map.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	assert.InDelta(t, 0.5, cfg.SelectionRateLimit, 0)
	assert.Equal(t, 3, cfg.SelectionRateBurst)
	assert.Equal(t, []string{testBroker, "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, "custom-outcomes", cfg.KafkaOutcomeTopic)
	assert.True(t, cfg.TracingEnabled)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidPredictionTimeout(t *testing.T) {
	for _, v := range []string{"bad", "0s", "-1s"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("PREDICTION_TIMEOUT", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "PREDICTION_TIMEOUT")
		})
	}
}

func TestLoad_InvalidBaseURL(t *testing.T) {
	for _, v := range []string{"127.0.0.1:5000", "ftp://host", "http://"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("PREDICTION_BASE_URL", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "PREDICTION_BASE_URL")
		})
	}
}

func TestLoad_InvalidBool(t *testing.T) {
	t.Setenv("CANCEL_SUPERSEDED", "maybe")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CANCEL_SUPERSEDED")
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	t.Setenv("SELECTION_RATE_LIMIT", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SELECTION_RATE_LIMIT")
}

func TestLoad_InvalidRateBurst(t *testing.T) {
	t.Setenv("SELECTION_RATE_BURST", "-2")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SELECTION_RATE_BURST")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", testBroker)
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{testBroker}, cfg.KafkaBrokers)
}
