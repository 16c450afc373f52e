//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ki-SH-an/NO2-predictor/internal/adapter/kafka"
	"github.com/ki-SH-an/NO2-predictor/internal/adapter/predictapi"
	"github.com/ki-SH-an/NO2-predictor/internal/config"
	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/ki-SH-an/NO2-predictor/internal/observability"
	"github.com/ki-SH-an/NO2-predictor/internal/selection"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOutcomeTopic = "test-outcomes"

// TestSelectionOutcomeReachesKafka drives a selection against a stub
// prediction service and reads the settled outcome back from Kafka.
func TestSelectionOutcomeReachesKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testOutcomeTopic)

	predictSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"NO2_prediction": 0.00015}`))
	}))
	defer predictSrv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	cfg := &config.Config{
		KafkaBrokers:      []string{broker},
		KafkaOutcomeTopic: testOutcomeTopic,
	}

	publisher := kafka.NewPublisher(cfg, metrics, logger)
	defer publisher.Close()
	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	go func() { _ = publisher.Run(runCtx) }()

	client := predictapi.NewClient(predictSrv.URL, 5*time.Second, metrics, logger)
	machine := selection.New(client, logger, metrics)
	defer machine.Close()
	machine.Subscribe(publisher.Listen)

	loading, err := machine.Select(domain.Coordinate{Latitude: 28.6139, Longitude: 77.2090})
	require.NoError(t, err)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testOutcomeTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer consumer.Close()

	readCtx, cancelRead := context.WithTimeout(ctx, 30*time.Second)
	defer cancelRead()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read outcome")

	assert.Equal(t, loading.RequestID, string(msg.Key))

	var outcome domain.DisplayState
	require.NoError(t, json.Unmarshal(msg.Value, &outcome))
	assert.Equal(t, domain.PhaseSucceeded, outcome.Phase)
	assert.Equal(t, "150.0 µg/m³", outcome.Concentration)
	require.NotNil(t, outcome.Value)
	assert.Equal(t, 0.00015, *outcome.Value)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "succeeded", headers["phase"])
	assert.NotEmpty(t, headers["settled_at"])
}
