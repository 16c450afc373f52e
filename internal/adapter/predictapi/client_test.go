package predictapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/ki-SH-an/NO2-predictor/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const headerContentType = "Content-Type"

var delhi = domain.Coordinate{Latitude: 28.6139, Longitude: 77.2090}

func testClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		timeout:    5 * time.Second,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) *domain.PredictionError {
	t.Helper()
	require.Error(t, err)
	var pe *domain.PredictionError
	require.True(t, errors.As(err, &pe), "expected *domain.PredictionError, got %T", err)
	assert.Equal(t, kind, pe.Kind)
	return pe
}

func TestClient_Predict_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, contentTypeJSON, r.Header.Get(headerContentType))
		assert.Equal(t, contentTypeJSON, r.Header.Get("Accept"))

		var body map[string]float64
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]float64{"latitude": 28.6139, "longitude": 77.209}, body)

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"NO2_prediction": 0.00015}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	value, err := c.Predict(context.Background(), delhi, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.00015, value)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.PredictionRequests.WithLabelValues("success")), 0)
}

func TestClient_Predict_RoundsCoordinates(t *testing.T) {
	var got map[string]float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"NO2_prediction": 1}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Predict(context.Background(),
		domain.Coordinate{Latitude: 12.97159876, Longitude: 77.59460049}, 0)
	require.NoError(t, err)
	assert.Equal(t, 12.971599, got["latitude"])
	assert.Equal(t, 77.5946, got["longitude"])
}

func TestClient_Predict_IgnoresExtraFields(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(http.StatusOK, `{"NO2_prediction": 4.2e-5, "model": "rf-v3"}`))
	defer srv.Close()

	value, err := testClient(srv.URL).Predict(context.Background(), delhi, 0)
	require.NoError(t, err)
	assert.Equal(t, 4.2e-5, value)
}

func TestClient_Predict_ServerErrorWithBody(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(http.StatusBadRequest, `{"error": "Missing latitude or longitude"}`+"\n"))
	defer srv.Close()

	_, err := testClient(srv.URL).Predict(context.Background(), delhi, 0)
	pe := requireKind(t, err, domain.KindServerError)
	assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
	assert.Equal(t, `Prediction failed: {"error": "Missing latitude or longitude"}`, err.Error())
}

func TestClient_Predict_ServerErrorEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Predict(context.Background(), delhi, 0)
	requireKind(t, err, domain.KindServerError)
	assert.Equal(t, "Prediction failed: Server error: 500", err.Error())
}

func TestClient_Predict_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing field", `{"foo": 1}`},
		{"string value", `{"NO2_prediction": "0.1"}`},
		{"null value", `{"NO2_prediction": null}`},
		{"array body", `[0.1]`},
		{"not json", `<html>oops</html>`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(jsonHandler(http.StatusOK, tt.body))
			defer srv.Close()

			c := testClient(srv.URL)
			_, err := c.Predict(context.Background(), delhi, 0)
			requireKind(t, err, domain.KindMalformedResponse)
			assert.Equal(t, "Prediction failed: Invalid prediction data received", err.Error())
			assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.PredictionRequests.WithLabelValues("malformed_response")), 0)
		})
	}
}

func TestClient_Predict_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"NO2_prediction": 1}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Predict(context.Background(), delhi, 50*time.Millisecond)
	requireKind(t, err, domain.KindTimeout)
	assert.Equal(t, "Request timed out. Please check if the server is running.", err.Error())
}

func TestClient_Predict_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testClient(url).Predict(context.Background(), delhi, time.Second)
	requireKind(t, err, domain.KindUnreachable)
	assert.Equal(t, "Cannot connect to the prediction server. Please ensure it is running at "+url, err.Error())
}

func TestClient_Predict_CallerCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := testClient(srv.URL).Predict(ctx, delhi, time.Second)
	requireKind(t, err, domain.KindCanceled)
}

func TestClient_Predict_CallerDeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL).Predict(ctx, delhi, time.Second)
	requireKind(t, err, domain.KindTimeout)
	assert.Equal(t, "Request timed out. Please check if the server is running.", err.Error())
}

func TestClient_Predict_OversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"NO2_prediction": 0.0001, "padding": "` + strings.Repeat("x", maxResponseBody) + `"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Predict(context.Background(), delhi, 0)
	requireKind(t, err, domain.KindMalformedResponse)
	assert.Equal(t, "Prediction failed: Invalid prediction data received", err.Error())
}

func TestClient_Predict_InvalidCoordinateSkipsNetwork(t *testing.T) {
	var called atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called.Store(true) }))
	defer srv.Close()

	_, err := testClient(srv.URL).Predict(context.Background(), domain.Coordinate{Latitude: math.NaN()}, 0)
	requireKind(t, err, domain.KindInvalidCoordinate)
	assert.False(t, called.Load())
}

func TestClient_Predict_NoCaching(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"NO2_prediction": 0.0001}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for range 3 {
		_, err := c.Predict(context.Background(), delhi, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("NO2 Prediction API is running!"))
	}))
	defer srv.Close()

	require.NoError(t, testClient(srv.URL).CheckReadiness(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	err := testClient(down.URL).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", 0, nil, slog.Default())
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, domain.DefaultPredictionTimeout, c.timeout)

	c = NewClient("http://localhost:5000/", time.Second, nil, slog.Default())
	assert.Equal(t, "http://localhost:5000", c.BaseURL())
}
