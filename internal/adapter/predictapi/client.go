// Package predictapi calls the external NO₂ prediction service.
package predictapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/ki-SH-an/NO2-predictor/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultBaseURL is where the prediction service listens in development.
	DefaultBaseURL = "http://127.0.0.1:5000"

	predictPath     = "/predict"
	predictionField = "NO2_prediction"
	contentTypeJSON = "application/json"
	maxErrorBody    = 4 << 10
	maxResponseBody = 1 << 20
)

// Client implements domain.Predictor over HTTP. It never retries and never
// caches: each call is one round trip.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a prediction client. A non-positive timeout falls back to
// domain.DefaultPredictionTimeout.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = domain.DefaultPredictionTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type predictRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Predict posts the rounded coordinate to /predict and returns the raw
// NO2_prediction value. timeout overrides the client default when positive.
// Every failure is a *domain.PredictionError.
func (c *Client) Predict(ctx context.Context, coord domain.Coordinate, timeout time.Duration) (float64, error) {
	start := time.Now()
	value, err := c.predict(ctx, coord, timeout)
	c.observe(start, err)
	return value, err
}

func (c *Client) predict(ctx context.Context, coord domain.Coordinate, timeout time.Duration) (float64, error) {
	if err := coord.Validate(); err != nil {
		return 0, domain.NewInvalidCoordinateError(err)
	}
	if timeout <= 0 {
		timeout = c.timeout
	}

	rounded := coord.Rounded()
	payload, err := json.Marshal(predictRequest{Latitude: rounded.Latitude, Longitude: rounded.Longitude})
	if err != nil {
		return 0, fmt.Errorf("encode prediction request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+predictPath, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)

	c.logger.Debug("requesting prediction", "lat", rounded.Latitude, "lng", rounded.Longitude)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, c.classifyTransportError(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return 0, c.classifyTransportError(ctx, reqCtx, err)
	}
	oversized := len(body) > maxResponseBody

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(body))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		c.logger.Warn("prediction service error", "status", resp.StatusCode, "body", text)
		return 0, domain.NewServerError(resp.StatusCode, text)
	}

	if oversized {
		return 0, domain.NewMalformedResponseError(fmt.Errorf("response exceeds %d bytes", maxResponseBody))
	}
	return decodePrediction(body)
}

// classifyTransportError maps a failed round trip onto the error taxonomy.
// parent is the caller's context, reqCtx the one bounded by the timeout. A
// deadline on either context is a timeout; only explicit cancellation by the
// caller is reported as canceled.
func (c *Client) classifyTransportError(parent, reqCtx context.Context, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return domain.NewCanceledError(err)
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return domain.NewTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewTimeoutError(err)
	}
	c.logger.Debug("prediction service unreachable", "base_url", c.baseURL, "error", err)
	return domain.NewUnreachableError(c.baseURL, err)
}

// decodePrediction extracts a numeric NO2_prediction from a JSON object.
func decodePrediction(body []byte) (float64, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return 0, domain.NewMalformedResponseError(fmt.Errorf("decode response: %w", err))
	}
	raw, ok := fields[predictionField]
	if !ok {
		return 0, domain.NewMalformedResponseError(fmt.Errorf("missing %s", predictionField))
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, domain.NewMalformedResponseError(fmt.Errorf("%s is null", predictionField))
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, domain.NewMalformedResponseError(fmt.Errorf("%s is not a number: %w", predictionField, err))
	}
	return value, nil
}

func (c *Client) observe(start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	c.metrics.PredictionRequests.WithLabelValues(outcome).Inc()
	c.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
}

// Ping checks that the service answers on its root route.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("prediction service ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("prediction service ping: status %d", resp.StatusCode)
	}
	return nil
}

// CheckReadiness reports whether the prediction service is reachable.
func (c *Client) CheckReadiness(ctx context.Context) error {
	return c.Ping(ctx)
}
