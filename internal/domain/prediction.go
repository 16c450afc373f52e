package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultPredictionTimeout bounds a single prediction call when the caller
// does not supply a timeout.
const DefaultPredictionTimeout = 10 * time.Second

// Predictor fetches a raw NO₂ estimate for a coordinate.
type Predictor interface {
	Predict(ctx context.Context, c Coordinate, timeout time.Duration) (float64, error)
}

// ErrorKind classifies why a prediction call failed.
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindUnreachable       ErrorKind = "unreachable"
	KindServerError       ErrorKind = "server_error"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindInvalidCoordinate ErrorKind = "invalid_coordinate"
	KindCanceled          ErrorKind = "canceled"
	KindUnknown           ErrorKind = "unknown"
)

const (
	msgTimeout     = "Request timed out. Please check if the server is running."
	msgUnreachable = "Cannot connect to the prediction server. Please ensure it is running at %s"
	msgMalformed   = "Invalid prediction data received"
	msgFailed      = "Prediction failed: %s"
	msgCanceled    = "Prediction canceled"
)

// PredictionError is a classified prediction failure. Error returns the
// message shown to the user.
type PredictionError struct {
	Kind ErrorKind
	// Detail carries kind-specific context: the base URL for unreachable,
	// the response body (or status text) for server errors.
	Detail     string
	StatusCode int
	Err        error
}

func (e *PredictionError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return msgTimeout
	case KindUnreachable:
		return fmt.Sprintf(msgUnreachable, e.Detail)
	case KindMalformedResponse:
		return fmt.Sprintf(msgFailed, msgMalformed)
	case KindCanceled:
		return msgCanceled
	default:
		detail := e.Detail
		if detail == "" && e.Err != nil {
			detail = e.Err.Error()
		}
		return fmt.Sprintf(msgFailed, detail)
	}
}

func (e *PredictionError) Unwrap() error { return e.Err }

// NewTimeoutError reports a call that produced no response in time.
func NewTimeoutError(err error) *PredictionError {
	return &PredictionError{Kind: KindTimeout, Err: err}
}

// NewUnreachableError reports a connection failure to baseURL.
func NewUnreachableError(baseURL string, err error) *PredictionError {
	return &PredictionError{Kind: KindUnreachable, Detail: baseURL, Err: err}
}

// NewServerError reports a non-success HTTP status. An empty body falls
// back to "Server error: <status>".
func NewServerError(status int, body string) *PredictionError {
	detail := body
	if detail == "" {
		detail = fmt.Sprintf("Server error: %d", status)
	}
	return &PredictionError{Kind: KindServerError, Detail: detail, StatusCode: status}
}

// NewMalformedResponseError reports a success response without a usable value.
func NewMalformedResponseError(err error) *PredictionError {
	return &PredictionError{Kind: KindMalformedResponse, Err: err}
}

// NewInvalidCoordinateError wraps a coordinate validation failure.
func NewInvalidCoordinateError(err error) *PredictionError {
	return &PredictionError{Kind: KindInvalidCoordinate, Err: err}
}

// NewCanceledError reports a call abandoned by its caller.
func NewCanceledError(err error) *PredictionError {
	return &PredictionError{Kind: KindCanceled, Err: err}
}

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var pe *PredictionError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// UserMessage returns the text shown for a failed prediction.
func UserMessage(err error) string {
	var pe *PredictionError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	return fmt.Sprintf(msgFailed, err.Error())
}
