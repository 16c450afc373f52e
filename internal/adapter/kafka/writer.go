package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ki-SH-an/NO2-predictor/internal/config"
	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/ki-SH-an/NO2-predictor/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	queueSize    = 256
	writeTimeout = 5 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher streams settled selection outcomes to a Kafka topic. Listen is
// registered on the selection machine; Run performs the writes so the
// machine never waits on the broker.
type Publisher struct {
	writer  messageWriter
	queue   chan domain.DisplayState
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured outcome topic.
func NewPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaOutcomeTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newPublisher(w, metrics, logger)
}

func newPublisher(w messageWriter, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer:  w,
		queue:   make(chan domain.DisplayState, queueSize),
		metrics: metrics,
		logger:  logger,
	}
}

// Listen queues settled states for publishing. It never blocks: when the
// queue is full the outcome is dropped and counted.
func (p *Publisher) Listen(s domain.DisplayState) {
	if !s.Phase.Settled() {
		return
	}
	select {
	case p.queue <- s:
	default:
		p.metrics.PublishDropped.Inc()
		p.logger.Warn("outcome queue full, dropping", "request_id", s.RequestID)
	}
}

// Run writes queued outcomes until ctx is cancelled, then flushes what is
// already queued.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("outcome publisher started")
	for {
		select {
		case <-ctx.Done():
			p.drain()
			p.logger.Info("outcome publisher stopped")
			return nil
		case s := <-p.queue:
			p.publish(ctx, s)
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	for {
		select {
		case s := <-p.queue:
			p.publish(ctx, s)
		default:
			return
		}
	}
}

func (p *Publisher) publish(ctx context.Context, s domain.DisplayState) {
	msg, err := serializeToMessage(s)
	if err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("serialize outcome", "request_id", s.RequestID, "error", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish outcome", "request_id", s.RequestID, "error", err)
		return
	}
	p.metrics.OutcomesPublished.Inc()
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a settled display state into a Kafka message
// keyed by request ID.
func serializeToMessage(s domain.DisplayState) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize outcome: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.RequestID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "phase", Value: []byte(s.Phase)},
			{Key: "settled_at", Value: []byte(s.UpdatedAt.Format(time.RFC3339))},
		},
	}, nil
}
