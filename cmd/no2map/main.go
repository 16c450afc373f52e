package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	httpadapter "github.com/ki-SH-an/NO2-predictor/internal/adapter/http"
	kafkaadapter "github.com/ki-SH-an/NO2-predictor/internal/adapter/kafka"
	"github.com/ki-SH-an/NO2-predictor/internal/adapter/predictapi"
	"github.com/ki-SH-an/NO2-predictor/internal/config"
	"github.com/ki-SH-an/NO2-predictor/internal/observability"
	"github.com/ki-SH-an/NO2-predictor/internal/registry"
	"github.com/ki-SH-an/NO2-predictor/internal/selection"
	"github.com/ki-SH-an/NO2-predictor/internal/trend"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracer, err := observability.InitTracer(ctx, version)
		if err != nil {
			logger.Error("failed to init tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error("tracer shutdown error", "error", err)
			}
		}()
		logger.Info("tracing enabled")
	}

	client := predictapi.NewClient(cfg.PredictionBaseURL, cfg.PredictionTimeout, metrics, logger)
	machine := selection.New(client, logger, metrics,
		selection.WithTimeout(cfg.PredictionTimeout),
		selection.WithCancelSuperseded(cfg.CancelSuperseded),
	)
	logger.Info("prediction client configured",
		"base_url", client.BaseURL(),
		"timeout", cfg.PredictionTimeout,
		"cancel_superseded", cfg.CancelSuperseded,
	)

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:      cfg.SelectionRateLimit,
		RateBurst:      cfg.SelectionRateBurst,
		Tracing:        cfg.TracingEnabled,
	}, httpadapter.Deps{
		Selector: machine,
		Catalog:  registry.Default(),
		Trend:    trend.NewGenerator(nil),
		Ready:    client,
		Metrics:  metrics,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	// Outcome publishing (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, metrics, logger)
		machine.Subscribe(publisher.Listen)
		g.Go(func() error { return publisher.Run(gctx) })
		logger.Info("outcome publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaOutcomeTopic)
	} else {
		logger.Info("outcome publishing disabled")
	}

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		machine.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
