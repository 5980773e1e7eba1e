package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ai-script-adherence-service/internal/app"
	"ai-script-adherence-service/internal/completion/provider"
	"ai-script-adherence-service/internal/config"
	"ai-script-adherence-service/internal/events"
	httpapi "ai-script-adherence-service/internal/http"
	"ai-script-adherence-service/internal/models"
	"ai-script-adherence-service/internal/observability"
	"ai-script-adherence-service/internal/observability/logging"
	"ai-script-adherence-service/internal/observability/metrics"
	"ai-script-adherence-service/internal/service/collector"
	"ai-script-adherence-service/internal/service/pipeline"
)

func main() {
	// A missing .env is fine; the environment wins over the file.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start application")
	}

	m := metrics.DefaultMetrics

	set, err := pipeline.LoadChecklists(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load checklists")
	}

	client, err := provider.New(cfg.Completion, set, m)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Completion.Provider).Msg("failed to configure completion provider")
	}

	p := pipeline.FromConfig(cfg, client, set, m)

	// Create Kafka publisher for adherence reports
	publisher := events.New(&events.Config{
		Enabled:   cfg.Kafka.Enabled,
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.TopicReport,
		Principal: cfg.Kafka.Principal,
		Metrics:   m,
	})
	defer publisher.Close()

	coll := collector.New(collector.Config{
		IdleTimeout:  cfg.Collector.IdleTimeout,
		MaxFragments: cfg.Collector.MaxFragments,
		Retention:    cfg.Collector.Retention,
	}, func(ctx context.Context, interactionID, tenantID string, fragments models.RawTranscriptSet) error {
		report, err := p.Run(ctx, models.EvaluationRequest{
			InteractionID: interactionID,
			TenantID:      tenantID,
			Fragments:     fragments,
		})
		if err != nil {
			return err
		}
		return publisher.PublishReport(ctx, report)
	}, m)

	consumer := events.NewConsumer(&events.ConsumerConfig{
		Enabled: cfg.Kafka.Enabled,
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.TopicTranscript,
		GroupID: cfg.Kafka.GroupID,
		Metrics: m,
	}, coll)

	consumeCtx, stopConsuming := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(consumeCtx); err != nil {
			log.Error().Err(err).Msg("transcript consumer stopped")
		}
	}()

	var ready atomic.Bool
	obs := observability.NewServer(cfg.Observability.MetricsAddr, nil, ready.Load)
	obs.Start()

	server := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           httpapi.NewRouter(application, p, publisher, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Script adherence service started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http serve failed")
		}
	}()
	ready.Store(true)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down HTTP server")
	ready.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}

	stopConsuming()
	<-consumerDone
	if err := consumer.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close transcript consumer")
	}
	coll.Close()

	if err := obs.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("observability shutdown failed")
	}
	application.Shutdown()
}
