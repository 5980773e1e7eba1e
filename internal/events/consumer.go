package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-script-adherence-service/internal/models"
	"ai-script-adherence-service/internal/observability/metrics"
)

// Sink receives decoded transcript events.
type Sink interface {
	Add(ev models.TranscriptFinal)
	End(ev models.InteractionEnded)
}

// messageReader is the subset of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Enabled bool
	Metrics *metrics.Metrics
}

// Consumer reads transcript events from Kafka and dispatches them to a Sink.
type Consumer struct {
	reader  messageReader
	sink    Sink
	topic   string
	enabled bool
	metrics *metrics.Metrics
}

type envelope struct {
	EventType string `json:"eventType"`
}

// NewConsumer creates a consumer-group reader on the transcript topic.
func NewConsumer(cfg *ConsumerConfig, sink Sink) *Consumer {
	m := metrics.DefaultMetrics
	if cfg != nil && cfg.Metrics != nil {
		m = cfg.Metrics
	}

	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, transcript consumer not started")
		c := &Consumer{sink: sink, enabled: false, metrics: m}
		if cfg != nil {
			c.topic = cfg.Topic
		}
		return c
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
		StartOffset:    kafka.LastOffset,
		Dialer: &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("groupId", cfg.GroupID).
		Msg("Kafka transcript consumer initialized")

	return &Consumer{
		reader:  reader,
		sink:    sink,
		topic:   cfg.Topic,
		enabled: true,
		metrics: m,
	}
}

// Enabled reports whether the consumer reads from Kafka.
func (c *Consumer) Enabled() bool {
	return c.enabled
}

// Run consumes until ctx is cancelled. Disabled consumers return immediately.
func (c *Consumer) Run(ctx context.Context) error {
	if !c.enabled || c.reader == nil {
		return nil
	}

	log.Info().Str("topic", c.topic).Msg("Consuming transcript events")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error().Err(err).Str("topic", c.topic).Msg("Failed to fetch message")
			return err
		}

		c.Dispatch(msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Failed to commit message")
		}
	}
}

// Dispatch decodes one message and hands it to the sink. Unknown event types and
// undecodable payloads are logged and skipped.
func (c *Consumer) Dispatch(msg kafka.Message) {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping undecodable event")
		return
	}

	switch env.EventType {
	case models.EventTypeTranscriptFinal:
		var ev models.TranscriptFinal
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping malformed transcript event")
			return
		}
		c.metrics.RecordKafkaConsumed(env.EventType)
		c.sink.Add(ev)

	case models.EventTypeInteractionEnded:
		var ev models.InteractionEnded
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping malformed interaction end event")
			return
		}
		c.metrics.RecordKafkaConsumed(env.EventType)
		c.sink.End(ev)

	default:
		log.Debug().
			Str("eventType", env.EventType).
			Int64("offset", msg.Offset).
			Msg("Ignoring event type")
	}
}

// Close closes the Kafka reader.
func (c *Consumer) Close() error {
	if c.reader == nil {
		return nil
	}
	if err := c.reader.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing transcript reader")
		return err
	}
	return nil
}
