// Package logging provides structured logging with zerolog.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, etc.
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: time.RFC3339,
	}
}

// Init initializes the global zerolog logger.
func Init(cfg Config) {
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.Kitchen,
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithInteraction returns a logger with interaction context.
func WithInteraction(interactionId, tenantId string) zerolog.Logger {
	return log.With().
		Str("interactionId", interactionId).
		Str("tenantId", tenantId).
		Logger()
}

// WithTopic returns a logger scoped to one checklist evaluation.
func WithTopic(interactionId, topic string) zerolog.Logger {
	return log.With().
		Str("interactionId", interactionId).
		Str("topic", topic).
		Logger()
}

// WithFragment returns a logger scoped to one transcript fragment.
func WithFragment(interactionId string, index int) zerolog.Logger {
	return log.With().
		Str("interactionId", interactionId).
		Int("fragment", index).
		Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

type interactionKey struct{}

// ContextWithInteraction carries the interaction id to stage loggers further down the call chain.
func ContextWithInteraction(ctx context.Context, interactionId string) context.Context {
	return context.WithValue(ctx, interactionKey{}, interactionId)
}

// InteractionFrom returns the interaction id stored by ContextWithInteraction, or "".
func InteractionFrom(ctx context.Context) string {
	id, _ := ctx.Value(interactionKey{}).(string)
	return id
}
