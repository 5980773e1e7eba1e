// Package completion defines the interface for hosted language-model completion providers.
package completion

import (
	"context"
	"encoding/json"
)

// Request is a single instruction/content pair submitted to a provider.
type Request struct {
	Model       string
	Instruction string // System-level instruction
	Content     string // User-level content
	Temperature float64
}

// Shape names the structured output a provider must return.
type Shape struct {
	Name   string
	Schema json.RawMessage // JSON Schema of the expected object
}

// Client defines the interface for completion providers (OpenAI, Gemini, mock).
type Client interface {
	// Name returns the provider name used in logs and metrics.
	Name() string

	// Complete returns the provider's free-text reply.
	Complete(ctx context.Context, req Request) (string, error)

	// CompleteStructured returns the raw JSON payload of a reply constrained to shape.
	CompleteStructured(ctx context.Context, req Request, shape Shape) ([]byte, error)
}
