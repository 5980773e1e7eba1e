// Package openai implements completion.Client against the OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ai-script-adherence-service/internal/completion"
	"ai-script-adherence-service/internal/models"
)

const (
	// DefaultBaseURL is the public OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	providerName = "openai"
	maxErrorBody = 512
)

// Config holds OpenAI client configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client implements completion.Client for OpenAI.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a new OpenAI client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key: %w", models.ErrConfigurationMissing)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
			Refusal *string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

// Complete returns the assistant's free-text reply.
func (c *Client) Complete(ctx context.Context, req completion.Request) (string, error) {
	resp, err := c.chat(ctx, buildRequest(req, nil))
	if err != nil {
		return "", err
	}

	msg := resp.Choices[0].Message
	if msg.Content == nil {
		return "", fmt.Errorf("openai reply has no content: %w", models.ErrMalformedResponse)
	}
	return *msg.Content, nil
}

// CompleteStructured requests a reply constrained to shape and returns its raw JSON.
func (c *Client) CompleteStructured(ctx context.Context, req completion.Request, shape completion.Shape) ([]byte, error) {
	format := &responseFormat{
		Type: "json_schema",
		JSONSchema: &jsonSchemaFormat{
			Name:   shape.Name,
			Strict: true,
			Schema: shape.Schema,
		},
	}

	resp, err := c.chat(ctx, buildRequest(req, format))
	if err != nil {
		return nil, err
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != nil && *msg.Refusal != "" {
		return nil, fmt.Errorf("openai refused structured reply: %s: %w", *msg.Refusal, models.ErrSchemaViolation)
	}
	if msg.Content == nil {
		return nil, fmt.Errorf("openai structured reply has no content: %w", models.ErrSchemaViolation)
	}
	return []byte(*msg.Content), nil
}

func buildRequest(req completion.Request, format *responseFormat) chatRequest {
	return chatRequest{
		Model: req.Model,
		Messages: []message{
			{Role: "developer", Content: req.Instruction},
			{Role: "user", Content: req.Content},
		},
		Temperature:    req.Temperature,
		ResponseFormat: format,
	}
}

func (c *Client) chat(ctx context.Context, body chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %v: %w", err, models.ErrUpstreamUnavailable)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read openai response: %v: %w", err, models.ErrUpstreamUnavailable)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		log.Warn().
			Int("status", httpResp.StatusCode).
			Str("model", body.Model).
			Msg("OpenAI API returned error status")
		return nil, fmt.Errorf("openai status %d: %s: %w", httpResp.StatusCode, excerpt(respBody), models.ErrUpstreamUnavailable)
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode openai response: %v: %w", err, models.ErrMalformedResponse)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response has no choices: %w", models.ErrMalformedResponse)
	}
	return &resp, nil
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
