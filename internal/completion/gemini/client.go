// Package gemini implements completion.Client against the Gemini generateContent API.
package gemini

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
	// DefaultBaseURL is the public Gemini API models root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

	providerName = "gemini"
	maxErrorBody = 512
)

// unsupportedSchemaKeys are JSON Schema keywords responseSchema rejects.
var unsupportedSchemaKeys = []string{"$schema", "$id", "additionalProperties"}

// Config holds Gemini client configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client implements completion.Client for Gemini.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Gemini client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key: %w", models.ErrConfigurationMissing)
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

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64         `json:"temperature"`
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

// Complete returns the model's free-text reply.
func (c *Client) Complete(ctx context.Context, req completion.Request) (string, error) {
	resp, err := c.generate(ctx, req.Model, buildRequest(req, generationConfig{Temperature: req.Temperature}))
	if err != nil {
		return "", err
	}

	text, ok := resp.text()
	if !ok {
		return "", fmt.Errorf("gemini reply has no text (%s): %w", resp.reason(), models.ErrMalformedResponse)
	}
	return text, nil
}

// CompleteStructured requests a JSON reply constrained to shape.
func (c *Client) CompleteStructured(ctx context.Context, req completion.Request, shape completion.Shape) ([]byte, error) {
	schema, err := sanitizeSchema(shape.Schema)
	if err != nil {
		return nil, fmt.Errorf("invalid schema for %s: %w", shape.Name, err)
	}

	cfg := generationConfig{
		Temperature:      req.Temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	resp, err := c.generate(ctx, req.Model, buildRequest(req, cfg))
	if err != nil {
		return nil, err
	}

	text, ok := resp.text()
	if !ok {
		return nil, fmt.Errorf("gemini structured reply has no text (%s): %w", resp.reason(), models.ErrSchemaViolation)
	}
	return []byte(text), nil
}

func buildRequest(req completion.Request, cfg generationConfig) generateRequest {
	return generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: req.Instruction}}},
		Contents: []content{
			{Role: "user", Parts: []part{{Text: req.Content}}},
		},
		GenerationConfig: cfg,
	}
}

func (c *Client) generate(ctx context.Context, model string, body generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %v: %w", err, models.ErrUpstreamUnavailable)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini response: %v: %w", err, models.ErrUpstreamUnavailable)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		log.Warn().
			Int("status", httpResp.StatusCode).
			Str("model", model).
			Msg("Gemini API returned error status")
		return nil, fmt.Errorf("gemini status %d: %s: %w", httpResp.StatusCode, excerpt(respBody), models.ErrUpstreamUnavailable)
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %v: %w", err, models.ErrMalformedResponse)
	}
	return &resp, nil
}

// text concatenates the parts of the first candidate.
func (r *generateResponse) text() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), true
}

func (r *generateResponse) reason() string {
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return "blocked: " + r.PromptFeedback.BlockReason
	}
	if len(r.Candidates) > 0 && r.Candidates[0].FinishReason != "" {
		return "finish reason: " + r.Candidates[0].FinishReason
	}
	return "no candidates"
}

// sanitizeSchema removes keywords Gemini rejects at every nesting level.
func sanitizeSchema(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var schema interface{}
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, err
	}
	return json.Marshal(stripKeys(schema))
}

func stripKeys(v interface{}) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		for _, key := range unsupportedSchemaKeys {
			delete(node, key)
		}
		for k, child := range node {
			node[k] = stripKeys(child)
		}
		return node
	case []interface{}:
		for i, child := range node {
			node[i] = stripKeys(child)
		}
		return node
	default:
		return v
	}
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
