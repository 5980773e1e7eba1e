// Package mock provides a deterministic completion client for running without provider credentials.
// Corrections collapse whitespace and structured calls report full coverage unless
// overridden, or judge coverage by key phrases when built with NewPhraseMatcher.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"ai-script-adherence-service/internal/checklist"
	"ai-script-adherence-service/internal/completion"
	"ai-script-adherence-service/internal/models"
)

// CorrectFunc produces the reply for a Complete call.
type CorrectFunc func(ctx context.Context, req completion.Request) (string, error)

// StructuredFunc produces the payload for a CompleteStructured call.
type StructuredFunc func(ctx context.Context, req completion.Request, shape completion.Shape) ([]byte, error)

// Call records one request received by the mock.
type Call struct {
	Request    completion.Request
	Structured bool
	Shape      completion.Shape
}

// Client implements completion.Client with scripted responses.
type Client struct {
	CorrectFunc    CorrectFunc
	StructuredFunc StructuredFunc

	mu    sync.Mutex
	calls []Call
}

// New creates a mock client with default behavior.
func New() *Client {
	return &Client{}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "mock"
}

// Complete returns the scripted correction.
func (c *Client) Complete(ctx context.Context, req completion.Request) (string, error) {
	c.record(Call{Request: req})

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("mock completion: %v: %w", err, models.ErrUpstreamUnavailable)
	}
	if c.CorrectFunc != nil {
		return c.CorrectFunc(ctx, req)
	}
	return strings.Join(strings.Fields(req.Content), " "), nil
}

// CompleteStructured returns the scripted structured payload.
func (c *Client) CompleteStructured(ctx context.Context, req completion.Request, shape completion.Shape) ([]byte, error) {
	c.record(Call{Request: req, Structured: true, Shape: shape})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("mock completion: %v: %w", err, models.ErrUpstreamUnavailable)
	}
	if c.StructuredFunc != nil {
		return c.StructuredFunc(ctx, req, shape)
	}
	return Verdict(true, checklist.ConfirmationMessage), nil
}

// Calls returns a copy of the recorded calls.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns how many calls were received, structured or not.
func (c *Client) CallCount(structured bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Structured == structured {
			n++
		}
	}
	return n
}

// Reset clears the recorded calls.
func (c *Client) Reset() {
	c.mu.Lock()
	c.calls = nil
	c.mu.Unlock()
}

func (c *Client) record(call Call) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

// Verdict encodes a ScoringResult payload.
func Verdict(fullyCovered bool, feedback string) []byte {
	data, _ := json.Marshal(models.ScoringResult{FullyCovered: fullyCovered, Feedback: feedback})
	return data
}

// NewPhraseMatcher returns a client whose structured calls judge coverage by matching
// each point's key phrases against the transcript, case-insensitively. A point is
// covered when all of its key phrases appear; points without key phrases fall back
// to their label.
func NewPhraseMatcher(set *checklist.Set) *Client {
	c := New()
	c.StructuredFunc = func(ctx context.Context, req completion.Request, shape completion.Shape) ([]byte, error) {
		title, ok := checklist.TopicFromInstruction(req.Instruction)
		if !ok {
			return nil, fmt.Errorf("mock phrase matcher: instruction names no checklist: %w", models.ErrSchemaViolation)
		}
		cl, ok := set.FindByTitle(title)
		if !ok {
			return nil, fmt.Errorf("mock phrase matcher: unknown checklist %q: %w", title, models.ErrSchemaViolation)
		}
		return Verdict(Judge(cl, req.Content)), nil
	}
	return c
}

// Judge scores transcript against cl by key-phrase matching.
func Judge(cl checklist.ReferenceChecklist, transcript string) (bool, string) {
	haystack := strings.ToLower(transcript)

	var missed []string
	for _, p := range cl.Points {
		if covers(haystack, p) {
			continue
		}
		missed = append(missed, checklist.MissedPointFeedback(p,
			"The transcript does not mention this point.",
			p.Text,
		))
	}

	if len(missed) == 0 {
		return true, checklist.ConfirmationMessage
	}
	return false, strings.Join(missed, "\n")
}

func covers(haystack string, p checklist.Point) bool {
	phrases := p.KeyPhrases
	if len(phrases) == 0 {
		phrases = []string{p.Label}
	}
	for _, phrase := range phrases {
		if !strings.Contains(haystack, strings.ToLower(phrase)) {
			return false
		}
	}
	return true
}
