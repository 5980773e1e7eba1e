package normalizer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-script-adherence-service/internal/completion"
	"ai-script-adherence-service/internal/completion/mock"
	"ai-script-adherence-service/internal/keywords"
	"ai-script-adherence-service/internal/models"
	"ai-script-adherence-service/internal/observability/metrics"
)

func newTestNormalizer(client completion.Client, kw keywords.List, opts ...Option) *Normalizer {
	opts = append([]Option{WithMetrics(metrics.NewMetrics(prometheus.NewRegistry()))}, opts...)
	return New(client, kw, opts...)
}

func TestCorrect_SpellingScenario(t *testing.T) {
	client := mock.New()
	client.CorrectFunc = func(ctx context.Context, req completion.Request) (string, error) {
		if req.Content == "helo I am from Choce Finx" {
			return "Hello, I am from Choice Finx.", nil
		}
		return req.Content, nil
	}
	n := newTestNormalizer(client, keywords.List{"Choice Broking"})

	corrected, cleaned, err := n.Correct(context.Background(), models.RawTranscriptSet{"helo I am from Choce Finx"})
	require.NoError(t, err)

	assert.Equal(t, models.CorrectedTranscript{"Hello, I am from Choice Finx."}, corrected)
	assert.Equal(t, "Hello, I am from Choice Finx.", cleaned)
}

func TestCorrect_CardinalityAndJoin(t *testing.T) {
	n := newTestNormalizer(mock.New(), nil)
	raw := models.RawTranscriptSet{"good morning", "this is  Choice", "how can I help"}

	corrected, cleaned, err := n.Correct(context.Background(), raw)
	require.NoError(t, err)

	assert.Len(t, corrected, len(raw))
	assert.Equal(t, "good morning this is Choice how can I help", cleaned)
	assert.Equal(t, strings.Join(corrected, " "), cleaned)
}

func TestCorrect_OrderPreservedUnderReversedCompletion(t *testing.T) {
	const count = 6
	var (
		mu       sync.Mutex
		finished []int
	)

	client := mock.New()
	client.CorrectFunc = func(ctx context.Context, req completion.Request) (string, error) {
		idx, _ := strconv.Atoi(strings.TrimPrefix(req.Content, "fragment "))
		// Later fragments finish first.
		time.Sleep(time.Duration(count-idx) * 15 * time.Millisecond)
		mu.Lock()
		finished = append(finished, idx)
		mu.Unlock()
		return fmt.Sprintf("Fragment %d.", idx), nil
	}
	n := newTestNormalizer(client, nil, WithConcurrency(count))

	raw := make(models.RawTranscriptSet, count)
	for i := range raw {
		raw[i] = fmt.Sprintf("fragment %d", i)
	}

	corrected, _, err := n.Correct(context.Background(), raw)
	require.NoError(t, err)

	for i := range raw {
		assert.Equal(t, fmt.Sprintf("Fragment %d.", i), corrected[i])
	}
	require.Len(t, finished, count)
	assert.Equal(t, count-1, finished[0], "expected the last fragment to complete first")
}

func TestCorrect_Idempotent(t *testing.T) {
	n := newTestNormalizer(mock.New(), keywords.List{"MTF"})
	raw := models.RawTranscriptSet{"we  offer mtf", "upto 4x leverage"}

	_, first, err := n.Correct(context.Background(), raw)
	require.NoError(t, err)
	_, second, err := n.Correct(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCorrect_InstructionEmbedsKeywords(t *testing.T) {
	client := mock.New()
	n := newTestNormalizer(client, keywords.List{"Choice Broking", "MTF"},
		WithModel("gpt-4o-mini"),
		WithTemperature(0.2),
	)

	_, _, err := n.Correct(context.Background(), models.RawTranscriptSet{"hello"})
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 1)
	req := calls[0].Request
	assert.Contains(t, req.Instruction, "spelled correctly: Choice Finx, Choice Broking, MTF.")
	assert.Contains(t, req.Instruction, "company Choice Finx")
	assert.Equal(t, "hello", req.Content)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 0.2, req.Temperature)
}

func TestCorrect_EmptyKeywordListStillWellFormed(t *testing.T) {
	n := newTestNormalizer(mock.New(), keywords.List{})

	assert.Contains(t, n.Instruction(), "spelled correctly: Choice Finx.")
	assert.NotContains(t, n.Instruction(), ", .")

	_, cleaned, err := n.Correct(context.Background(), models.RawTranscriptSet{"hello there"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", cleaned)
}

func TestCorrect_Defaults(t *testing.T) {
	client := mock.New()
	n := newTestNormalizer(client, nil, WithModel(""), WithCompany(""), WithConcurrency(0))

	_, _, err := n.Correct(context.Background(), models.RawTranscriptSet{"x"})
	require.NoError(t, err)

	req := client.Calls()[0].Request
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, 0.0, req.Temperature)
	assert.Equal(t, DefaultConcurrency, n.concurrency)
}

func TestCorrect_EmptyInput(t *testing.T) {
	client := mock.New()
	n := newTestNormalizer(client, nil)

	_, _, err := n.Correct(context.Background(), models.RawTranscriptSet{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Empty(t, client.Calls())
}

func TestCorrect_BlankFragmentPassesThrough(t *testing.T) {
	client := mock.New()
	n := newTestNormalizer(client, nil)

	corrected, cleaned, err := n.Correct(context.Background(), models.RawTranscriptSet{"hello", "   ", "bye"})
	require.NoError(t, err)

	assert.Equal(t, models.CorrectedTranscript{"hello", "", "bye"}, corrected)
	assert.Equal(t, "hello  bye", cleaned)
	assert.Equal(t, 2, client.CallCount(false))
}

func TestCorrect_FailureAbortsWholeCorrection(t *testing.T) {
	var calls atomic.Int32
	client := mock.New()
	client.CorrectFunc = func(ctx context.Context, req completion.Request) (string, error) {
		calls.Add(1)
		if req.Content == "bad" {
			return "", fmt.Errorf("connection reset: %w", models.ErrUpstreamUnavailable)
		}
		return req.Content, nil
	}
	n := newTestNormalizer(client, nil, WithConcurrency(1))

	corrected, cleaned, err := n.Correct(context.Background(), models.RawTranscriptSet{"ok", "bad", "never"})

	require.Error(t, err)
	assert.Nil(t, corrected)
	assert.Empty(t, cleaned)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)

	var stageErr *models.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, models.StageNormalize, stageErr.Stage)
	assert.Equal(t, 1, stageErr.Fragment)
	// The fragment queued behind the failure is never sent.
	assert.Equal(t, int32(2), calls.Load())
}

func TestCorrect_ErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		err     error
		wantErr error
	}{
		{"blank reply", "   ", nil, models.ErrMalformedResponse},
		{"typed malformed", "", fmt.Errorf("no choices: %w", models.ErrMalformedResponse), models.ErrMalformedResponse},
		{"untyped transport error", "", errors.New("dial tcp: refused"), models.ErrUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mock.New()
			client.CorrectFunc = func(ctx context.Context, req completion.Request) (string, error) {
				return tt.reply, tt.err
			}
			n := newTestNormalizer(client, nil)

			_, _, err := n.Correct(context.Background(), models.RawTranscriptSet{"hello"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCorrect_TrimsReply(t *testing.T) {
	client := mock.New()
	client.CorrectFunc = func(ctx context.Context, req completion.Request) (string, error) {
		return "\n  Hello.  \n", nil
	}
	n := newTestNormalizer(client, nil)

	corrected, _, err := n.Correct(context.Background(), models.RawTranscriptSet{"helo"})
	require.NoError(t, err)
	assert.Equal(t, "Hello.", corrected[0])
}
