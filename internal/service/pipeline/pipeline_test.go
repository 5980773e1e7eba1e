package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-script-adherence-service/internal/checklist"
	"ai-script-adherence-service/internal/completion"
	"ai-script-adherence-service/internal/completion/mock"
	"ai-script-adherence-service/internal/keywords"
	"ai-script-adherence-service/internal/models"
	"ai-script-adherence-service/internal/observability/metrics"
	"ai-script-adherence-service/internal/service/evaluator"
	"ai-script-adherence-service/internal/service/normalizer"
)

func newTestPipeline(client completion.Client, opts ...Option) *Pipeline {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	n := normalizer.New(client, keywords.List{"Choice Broking"}, normalizer.WithMetrics(m))
	e := evaluator.New(client, evaluator.WithMetrics(m))
	opts = append([]Option{WithMetrics(m)}, opts...)
	return New(n, e, checklist.Default(), opts...)
}

func TestRun_FullReport(t *testing.T) {
	set := checklist.Default()
	client := mock.NewPhraseMatcher(set)
	fixed := time.UnixMilli(1700000000000)
	p := newTestPipeline(client, WithClock(func() time.Time { return fixed }))

	report, err := p.Run(context.Background(), models.EvaluationRequest{
		InteractionID: "int-1",
		TenantID:      "tenant-a",
		Fragments: models.RawTranscriptSet{
			"please refer your friends",
			"and get Rs 500 back",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.EventTypeAdherenceReport, report.EventType)
	assert.Equal(t, "int-1", report.InteractionID)
	assert.Equal(t, "tenant-a", report.TenantID)
	assert.Equal(t, "please refer your friends and get Rs 500 back", report.CleanedTranscript)
	assert.Equal(t, fixed.UnixMilli(), report.Timestamp)
	_, err = uuid.Parse(report.ReportID)
	assert.NoError(t, err)

	require.Len(t, report.Results, 8)
	for i, id := range set.IDs() {
		assert.Equal(t, id, report.Results[i].Topic)
	}

	referrals := report.Results[7]
	assert.True(t, referrals.FullyCovered)
	assert.Equal(t, checklist.ConfirmationMessage, referrals.Feedback)
	assert.False(t, report.Results[0].FullyCovered)
	assert.False(t, report.FullyCompliant)
}

func TestRun_NormalizerRunsOnceAndEvaluatorsShareTranscript(t *testing.T) {
	client := mock.New()
	p := newTestPipeline(client)

	report, err := p.Run(context.Background(), models.EvaluationRequest{
		Fragments: models.RawTranscriptSet{"one", "two", "three"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, client.CallCount(false))
	assert.Equal(t, 8, client.CallCount(true))
	for _, call := range client.Calls() {
		if call.Structured {
			assert.Equal(t, "one two three", call.Request.Content)
		}
	}
	assert.True(t, report.FullyCompliant)
}

func TestRun_ResultsInConfiguredOrderUnderReversedCompletion(t *testing.T) {
	set := checklist.Default()
	ids := set.IDs()
	rank := make(map[string]int, len(ids))
	for i, c := range set.All() {
		rank[c.Title] = i
	}

	var (
		mu       sync.Mutex
		finished []string
	)
	client := mock.New()
	client.StructuredFunc = func(ctx context.Context, req completion.Request, shape completion.Shape) ([]byte, error) {
		title, _ := checklist.TopicFromInstruction(req.Instruction)
		time.Sleep(time.Duration(len(ids)-rank[title]) * 10 * time.Millisecond)
		mu.Lock()
		finished = append(finished, title)
		mu.Unlock()
		return mock.Verdict(true, title), nil
	}
	p := newTestPipeline(client, WithConcurrency(len(ids)))

	report, err := p.Run(context.Background(), models.EvaluationRequest{Fragments: models.RawTranscriptSet{"hi"}})
	require.NoError(t, err)

	require.Len(t, report.Results, len(ids))
	for i, r := range report.Results {
		assert.Equal(t, ids[i], r.Topic)
		assert.Equal(t, r.Title, r.Feedback)
	}
	assert.Equal(t, set.All()[len(ids)-1].Title, finished[0])
	assert.True(t, report.FullyCompliant)
}

func TestRun_TopicSubset(t *testing.T) {
	client := mock.New()
	p := newTestPipeline(client)

	report, err := p.Run(context.Background(), models.EvaluationRequest{
		Fragments: models.RawTranscriptSet{"hi"},
		Topics:    []string{"referrals", "charges"},
	})
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "charges", report.Results[0].Topic)
	assert.Equal(t, "referrals", report.Results[1].Topic)
	assert.Equal(t, report.ReportID, report.InteractionID)
}

func TestRun_UnknownTopicFailsBeforeAnyCall(t *testing.T) {
	client := mock.New()
	p := newTestPipeline(client)

	_, err := p.Run(context.Background(), models.EvaluationRequest{
		Fragments: models.RawTranscriptSet{"hi"},
		Topics:    []string{"crypto"},
	})

	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Empty(t, client.Calls())
}

func TestRun_NormalizerFailureSkipsEvaluation(t *testing.T) {
	client := mock.New()
	client.CorrectFunc = func(ctx context.Context, req completion.Request) (string, error) {
		return "", fmt.Errorf("timeout: %w", models.ErrUpstreamUnavailable)
	}
	p := newTestPipeline(client)

	report, err := p.Run(context.Background(), models.EvaluationRequest{Fragments: models.RawTranscriptSet{"hi"}})

	assert.Nil(t, report)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	assert.Equal(t, 0, client.CallCount(true))

	var stageErr *models.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, models.StageNormalize, stageErr.Stage)
}

func TestRun_EvaluatorFailureFailsRun(t *testing.T) {
	client := mock.New()
	client.StructuredFunc = func(ctx context.Context, req completion.Request, shape completion.Shape) ([]byte, error) {
		title, _ := checklist.TopicFromInstruction(req.Instruction)
		if title == "Insurance" {
			return []byte(`{"fully_covered": false}`), nil
		}
		return mock.Verdict(true, checklist.ConfirmationMessage), nil
	}
	p := newTestPipeline(client)

	report, err := p.Run(context.Background(), models.EvaluationRequest{Fragments: models.RawTranscriptSet{"hi"}})

	assert.Nil(t, report)
	assert.ErrorIs(t, err, models.ErrSchemaViolation)

	var stageErr *models.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "insurance", stageErr.Topic)
}

func TestRun_EmptyFragments(t *testing.T) {
	p := newTestPipeline(mock.New())

	_, err := p.Run(context.Background(), models.EvaluationRequest{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRun_Idempotent(t *testing.T) {
	p := newTestPipeline(mock.NewPhraseMatcher(checklist.Default()))
	req := models.EvaluationRequest{
		InteractionID: "int-2",
		Fragments:     models.RawTranscriptSet{"baskets are diversified", "no lock in", "no maintenance", "from 8k"},
	}

	first, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.CleanedTranscript, second.CleanedTranscript)
	assert.Equal(t, first.Results, second.Results)
	assert.NotEqual(t, first.ReportID, second.ReportID)
}

func TestEvaluateTopic(t *testing.T) {
	p := newTestPipeline(mock.NewPhraseMatcher(checklist.Default()))

	res, err := p.EvaluateTopic(context.Background(), "we have 4x leverage", "baskets")
	require.NoError(t, err)
	assert.Equal(t, "baskets", res.Topic)
	assert.Equal(t, "Baskets", res.Title)
	assert.False(t, res.FullyCovered)

	_, err = p.EvaluateTopic(context.Background(), "hi", "crypto")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestEvaluateCleaned(t *testing.T) {
	client := mock.New()
	p := newTestPipeline(client)

	results, err := p.EvaluateCleaned(context.Background(), "already clean", []string{"algo"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "algo", results[0].Topic)
	assert.Equal(t, 0, client.CallCount(false))
}
