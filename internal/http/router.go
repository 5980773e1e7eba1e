package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ai-script-adherence-service/internal/app"
	"ai-script-adherence-service/internal/checklist"
	"ai-script-adherence-service/internal/models"
	"ai-script-adherence-service/internal/observability"
	"ai-script-adherence-service/internal/observability/metrics"
)

// Pipeline is the evaluation surface the API exposes.
type Pipeline interface {
	Run(ctx context.Context, req models.EvaluationRequest) (*models.AdherenceReport, error)
	Correct(ctx context.Context, raw models.RawTranscriptSet) (models.CorrectedTranscript, string, error)
	EvaluateTopic(ctx context.Context, cleaned, topic string) (models.TopicResult, error)
	Checklists() *checklist.Set
}

// ReportPublisher delivers finished reports downstream.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report *models.AdherenceReport) error
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application, pipeline Pipeline, publisher ReportPublisher, m *metrics.Metrics) http.Handler {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	h := &handlers{
		application: application,
		pipeline:    pipeline,
		publisher:   publisher,
	}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(m))

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Get("/checklists", h.listChecklists)
		r.Post("/corrections", h.correct)
		r.Post("/evaluations", h.evaluate)
		r.Post("/evaluations/{topic}", h.evaluateTopic)
	})

	return r
}
