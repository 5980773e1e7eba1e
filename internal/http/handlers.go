package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"ai-script-adherence-service/internal/app"
	"ai-script-adherence-service/internal/checklist"
	"ai-script-adherence-service/internal/models"
)

const maxBodyBytes = 5 << 20

type handlers struct {
	application *app.Application
	pipeline    Pipeline
	publisher   ReportPublisher
}

type evaluationBody struct {
	InteractionID string   `json:"interactionId"`
	TenantID      string   `json:"tenantId"`
	Fragments     []string `json:"fragments"`
	Topics        []string `json:"topics"`
}

type correctionBody struct {
	Fragments []string `json:"fragments"`
}

type correctionResponse struct {
	Corrected         models.CorrectedTranscript `json:"corrected"`
	CleanedTranscript string                     `json:"cleanedTranscript"`
}

type topicBody struct {
	Transcript string `json:"transcript"`
}

type checklistsResponse struct {
	Checklists []checklist.ReferenceChecklist `json:"checklists"`
}

type statusResponse struct {
	Service         string   `json:"service"`
	Provider        string   `json:"provider"`
	CorrectionModel string   `json:"correctionModel"`
	EvaluationModel string   `json:"evaluationModel"`
	Topics          []string `json:"topics"`
	UptimeSeconds   float64  `json:"uptimeSeconds"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Topics: h.pipeline.Checklists().IDs()}
	if h.application != nil && h.application.Cfg != nil {
		cfg := h.application.Cfg
		resp.Service = cfg.Service.Principal
		resp.Provider = cfg.Completion.Provider
		resp.CorrectionModel = cfg.Completion.CorrectionModel
		resp.EvaluationModel = cfg.Completion.EvaluationModel
		resp.UptimeSeconds = h.application.Uptime().Seconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) listChecklists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, checklistsResponse{Checklists: h.pipeline.Checklists().All()})
}

func (h *handlers) correct(w http.ResponseWriter, r *http.Request) {
	var body correctionBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	corrected, cleaned, err := h.pipeline.Correct(r.Context(), body.Fragments)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, correctionResponse{Corrected: corrected, CleanedTranscript: cleaned})
}

func (h *handlers) evaluate(w http.ResponseWriter, r *http.Request) {
	var body evaluationBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	report, err := h.pipeline.Run(r.Context(), models.EvaluationRequest{
		InteractionID: body.InteractionID,
		TenantID:      body.TenantID,
		Fragments:     body.Fragments,
		Topics:        body.Topics,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The caller already has the report; a failed publish is logged, not returned.
	if h.publisher != nil {
		if err := h.publisher.PublishReport(r.Context(), report); err != nil {
			log.Warn().
				Err(err).
				Str("reportId", report.ReportID).
				Str("interactionId", report.InteractionID).
				Msg("Failed to publish adherence report")
		}
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) evaluateTopic(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")
	if _, ok := h.pipeline.Checklists().Get(topic); !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error: fmt.Sprintf("unknown checklist topic %q", topic),
			Kind:  models.KindOf(models.ErrInvalidInput),
		})
		return
	}

	var body topicBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.pipeline.EvaluateTopic(r.Context(), body.Transcript, topic)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v: %w", err, models.ErrInvalidInput)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUpstreamUnavailable),
		errors.Is(err, models.ErrMalformedResponse),
		errors.Is(err, models.ErrSchemaViolation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("requestId", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	writeJSON(w, status, errorResponse{Error: strings.TrimSpace(err.Error()), Kind: models.KindOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
