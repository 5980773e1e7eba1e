// Package models defines the data structures for transcript events and adherence reports.
package models

// Event types consumed from the transcript topic and produced on the report topic.
const (
	EventTypeTranscriptFinal  = "interaction.transcript.final"
	EventTypeInteractionEnded = "interaction.ended"
	EventTypeAdherenceReport  = "interaction.adherence.report"
)

// RawTranscriptSet is the ordered sequence of raw transcript fragments for one call.
type RawTranscriptSet []string

// CorrectedTranscript holds one corrected fragment per raw fragment, in the same order.
type CorrectedTranscript []string

// TranscriptFinal represents a final transcript result with confidence score.
type TranscriptFinal struct {
	EventType     string  `json:"eventType"`
	InteractionID string  `json:"interactionId"`
	TenantID      string  `json:"tenantId"`
	Timestamp     int64   `json:"timestamp"`
	SegmentID     string  `json:"segmentId"`
	Text          string  `json:"text"`
	Confidence    float64 `json:"confidence"`
	AudioOffsetMs int64   `json:"audioOffsetMs"`
}

// InteractionEnded signals that no further transcript events will arrive for an interaction.
type InteractionEnded struct {
	EventType     string `json:"eventType"`
	InteractionID string `json:"interactionId"`
	TenantID      string `json:"tenantId"`
	Timestamp     int64  `json:"timestamp"`
}
