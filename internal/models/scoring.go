package models

// ScoringResult is the two-field verdict returned for one checklist.
type ScoringResult struct {
	FullyCovered bool   `json:"fully_covered" jsonschema:"description=True only when every reference point was fully covered"`
	Feedback     string `json:"feedback" jsonschema:"description=Confirmation sentence or the itemized missed/partial point report"`
}

// TopicResult pairs a ScoringResult with the checklist it was produced for.
type TopicResult struct {
	Topic string `json:"topic"`
	Title string `json:"title"`
	ScoringResult
}

// EvaluationRequest is the input of a full pipeline run.
type EvaluationRequest struct {
	InteractionID string           `json:"interactionId,omitempty"`
	TenantID      string           `json:"tenantId,omitempty"`
	Fragments     RawTranscriptSet `json:"fragments"`
	Topics        []string         `json:"topics,omitempty"`
}

// AdherenceReport is the outcome of a full pipeline run, published on the report topic.
type AdherenceReport struct {
	EventType         string        `json:"eventType"`
	ReportID          string        `json:"reportId"`
	InteractionID     string        `json:"interactionId"`
	TenantID          string        `json:"tenantId,omitempty"`
	CleanedTranscript string        `json:"cleanedTranscript"`
	Results           []TopicResult `json:"results"`
	FullyCompliant    bool          `json:"fullyCompliant"`
	Timestamp         int64         `json:"timestamp"`
}
