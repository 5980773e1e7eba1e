package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"ai-script-adherence-service/internal/checklist"
	"ai-script-adherence-service/internal/models"
)

func TestRenderReport(t *testing.T) {
	report := &models.AdherenceReport{
		ReportID:          "r-1",
		InteractionID:     "i-1",
		CleanedTranscript: "Hello.",
		Results: []models.TopicResult{
			{Topic: "charges", Title: "Charges", ScoringResult: models.ScoringResult{FullyCovered: true, Feedback: checklist.ConfirmationMessage}},
			{Topic: "referrals", ScoringResult: models.ScoringResult{Feedback: "- Point 1 (Referral reward): not covered as per the script."}},
		},
	}

	var buf bytes.Buffer
	renderReport(&buf, report, true)
	out := buf.String()

	assert.Contains(t, out, "Charges")
	assert.Contains(t, out, "referrals")
	assert.Contains(t, out, "Hello.")
	assert.Contains(t, out, "NOT COVERED")
	assert.Contains(t, out, "1/2 checklists fully covered")
}

func TestRenderChecklists(t *testing.T) {
	var buf bytes.Buffer
	renderChecklists(&buf, checklist.Default(), false)
	out := buf.String()

	for _, id := range checklist.Default().IDs() {
		assert.Contains(t, out, id)
	}
	assert.NotContains(t, out, "1. ")
}

func TestSchemaCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := newSchemaCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs(nil)

	assert.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), `"fully_covered"`)
	assert.Contains(t, buf.String(), `"feedback"`)
}
