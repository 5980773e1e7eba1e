// Package schema generates the JSON Schema of the structured verdict requested from providers.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"ai-script-adherence-service/internal/completion"
	"ai-script-adherence-service/internal/models"
)

// ScoringResultName is the shape name sent with structured requests.
const ScoringResultName = "scoring_result"

var (
	scoringOnce   sync.Once
	scoringSchema json.RawMessage
	scoringErr    error
)

// Reflect builds an inline, closed schema for v with every field required.
func Reflect(v any) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	s := r.Reflect(v)
	s.Version = ""
	return s
}

// ScoringResult returns the marshalled schema of models.ScoringResult.
func ScoringResult() (json.RawMessage, error) {
	scoringOnce.Do(func() {
		data, err := json.Marshal(Reflect(&models.ScoringResult{}))
		if err != nil {
			scoringErr = fmt.Errorf("failed to marshal scoring schema: %w", err)
			return
		}
		scoringSchema = data
	})
	return scoringSchema, scoringErr
}

// ScoringResultShape returns the completion shape for checklist verdicts.
func ScoringResultShape() (completion.Shape, error) {
	s, err := ScoringResult()
	if err != nil {
		return completion.Shape{}, err
	}
	return completion.Shape{Name: ScoringResultName, Schema: s}, nil
}
