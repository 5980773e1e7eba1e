package models

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the pipeline. Providers and stages wrap these with %w.
var (
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrMalformedResponse    = errors.New("malformed response")
	ErrSchemaViolation      = errors.New("schema violation")
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrInvalidInput         = errors.New("invalid input")
)

// Pipeline stages reported in StageError.
const (
	StageNormalize = "normalize"
	StageEvaluate  = "evaluate"
)

// StageError identifies the fragment or topic that failed.
type StageError struct {
	Stage    string
	Fragment int // index into the raw transcript set, -1 when not applicable
	Topic    string
	Err      error
}

func (e *StageError) Error() string {
	switch {
	case e.Topic != "":
		return fmt.Sprintf("%s topic %q: %v", e.Stage, e.Topic, e.Err)
	case e.Fragment >= 0:
		return fmt.Sprintf("%s fragment %d: %v", e.Stage, e.Fragment, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// KindOf maps an error to the snake_case kind used in metric labels and API responses.
func KindOf(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrSchemaViolation):
		return "schema_violation"
	case errors.Is(err, ErrConfigurationMissing):
		return "configuration_missing"
	default:
		return "internal"
	}
}
