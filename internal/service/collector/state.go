// Package collector buffers final transcript events per interaction and hands them to
// the evaluation pipeline once the interaction ends or goes idle.
package collector

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of an interaction.
type State int

const (
	// StateCollecting - Interaction is accepting transcript fragments.
	StateCollecting State = iota
	// StateEvaluating - Fragments were handed to the pipeline, no more are accepted.
	StateEvaluating
	// StateCompleted - Pipeline produced a report.
	StateCompleted
	// StateDropped - Interaction was abandoned without a report.
	StateDropped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCollecting:
		return "COLLECTING"
	case StateEvaluating:
		return "EVALUATING"
	case StateCompleted:
		return "COMPLETED"
	case StateDropped:
		return "DROPPED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (COMPLETED or DROPPED).
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateDropped
}

// Errors for invalid state transitions.
var (
	ErrInteractionClosed     = errors.New("interaction is closed")
	ErrEvaluationStarted     = errors.New("evaluation already started for this interaction")
	ErrNotEvaluating         = errors.New("interaction is not being evaluated")
	ErrCannotCollectAfterEnd = errors.New("cannot collect fragments after evaluation started")
)

// Lifecycle manages the state machine for a single interaction.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	COLLECTING → EVALUATING → COMPLETED
//	     │            │
//	     │            └── Drop() ──→ DROPPED
//	     └── Drop() ──→ DROPPED
//
// Rules:
//   - COLLECTING: fragments accepted, BeginEvaluation allowed once
//   - EVALUATING: fragments rejected, Complete or Drop ends it
//   - COMPLETED, DROPPED: terminal
type Lifecycle struct {
	mu            sync.RWMutex
	interactionId string
	state         State
}

// NewLifecycle creates a new interaction lifecycle in COLLECTING state.
func NewLifecycle(interactionId string) *Lifecycle {
	return &Lifecycle{
		interactionId: interactionId,
		state:         StateCollecting,
	}
}

// InteractionId returns the interaction ID.
func (l *Lifecycle) InteractionId() string {
	return l.interactionId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// CanCollect returns true if fragments are still accepted.
func (l *Lifecycle) CanCollect() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateCollecting
}

// Collect validates that a fragment may be appended.
func (l *Lifecycle) Collect() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	switch l.state {
	case StateCollecting:
		return nil
	case StateEvaluating:
		return ErrCannotCollectAfterEnd
	case StateCompleted, StateDropped:
		return ErrInteractionClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// BeginEvaluation transitions to EVALUATING. Allowed once, from COLLECTING only.
func (l *Lifecycle) BeginEvaluation() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateCollecting:
		l.state = StateEvaluating
		return nil
	case StateEvaluating:
		return ErrEvaluationStarted
	case StateCompleted, StateDropped:
		return ErrInteractionClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Complete transitions an evaluating interaction to COMPLETED.
func (l *Lifecycle) Complete() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateEvaluating:
		l.state = StateCompleted
		return nil
	case StateCollecting:
		return ErrNotEvaluating
	case StateCompleted, StateDropped:
		return ErrInteractionClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Drop transitions the interaction to DROPPED.
// No report is published for a dropped interaction.
// Returns true if the interaction was dropped, false if already in a terminal state.
func (l *Lifecycle) Drop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateDropped
	return true
}
