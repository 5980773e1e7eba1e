package collector

import (
	"sync"
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle("int-1")

	if lc.State() != StateCollecting {
		t.Errorf("expected StateCollecting, got %v", lc.State())
	}
	if lc.InteractionId() != "int-1" {
		t.Errorf("expected int-1, got %v", lc.InteractionId())
	}
	if !lc.CanCollect() {
		t.Error("expected CanCollect to be true")
	}
	if err := lc.Collect(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLifecycle_BeginEvaluation_OnlyOnce(t *testing.T) {
	lc := NewLifecycle("int-1")

	if err := lc.BeginEvaluation(); err != nil {
		t.Errorf("first begin: unexpected error: %v", err)
	}
	if lc.State() != StateEvaluating {
		t.Errorf("expected StateEvaluating, got %v", lc.State())
	}
	if err := lc.BeginEvaluation(); err != ErrEvaluationStarted {
		t.Errorf("second begin: expected ErrEvaluationStarted, got %v", err)
	}
}

func TestLifecycle_Collect_FailsAfterEvaluationStarted(t *testing.T) {
	lc := NewLifecycle("int-1")
	lc.BeginEvaluation()

	if err := lc.Collect(); err != ErrCannotCollectAfterEnd {
		t.Errorf("expected ErrCannotCollectAfterEnd, got %v", err)
	}
	if lc.CanCollect() {
		t.Error("expected CanCollect to be false while evaluating")
	}
}

func TestLifecycle_Complete(t *testing.T) {
	lc := NewLifecycle("int-1")

	if err := lc.Complete(); err != ErrNotEvaluating {
		t.Errorf("expected ErrNotEvaluating before evaluation, got %v", err)
	}

	lc.BeginEvaluation()
	if err := lc.Complete(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if lc.State() != StateCompleted {
		t.Errorf("expected StateCompleted, got %v", lc.State())
	}
	if err := lc.Collect(); err != ErrInteractionClosed {
		t.Errorf("expected ErrInteractionClosed, got %v", err)
	}
	if err := lc.Complete(); err != ErrInteractionClosed {
		t.Errorf("expected ErrInteractionClosed on second complete, got %v", err)
	}
}

func TestLifecycle_Drop(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*Lifecycle)
		wantDrop  bool
		wantState State
	}{
		{"from collecting", func(*Lifecycle) {}, true, StateDropped},
		{"from evaluating", func(l *Lifecycle) { l.BeginEvaluation() }, true, StateDropped},
		{"from completed", func(l *Lifecycle) { l.BeginEvaluation(); l.Complete() }, false, StateCompleted},
		{"twice", func(l *Lifecycle) { l.Drop() }, false, StateDropped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := NewLifecycle("int-1")
			tt.setup(lc)

			if got := lc.Drop(); got != tt.wantDrop {
				t.Errorf("Drop() = %v, want %v", got, tt.wantDrop)
			}
			if lc.State() != tt.wantState {
				t.Errorf("expected %v, got %v", tt.wantState, lc.State())
			}
		})
	}
}

func TestLifecycle_BeginEvaluation_AfterDrop(t *testing.T) {
	lc := NewLifecycle("int-1")
	lc.Drop()

	if err := lc.BeginEvaluation(); err != ErrInteractionClosed {
		t.Errorf("expected ErrInteractionClosed, got %v", err)
	}
}

func TestLifecycle_ConcurrentBeginEvaluation(t *testing.T) {
	lc := NewLifecycle("int-1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lc.BeginEvaluation() == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one evaluation to begin, got %d", wins)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCollecting, "COLLECTING"},
		{StateEvaluating, "EVALUATING"},
		{StateCompleted, "COMPLETED"},
		{StateDropped, "DROPPED"},
		{State(42), "UNKNOWN(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
