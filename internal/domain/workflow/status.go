// internal/domain/workflow/status.go
package workflow

import (
	"sync"
	"time"
)

// State mirrors the dashboard's status badge.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
	StateWarning    State = "warning"
)

type Status struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
}

// StatusOf projects a terminal Result onto a Status.
func StatusOf(r Result) Status {
	switch r.Outcome {
	case OutcomeSuccess:
		return Status{State: StateSuccess, Message: r.Message}
	case OutcomePartialSuccess:
		return Status{State: StateWarning, Message: r.Message}
	default:
		return Status{State: StateError, Message: r.Message}
	}
}

// DefaultRevertDelay is how long a terminal status stays visible.
const DefaultRevertDelay = 5 * time.Second

// Tracker is the status state machine of one run:
// Idle → Processing → Success|Error|Warning → (after revertDelay) Idle.
// Processing never reverts on its own. A revertDelay <= 0 disables auto-revert.
type Tracker struct {
	mu          sync.Mutex
	status      Status
	result      *Result
	revertDelay time.Duration
	timer       *time.Timer
	gen         uint64
	onChange    func(Status)
}

func NewTracker(revertDelay time.Duration, onChange func(Status)) *Tracker {
	return &Tracker{
		status:      Status{State: StateIdle},
		revertDelay: revertDelay,
		onChange:    onChange,
	}
}

// Begin enters Processing with msg.
func (t *Tracker) Begin(msg string) {
	t.set(func() bool {
		t.stopTimerLocked()
		t.result = nil
		t.status = Status{State: StateProcessing, Message: msg}
		return true
	})
}

// Progress updates the Processing message. It is ignored in any other state.
func (t *Tracker) Progress(msg string) {
	t.set(func() bool {
		if t.status.State != StateProcessing {
			return false
		}
		t.status.Message = msg
		return true
	})
}

// Finish records the terminal Result and schedules the revert to Idle.
func (t *Tracker) Finish(r Result) {
	t.set(func() bool {
		t.stopTimerLocked()
		rr := r
		t.result = &rr
		t.status = StatusOf(r)
		if t.revertDelay > 0 {
			gen := t.gen
			t.timer = time.AfterFunc(t.revertDelay, func() { t.revert(gen) })
		}
		return true
	})
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Result returns the terminal result once the run finished. It survives the revert to Idle.
func (t *Tracker) Result() (Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result == nil {
		return Result{}, false
	}
	return *t.result, true
}

func (t *Tracker) revert(gen uint64) {
	t.set(func() bool {
		if gen != t.gen || t.status.State == StateProcessing || t.status.State == StateIdle {
			return false
		}
		t.status = Status{State: StateIdle}
		return true
	})
}

func (t *Tracker) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

func (t *Tracker) set(mutate func() bool) {
	t.mu.Lock()
	changed := mutate()
	st := t.status
	cb := t.onChange
	t.mu.Unlock()

	if changed && cb != nil {
		cb(st)
	}
}
