// Package monitor records pipeline stage invocations for auditing.
// Every stage call is wrapped so its inputs, outputs, and timing are
// captured regardless of whether the stage succeeds or fails.
package monitor

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/asim-Gelal/Remit-agent/internal/metrics"
)

// ToolInvocation is an immutable audit record of a single stage call.
type ToolInvocation struct {
	ToolName  string         `json:"tool_name"`
	Inputs    map[string]any `json:"inputs"`
	Outputs   any            `json:"outputs"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  time.Duration  `json:"duration"`
}

// Recorder stores an ordered log of tool invocations. It is safe for
// concurrent use; appends are serialized with a mutex.
type Recorder struct {
	clock clockwork.Clock

	mu          sync.Mutex
	invocations []ToolInvocation
}

// NewRecorder creates a Recorder using the real wall clock.
func NewRecorder() *Recorder {
	return NewRecorderWithClock(clockwork.NewRealClock())
}

// NewRecorderWithClock creates a Recorder with an injected clock.
func NewRecorderWithClock(clock clockwork.Clock) *Recorder {
	return &Recorder{clock: clock}
}

// Record executes body and appends an invocation record. On success the
// record holds body's return value; on failure it holds "Error: <message>"
// and the original error is returned to the caller unchanged. Record only
// observes, it never swallows errors.
func (r *Recorder) Record(name string, inputs map[string]any, body func() (any, error)) (any, error) {
	start := r.clock.Now()
	out, err := body()
	duration := r.clock.Since(start)

	metrics.StageDuration.WithLabelValues(name).Observe(duration.Seconds())

	recorded := out
	if err != nil {
		recorded = "Error: " + err.Error()
	}

	r.mu.Lock()
	r.invocations = append(r.invocations, ToolInvocation{
		ToolName:  name,
		Inputs:    inputs,
		Outputs:   recorded,
		Timestamp: start,
		Duration:  duration,
	})
	r.mu.Unlock()

	return out, err
}

// Clear resets the log to empty.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.invocations = nil
	r.mu.Unlock()
}

// List returns the recorded invocations in insertion order, oldest first.
func (r *Recorder) List() []ToolInvocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ToolInvocation, len(r.invocations))
	copy(out, r.invocations)
	return out
}
