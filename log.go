package cexec

import (
	"slices"
	"sync"
	"time"
)

// Invocation is one entry of the ExecutionLog: a call made (or, in dry-run,
// simulated) through an Executor. Entries are never modified after Append.
type Invocation struct {
	Name      string    // Logical command name, e.g. "run" or "ps"
	Binary    string    // CLI binary the args were (or would have been) passed to
	Args      []string  // Argument vector, excluding the binary
	Simulated bool      // True when recorded in dry-run mode
	Timestamp time.Time // When the call was made
}

// ExecutionLog is the append-only audit trail of an Executor. It is safe for
// concurrent use: several in-flight calls may share one log.
type ExecutionLog struct {
	mu      sync.Mutex
	entries []Invocation
}

// NewExecutionLog returns an empty log.
func NewExecutionLog() *ExecutionLog {
	return &ExecutionLog{}
}

// Append records an invocation. The argument slice is copied.
func (l *ExecutionLog) Append(inv Invocation) {
	inv.Args = slices.Clone(inv.Args)

	l.mu.Lock()
	l.entries = append(l.entries, inv)
	l.mu.Unlock()
}

// Entries returns a snapshot of the log in insertion order.
func (l *ExecutionLog) Entries() []Invocation {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Invocation, len(l.entries))
	for i, e := range l.entries {
		e.Args = slices.Clone(e.Args)
		out[i] = e
	}

	return out
}

// Len returns the number of recorded invocations.
func (l *ExecutionLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// Reset discards every entry.
func (l *ExecutionLog) Reset() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// Preview renders the current entries. See RenderPreview.
func (l *ExecutionLog) Preview() string {
	return RenderPreview(l.Entries())
}
