package cexec

import (
	"context"
	"sync"
)

// StreamKind identifies which pipe an OutputLine was read from.
type StreamKind int

const (
	// Stdout marks a line read from the child's standard output.
	Stdout StreamKind = iota
	// Stderr marks a line read from the child's standard error.
	Stderr
)

func (k StreamKind) String() string {
	if k == Stderr {
		return "stderr"
	}

	return "stdout"
}

// OutputLine is one newline-delimited unit of output, without its terminator.
type OutputLine struct {
	Stream StreamKind
	Text   string
}

// Decision is what a LineConsumer returns for each line.
type Decision struct {
	stop   bool
	reason string
}

// Continue asks the runner to keep streaming.
func Continue() Decision {
	return Decision{}
}

// Stop asks the runner to terminate the child and fail with ErrCancelled.
func Stop(reason string) Decision {
	return Decision{stop: true, reason: reason}
}

// Stopped reports whether the decision is Stop.
func (d Decision) Stopped() bool {
	return d.stop
}

// Reason returns the reason given to Stop.
func (d Decision) Reason() string {
	return d.reason
}

// LineConsumer receives streamed output. The runner calls Consume from a
// single goroutine, in the order lines were read.
type LineConsumer interface {
	Consume(line OutputLine) Decision
}

// LineConsumerFunc adapts an ordinary function to a LineConsumer.
type LineConsumerFunc func(line OutputLine) Decision

// Consume calls f(line).
func (f LineConsumerFunc) Consume(line OutputLine) Decision {
	return f(line)
}

// ChannelConsumer forwards lines to a channel so a separate goroutine can
// read them. The reader stops the run by calling Close or by cancelling the
// context the consumer was created with.
type ChannelConsumer struct {
	ctx     context.Context
	lines   chan OutputLine
	stopped chan struct{}

	stopOnce sync.Once
	doneOnce sync.Once
}

var _ LineConsumer = (*ChannelConsumer)(nil)

// NewChannelConsumer creates a consumer whose channel holds up to buffer
// lines before Consume blocks.
func NewChannelConsumer(ctx context.Context, buffer int) *ChannelConsumer {
	return &ChannelConsumer{
		ctx:     ctx,
		lines:   make(chan OutputLine, max(buffer, 0)),
		stopped: make(chan struct{}),
	}
}

// Lines returns the receive side. It is closed when the producer calls Done.
func (c *ChannelConsumer) Lines() <-chan OutputLine {
	return c.lines
}

// Close tells the producer the reader has gone away. Safe to call more than once.
func (c *ChannelConsumer) Close() {
	c.stopOnce.Do(func() { close(c.stopped) })
}

// Done closes the Lines channel. The Executor calls it when the run ends.
func (c *ChannelConsumer) Done() {
	c.doneOnce.Do(func() { close(c.lines) })
}

// Consume hands the line to the reader, or returns Stop if the reader is gone.
func (c *ChannelConsumer) Consume(line OutputLine) Decision {
	select {
	case <-c.stopped:
		return Stop("receiver closed")
	case <-c.ctx.Done():
		return Stop(c.ctx.Err().Error())
	default:
	}

	select {
	case c.lines <- line:
		return Continue()
	case <-c.stopped:
		return Stop("receiver closed")
	case <-c.ctx.Done():
		return Stop(c.ctx.Err().Error())
	}
}

// LineCollector is a LineConsumer that records every line it sees.
type LineCollector struct {
	mu    sync.Mutex
	lines []OutputLine
}

// CollectLines returns an empty LineCollector.
func CollectLines() *LineCollector {
	return &LineCollector{}
}

// Consume records the line and always continues.
func (c *LineCollector) Consume(line OutputLine) Decision {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()

	return Continue()
}

// Lines returns a copy of everything collected so far.
func (c *LineCollector) Lines() []OutputLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]OutputLine, len(c.lines))
	copy(out, c.lines)

	return out
}

// Text returns the collected lines of one stream.
func (c *LineCollector) Text(kind StreamKind) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string

	for _, l := range c.lines {
		if l.Stream == kind {
			out = append(out, l.Text)
		}
	}

	return out
}
