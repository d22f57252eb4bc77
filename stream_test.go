package cexec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecision(t *testing.T) {
	t.Parallel()

	assert.False(t, Continue().Stopped())

	d := Stop("found it")
	assert.True(t, d.Stopped())
	assert.Equal(t, "found it", d.Reason())
}

func TestStreamKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "stdout", Stdout.String())
	assert.Equal(t, "stderr", Stderr.String())
}

func TestChannelConsumer_Forwards(t *testing.T) {
	t.Parallel()

	c := NewChannelConsumer(t.Context(), 2)

	assert.False(t, c.Consume(OutputLine{Stream: Stdout, Text: "a"}).Stopped())
	assert.False(t, c.Consume(OutputLine{Stream: Stderr, Text: "b"}).Stopped())

	c.Done()
	c.Done()

	var got []OutputLine
	for l := range c.Lines() {
		got = append(got, l)
	}

	assert.Equal(t, []OutputLine{{Stdout, "a"}, {Stderr, "b"}}, got)
}

func TestChannelConsumer_StopsWhenReceiverCloses(t *testing.T) {
	t.Parallel()

	c := NewChannelConsumer(t.Context(), 0)

	done := make(chan Decision, 1)

	go func() { done <- c.Consume(OutputLine{Text: "blocked"}) }()

	c.Close()
	c.Close()

	select {
	case d := <-done:
		assert.True(t, d.Stopped())
		assert.Equal(t, "receiver closed", d.Reason())
	case <-time.After(2 * time.Second):
		t.Fatal("Consume did not unblock")
	}

	assert.True(t, c.Consume(OutputLine{Text: "later"}).Stopped())
}

func TestChannelConsumer_StopsOnContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	c := NewChannelConsumer(ctx, 0)

	cancel()

	d := c.Consume(OutputLine{Text: "x"})
	require.True(t, d.Stopped())
	assert.Contains(t, d.Reason(), "canceled")
}

func TestLineCollector(t *testing.T) {
	t.Parallel()

	c := CollectLines()
	c.Consume(OutputLine{Stream: Stdout, Text: "one"})
	c.Consume(OutputLine{Stream: Stderr, Text: "warn"})
	c.Consume(OutputLine{Stream: Stdout, Text: "two"})

	assert.Equal(t, []string{"one", "two"}, c.Text(Stdout))
	assert.Equal(t, []string{"warn"}, c.Text(Stderr))
	assert.Len(t, c.Lines(), 3)

	lines := c.Lines()
	lines[0].Text = "mutated"
	assert.Equal(t, "one", c.Lines()[0].Text)
}
