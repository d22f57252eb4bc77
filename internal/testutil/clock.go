// Package testutil holds helpers shared by the module's tests.
package testutil

import (
	"slices"
	"sync"
	"time"
)

type (
	// FakeClock is a cexec.Clock whose time only moves when told to.
	//
	// In manual mode (the default) After channels fire once Advance or Set
	// reaches their target. In auto-advance mode every After call moves the
	// clock forward by its duration and fires at once, which lets retry loops
	// run without real sleeping while still recording the waits they asked for.
	FakeClock struct {
		mu          sync.Mutex
		current     time.Time
		waiters     []waiter
		autoAdvance bool
		sleeps      []time.Duration
	}

	waiter struct {
		target time.Time
		ch     chan time.Time
	}
)

// NewFakeClock creates a FakeClock initialized to the given time.
// If initial is zero, a fixed reference time is used.
func NewFakeClock(initial time.Time) *FakeClock {
	if initial.IsZero() {
		initial = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	return &FakeClock{current: initial}
}

// NewAutoClock creates a FakeClock in auto-advance mode.
func NewAutoClock() *FakeClock {
	c := NewFakeClock(time.Time{})
	c.autoAdvance = true

	return c
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current
}

// After returns a channel that receives the fake time once d has elapsed.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sleeps = append(c.sleeps, d)

	ch := make(chan time.Time, 1)

	if c.autoAdvance && d > 0 {
		c.current = c.current.Add(d)
		c.notifyWaiters()
	}

	target := c.current.Add(d)
	if d <= 0 || c.autoAdvance {
		ch <- c.current

		return ch
	}

	c.waiters = append(c.waiters, waiter{target: target, ch: ch})

	return ch
}

// Since returns the fake time elapsed since t.
func (c *FakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Advance moves the fake time forward by d, firing due waiters.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(d)
	c.notifyWaiters()
}

// Set moves the fake time to t, firing due waiters.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = t
	c.notifyWaiters()
}

// Pending returns the number of After channels that have not fired yet.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.waiters)
}

// BlockUntil waits (in real time, polling) until n After calls are pending
// or timeout passes. It reports whether the count was reached.
func (c *FakeClock) BlockUntil(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if c.Pending() >= n {
			return true
		}

		time.Sleep(time.Millisecond)
	}

	return c.Pending() >= n
}

// Sleeps returns every duration passed to After, in call order.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.sleeps)
}

// notifyWaiters fires every waiter whose target has been reached.
// Must be called with mu held.
func (c *FakeClock) notifyWaiters() {
	remaining := c.waiters[:0]

	for _, w := range c.waiters {
		if c.current.Before(w.target) {
			remaining = append(remaining, w)

			continue
		}

		select {
		case w.ch <- c.current:
		default:
		}
	}

	c.waiters = remaining
}
