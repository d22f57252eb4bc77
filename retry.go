package cexec

import "time"

// RetryObserver is notified before each retry sleep. It is purely
// informational: it cannot change whether or when the retry happens.
type RetryObserver interface {
	OnRetry(attempt int, err error)
}

// RetryObserverFunc adapts an ordinary function to a RetryObserver.
type RetryObserverFunc func(attempt int, err error)

// OnRetry calls f(attempt, err).
func (f RetryObserverFunc) OnRetry(attempt int, err error) {
	f(attempt, err)
}

// RetryPolicy bounds how many physical executions one logical call may make
// and how long to wait between them. Every failure is retry-eligible; callers
// that want to give up early on a specific error must do so before execution.
//
// RetryPolicy is a value: the With* methods return modified copies.
type RetryPolicy struct {
	maxAttempts int
	backoff     Backoff
	observer    RetryObserver
}

// NewRetryPolicy returns a policy of a single attempt with no wait.
func NewRetryPolicy() RetryPolicy {
	return RetryPolicy{
		maxAttempts: 1,
		backoff:     fixedBackoff{},
	}
}

// WithMaxAttempts sets the total number of attempts, including the first.
// Values below 1 are clamped to 1.
func (p RetryPolicy) WithMaxAttempts(n int) RetryPolicy {
	p.maxAttempts = max(n, 1)

	return p
}

// WithBackoff sets the wait strategy between attempts. A nil backoff means no wait.
func (p RetryPolicy) WithBackoff(b Backoff) RetryPolicy {
	if b == nil {
		b = fixedBackoff{}
	}

	p.backoff = b

	return p
}

// WithObserver sets the hook invoked before each retry.
func (p RetryPolicy) WithObserver(o RetryObserver) RetryPolicy {
	p.observer = o

	return p
}

// MaxAttempts returns the total attempt budget.
func (p RetryPolicy) MaxAttempts() int {
	return max(p.maxAttempts, 1)
}

// Backoff returns the configured wait strategy.
func (p RetryPolicy) Backoff() Backoff {
	if p.backoff == nil {
		return fixedBackoff{}
	}

	return p.backoff
}

// ShouldRetry reports whether another attempt may follow the failed attempt
// number attempt (1-based), and how long to wait before it. When it returns
// true the observer has already been told.
func (p RetryPolicy) ShouldRetry(attempt int, err error) (time.Duration, bool) {
	if attempt >= p.MaxAttempts() {
		return 0, false
	}

	if p.observer != nil {
		p.observer.OnRetry(attempt, err)
	}

	return p.Backoff().DelayFor(attempt), true
}
