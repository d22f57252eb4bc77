package cexec

import "time"

// Clock abstracts the time source the Executor uses for timestamps and
// backoff sleeps, so tests can drive retries without real waiting.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
