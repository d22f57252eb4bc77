package cexec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidBackoff is wrapped by every backoff construction failure.
var ErrInvalidBackoff = errors.New("invalid backoff")

const maxDuration = time.Duration(math.MaxInt64)

// Backoff computes the wait between two attempts. DelayFor is pure and
// defined for every attempt; attempts below 1 are treated as 1.
type Backoff interface {
	DelayFor(attempt int) time.Duration
	String() string
}

type fixedBackoff struct {
	delay time.Duration
}

type linearBackoff struct {
	initial   time.Duration
	increment time.Duration
}

type exponentialBackoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
}

// NewFixed returns a backoff that always waits delay.
func NewFixed(delay time.Duration) (Backoff, error) {
	if delay < 0 {
		return nil, fmt.Errorf("%w: fixed delay %s is negative", ErrInvalidBackoff, delay)
	}

	return fixedBackoff{delay: delay}, nil
}

// NewLinear returns a backoff that waits initial + increment*(attempt-1).
func NewLinear(initial, increment time.Duration) (Backoff, error) {
	if initial < 0 || increment < 0 {
		return nil, fmt.Errorf("%w: linear durations must be non-negative (initial=%s, increment=%s)",
			ErrInvalidBackoff, initial, increment)
	}

	return linearBackoff{initial: initial, increment: increment}, nil
}

// NewExponential returns a backoff that waits min(max, initial*multiplier^(attempt-1)).
func NewExponential(initial, maxDelay time.Duration, multiplier float64) (Backoff, error) {
	switch {
	case initial < 0 || maxDelay < 0:
		return nil, fmt.Errorf("%w: exponential durations must be non-negative (initial=%s, max=%s)",
			ErrInvalidBackoff, initial, maxDelay)
	case maxDelay < initial:
		return nil, fmt.Errorf("%w: exponential max %s is below initial %s", ErrInvalidBackoff, maxDelay, initial)
	case math.IsNaN(multiplier) || multiplier < 1:
		return nil, fmt.Errorf("%w: exponential multiplier %v must be >= 1", ErrInvalidBackoff, multiplier)
	}

	return exponentialBackoff{initial: initial, max: maxDelay, multiplier: multiplier}, nil
}

// Fixed is like NewFixed but panics on invalid input. Intended for literals.
func Fixed(delay time.Duration) Backoff {
	return must(NewFixed(delay))
}

// Linear is like NewLinear but panics on invalid input. Intended for literals.
func Linear(initial, increment time.Duration) Backoff {
	return must(NewLinear(initial, increment))
}

// Exponential is like NewExponential but panics on invalid input. Intended for literals.
func Exponential(initial, maxDelay time.Duration, multiplier float64) Backoff {
	return must(NewExponential(initial, maxDelay, multiplier))
}

func must(b Backoff, err error) Backoff {
	if err != nil {
		panic(err)
	}

	return b
}

func (f fixedBackoff) DelayFor(int) time.Duration {
	return f.delay
}

func (f fixedBackoff) String() string {
	return "fixed:" + f.delay.String()
}

func (l linearBackoff) DelayFor(attempt int) time.Duration {
	steps := time.Duration(max(attempt, 1) - 1)
	if steps == 0 || l.increment == 0 {
		return l.initial
	}

	if steps > (maxDuration-l.initial)/l.increment {
		return maxDuration
	}

	return l.initial + l.increment*steps
}

func (l linearBackoff) String() string {
	return fmt.Sprintf("linear:%s,%s", l.initial, l.increment)
}

func (e exponentialBackoff) DelayFor(attempt int) time.Duration {
	steps := float64(max(attempt, 1) - 1)

	d := float64(e.initial) * math.Pow(e.multiplier, steps)
	if math.IsInf(d, 0) || math.IsNaN(d) || d >= float64(e.max) {
		return e.max
	}

	return time.Duration(d)
}

func (e exponentialBackoff) String() string {
	return fmt.Sprintf("exponential:%s,%s,%s", e.initial, e.max, strconv.FormatFloat(e.multiplier, 'g', -1, 64))
}

// ParseBackoff parses the textual backoff form used by the CLI and config:
//
//	fixed:10ms
//	linear:10ms,5ms
//	exponential:10ms,1s,2   (alias: exp)
func ParseBackoff(s string) (Backoff, error) {
	kind, params, _ := strings.Cut(strings.TrimSpace(s), ":")

	var fields []string
	if params != "" {
		fields = strings.Split(params, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
	}

	durations := func(n int) ([]time.Duration, error) {
		if len(fields) < n {
			return nil, fmt.Errorf("%w: %q needs %d duration(s)", ErrInvalidBackoff, s, n)
		}

		out := make([]time.Duration, n)
		for i := range n {
			d, err := time.ParseDuration(fields[i])
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %w", ErrInvalidBackoff, s, err)
			}

			out[i] = d
		}

		return out, nil
	}

	switch strings.ToLower(kind) {
	case "fixed":
		if len(fields) != 1 {
			return nil, fmt.Errorf("%w: %q: expected fixed:<delay>", ErrInvalidBackoff, s)
		}

		ds, err := durations(1)
		if err != nil {
			return nil, err
		}

		return NewFixed(ds[0])
	case "linear":
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: %q: expected linear:<initial>,<increment>", ErrInvalidBackoff, s)
		}

		ds, err := durations(2)
		if err != nil {
			return nil, err
		}

		return NewLinear(ds[0], ds[1])
	case "exponential", "exp":
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: %q: expected exponential:<initial>,<max>,<multiplier>", ErrInvalidBackoff, s)
		}

		ds, err := durations(2)
		if err != nil {
			return nil, err
		}

		m, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidBackoff, s, err)
		}

		return NewExponential(ds[0], ds[1], m)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidBackoff, kind)
	}
}
