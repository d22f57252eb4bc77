package cexec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// JSONFormatArgs are appended by ExecuteJSONLines so list commands
// (ps, network ls, image ls, ...) print one JSON object per line.
var JSONFormatArgs = []string{"--format", "{{json .}}"}

// DecodeJSONLines parses newline-separated JSON objects. Blank lines are
// skipped; a malformed line fails the whole decode with its line number.
func DecodeJSONLines[T any](out string) ([]T, error) {
	lines := strings.Split(out, "\n")
	items := make([]T, 0, len(lines))

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var item T
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("failed to parse JSON on line %d: %w", i+1, err)
		}

		items = append(items, item)
	}

	return items, nil
}

// ExecuteJSONLines runs a list command with JSONFormatArgs appended and
// decodes its stdout. A non-zero exit is reported as an *ExitError.
// In dry-run mode it returns an empty slice.
func ExecuteJSONLines[T any](ctx context.Context, e *Executor, name string, args []string) ([]T, error) {
	full := NewArgs(args...).Raw(JSONFormatArgs...).Build()

	outcome, err := e.Execute(ctx, name, full)
	if err != nil {
		return nil, err
	}

	if !e.Accepted(outcome.ExitCode) {
		return nil, &ExitError{
			Command:  NewCommand(e.Binary(), full...),
			ExitCode: outcome.ExitCode,
			Stderr:   []byte(outcome.Stderr),
		}
	}

	items, err := DecodeJSONLines[T](outcome.Stdout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return items, nil
}

// JSONLinesConsumer decodes each stdout line into T and passes it to fn.
// Stderr lines and blank lines are ignored. A line that fails to decode stops
// the stream; the error is kept in Err.
type JSONLinesConsumer[T any] struct {
	fn  func(T) Decision
	err error
}

// NewJSONLinesConsumer wraps fn as a streaming consumer.
func NewJSONLinesConsumer[T any](fn func(T) Decision) *JSONLinesConsumer[T] {
	return &JSONLinesConsumer[T]{fn: fn}
}

// Consume implements LineConsumer.
func (c *JSONLinesConsumer[T]) Consume(line OutputLine) Decision {
	if line.Stream != Stdout || strings.TrimSpace(line.Text) == "" {
		return Continue()
	}

	var item T
	if err := json.Unmarshal([]byte(line.Text), &item); err != nil {
		c.err = fmt.Errorf("failed to parse JSON line: %w", err)

		return Stop(c.err.Error())
	}

	return c.fn(item)
}

// Err returns the decode error that stopped the stream, if any.
func (c *JSONLinesConsumer[T]) Err() error {
	return c.err
}
