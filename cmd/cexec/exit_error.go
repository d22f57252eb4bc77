package main

import (
	"fmt"

	"github.com/ruffel/cexec/internal/issue"
)

// exitError carries a non-zero exit code out of a RunE handler so main can
// exit with it.
type exitError struct {
	Code int
	Err  error
}

func (e *exitError) Error() string {
	if e.Err != nil {
		return issue.Format(e.Err, false)
	}

	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *exitError) Unwrap() error {
	return e.Err
}
