package cexec

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruffel/cexec/internal/issue"
)

// EngineType identifies the container CLI the Executor drives.
type EngineType string

const (
	EngineDocker EngineType = "docker"
	EnginePodman EngineType = "podman"
)

// ErrEngineNotAvailable is wrapped when no usable engine binary is found.
var ErrEngineNotAvailable = errors.New("container engine not available")

// ParseEngineType validates an engine name.
func ParseEngineType(s string) (EngineType, error) {
	switch EngineType(s) {
	case EngineDocker, EnginePodman:
		return EngineType(s), nil
	default:
		return "", fmt.Errorf("unknown container engine %q (want docker or podman)", s)
	}
}

func (t EngineType) fallback() EngineType {
	if t == EnginePodman {
		return EngineDocker
	}

	return EnginePodman
}

// ResolveEngine finds the binary for the preferred engine in env, falling
// back to the other engine when the preferred one is missing.
func ResolveEngine(ctx context.Context, env Environment, preferred EngineType) (EngineType, string, error) {
	if preferred == "" {
		preferred = EngineDocker
	}

	if _, err := ParseEngineType(string(preferred)); err != nil {
		return "", "", err
	}

	var errs []error

	for _, candidate := range []EngineType{preferred, preferred.fallback()} {
		path, err := env.LookPath(ctx, env.TargetOS().ExecutableName(string(candidate)))
		if err == nil {
			return candidate, path, nil
		}

		errs = append(errs, err)
	}

	return "", "", issue.NewErrorContext().
		WithOperation("resolve container engine").
		WithResource(string(preferred)).
		WithSuggestion(fmt.Sprintf("Install %s or %s and make sure it is on PATH", preferred, preferred.fallback())).
		WithSuggestion("Or point at the binary explicitly with --binary").
		Wrap(fmt.Errorf("%w: %w", ErrEngineNotAvailable, errors.Join(errs...))).
		BuildError()
}
