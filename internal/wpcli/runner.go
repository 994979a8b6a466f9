// Package wpcli invokes the WP-CLI binary as a subprocess against a
// detected WordPress site. Arguments are always passed as a literal argv
// vector: no shell is ever involved.
package wpcli

import (
	"context"
	"os/exec"
)

// Runner abstracts exec.LookPath and exec.CommandContext so the client can
// be tested without a real wp binary.
type Runner interface {
	// LookPath searches PATH for an executable named file.
	LookPath(file string) (string, error)

	// CommandContext returns an *exec.Cmd configured to run name with the
	// given arguments. The provided context is used for cancellation.
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// execRunner is the production Runner backed by os/exec.
type execRunner struct{}

func (execRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (execRunner) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// DefaultRunner returns the production Runner.
func DefaultRunner() Runner {
	return execRunner{}
}
