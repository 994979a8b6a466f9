package wpcli

import (
	"context"
	"os/exec"
	"strings"
)

// MockRunner is a test double for Runner. It records every invocation and
// plays back canned stdout/stderr via small shell commands, so the client's
// real capture and exit-code handling are exercised.
type MockRunner struct {
	// Outputs maps a command key (name and arguments joined by spaces) to
	// the stdout the resulting command should produce.
	Outputs map[string]string

	// Errors maps a command key to stderr text; matching commands exit
	// non-zero with that text on stderr.
	Errors map[string]string

	// PartialOutputs maps a command key to stdout that is produced before
	// a non-zero exit, mimicking WP-CLI printing results ahead of a
	// non-fatal failure code.
	PartialOutputs map[string]string

	// DefaultOutput is used when no key matches.
	DefaultOutput string

	// LookPathErr, when non-nil, is returned by LookPath for any file,
	// simulating a missing wp binary.
	LookPathErr error

	// Calls records the command keys in invocation order.
	Calls []string
}

// LookPath resolves to an installed wp binary unless LookPathErr is set.
func (m *MockRunner) LookPath(string) (string, error) {
	if m.LookPathErr != nil {
		return "", m.LookPathErr
	}
	return "/usr/local/bin/wp", nil
}

// CommandContext records the call and returns an *exec.Cmd producing the
// configured output or failure.
func (m *MockRunner) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	key := name + " " + strings.Join(args, " ")
	m.Calls = append(m.Calls, key)

	if m.Errors != nil {
		if msg, ok := m.Errors[key]; ok {
			cmd := exec.CommandContext(ctx, "sh", "-c", "cat >&2; exit 1")
			cmd.Stdin = strings.NewReader(msg)
			return cmd
		}
	}
	if m.PartialOutputs != nil {
		if out, ok := m.PartialOutputs[key]; ok {
			cmd := exec.CommandContext(ctx, "sh", "-c", "cat; exit 1")
			cmd.Stdin = strings.NewReader(out)
			return cmd
		}
	}
	out := m.DefaultOutput
	if m.Outputs != nil {
		if o, ok := m.Outputs[key]; ok {
			out = o
		}
	}
	cmd := exec.CommandContext(ctx, "cat")
	cmd.Stdin = strings.NewReader(out)
	return cmd
}
