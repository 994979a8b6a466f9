package wpcli

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(m *MockRunner) *Client {
	return &Client{
		Bin:       "wp",
		Socket:    "/tmp/mysqld.sock",
		Timeout:   10 * time.Second,
		MaxOutput: DefaultMaxOutput,
		runner:    m,
		log:       zerolog.Nop(),
	}
}

func TestRunReturnsStdout(t *testing.T) {
	m := &MockRunner{Outputs: map[string]string{
		"wp plugin list": "akismet\nhello-dolly\n",
	}}
	c := newTestClient(m)

	out, err := c.Run(context.Background(), "plugin", "list")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out != "akismet\nhello-dolly\n" {
		t.Errorf("out = %q", out)
	}
	if len(m.Calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(m.Calls))
	}
}

func TestRunToleratesNonZeroWithOutput(t *testing.T) {
	m := &MockRunner{PartialOutputs: map[string]string{
		"wp plugin list": "partial result",
	}}
	c := newTestClient(m)

	out, err := c.Run(context.Background(), "plugin", "list")
	if err != nil {
		t.Fatalf("Run should tolerate non-zero exit with output, got: %v", err)
	}
	if out != "partial result" {
		t.Errorf("out = %q, want partial result", out)
	}
}

func TestRunFailsNonZeroWithoutOutput(t *testing.T) {
	m := &MockRunner{Errors: map[string]string{
		"wp plugin list": "Error: This does not seem to be a WordPress installation.",
	}}
	c := newTestClient(m)

	_, err := c.Run(context.Background(), "plugin", "list")
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("Run = %v, want ErrCommandFailed", err)
	}
	if !strings.Contains(err.Error(), "WordPress installation") {
		t.Errorf("error should carry stderr text, got: %v", err)
	}
}

func TestRunOutputCap(t *testing.T) {
	m := &MockRunner{Outputs: map[string]string{
		"wp post get 1": strings.Repeat("x", 4096),
	}}
	c := newTestClient(m)
	c.MaxOutput = 1024

	_, err := c.Run(context.Background(), "post", "get", "1")
	if !errors.Is(err, ErrOutputTooLarge) {
		t.Fatalf("Run = %v, want ErrOutputTooLarge", err)
	}
}

func TestRunRejectsNULArgument(t *testing.T) {
	c := newTestClient(&MockRunner{})

	_, err := c.Run(context.Background(), "post", "create", "--post_title=a\x00b")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Run = %v, want ErrValidation", err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	m := &MockRunner{LookPathErr: errors.New("executable file not found in $PATH")}
	c := newTestClient(m)

	_, err := c.Run(context.Background(), "plugin", "list")
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("Run = %v, want ErrCommandFailed", err)
	}
	if len(m.Calls) != 0 {
		t.Errorf("calls = %v, want none when the binary is missing", m.Calls)
	}
}

func TestRunTimeout(t *testing.T) {
	c := &Client{
		Bin:       "sleep",
		Timeout:   50 * time.Millisecond,
		MaxOutput: DefaultMaxOutput,
		runner:    DefaultRunner(),
		log:       zerolog.Nop(),
	}

	_, err := c.Run(context.Background(), "5")
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("Run = %v, want ErrCommandFailed after timeout", err)
	}
}

// cmdRecordingRunner keeps the commands it builds so tests can inspect
// the environment the client attached to them.
type cmdRecordingRunner struct {
	MockRunner
	cmds []*exec.Cmd
}

func (r *cmdRecordingRunner) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := r.MockRunner.CommandContext(ctx, name, args...)
	r.cmds = append(r.cmds, cmd)
	return cmd
}

func TestRunExportsSocketEnv(t *testing.T) {
	r := &cmdRecordingRunner{MockRunner: MockRunner{Outputs: map[string]string{
		"wp plugin list": "akismet\n",
	}}}
	c := newTestClient(&r.MockRunner)
	c.runner = r

	if _, err := c.Run(context.Background(), "plugin", "list"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(r.cmds) != 1 {
		t.Fatalf("commands built = %d, want 1", len(r.cmds))
	}

	found := false
	for _, kv := range r.cmds[0].Env {
		if kv == "MYSQL_UNIX_PORT=/tmp/mysqld.sock" {
			found = true
		}
	}
	if !found {
		t.Error("MYSQL_UNIX_PORT not exported to the subprocess")
	}
}

func TestRunWithoutSocketLeavesEnvAlone(t *testing.T) {
	t.Setenv("MYSQL_UNIX_PORT", "/inherited/mysqld.sock")

	r := &cmdRecordingRunner{MockRunner: MockRunner{Outputs: map[string]string{
		"wp plugin list": "akismet\n",
	}}}
	c := newTestClient(&r.MockRunner)
	c.runner = r
	c.Socket = ""

	if _, err := c.Run(context.Background(), "plugin", "list"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(r.cmds) != 1 {
		t.Fatalf("commands built = %d, want 1", len(r.cmds))
	}

	inherited := false
	for _, kv := range r.cmds[0].Env {
		if kv == "MYSQL_UNIX_PORT=" {
			t.Error("empty MYSQL_UNIX_PORT exported, clobbering the inherited value")
		}
		if kv == "MYSQL_UNIX_PORT=/inherited/mysqld.sock" {
			inherited = true
		}
	}
	if !inherited {
		t.Error("inherited MYSQL_UNIX_PORT not passed through")
	}
}

func TestRunCommandSplitsWhitespace(t *testing.T) {
	m := &MockRunner{Outputs: map[string]string{
		"wp option get siteurl": "http://blog.local",
	}}
	c := newTestClient(m)

	out, err := c.RunCommand(context.Background(), "  option   get\tsiteurl ")
	if err != nil {
		t.Fatalf("RunCommand error: %v", err)
	}
	if out != "http://blog.local" {
		t.Errorf("out = %q", out)
	}
	if m.Calls[0] != "wp option get siteurl" {
		t.Errorf("argv = %q", m.Calls[0])
	}
}

func TestRunCommandEmpty(t *testing.T) {
	c := newTestClient(&MockRunner{})

	_, err := c.RunCommand(context.Background(), "   ")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("RunCommand = %v, want ErrValidation", err)
	}
}

func TestFlagSingleToken(t *testing.T) {
	got := Flag("post_title", "Hello World; rm -rf /")
	if got != "--post_title=Hello World; rm -rf /" {
		t.Errorf("Flag = %q", got)
	}
}
