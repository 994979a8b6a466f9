package wpcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/presslocal/wpmcp/internal/config"
)

// DefaultMaxOutput caps captured stdout per invocation.
const DefaultMaxOutput = 32 << 20 // 32 MiB

// DefaultTimeout bounds a single WP-CLI invocation. Zero disables the
// bound, restoring WP-CLI's block-until-exit behaviour.
const DefaultTimeout = 60 * time.Second

// ErrCommandFailed is returned when WP-CLI exits non-zero without having
// produced any stdout.
var ErrCommandFailed = errors.New("wp-cli command failed")

// ErrOutputTooLarge is returned when an invocation exceeds the output cap.
var ErrOutputTooLarge = errors.New("wp-cli output exceeds limit")

// ErrValidation is returned for flag values the argument builder refuses.
var ErrValidation = errors.New("invalid wp-cli argument")

// Client runs WP-CLI subcommands against one site.
type Client struct {
	// Bin is the WP-CLI executable name or path. Defaults to "wp".
	Bin string

	// SitePath is the working directory for invocations (the site root).
	SitePath string

	// Socket, when set, is exported as MYSQL_UNIX_PORT so WP-CLI's PHP
	// process connects to the same local MySQL instance the detector
	// found.
	Socket string

	// Timeout bounds each invocation. Zero means no timeout.
	Timeout time.Duration

	// MaxOutput caps captured stdout in bytes.
	MaxOutput int64

	runner Runner
	log    zerolog.Logger
}

// New creates a client for the detected site.
func New(params *config.Params, runner Runner, log zerolog.Logger) *Client {
	return &Client{
		Bin:       "wp",
		SitePath:  params.SitePath,
		Socket:    params.Socket,
		Timeout:   DefaultTimeout,
		MaxOutput: DefaultMaxOutput,
		runner:    runner,
		log:       log,
	}
}

// Run executes `wp <sub> <args...>` and returns its stdout. A non-zero
// exit that still produced stdout returns that output: WP-CLI routinely
// prints results before a non-fatal failure code. A non-zero exit with no
// stdout fails with ErrCommandFailed carrying the process's stderr.
func (c *Client) Run(ctx context.Context, sub string, args ...string) (string, error) {
	if sub == "" {
		return "", fmt.Errorf("%w: empty subcommand", ErrValidation)
	}
	for _, arg := range args {
		if err := validateArg(arg); err != nil {
			return "", err
		}
	}

	if _, err := c.runner.LookPath(c.Bin); err != nil {
		return "", fmt.Errorf("%w: %s not found in PATH", ErrCommandFailed, c.Bin)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	argv := append([]string{sub}, args...)
	cmd := c.runner.CommandContext(ctx, c.Bin, argv...)
	if c.SitePath != "" {
		cmd.Dir = c.SitePath
	}
	cmd.Env = os.Environ()
	if c.Socket != "" {
		cmd.Env = append(cmd.Env, "MYSQL_UNIX_PORT="+c.Socket)
	}

	stdout := &limitedBuffer{max: c.MaxOutput}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	c.log.Debug().Strs("argv", argv).Str("dir", cmd.Dir).Msg("running wp-cli")

	runErr := cmd.Run()

	if stdout.overflowed {
		return "", fmt.Errorf("%w: more than %d bytes", ErrOutputTooLarge, c.MaxOutput)
	}

	out := stdout.buf.String()
	if runErr != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrCommandFailed, ctx.Err())
		}
		if out != "" {
			// Tolerated: output before a non-fatal failure code.
			c.log.Debug().Err(runErr).Msg("wp-cli exited non-zero with output")
			return out, nil
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return "", fmt.Errorf("%w: %s", ErrCommandFailed, msg)
	}

	return out, nil
}

// RunCommand splits a raw command line on whitespace and executes it. Used
// by the wp_cli tool.
func (c *Client) RunCommand(ctx context.Context, command string) (string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty command", ErrValidation)
	}
	return c.Run(ctx, fields[0], fields[1:]...)
}

// Flag renders a field as exactly one argv element, --name=value. The
// value travels as a literal token: the only characters refused are NUL
// bytes, which cannot appear in an argv element at all.
func Flag(name, value string) string {
	return "--" + name + "=" + value
}

func validateArg(arg string) error {
	if strings.ContainsRune(arg, 0) {
		return fmt.Errorf("%w: NUL byte in argument", ErrValidation)
	}
	return nil
}

// limitedBuffer accumulates writes up to max bytes, then flags overflow
// and rejects further input so the subprocess copy stops.
type limitedBuffer struct {
	buf        bytes.Buffer
	max        int64
	overflowed bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if int64(b.buf.Len())+int64(len(p)) > b.max {
		b.overflowed = true
		return 0, fmt.Errorf("output limit of %d bytes exceeded", b.max)
	}
	return b.buf.Write(p)
}
