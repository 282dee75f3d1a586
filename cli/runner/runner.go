package runner

// Package runner starts external commands, waits for them and hands back
// their captured output and exit code.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/rs/zerolog"
)

const (
	// ExitCodeNotStarted is reported when a command could not be started,
	// e.g. because the executable does not exist.
	ExitCodeNotStarted = 127
	// ExitCodeTimeout is reported when a command was killed after its timeout.
	ExitCodeTimeout = 124
)

// Command describes a process to run.
type Command struct {
	Name string
	Args []string
	// Working directory of the process
	Dir string
}

// String returns the command line with shell quoting, for logs.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, shellescape.Quote(c.Name))
	for _, arg := range c.Args {
		parts = append(parts, shellescape.Quote(arg))
	}
	return strings.Join(parts, " ")
}

// Result is the outcome of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	// Err is set when the command did not run to a normal exit (not found,
	// timed out). A non-zero exit alone is not an error.
	Err error
}

// Runner runs a command to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// Exec runs commands as local processes.
type Exec struct {
	logger zerolog.Logger
	// Per-command timeout, zero disables it
	timeout time.Duration
}

// New returns an Exec runner. A zero timeout lets commands run indefinitely.
func New(logger zerolog.Logger, timeout time.Duration) *Exec {
	return &Exec{
		logger:  logger,
		timeout: timeout,
	}
}

// Run starts cmd, captures stdout and stderr, and blocks until it exits.
func (e *Exec) Run(ctx context.Context, cmd Command) Result {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	e.logger.Debug().
		Str("command", cmd.String()).
		Str("dir", cmd.Dir).
		Msg("Starting command")

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	// Children of a killed process may keep the output pipes open
	c.WaitDelay = 5 * time.Second

	var stdoutBuf, stderrBuf bytes.Buffer
	c.Stdout = &stdoutBuf
	c.Stderr = &stderrBuf

	start := time.Now()
	err := c.Run()
	result := Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		e.logger.Debug().Dur("duration", result.Duration).Msg("Command completed successfully")
		return result
	}

	if ctx.Err() != nil {
		result.ExitCode = ExitCodeTimeout
		result.Err = fmt.Errorf("command %q did not finish: %w", cmd.Name, ctx.Err())
		e.logger.Warn().Err(result.Err).Dur("duration", result.Duration).Msg("Command was stopped")
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// A non-zero exit code is an expected outcome of a failing test run
		result.ExitCode = exitErr.ExitCode()
		e.logger.Debug().
			Int("exit_code", result.ExitCode).
			Dur("duration", result.Duration).
			Msg("Command completed with failures")
		return result
	}

	result.ExitCode = ExitCodeNotStarted
	result.Err = fmt.Errorf("failed to execute %q: %w", cmd.Name, err)
	e.logger.Error().Err(result.Err).Msg("Command could not be started")
	return result
}
