// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package execute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/fmtbot/lib/toolchain"
)

// Command is one program invocation.
type Command struct {
	// Program is resolved against the PATH of the applied environment
	// unless it contains a path separator.
	Program string
	Args    []string

	// Dir is the working directory. Required: the formatter must run
	// against the checked-out tree, never the fmtbot process cwd.
	Dir string

	// Environment is the run's toolchain selection. Nil runs with the
	// inherited process environment.
	Environment *toolchain.Environment
}

// String returns the command line for logs.
func (command Command) String() string {
	return strings.Join(append([]string{command.Program}, command.Args...), " ")
}

// Result is the outcome of a command that was started.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// ExecutionError reports a command that exited non-zero (ExitCode > 0),
// was killed by a signal or cancellation, or could not be started
// (ExitCode -1).
type ExecutionError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *ExecutionError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Executor runs Commands.
type Executor struct {
	// Stream receives output as it is produced, in addition to the
	// capture in Result.Output. Nil disables streaming.
	Stream io.Writer

	// GracePeriod, when positive, makes cancellation send SIGTERM to
	// the process group first and SIGKILL after the period. Zero kills
	// immediately.
	GracePeriod time.Duration

	// environ supplies the base environment. Nil means os.Environ.
	environ func() []string
}

// New returns an Executor streaming to stream (may be nil).
func New(stream io.Writer) *Executor {
	return &Executor{Stream: stream}
}

// Execute runs command to completion. It returns a non-nil Result
// whenever the process was started, including on non-zero exit.
func (executor *Executor) Execute(ctx context.Context, command Command) (*Result, error) {
	if command.Dir == "" {
		return nil, &ExecutionError{Command: command.String(), ExitCode: -1, Err: errors.New("working directory is required")}
	}

	base := os.Environ
	if executor.environ != nil {
		base = executor.environ
	}
	env := command.Environment.Apply(base())

	program, err := toolchain.LookPath(command.Program, env)
	if err != nil {
		return nil, &ExecutionError{Command: command.String(), ExitCode: -1, Err: err}
	}

	var output bytes.Buffer
	var writer io.Writer = &output
	if executor.Stream != nil {
		writer = io.MultiWriter(&output, executor.Stream)
	}

	cmd := exec.CommandContext(ctx, program, command.Args...)
	cmd.Dir = command.Dir
	cmd.Env = env
	// The same comparable writer for both streams: exec serializes
	// writes, so the capture is a single interleaved log.
	cmd.Stdout = writer
	cmd.Stderr = writer
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = executor.cancelFunc(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &ExecutionError{Command: command.String(), ExitCode: -1, Err: err}
	}
	err = cmd.Wait()
	result := &Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Output:   output.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return result, nil
	}

	var exitError *exec.ExitError
	if errors.As(err, &exitError) && result.ExitCode > 0 {
		return result, &ExecutionError{Command: command.String(), ExitCode: result.ExitCode, Err: err}
	}
	// Killed by a signal (cancellation included): ExitCode is -1.
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w (%v)", ctxErr, err)
	}
	result.ExitCode = -1
	return result, &ExecutionError{Command: command.String(), ExitCode: -1, Err: err}
}

func (executor *Executor) cancelFunc(cmd *exec.Cmd) func() error {
	if executor.GracePeriod <= 0 {
		return func() error {
			return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		}
	}
	gracePeriod := executor.GracePeriod
	return func() error {
		processGroupID := -cmd.Process.Pid
		if err := unix.Kill(processGroupID, unix.SIGTERM); err != nil {
			return unix.Kill(processGroupID, unix.SIGKILL)
		}
		go func() {
			time.Sleep(gracePeriod)
			// ESRCH from an already-exited group is expected.
			_ = unix.Kill(processGroupID, unix.SIGKILL)
		}()
		return nil
	}
}
