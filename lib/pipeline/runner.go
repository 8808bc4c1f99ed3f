// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bureau-foundation/fmtbot/lib/changeset"
	"github.com/bureau-foundation/fmtbot/lib/clock"
	"github.com/bureau-foundation/fmtbot/lib/execute"
	"github.com/bureau-foundation/fmtbot/lib/pipelinedef"
	"github.com/bureau-foundation/fmtbot/lib/publish"
	"github.com/bureau-foundation/fmtbot/lib/toolchain"
)

// Executor runs the formatting command. *execute.Executor implements it.
type Executor interface {
	Execute(ctx context.Context, command execute.Command) (*execute.Result, error)
}

// Detector reports what the formatter changed. *changeset.Detector
// implements it.
type Detector interface {
	Detect(ctx context.Context) (changeset.ChangeSet, error)
}

// Observer is notified as a run progresses. Callbacks run
// synchronously on the run's goroutine and must not block for long.
type Observer interface {
	RunStarted(run *Run)
	Transitioned(run *Run, from, to State)
	RunFinished(run *Run)
}

// Runner executes pipeline runs against one working directory.
type Runner struct {
	Definition *pipelinedef.Definition

	// WorkDir is the checkout the formatter runs in and the detector
	// and publisher inspect.
	WorkDir string

	Provisioner toolchain.Provisioner
	Executor    Executor
	Detector    Detector
	Publisher   publish.Publisher

	Observers []Observer
	Logger    *slog.Logger
	Clock     clock.Clock

	// NewID generates run IDs. Defaults to random UUIDs.
	NewID func() string
}

// Run executes one run for trigger and returns its final record. It
// never panics on component failure and always returns a Run in a
// terminal state; inspect Run.State and Run.Err.
func (runner *Runner) Run(ctx context.Context, trigger Trigger) *Run {
	clk := runner.Clock
	if clk == nil {
		clk = clock.Real()
	}
	newID := runner.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	logger := runner.Logger
	if logger == nil {
		logger = slog.Default()
	}

	run := &Run{
		ID:        newID(),
		Trigger:   trigger,
		WorkDir:   runner.WorkDir,
		State:     Idle,
		ExitCode:  -1,
		StartedAt: clk.Now(),
	}
	execution := &runExecution{
		runner: runner,
		run:    run,
		clock:  clk,
		logger: logger.With("run_id", run.ID, "ref", trigger.Ref, "sha", trigger.SHA),
	}
	for _, observer := range runner.Observers {
		observer.RunStarted(run)
	}

	execution.execute(ctx)

	run.FinishedAt = clk.Now()
	for _, observer := range runner.Observers {
		observer.RunFinished(run)
	}
	return run
}

// runExecution carries per-run state through the steps.
type runExecution struct {
	runner *Runner
	run    *Run
	clock  clock.Clock
	logger *slog.Logger
}

func (execution *runExecution) execute(ctx context.Context) {
	run := execution.run
	runner := execution.runner
	logger := execution.logger

	if err := run.Trigger.Validate(); err != nil {
		execution.fail(err)
		return
	}
	if runner.Definition == nil {
		execution.fail(errors.New("runner has no job definition"))
		return
	}
	if issues := pipelinedef.Validate(runner.Definition); len(issues) > 0 {
		execution.fail(fmt.Errorf("invalid job definition: %s", strings.Join(issues, "; ")))
		return
	}
	branch, _ := run.Trigger.Branch()
	definition, err := runner.Definition.Expanded(
		pipelinedef.Variables(branch, run.Trigger.SHA, run.ID, run.Trigger.Repository))
	if err != nil {
		execution.fail(err)
		return
	}
	logger.Info("run started", "toolchain", definition.Toolchain.String(), "command", definition.Command)

	// Provisioning.
	if !execution.advance(ctx, Provisioning) {
		return
	}
	environment, err := runner.Provisioner.Provision(ctx, definition.Toolchain)
	if err != nil {
		execution.fail(err)
		return
	}
	run.Toolchain = environment.Description
	logger.Info("toolchain ready", "toolchain", environment.Description)

	// Executing.
	if !execution.advance(ctx, Executing) {
		return
	}
	result, err := runner.Executor.Execute(ctx, execute.Command{
		Program:     definition.Command[0],
		Args:        definition.Command[1:],
		Dir:         runner.WorkDir,
		Environment: environment,
	})
	if result != nil {
		run.ExitCode = result.ExitCode
		run.Output = result.Output
	}
	if err != nil {
		execution.fail(err)
		return
	}
	logger.Info("formatter finished", "duration", result.Duration)

	// Detecting.
	if !execution.advance(ctx, Detecting) {
		return
	}
	set, err := runner.Detector.Detect(ctx)
	if err != nil {
		execution.fail(err)
		return
	}
	run.ChangeSet = set
	if set.Empty() {
		logger.Info("tree already formatted")
		execution.advance(ctx, Succeeded)
		return
	}
	logger.Info("formatting changed files", "changes", set.String(), "digest", set.Digest())

	// Publishing.
	if !execution.advance(ctx, Publishing) {
		return
	}
	record, err := runner.Publisher.Publish(ctx, publish.Request{
		ChangeSet: set,
		Message:   definition.Commit.Message,
		Author:    definition.Commit.Author,
		Branch:    branch,
		BaseSHA:   run.Trigger.SHA,
	})
	if err != nil {
		execution.fail(err)
		return
	}
	run.Commit = record
	execution.advance(ctx, Succeeded)
}

// advance moves the run to the next state. Entering a working state
// after the context was cancelled fails the run instead. Returns false
// if the run did not reach next.
func (execution *runExecution) advance(ctx context.Context, next State) bool {
	if !next.Terminal() {
		if err := ctx.Err(); err != nil {
			execution.fail(fmt.Errorf("cancelled before %s: %w", next, err))
			return false
		}
	}
	if err := execution.transition(next); err != nil {
		execution.fail(err)
		return false
	}
	return true
}

// fail records err and moves the run to Failed from its current state.
func (execution *runExecution) fail(err error) {
	run := execution.run
	failedIn := run.State
	run.Err = err
	if transitionErr := execution.transition(Failed); transitionErr != nil {
		// Only reachable if fail is called on a terminal run.
		run.Err = errors.Join(err, transitionErr)
		return
	}
	run.FailedState = failedIn
	execution.logger.Error("run failed", "state", string(failedIn), "error", err)
}

func (execution *runExecution) transition(to State) error {
	run := execution.run
	from := run.State
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	run.State = to
	execution.logger.Debug("transition", "from", string(from), "to", string(to))
	for _, observer := range execution.runner.Observers {
		observer.Transitioned(run, from, to)
	}
	if to == Succeeded {
		execution.logger.Info("run succeeded", "published", run.Commit != nil)
	}
	return nil
}
