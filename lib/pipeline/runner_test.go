// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/bureau-foundation/fmtbot/lib/changeset"
	"github.com/bureau-foundation/fmtbot/lib/clock"
	"github.com/bureau-foundation/fmtbot/lib/execute"
	"github.com/bureau-foundation/fmtbot/lib/pipelinedef"
	"github.com/bureau-foundation/fmtbot/lib/publish"
	"github.com/bureau-foundation/fmtbot/lib/toolchain"
)

// calls records the order in which components were invoked.
type calls []string

type fakeProvisioner struct {
	calls *calls
	err   error
	got   toolchain.Spec
}

func (fake *fakeProvisioner) Provision(_ context.Context, spec toolchain.Spec) (*toolchain.Environment, error) {
	*fake.calls = append(*fake.calls, "provision")
	fake.got = spec
	if fake.err != nil {
		return nil, fake.err
	}
	return &toolchain.Environment{
		Variables:   map[string]string{"RUSTUP_TOOLCHAIN": spec.Channel},
		Description: "rustc 1.80.0",
	}, nil
}

type fakeExecutor struct {
	calls  *calls
	result *execute.Result
	err    error
	got    execute.Command
}

func (fake *fakeExecutor) Execute(_ context.Context, command execute.Command) (*execute.Result, error) {
	*fake.calls = append(*fake.calls, "execute")
	fake.got = command
	return fake.result, fake.err
}

type fakeDetector struct {
	calls *calls
	set   changeset.ChangeSet
	err   error
}

func (fake *fakeDetector) Detect(context.Context) (changeset.ChangeSet, error) {
	*fake.calls = append(*fake.calls, "detect")
	return fake.set, fake.err
}

type fakePublisher struct {
	calls *calls
	err   error
	got   []publish.Request
}

func (fake *fakePublisher) Publish(_ context.Context, request publish.Request) (*publish.CommitRecord, error) {
	*fake.calls = append(*fake.calls, "publish")
	fake.got = append(fake.got, request)
	if fake.err != nil {
		return nil, fake.err
	}
	return &publish.CommitRecord{SHA: "f0rmat", Parent: request.BaseSHA, Paths: request.ChangeSet.Paths()}, nil
}

type transition struct{ from, to State }

type recordingObserver struct {
	started     int
	finished    int
	transitions []transition
}

func (observer *recordingObserver) RunStarted(*Run)  { observer.started++ }
func (observer *recordingObserver) RunFinished(*Run) { observer.finished++ }
func (observer *recordingObserver) Transitioned(_ *Run, from, to State) {
	observer.transitions = append(observer.transitions, transition{from, to})
}

type harness struct {
	calls       calls
	provisioner *fakeProvisioner
	executor    *fakeExecutor
	detector    *fakeDetector
	publisher   *fakePublisher
	observer    *recordingObserver
	runner      *Runner
}

func newHarness(set changeset.ChangeSet) *harness {
	h := &harness{observer: &recordingObserver{}}
	h.provisioner = &fakeProvisioner{calls: &h.calls}
	h.executor = &fakeExecutor{calls: &h.calls, result: &execute.Result{ExitCode: 0, Output: "formatted\n"}}
	h.detector = &fakeDetector{calls: &h.calls, set: set}
	h.publisher = &fakePublisher{calls: &h.calls}

	definition := pipelinedef.Default()
	definition.Commit.Message = "style: fmt ${BRANCH}"

	fakeClock := clock.Fake(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
	h.runner = &Runner{
		Definition:  definition,
		WorkDir:     "/work/checkout",
		Provisioner: h.provisioner,
		Executor:    h.executor,
		Detector:    h.detector,
		Publisher:   h.publisher,
		Observers:   []Observer{h.observer},
		Logger:      discardLogger(),
		Clock:       fakeClock,
		NewID:       func() string { return "run-1" },
	}
	return h
}

var pushToMain = Trigger{Ref: "refs/heads/main", SHA: "abc123", Repository: "acme/widgets"}

func twoFileChange() changeset.ChangeSet {
	return changeset.New(
		changeset.Change{Path: "src/a.rs", Kind: changeset.Modified},
		changeset.Change{Path: "src/b.rs", Kind: changeset.Modified},
	)
}

func (h *harness) requireTransitions(t *testing.T, want ...State) {
	t.Helper()
	var got []State
	for _, step := range h.observer.transitions {
		got = append(got, step.to)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
}

// Changes detected: one commit is published with the configured
// message and identity on top of the triggering SHA.
func TestRun_ChangesPublished(t *testing.T) {
	h := newHarness(twoFileChange())
	run := h.runner.Run(context.Background(), pushToMain)

	if run.State != Succeeded || run.Err != nil {
		t.Fatalf("State = %s, Err = %v", run.State, run.Err)
	}
	if !reflect.DeepEqual([]string(h.calls), []string{"provision", "execute", "detect", "publish"}) {
		t.Errorf("calls = %v", h.calls)
	}
	h.requireTransitions(t, Provisioning, Executing, Detecting, Publishing, Succeeded)

	if len(h.publisher.got) != 1 {
		t.Fatalf("Publish called %d times", len(h.publisher.got))
	}
	request := h.publisher.got[0]
	if request.Message != "style: fmt main" || request.Branch != "main" || request.BaseSHA != "abc123" {
		t.Errorf("publish request = %+v", request)
	}
	if request.Author != pipelinedef.DefaultAuthor {
		t.Errorf("Author = %+v", request.Author)
	}
	if !request.ChangeSet.Equal(twoFileChange()) {
		t.Errorf("ChangeSet = %v", request.ChangeSet)
	}
	if run.Commit == nil || run.Commit.SHA != "f0rmat" {
		t.Errorf("Commit = %+v", run.Commit)
	}
	if run.Toolchain != "rustc 1.80.0" || run.Output != "formatted\n" || run.ExitCode != 0 {
		t.Errorf("run = %+v", run)
	}

	// The formatter ran in the checkout with the provisioned environment.
	command := h.executor.got
	if command.Program != "cargo" || !reflect.DeepEqual(command.Args, []string{"fmt", "--all"}) || command.Dir != "/work/checkout" {
		t.Errorf("command = %+v", command)
	}
	if command.Environment == nil || command.Environment.Variables["RUSTUP_TOOLCHAIN"] != "stable" {
		t.Errorf("command environment = %+v", command.Environment)
	}
	if h.observer.started != 1 || h.observer.finished != 1 {
		t.Errorf("observer started=%d finished=%d", h.observer.started, h.observer.finished)
	}
}

// Already formatted: no publish, no commit, still a success.
func TestRun_NoChanges(t *testing.T) {
	h := newHarness(nil)
	run := h.runner.Run(context.Background(), pushToMain)

	if run.State != Succeeded {
		t.Fatalf("State = %s, Err = %v", run.State, run.Err)
	}
	if run.Commit != nil {
		t.Errorf("Commit = %+v, want nil", run.Commit)
	}
	if len(h.publisher.got) != 0 {
		t.Error("Publish called for an empty ChangeSet")
	}
	h.requireTransitions(t, Provisioning, Executing, Detecting, Succeeded)
}

// Formatter fails: nothing is detected or published; output is kept.
func TestRun_ExecutionFailure(t *testing.T) {
	h := newHarness(twoFileChange())
	h.executor.result = &execute.Result{ExitCode: 1, Output: "error: expected item, found `}`\n"}
	h.executor.err = &execute.ExecutionError{Command: "cargo fmt --all", ExitCode: 1}

	run := h.runner.Run(context.Background(), pushToMain)

	if run.State != Failed || run.FailedState != Executing {
		t.Fatalf("State = %s, FailedState = %s", run.State, run.FailedState)
	}
	var executionErr *execute.ExecutionError
	if !errors.As(run.Err, &executionErr) || executionErr.ExitCode != 1 {
		t.Errorf("Err = %v, want ExecutionError with exit code 1", run.Err)
	}
	if run.ExitCode != 1 || run.Output != "error: expected item, found `}`\n" {
		t.Errorf("ExitCode = %d, Output = %q", run.ExitCode, run.Output)
	}
	if !reflect.DeepEqual([]string(h.calls), []string{"provision", "execute"}) {
		t.Errorf("calls = %v", h.calls)
	}
	h.requireTransitions(t, Provisioning, Executing, Failed)
}

// Formatter never starts: exit code -1.
func TestRun_ExecutionDidNotStart(t *testing.T) {
	h := newHarness(nil)
	h.executor.result = nil
	h.executor.err = &execute.ExecutionError{Command: "cargo fmt --all", ExitCode: -1, Err: errors.New("not found")}

	run := h.runner.Run(context.Background(), pushToMain)
	if run.FailedState != Executing || run.ExitCode != -1 {
		t.Errorf("FailedState = %s, ExitCode = %d", run.FailedState, run.ExitCode)
	}
}

// Toolchain unavailable: the formatter never runs.
func TestRun_ProvisionFailure(t *testing.T) {
	h := newHarness(twoFileChange())
	h.provisioner.err = &toolchain.ProvisionError{Toolchain: "rustup:nightly-1999-01-01", Err: errors.New("not installable")}

	run := h.runner.Run(context.Background(), pushToMain)

	if run.State != Failed || run.FailedState != Provisioning {
		t.Fatalf("State = %s, FailedState = %s", run.State, run.FailedState)
	}
	var provisionErr *toolchain.ProvisionError
	if !errors.As(run.Err, &provisionErr) {
		t.Errorf("Err = %v, want ProvisionError", run.Err)
	}
	if !reflect.DeepEqual([]string(h.calls), []string{"provision"}) {
		t.Errorf("calls = %v", h.calls)
	}
	if run.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1 (formatter never started)", run.ExitCode)
	}
	h.requireTransitions(t, Provisioning, Failed)
}

func TestRun_DetectFailure(t *testing.T) {
	h := newHarness(nil)
	h.detector.err = errors.New("detecting changes: not a git repository")

	run := h.runner.Run(context.Background(), pushToMain)
	if run.State != Failed || run.FailedState != Detecting {
		t.Fatalf("State = %s, FailedState = %s", run.State, run.FailedState)
	}
	if len(h.publisher.got) != 0 {
		t.Error("Publish called after detection failed")
	}
}

// Remote advanced since checkout: the push is rejected and the run
// fails at Publishing without a CommitRecord.
func TestRun_PublishRejected(t *testing.T) {
	h := newHarness(twoFileChange())
	h.publisher.err = &publish.PublishError{Reason: publish.ReasonRejected, Err: errors.New("fetch first")}

	run := h.runner.Run(context.Background(), pushToMain)

	if run.State != Failed || run.FailedState != Publishing {
		t.Fatalf("State = %s, FailedState = %s", run.State, run.FailedState)
	}
	var publishErr *publish.PublishError
	if !errors.As(run.Err, &publishErr) || publishErr.Reason != publish.ReasonRejected {
		t.Errorf("Err = %v, want rejected PublishError", run.Err)
	}
	if run.Commit != nil {
		t.Errorf("Commit = %+v, want nil", run.Commit)
	}
	if len(h.publisher.got) != 1 {
		t.Errorf("Publish called %d times, want exactly once (no retry)", len(h.publisher.got))
	}
}

func TestRun_InvalidTrigger(t *testing.T) {
	for _, trigger := range []Trigger{
		{Ref: "refs/tags/v1.0.0", SHA: "abc"},
		{Ref: "refs/heads/main"},
		{},
	} {
		t.Run(fmt.Sprintf("%+v", trigger), func(t *testing.T) {
			h := newHarness(twoFileChange())
			run := h.runner.Run(context.Background(), trigger)
			if run.State != Failed || run.FailedState != Idle {
				t.Errorf("State = %s, FailedState = %s", run.State, run.FailedState)
			}
			if run.ExitCode != -1 {
				t.Errorf("ExitCode = %d, want -1", run.ExitCode)
			}
			if len(h.calls) != 0 {
				t.Errorf("components called: %v", h.calls)
			}
		})
	}
}

func TestRun_InvalidDefinition(t *testing.T) {
	for _, test := range []struct {
		name   string
		modify func(runner *Runner)
	}{
		{"empty command", func(runner *Runner) { runner.Definition.Command = nil }},
		{"empty program", func(runner *Runner) { runner.Definition.Command = []string{""} }},
		{"nil definition", func(runner *Runner) { runner.Definition = nil }},
	} {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(twoFileChange())
			test.modify(h.runner)

			run := h.runner.Run(context.Background(), pushToMain)
			if run.State != Failed || run.FailedState != Idle || run.Err == nil {
				t.Errorf("State = %s, FailedState = %s, Err = %v", run.State, run.FailedState, run.Err)
			}
			if len(h.calls) != 0 {
				t.Errorf("components called: %v", h.calls)
			}
			if h.observer.started != 1 || h.observer.finished != 1 {
				t.Errorf("observer started=%d finished=%d", h.observer.started, h.observer.finished)
			}
		})
	}
}

func TestRun_UnresolvedVariable(t *testing.T) {
	h := newHarness(twoFileChange())
	h.runner.Definition.Commit.Message = "fmt ${UNKNOWN}"

	run := h.runner.Run(context.Background(), pushToMain)
	if run.State != Failed || run.FailedState != Idle {
		t.Errorf("State = %s, FailedState = %s", run.State, run.FailedState)
	}
}

func TestRun_Cancelled(t *testing.T) {
	h := newHarness(twoFileChange())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := h.runner.Run(ctx, pushToMain)
	if run.State != Failed || run.FailedState != Idle {
		t.Errorf("State = %s, FailedState = %s", run.State, run.FailedState)
	}
	if !errors.Is(run.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", run.Err)
	}
	if len(h.calls) != 0 {
		t.Errorf("components called: %v", h.calls)
	}
}

// Each Run call is independent: a second run of the same runner
// starts from Idle with a fresh record.
func TestRun_Independent(t *testing.T) {
	h := newHarness(twoFileChange())
	ids := []string{"run-a", "run-b"}
	h.runner.NewID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first := h.runner.Run(context.Background(), pushToMain)
	h.detector.set = nil
	second := h.runner.Run(context.Background(), pushToMain)

	if first.ID != "run-a" || second.ID != "run-b" {
		t.Errorf("IDs = %s, %s", first.ID, second.ID)
	}
	if first.Commit == nil || second.Commit != nil {
		t.Errorf("first.Commit = %v, second.Commit = %v", first.Commit, second.Commit)
	}
	if h.observer.started != 2 || h.observer.finished != 2 {
		t.Errorf("observer started=%d finished=%d", h.observer.started, h.observer.finished)
	}
}

func TestCanTransition(t *testing.T) {
	legal := []transition{
		{Idle, Provisioning}, {Idle, Failed},
		{Provisioning, Executing}, {Provisioning, Failed},
		{Executing, Detecting}, {Executing, Failed},
		{Detecting, Publishing}, {Detecting, Succeeded}, {Detecting, Failed},
		{Publishing, Succeeded}, {Publishing, Failed},
	}
	for _, step := range legal {
		if !CanTransition(step.from, step.to) {
			t.Errorf("%s → %s should be legal", step.from, step.to)
		}
	}

	illegal := []transition{
		{Idle, Executing}, {Provisioning, Publishing}, {Executing, Succeeded},
		{Publishing, Detecting}, {Succeeded, Failed}, {Failed, Idle}, {Succeeded, Provisioning},
	}
	for _, step := range illegal {
		if CanTransition(step.from, step.to) {
			t.Errorf("%s → %s should be illegal", step.from, step.to)
		}
	}
}

func TestIllegalTransitionReturnsError(t *testing.T) {
	h := newHarness(nil)
	execution := &runExecution{
		runner: h.runner,
		run:    &Run{State: Executing},
		logger: discardLogger(),
	}
	err := execution.transition(Succeeded)
	var transitionErr *TransitionError
	if !errors.As(err, &transitionErr) || transitionErr.From != Executing || transitionErr.To != Succeeded {
		t.Fatalf("transition error = %v", err)
	}
	if execution.run.State != Executing {
		t.Errorf("State changed to %s on an illegal transition", execution.run.State)
	}
	if len(h.observer.transitions) != 0 {
		t.Error("observer notified of an illegal transition")
	}
}

func TestRunDuration(t *testing.T) {
	start := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	run := &Run{StartedAt: start}
	if run.Duration() != 0 {
		t.Errorf("unfinished Duration = %v", run.Duration())
	}
	run.FinishedAt = start.Add(90 * time.Second)
	if run.Duration() != 90*time.Second {
		t.Errorf("Duration = %v", run.Duration())
	}
}
