// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/fmtbot/lib/changeset"
	"github.com/bureau-foundation/fmtbot/lib/git"
	"github.com/bureau-foundation/fmtbot/lib/publish"
)

// Trigger is the push event that starts a run.
type Trigger struct {
	// Ref is the fully qualified ref that was pushed
	// ("refs/heads/main").
	Ref string `json:"ref"`

	// SHA is the pushed commit, which the run's checkout is at.
	SHA string `json:"sha"`

	// Repository is the forge's "owner/repo" name, when known.
	Repository string `json:"repository,omitempty"`

	// Sender is the login that pushed, when known.
	Sender string `json:"sender,omitempty"`
}

// Branch returns the short branch name of a branch ref.
func (trigger Trigger) Branch() (string, bool) {
	return git.BranchFromRef(trigger.Ref)
}

// Validate checks that the trigger names a branch and a commit.
func (trigger Trigger) Validate() error {
	if _, ok := trigger.Branch(); !ok {
		return fmt.Errorf("trigger ref %q is not a branch", trigger.Ref)
	}
	if trigger.SHA == "" {
		return errors.New("trigger has no commit SHA")
	}
	return nil
}

// Run is the record of one pipeline run. It is created when a trigger
// is accepted and is not persisted; observers copy whatever they need.
type Run struct {
	ID      string
	Trigger Trigger
	WorkDir string

	State State

	// FailedState is the state the run was in when it failed. Empty
	// unless State is Failed.
	FailedState State
	Err         error

	// Toolchain describes what Provisioning selected.
	Toolchain string

	// ExitCode and Output come from the formatting command. ExitCode
	// is -1 if the command never started.
	ExitCode int
	Output   string

	ChangeSet changeset.ChangeSet

	// Commit is set iff the run published: ChangeSet non-empty and
	// every earlier step succeeded.
	Commit *publish.CommitRecord

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time from trigger to terminal state.
func (run *Run) Duration() time.Duration {
	if run.FinishedAt.IsZero() {
		return 0
	}
	return run.FinishedAt.Sub(run.StartedAt)
}

// Succeeded reports whether the run ended in Succeeded.
func (run *Run) Succeeded() bool {
	return run.State == Succeeded
}
