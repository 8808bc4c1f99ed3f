// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"slices"
)

// State is a run's position in the pipeline.
type State string

const (
	Idle         State = "idle"
	Provisioning State = "provisioning"
	Executing    State = "executing"
	Detecting    State = "detecting"
	Publishing   State = "publishing"
	Succeeded    State = "succeeded"
	Failed       State = "failed"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// transitions lists the legal successors of each non-terminal state.
// Idle may fail directly when the trigger itself is unusable (a tag
// ref, a missing SHA) or the job cannot be expanded for it.
var transitions = map[State][]State{
	Idle:         {Provisioning, Failed},
	Provisioning: {Executing, Failed},
	Executing:    {Detecting, Failed},
	Detecting:    {Publishing, Succeeded, Failed},
	Publishing:   {Succeeded, Failed},
}

// CanTransition reports whether from → to is a legal transition.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// TransitionError is an illegal transition. It indicates a bug in the
// orchestrator, never a runtime condition.
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal pipeline transition %s → %s", e.From, e.To)
}
