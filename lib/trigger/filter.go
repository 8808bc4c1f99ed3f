// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trigger

import (
	"fmt"
	"path"
	"slices"

	"github.com/bureau-foundation/fmtbot/lib/pipeline"
)

// Filter decides which push events start a run. The zero Filter
// accepts every branch push.
type Filter struct {
	// Repositories limits runs to these "owner/repo" names. Empty
	// means any repository.
	Repositories []string

	// Branches are path.Match globs over the short branch name
	// ("main", "release/*"). Empty means any branch.
	Branches []string

	// IgnoreSenders lists logins whose pushes never start a run,
	// typically the account fmtbot itself pushes as.
	IgnoreSenders []string
}

// Validate reports malformed branch patterns.
func (filter Filter) Validate() error {
	for _, pattern := range filter.Branches {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid branch pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// Accept reports whether trigger should start a run. When it should
// not, reason says why, for logging.
func (filter Filter) Accept(trigger pipeline.Trigger) (accepted bool, reason string) {
	branch, ok := trigger.Branch()
	if !ok {
		return false, "not a branch ref"
	}
	if len(filter.Repositories) > 0 && !slices.Contains(filter.Repositories, trigger.Repository) {
		return false, "repository not configured"
	}
	if trigger.Sender != "" && slices.Contains(filter.IgnoreSenders, trigger.Sender) {
		return false, "sender ignored"
	}
	if len(filter.Branches) == 0 {
		return true, ""
	}
	for _, pattern := range filter.Branches {
		if matched, _ := path.Match(pattern, branch); matched {
			return true, ""
		}
	}
	return false, "branch not matched"
}
