// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipelinedef

import (
	"fmt"
	"time"
)

// Validate checks a Definition for structural issues. Returns a list
// of human-readable issue descriptions. An empty list means the
// definition is valid.
//
// Checks include:
//   - the toolchain spec is valid for its provider
//   - the command has a non-empty program
//   - grace_period (when present) parses as a positive duration
//   - the commit message is non-empty and only references known variables
//   - the commit author is a usable git identity
//   - publish.mode is "git" or "api"
func Validate(definition *Definition) []string {
	var issues []string

	if err := definition.Toolchain.Validate(); err != nil {
		issues = append(issues, err.Error())
	}

	if len(definition.Command) == 0 || definition.Command[0] == "" {
		issues = append(issues, "command: program is required")
	}
	for index, argument := range definition.Command {
		for _, name := range References(argument) {
			if !knownVariables[name] {
				issues = append(issues, fmt.Sprintf("command[%d]: unknown variable ${%s}", index, name))
			}
		}
	}

	if definition.GracePeriod != "" {
		duration, err := time.ParseDuration(definition.GracePeriod)
		if err != nil {
			issues = append(issues, fmt.Sprintf("grace_period %q: %v", definition.GracePeriod, err))
		} else if duration <= 0 {
			issues = append(issues, fmt.Sprintf("grace_period %q: must be positive", definition.GracePeriod))
		}
	}

	if definition.Commit.Message == "" {
		issues = append(issues, "commit.message is required")
	}
	for _, name := range References(definition.Commit.Message) {
		if !knownVariables[name] {
			issues = append(issues, fmt.Sprintf("commit.message: unknown variable ${%s}", name))
		}
	}
	if err := definition.Commit.Author.Validate(); err != nil {
		issues = append(issues, fmt.Sprintf("commit.author: %v", err))
	}

	switch definition.Publish.Mode {
	case PublishGit, PublishAPI:
	default:
		issues = append(issues, fmt.Sprintf("publish.mode %q: must be %q or %q", definition.Publish.Mode, PublishGit, PublishAPI))
	}

	return issues
}

// GraceDuration returns the parsed grace period, zero when unset.
// Call after Validate.
func (definition *Definition) GraceDuration() time.Duration {
	duration, _ := time.ParseDuration(definition.GracePeriod)
	return duration
}
