// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trigger

import (
	"github.com/bureau-foundation/fmtbot/lib/pipeline"
)

// Environment variables set by GitHub Actions and compatible runners.
const (
	EnvironmentRef        = "GITHUB_REF"
	EnvironmentSHA        = "GITHUB_SHA"
	EnvironmentRepository = "GITHUB_REPOSITORY"
	EnvironmentActor      = "GITHUB_ACTOR"
)

// FromEnvironment builds a Trigger from CI variables read through
// lookup (os.Getenv in production). Explicit ref and sha take
// precedence over the environment. The result is validated by the
// Runner, not here, so a missing value surfaces as a failed run.
func FromEnvironment(lookup func(string) string, ref, sha string) pipeline.Trigger {
	if ref == "" {
		ref = lookup(EnvironmentRef)
	}
	if sha == "" {
		sha = lookup(EnvironmentSHA)
	}
	return pipeline.Trigger{
		Ref:        ref,
		SHA:        sha,
		Repository: lookup(EnvironmentRepository),
		Sender:     lookup(EnvironmentActor),
	}
}
