// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeset

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/fmtbot/lib/git"
)

// statusArgs is the exact status invocation Parse understands.
var statusArgs = []string{
	"status",
	"--porcelain=v1",
	"-z",
	"--no-renames",
	"--untracked-files=all",
	"--ignore-submodules=all",
}

// Detector computes the ChangeSet of a working tree relative to HEAD.
type Detector struct {
	repository *git.Repository
}

// NewDetector returns a Detector for the given repository.
func NewDetector(repository *git.Repository) *Detector {
	return &Detector{repository: repository}
}

// Detect returns the current ChangeSet. It has no side effects on the
// repository beyond whatever index refresh git status performs.
func (detector *Detector) Detect(ctx context.Context) (ChangeSet, error) {
	output, err := detector.repository.Run(ctx, statusArgs...)
	if err != nil {
		return nil, fmt.Errorf("detecting changes: %w", err)
	}
	set, err := Parse(output)
	if err != nil {
		return nil, fmt.Errorf("detecting changes in %s: %w", detector.repository.Dir(), err)
	}
	return set, nil
}
