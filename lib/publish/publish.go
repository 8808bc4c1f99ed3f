// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/fmtbot/lib/changeset"
	"github.com/bureau-foundation/fmtbot/lib/git"
)

// Reason classifies a publish failure.
type Reason string

const (
	// ReasonStaging: the changed paths could not be staged or read, or
	// the staged set differs from the ChangeSet.
	ReasonStaging Reason = "staging"

	// ReasonCommit: the commit object could not be created.
	ReasonCommit Reason = "commit"

	// ReasonUnauthorized: the remote refused the credentials.
	ReasonUnauthorized Reason = "unauthorized"

	// ReasonRejected: the remote branch advanced since checkout
	// (non-fast-forward).
	ReasonRejected Reason = "rejected"

	// ReasonPush: any other failure updating the remote branch.
	ReasonPush Reason = "push"
)

// PublishError reports why a commit-back failed.
type PublishError struct {
	Reason Reason
	Err    error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Reason, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

func publishError(reason Reason, err error) *PublishError {
	return &PublishError{Reason: reason, Err: err}
}

// ErrEmptyChangeSet is returned (wrapped in a staging PublishError) when
// Publish is asked to commit nothing.
var ErrEmptyChangeSet = errors.New("empty change set")

// Request is everything a Publisher needs for one commit-back.
type Request struct {
	ChangeSet changeset.ChangeSet
	Message   string

	// Author is used as both author and committer.
	Author git.Identity

	// Branch is the short branch name ("main", not "refs/heads/main").
	Branch string

	// BaseSHA is the commit the run checked out. The new commit's
	// parent is always BaseSHA.
	BaseSHA string
}

// Validate checks the request before any side effect.
func (request Request) Validate() error {
	if request.ChangeSet.Empty() {
		return ErrEmptyChangeSet
	}
	if strings.TrimSpace(request.Message) == "" {
		return errors.New("commit message is empty")
	}
	if err := request.Author.Validate(); err != nil {
		return err
	}
	if request.Branch == "" || strings.HasPrefix(request.Branch, "refs/") {
		return fmt.Errorf("branch %q must be a short branch name", request.Branch)
	}
	if request.BaseSHA == "" {
		return errors.New("base commit SHA is required")
	}
	return nil
}

// CommitRecord describes a commit that reached the remote branch.
type CommitRecord struct {
	SHA     string       `json:"sha"`
	Parent  string       `json:"parent"`
	Message string       `json:"message"`
	Author  git.Identity `json:"author"`
	Branch  string       `json:"branch"`
	Paths   []string     `json:"paths"`

	// Digest is the ChangeSet digest, for correlating the commit
	// with the detection that produced it.
	Digest string `json:"digest"`
}

func newCommitRecord(request Request, sha string) *CommitRecord {
	return &CommitRecord{
		SHA:     sha,
		Parent:  request.BaseSHA,
		Message: request.Message,
		Author:  request.Author,
		Branch:  request.Branch,
		Paths:   request.ChangeSet.Paths(),
		Digest:  request.ChangeSet.Digest(),
	}
}

// Publisher commits a ChangeSet back to a branch.
type Publisher interface {
	Publish(ctx context.Context, request Request) (*CommitRecord, error)
}
