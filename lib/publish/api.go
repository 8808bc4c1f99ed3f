// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/fmtbot/lib/changeset"
	"github.com/bureau-foundation/fmtbot/lib/github"
)

// APIPublisher creates the commit through the GitHub REST API. The
// content comes from the local working tree; the local repository is
// left untouched (no index changes, no local commit).
type APIPublisher struct {
	client  *github.Client
	owner   string
	repo    string
	workDir string
	logger  *slog.Logger
}

// NewAPIPublisher returns a publisher for the repository fullName
// ("owner/repo") reading changed files from workDir.
func NewAPIPublisher(client *github.Client, fullName, workDir string, logger *slog.Logger) (*APIPublisher, error) {
	owner, repo, err := github.SplitFullName(fullName)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &APIPublisher{client: client, owner: owner, repo: repo, workDir: workDir, logger: logger}, nil
}

// Publish uploads the changed files, creates a tree on top of
// BaseSHA's tree and a commit whose only parent is BaseSHA, then moves
// the branch to it without force.
func (publisher *APIPublisher) Publish(ctx context.Context, request Request) (*CommitRecord, error) {
	if err := request.Validate(); err != nil {
		return nil, publishError(ReasonStaging, err)
	}
	logger := publisher.logger.With("repository", publisher.owner+"/"+publisher.repo,
		"branch", request.Branch, "base_sha", request.BaseSHA)

	base, err := publisher.client.GetCommit(ctx, publisher.owner, publisher.repo, request.BaseSHA)
	if err != nil {
		return nil, publisher.classify(ReasonStaging, err)
	}

	entries := make([]github.CreateTreeEntry, 0, len(request.ChangeSet))
	for _, change := range request.ChangeSet {
		entry, err := publisher.treeEntry(ctx, change)
		if err != nil {
			return nil, publisher.classify(ReasonStaging, err)
		}
		entries = append(entries, entry)
	}

	tree, err := publisher.client.CreateTree(ctx, publisher.owner, publisher.repo, github.CreateTreeRequest{
		BaseTree: base.Tree.SHA,
		Entries:  entries,
	})
	if err != nil {
		return nil, publisher.classify(ReasonStaging, err)
	}

	identity := &github.CommitAuthor{Name: request.Author.Name, Email: request.Author.Email}
	commit, err := publisher.client.CreateCommit(ctx, publisher.owner, publisher.repo, github.CreateCommitRequest{
		Message:   request.Message,
		Tree:      tree.SHA,
		Parents:   []string{request.BaseSHA},
		Author:    identity,
		Committer: identity,
	})
	if err != nil {
		return nil, publisher.classify(ReasonCommit, err)
	}
	logger.Info("created formatting commit", "sha", commit.SHA, "files", len(entries))

	if _, err := publisher.client.UpdateRef(ctx, publisher.owner, publisher.repo, "heads/"+request.Branch, commit.SHA, false); err != nil {
		publishErr := publisher.classify(ReasonPush, err)
		logger.Warn("ref update failed", "sha", commit.SHA, "reason", string(publishErr.Reason))
		return nil, publishErr
	}
	logger.Info("updated branch", "sha", commit.SHA)

	return newCommitRecord(request, commit.SHA), nil
}

// treeEntry turns one change into a tree entry, uploading the file's
// current content as a blob. The git mode follows the file: symlinks
// store their target, executables get 100755.
func (publisher *APIPublisher) treeEntry(ctx context.Context, change changeset.Change) (github.CreateTreeEntry, error) {
	if change.Kind == changeset.Deleted {
		return github.CreateTreeEntry{Path: change.Path, Delete: true}, nil
	}

	fullPath := filepath.Join(publisher.workDir, filepath.FromSlash(change.Path))
	info, err := os.Lstat(fullPath)
	if err != nil {
		return github.CreateTreeEntry{}, fmt.Errorf("reading %s: %w", change.Path, err)
	}

	var content []byte
	mode := github.ModeFile
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(fullPath)
		if err != nil {
			return github.CreateTreeEntry{}, fmt.Errorf("reading link %s: %w", change.Path, err)
		}
		content = []byte(target)
		mode = github.ModeSymlink
	case info.Mode().IsRegular():
		content, err = os.ReadFile(fullPath)
		if err != nil {
			return github.CreateTreeEntry{}, fmt.Errorf("reading %s: %w", change.Path, err)
		}
		if info.Mode().Perm()&0o111 != 0 {
			mode = github.ModeExecutable
		}
	default:
		return github.CreateTreeEntry{}, fmt.Errorf("%s is not a regular file or symlink", change.Path)
	}

	blob, err := publisher.client.CreateBlob(ctx, publisher.owner, publisher.repo, content)
	if err != nil {
		return github.CreateTreeEntry{}, err
	}
	return github.CreateTreeEntry{Path: change.Path, Mode: mode, SHA: blob.SHA}, nil
}

// classify picks the Reason for an API failure at the given step.
// Credential failures are unauthorized at any step. A refused ref
// update is a rejection, and so is a 404 on it: the branch was deleted
// since the push.
func (publisher *APIPublisher) classify(step Reason, err error) *PublishError {
	switch {
	case github.IsUnauthorized(err):
		return publishError(ReasonUnauthorized, err)
	case step == ReasonPush && (github.IsNotFastForward(err) || github.IsNotFound(err)):
		return publishError(ReasonRejected, err)
	default:
		return publishError(step, err)
	}
}
