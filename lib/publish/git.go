// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bureau-foundation/fmtbot/lib/git"
)

// GitPublisher commits in the local checkout and pushes with git.
type GitPublisher struct {
	repository *git.Repository
	remote     string
	logger     *slog.Logger
}

// NewGitPublisher returns a publisher for the checkout at repository,
// pushing to its "origin" remote. Push credentials, if any, must
// already be part of the repository's environment.
func NewGitPublisher(repository *git.Repository, logger *slog.Logger) *GitPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitPublisher{repository: repository, remote: "origin", logger: logger}
}

// Publish stages the ChangeSet, commits it on top of BaseSHA and
// pushes HEAD to the branch.
func (publisher *GitPublisher) Publish(ctx context.Context, request Request) (*CommitRecord, error) {
	if err := request.Validate(); err != nil {
		return nil, publishError(ReasonStaging, err)
	}
	logger := publisher.logger.With("branch", request.Branch, "base_sha", request.BaseSHA)

	head, err := publisher.repository.HeadSHA(ctx)
	if err != nil {
		return nil, publishError(ReasonCommit, fmt.Errorf("reading HEAD: %w", err))
	}
	if head != request.BaseSHA {
		return nil, publishError(ReasonCommit, fmt.Errorf("HEAD is %s, expected checkout %s", head, request.BaseSHA))
	}

	if err := publisher.stage(ctx, request); err != nil {
		return nil, publishError(ReasonStaging, err)
	}

	committer := publisher.repository.WithEnvironment(request.Author.Environment()...)
	if _, err := committer.Run(ctx, "-c", "commit.gpgsign=false",
		"commit", "--quiet", "--no-verify", "--message", request.Message); err != nil {
		return nil, publishError(ReasonCommit, err)
	}
	sha, err := publisher.repository.HeadSHA(ctx)
	if err != nil {
		return nil, publishError(ReasonCommit, fmt.Errorf("reading new commit: %w", err))
	}
	logger.Info("committed formatting changes", "sha", sha, "files", len(request.ChangeSet))

	refspec := "HEAD:refs/heads/" + request.Branch
	if _, err := publisher.repository.Run(ctx, "push", "--quiet", "--no-verify", publisher.remote, refspec); err != nil {
		reason := classifyPush(git.StderrOf(err))
		logger.Warn("push failed", "sha", sha, "reason", string(reason))
		return nil, publishError(reason, err)
	}
	logger.Info("pushed formatting commit", "sha", sha)

	return newCommitRecord(request, sha), nil
}

// stage adds exactly the ChangeSet paths (additions, modifications and
// deletions alike) and verifies the index agrees. Paths go through
// stdin, NUL-separated and literal, so names with spaces, glob
// characters or leading dashes are staged as themselves.
func (publisher *GitPublisher) stage(ctx context.Context, request Request) error {
	paths := request.ChangeSet.Paths()
	input := strings.NewReader(strings.Join(paths, "\x00") + "\x00")
	if _, err := publisher.repository.RunInput(ctx, input,
		"--literal-pathspecs", "add", "--all", "--pathspec-from-file=-", "--pathspec-file-nul"); err != nil {
		return err
	}

	output, err := publisher.repository.Run(ctx, "diff", "--cached", "--name-only", "-z", "--no-renames")
	if err != nil {
		return fmt.Errorf("listing staged paths: %w", err)
	}
	var staged []string
	for _, path := range strings.Split(output, "\x00") {
		if path != "" {
			staged = append(staged, path)
		}
	}
	sort.Strings(staged)

	if strings.Join(staged, "\x00") != strings.Join(paths, "\x00") {
		return fmt.Errorf("staged paths %q do not match detected changes %q", staged, paths)
	}
	return nil
}

// classifyPush maps git push diagnostics to a Reason. Git reports a
// non-fast-forward as "[rejected] ... (fetch first)" or
// "(non-fast-forward)"; smart-HTTP credential failures surface as
// "Authentication failed" or an HTTP 401/403, SSH ones as
// "Permission denied".
func classifyPush(stderr string) Reason {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "[rejected]"),
		strings.Contains(lower, "non-fast-forward"),
		strings.Contains(lower, "fetch first"),
		strings.Contains(lower, "stale info"):
		return ReasonRejected
	case strings.Contains(lower, "authentication failed"),
		strings.Contains(lower, "could not read username"),
		strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "permission to"),
		strings.Contains(lower, "returned error: 401"),
		strings.Contains(lower, "returned error: 403"):
		return ReasonUnauthorized
	default:
		return ReasonPush
	}
}
