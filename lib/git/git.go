// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI for the working-tree
// operations fmtbot needs: cloning a pushed branch, inspecting the
// working tree, staging, committing and pushing. All commands target a
// specific repository directory via the -C flag, which is automatically
// injected by all Repository methods.
//
// Credentials never appear in argv. A Repository carries extra
// environment (see [AuthEnvironment]) that is appended to every git
// invocation, so tokens travel through GIT_CONFIG_* variables.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Repository represents a git working tree at a specific directory. All
// operations target this directory via "git -C <dir>". There is no
// default directory; callers always name the repository they mean.
type Repository struct {
	dir string
	env []string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// WithEnvironment returns a copy of the Repository whose git
// invocations additionally receive the given KEY=VALUE variables.
func (r *Repository) WithEnvironment(variables ...string) *Repository {
	env := make([]string, 0, len(r.env)+len(variables))
	env = append(env, r.env...)
	env = append(env, variables...)
	return &Repository{dir: r.dir, env: env}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// CommandError is returned when a git command exits unsuccessfully.
// Stderr holds git's diagnostic output, which callers inspect to
// classify failures (for example a rejected push).
type CommandError struct {
	Args   []string
	Dir    string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s in %s: %v (stderr: %s)",
		strings.Join(e.Args, " "), e.Dir, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// StderrOf returns the captured stderr of a failed git command, or ""
// if err is not a *CommandError.
func StderrOf(err error) string {
	var commandError *CommandError
	if errors.As(err, &commandError) {
		return commandError.Stderr
	}
	return ""
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	return r.RunInput(ctx, nil, args...)
}

// RunInput is like Run but feeds stdin to the command. Used with
// --pathspec-from-file=- so that path lists never hit argv limits.
func (r *Repository) RunInput(ctx context.Context, stdin io.Reader, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	command := r.Command(ctx, args...)
	command.Stdin = stdin
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", &CommandError{
			Args:   args,
			Dir:    r.dir,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// Command returns an *exec.Cmd for a git command without running it.
// The caller gets full control over Stdin, Stdout and Stderr before
// starting the process. The -C flag targeting this repository is
// automatically prepended, and the repository environment is applied.
func (r *Repository) Command(ctx context.Context, args ...string) *exec.Cmd {
	fullArgs := append([]string{"-C", r.dir}, args...)
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Env = commandEnvironment(r.env)
	return command
}

// HeadSHA returns the full commit SHA that HEAD points to.
func (r *Repository) HeadSHA(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "--verify", "HEAD^{commit}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// Clone clones a single branch of url into dir and checks out sha in
// detached HEAD state. The resulting Repository carries env for all
// later operations (push credentials in particular).
//
// Checking out the pushed SHA rather than the branch tip pins the run
// to the triggering commit: if the branch advanced in the meantime the
// commit-back push is rejected instead of silently formatting someone
// else's push.
func Clone(ctx context.Context, url, branch, sha, dir string, env ...string) (*Repository, error) {
	args := []string{"clone", "--quiet", "--no-tags", "--single-branch", "--branch", branch, url, dir}
	var stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", args...)
	command.Env = commandEnvironment(env)
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return nil, &CommandError{
			Args:   []string{"clone", "--branch", branch, url},
			Dir:    dir,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	repository := NewRepository(dir).WithEnvironment(env...)
	if sha != "" {
		if _, err := repository.Run(ctx, "checkout", "--quiet", "--detach", sha); err != nil {
			return nil, fmt.Errorf("checking out %s: %w", sha, err)
		}
	}
	return repository, nil
}

// BranchFromRef returns the branch name of a fully qualified branch ref
// ("refs/heads/main" -> "main"). ok is false for tags and other refs.
func BranchFromRef(ref string) (branch string, ok bool) {
	branch, ok = strings.CutPrefix(ref, "refs/heads/")
	if !ok || branch == "" {
		return "", false
	}
	return branch, true
}

// commandEnvironment builds the environment for a git child process:
// the fmtbot environment, terminal prompts disabled (a missing
// credential must fail, not hang), plus the extra variables.
func commandEnvironment(extra []string) []string {
	env := os.Environ()
	env = append(env, "GIT_TERMINAL_PROMPT=0")
	return append(env, extra...)
}
