// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// GitFixture is a bare remote repository plus a working clone of it.
// The clone has an initial commit on main that has been pushed.
type GitFixture struct {
	// RemoteDir is the bare repository that plays the role of the
	// hosting forge.
	RemoteDir string

	// WorkDir is a working clone with main checked out.
	WorkDir string

	// InitialSHA is the commit created by NewGitFixture.
	InitialSHA string
}

// gitTestEnvironment pins identity and disables system/global config so
// fixtures behave the same on every machine.
var gitTestEnvironment = []string{
	"GIT_AUTHOR_NAME=Test",
	"GIT_AUTHOR_EMAIL=test@test.local",
	"GIT_COMMITTER_NAME=Test",
	"GIT_COMMITTER_EMAIL=test@test.local",
	"GIT_CONFIG_NOSYSTEM=1",
	"GIT_CONFIG_GLOBAL=/dev/null",
}

// RequireGit skips the test when git is not on PATH.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git not available: %v", err)
	}
}

// NewGitFixture creates a bare remote and a working clone in a temp
// directory. files are written and committed as the initial commit
// (a README is added when files is empty).
func NewGitFixture(t *testing.T, files map[string]string) *GitFixture {
	t.Helper()
	RequireGit(t)

	dir := t.TempDir()
	fixture := &GitFixture{
		RemoteDir: filepath.Join(dir, "remote.git"),
		WorkDir:   filepath.Join(dir, "work"),
	}

	Git(t, dir, "init", "--quiet", "--bare", fixture.RemoteDir)
	Git(t, fixture.RemoteDir, "symbolic-ref", "HEAD", "refs/heads/main")
	Git(t, dir, "init", "--quiet", fixture.WorkDir)
	Git(t, fixture.WorkDir, "symbolic-ref", "HEAD", "refs/heads/main")
	Git(t, fixture.WorkDir, "remote", "add", "origin", fixture.RemoteDir)

	if len(files) == 0 {
		files = map[string]string{"README": "test\n"}
	}
	WriteFiles(t, fixture.WorkDir, files)
	Git(t, fixture.WorkDir, "add", "--all")
	Git(t, fixture.WorkDir, "commit", "--quiet", "-m", "initial")
	Git(t, fixture.WorkDir, "push", "--quiet", "origin", "main")

	fixture.InitialSHA = fixture.Head(t)
	return fixture
}

// Head returns the SHA of HEAD in the working clone.
func (fixture *GitFixture) Head(t *testing.T) string {
	t.Helper()
	return strings.TrimSpace(Git(t, fixture.WorkDir, "rev-parse", "HEAD"))
}

// RemoteHead returns the SHA that branch points to in the remote.
func (fixture *GitFixture) RemoteHead(t *testing.T, branch string) string {
	t.Helper()
	return strings.TrimSpace(Git(t, fixture.RemoteDir, "rev-parse", "refs/heads/"+branch))
}

// PushFromSecondClone simulates another contributor: it clones the
// remote, commits files on branch and pushes. Used to make the remote
// advance between checkout and publish.
func (fixture *GitFixture) PushFromSecondClone(t *testing.T, branch string, files map[string]string) string {
	t.Helper()
	otherDir := filepath.Join(t.TempDir(), "other")
	Git(t, filepath.Dir(otherDir), "clone", "--quiet", "--branch", branch, fixture.RemoteDir, otherDir)
	WriteFiles(t, otherDir, files)
	Git(t, otherDir, "add", "--all")
	Git(t, otherDir, "commit", "--quiet", "-m", "concurrent change")
	Git(t, otherDir, "push", "--quiet", "origin", branch)
	return strings.TrimSpace(Git(t, otherDir, "rev-parse", "HEAD"))
}

// Git runs git -C dir args with a pinned test identity and returns the
// combined output. Fails the test on error.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	command := exec.Command("git", append([]string{"-C", dir}, args...)...)
	command.Env = append(os.Environ(), gitTestEnvironment...)
	output, err := command.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, output)
	}
	return string(output)
}

// WriteFiles writes each path -> content pair under dir, creating
// parent directories.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", path, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
}
