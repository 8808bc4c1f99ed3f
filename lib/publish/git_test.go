// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/fmtbot/lib/changeset"
	"github.com/bureau-foundation/fmtbot/lib/git"
	"github.com/bureau-foundation/fmtbot/lib/testutil"
)

var testAuthor = git.Identity{Name: "fmtbot", Email: "fmtbot@example.com"}

// formatFixture creates a repository and applies a "formatting pass"
// to its working tree: one modification, one addition, one deletion
// and one awkward path name.
func formatFixture(t *testing.T) (*testutil.GitFixture, changeset.ChangeSet) {
	t.Helper()
	fixture := testutil.NewGitFixture(t, map[string]string{
		"src/lib.rs":      "fn  main(){}\n",
		"src/old.rs":      "// obsolete\n",
		"docs/a b [x].md": "untidy  \n",
		"README":          "readme\n",
	})
	testutil.WriteFiles(t, fixture.WorkDir, map[string]string{
		"src/lib.rs":      "fn main() {}\n",
		"src/new.rs":      "pub mod new;\n",
		"docs/a b [x].md": "untidy\n",
	})
	if err := os.Remove(filepath.Join(fixture.WorkDir, "src/old.rs")); err != nil {
		t.Fatal(err)
	}

	set, err := changeset.NewDetector(git.NewRepository(fixture.WorkDir)).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(set) != 4 {
		t.Fatalf("fixture produced %d changes, want 4: %v", len(set), set)
	}
	return fixture, set
}

func requestFor(fixture *testutil.GitFixture, set changeset.ChangeSet) Request {
	return Request{
		ChangeSet: set,
		Message:   "style: cargo fmt",
		Author:    testAuthor,
		Branch:    "main",
		BaseSHA:   fixture.InitialSHA,
	}
}

func TestGitPublisher_Publish(t *testing.T) {
	t.Parallel()
	fixture, set := formatFixture(t)

	publisher := NewGitPublisher(git.NewRepository(fixture.WorkDir), nil)
	record, err := publisher.Publish(context.Background(), requestFor(fixture, set))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if remote := fixture.RemoteHead(t, "main"); remote != record.SHA {
		t.Errorf("remote main = %s, want published commit %s", remote, record.SHA)
	}
	if record.Parent != fixture.InitialSHA {
		t.Errorf("Parent = %s, want %s", record.Parent, fixture.InitialSHA)
	}
	if strings.Join(record.Paths, ",") != strings.Join(set.Paths(), ",") {
		t.Errorf("Paths = %q, want %q", record.Paths, set.Paths())
	}
	if record.Digest != set.Digest() {
		t.Errorf("Digest = %s, want %s", record.Digest, set.Digest())
	}

	log := strings.TrimSpace(testutil.Git(t, fixture.RemoteDir, "log", "-1", "--format=%an <%ae>|%cn <%ce>|%P|%s", "main"))
	want := "fmtbot <fmtbot@example.com>|fmtbot <fmtbot@example.com>|" + fixture.InitialSHA + "|style: cargo fmt"
	if log != want {
		t.Errorf("remote commit = %q, want %q", log, want)
	}

	files := strings.TrimSpace(testutil.Git(t, fixture.RemoteDir, "ls-tree", "-r", "--name-only", "main"))
	if files != "README\ndocs/a b [x].md\nsrc/lib.rs\nsrc/new.rs" {
		t.Errorf("remote tree = %q", files)
	}

	// Nothing left over: re-detecting finds a clean tree.
	again, err := changeset.NewDetector(git.NewRepository(fixture.WorkDir)).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect after publish: %v", err)
	}
	if !again.Empty() {
		t.Errorf("working tree not clean after publish: %v", again)
	}
}

func TestGitPublisher_OnlyStagesChangeSet(t *testing.T) {
	t.Parallel()
	fixture, set := formatFixture(t)

	// A file the formatter did not produce (not in the ChangeSet).
	testutil.WriteFiles(t, fixture.WorkDir, map[string]string{"scratch.txt": "local\n"})

	publisher := NewGitPublisher(git.NewRepository(fixture.WorkDir), nil)
	if _, err := publisher.Publish(context.Background(), requestFor(fixture, set)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	files := testutil.Git(t, fixture.RemoteDir, "ls-tree", "-r", "--name-only", "main")
	if strings.Contains(files, "scratch.txt") {
		t.Error("file outside the ChangeSet was committed")
	}
}

func TestGitPublisher_Rejected(t *testing.T) {
	t.Parallel()
	fixture, set := formatFixture(t)

	// Someone pushes after our checkout.
	concurrent := fixture.PushFromSecondClone(t, "main", map[string]string{"CHANGELOG": "new\n"})

	publisher := NewGitPublisher(git.NewRepository(fixture.WorkDir), nil)
	record, err := publisher.Publish(context.Background(), requestFor(fixture, set))
	if record != nil {
		t.Errorf("record = %+v, want nil on rejection", record)
	}
	var publishErr *PublishError
	if !errors.As(err, &publishErr) {
		t.Fatalf("error = %v, want *PublishError", err)
	}
	if publishErr.Reason != ReasonRejected {
		t.Errorf("Reason = %s, want %s (err: %v)", publishErr.Reason, ReasonRejected, err)
	}
	if remote := fixture.RemoteHead(t, "main"); remote != concurrent {
		t.Errorf("remote main = %s, want the concurrent push %s untouched", remote, concurrent)
	}
}

func TestGitPublisher_EmptyChangeSet(t *testing.T) {
	t.Parallel()
	fixture := testutil.NewGitFixture(t, nil)

	publisher := NewGitPublisher(git.NewRepository(fixture.WorkDir), nil)
	_, err := publisher.Publish(context.Background(), requestFor(fixture, nil))
	var publishErr *PublishError
	if !errors.As(err, &publishErr) || publishErr.Reason != ReasonStaging {
		t.Fatalf("error = %v, want staging PublishError", err)
	}
	if !errors.Is(err, ErrEmptyChangeSet) {
		t.Errorf("error = %v, want ErrEmptyChangeSet", err)
	}
	if remote := fixture.RemoteHead(t, "main"); remote != fixture.InitialSHA {
		t.Errorf("remote moved to %s", remote)
	}
}

func TestGitPublisher_StagedSetMismatch(t *testing.T) {
	t.Parallel()
	fixture := testutil.NewGitFixture(t, nil)

	// README is claimed modified but is unchanged on disk.
	set := changeset.New(changeset.Change{Path: "README", Kind: changeset.Modified})
	publisher := NewGitPublisher(git.NewRepository(fixture.WorkDir), nil)
	_, err := publisher.Publish(context.Background(), requestFor(fixture, set))
	var publishErr *PublishError
	if !errors.As(err, &publishErr) || publishErr.Reason != ReasonStaging {
		t.Fatalf("error = %v, want staging PublishError", err)
	}
	if head := fixture.Head(t); head != fixture.InitialSHA {
		t.Errorf("a commit was created after a staging failure: HEAD %s", head)
	}
}

func TestGitPublisher_HeadMoved(t *testing.T) {
	t.Parallel()
	fixture, set := formatFixture(t)

	request := requestFor(fixture, set)
	request.BaseSHA = strings.Repeat("0", 40)

	publisher := NewGitPublisher(git.NewRepository(fixture.WorkDir), nil)
	_, err := publisher.Publish(context.Background(), request)
	var publishErr *PublishError
	if !errors.As(err, &publishErr) || publishErr.Reason != ReasonCommit {
		t.Fatalf("error = %v, want commit PublishError", err)
	}
}

func TestRequestValidate(t *testing.T) {
	set := changeset.New(changeset.Change{Path: "a.rs", Kind: changeset.Modified})
	valid := Request{ChangeSet: set, Message: "fmt", Author: testAuthor, Branch: "main", BaseSHA: "abc"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	tests := map[string]func(*Request){
		"empty change set": func(r *Request) { r.ChangeSet = nil },
		"blank message":    func(r *Request) { r.Message = "  " },
		"bad identity":     func(r *Request) { r.Author = git.Identity{Name: "x"} },
		"full ref":         func(r *Request) { r.Branch = "refs/heads/main" },
		"no branch":        func(r *Request) { r.Branch = "" },
		"no base":          func(r *Request) { r.BaseSHA = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			request := valid
			mutate(&request)
			if err := request.Validate(); err == nil {
				t.Error("Validate() succeeded")
			}
		})
	}
}

func TestClassifyPush(t *testing.T) {
	tests := []struct {
		stderr string
		want   Reason
	}{
		{" ! [rejected]        HEAD -> main (fetch first)\nerror: failed to push some refs", ReasonRejected},
		{" ! [rejected]        HEAD -> main (non-fast-forward)", ReasonRejected},
		{"remote: Invalid username or password.\nfatal: Authentication failed for 'https://github.com/o/r.git/'", ReasonUnauthorized},
		{"remote: Permission to o/r.git denied to fmtbot.\nfatal: unable to access 'https://github.com/o/r.git/': The requested URL returned error: 403", ReasonUnauthorized},
		{"git@github.com: Permission denied (publickey).", ReasonUnauthorized},
		{"fatal: could not read Username for 'https://github.com': terminal prompts disabled", ReasonUnauthorized},
		{" ! [remote rejected] HEAD -> main (protected branch hook declined)", ReasonPush},
		{"fatal: unable to access 'https://github.com/o/r.git/': Could not resolve host: github.com", ReasonPush},
	}
	for _, test := range tests {
		if got := classifyPush(test.stderr); got != test.want {
			t.Errorf("classifyPush(%q) = %s, want %s", test.stderr, got, test.want)
		}
	}
}
