// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resultlog

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/fmtbot/lib/changeset"
	"github.com/bureau-foundation/fmtbot/lib/clock"
	"github.com/bureau-foundation/fmtbot/lib/git"
	"github.com/bureau-foundation/fmtbot/lib/pipeline"
	"github.com/bureau-foundation/fmtbot/lib/publish"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var epoch = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

func publishedRun() *pipeline.Run {
	changes := changeset.New(changeset.Change{Path: "src/lib.rs", Kind: changeset.Modified})
	return &pipeline.Run{
		ID:        "run-published",
		Trigger:   pipeline.Trigger{Ref: "refs/heads/main", SHA: "abc", Repository: "acme/widgets"},
		State:     pipeline.Succeeded,
		Output:    "Diff in src/lib.rs\n",
		ChangeSet: changes,
		Commit: &publish.CommitRecord{
			SHA:     "def",
			Parent:  "abc",
			Message: "style: apply cargo fmt",
			Author:  git.Identity{Name: "fmtbot", Email: "fmtbot@example.com"},
			Branch:  "main",
			Paths:   changes.Paths(),
			Digest:  changes.Digest(),
		},
		StartedAt:  epoch,
		FinishedAt: epoch.Add(1500 * time.Millisecond),
	}
}

func failedRun() *pipeline.Run {
	return &pipeline.Run{
		ID:          "run-failed",
		Trigger:     pipeline.Trigger{Ref: "refs/heads/main", SHA: "abc"},
		State:       pipeline.Failed,
		FailedState: pipeline.Executing,
		Err:         errors.New("exit status 1"),
		ExitCode:    1,
		StartedAt:   epoch,
		FinishedAt:  epoch.Add(time.Second),
	}
}

func record(t *testing.T, path string) []map[string]any {
	t.Helper()
	log, err := Open(path, clock.Fake(epoch), discardLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	published := publishedRun()
	log.RunStarted(published)
	log.Transitioned(published, pipeline.Idle, pipeline.Provisioning)
	log.RunFinished(published)

	failed := failedRun()
	log.RunStarted(failed)
	log.RunFinished(failed)

	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return entries
}

func TestLogEntries(t *testing.T) {
	for _, name := range []string{"results.jsonl", "results.cbor"} {
		t.Run(name, func(t *testing.T) {
			entries := record(t, filepath.Join(t.TempDir(), name))
			if len(entries) != 5 {
				t.Fatalf("got %d entries, want 5: %v", len(entries), entries)
			}

			wantTypes := []string{TypeStart, TypeTransition, TypeComplete, TypeStart, TypeFailed}
			for i, want := range wantTypes {
				if entries[i]["type"] != want {
					t.Errorf("entry %d type = %v, want %s", i, entries[i]["type"], want)
				}
			}

			if entries[0]["repository"] != "acme/widgets" || entries[0]["run_id"] != "run-published" {
				t.Errorf("start entry = %v", entries[0])
			}
			if entries[1]["from"] != "idle" || entries[1]["to"] != "provisioning" {
				t.Errorf("transition entry = %v", entries[1])
			}

			commit, ok := entries[2]["commit"].(map[string]any)
			if !ok || commit["sha"] != "def" || commit["branch"] != "main" {
				t.Errorf("complete entry commit = %v", entries[2]["commit"])
			}
			if entries[2]["digest"] == "" {
				t.Error("complete entry has no digest")
			}

			if entries[4]["failed_state"] != "executing" || entries[4]["error"] != "exit status 1" {
				t.Errorf("failed entry = %v", entries[4])
			}
		})
	}
}

func TestLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	record(t, path)
	entries := record(t, path)
	if len(entries) != 10 {
		t.Errorf("got %d entries after two sessions, want 10", len(entries))
	}
}

func TestLogCompleteWithoutCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	log, err := Open(path, nil, discardLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	run := &pipeline.Run{ID: "run-clean", State: pipeline.Succeeded, StartedAt: epoch, FinishedAt: epoch}
	log.RunFinished(run)
	log.Close()

	entries, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, present := entries[0]["commit"]; present {
		t.Errorf("clean run recorded a commit: %v", entries[0])
	}
}

func TestNilLog(t *testing.T) {
	var log *Log
	run := publishedRun()
	log.RunStarted(run)
	log.Transitioned(run, pipeline.Idle, pipeline.Provisioning)
	log.RunFinished(run)
	if err := log.Close(); err != nil {
		t.Errorf("Close on nil log = %v", err)
	}
}

func TestOpenError(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing", "results.jsonl"), nil, discardLogger()); err == nil {
		t.Error("expected error opening a log in a missing directory")
	}
}

func TestArchive(t *testing.T) {
	archive := NewArchive(t.TempDir(), discardLogger())
	run := publishedRun()

	archive.RunFinished(run)

	output, err := ReadOutput(archive.Path(run.ID))
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	if string(output) != run.Output {
		t.Errorf("output = %q, want %q", output, run.Output)
	}
	if filepath.Base(archive.Path(run.ID)) != OutputFile {
		t.Errorf("Path = %s", archive.Path(run.ID))
	}
}

func TestArchiveSkipsEmptyOutput(t *testing.T) {
	archive := NewArchive(t.TempDir(), discardLogger())
	archive.RunFinished(failedRun())
	if _, err := os.Stat(archive.Path("run-failed")); !os.IsNotExist(err) {
		t.Errorf("archive written for a run without output: %v", err)
	}
}

func TestReadOutputCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), OutputFile)
	if err := os.WriteFile(path, []byte("not zstd"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadOutput(path); err == nil {
		t.Error("expected error decompressing garbage")
	}
}
