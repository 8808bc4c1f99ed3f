// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resultlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/fmtbot/lib/clock"
	"github.com/bureau-foundation/fmtbot/lib/codec"
	"github.com/bureau-foundation/fmtbot/lib/pipeline"
	"github.com/bureau-foundation/fmtbot/lib/publish"
)

// CBORExtension selects the CBOR sequence format.
const CBORExtension = ".cbor"

// Entry types.
const (
	TypeStart      = "start"
	TypeTransition = "transition"
	TypeComplete   = "complete"
	TypeFailed     = "failed"
)

type encoder interface {
	Encode(v any) error
}

// Log appends run entries to a file. Safe for concurrent runs. A nil
// *Log is a valid no-op observer.
type Log struct {
	logger *slog.Logger
	clock  clock.Clock

	mu      sync.Mutex
	file    *os.File
	encoder encoder
}

var _ pipeline.Observer = (*Log)(nil)

// Open opens (creating or appending to) the log at path.
func Open(path string, clk clock.Clock, logger *slog.Logger) (*Log, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening result log %s: %w", path, err)
	}
	if clk == nil {
		clk = clock.Real()
	}
	log := &Log{logger: logger, clock: clk, file: file}
	if strings.HasSuffix(path, CBORExtension) {
		log.encoder = codec.NewEncoder(file)
	} else {
		log.encoder = json.NewEncoder(file)
	}
	return log, nil
}

// Close closes the file.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func (l *Log) RunStarted(run *pipeline.Run) {
	if l == nil {
		return
	}
	l.write(StartEntry{
		Type:       TypeStart,
		RunID:      run.ID,
		Ref:        run.Trigger.Ref,
		SHA:        run.Trigger.SHA,
		Repository: run.Trigger.Repository,
		Timestamp:  run.StartedAt.UTC(),
	})
}

func (l *Log) Transitioned(run *pipeline.Run, from, to pipeline.State) {
	if l == nil {
		return
	}
	l.write(TransitionEntry{
		Type:      TypeTransition,
		RunID:     run.ID,
		From:      from,
		To:        to,
		Timestamp: l.clock.Now().UTC(),
	})
}

func (l *Log) RunFinished(run *pipeline.Run) {
	if l == nil {
		return
	}
	if run.Succeeded() {
		l.write(CompleteEntry{
			Type:       TypeComplete,
			RunID:      run.ID,
			Changed:    run.ChangeSet.Paths(),
			Digest:     run.ChangeSet.Digest(),
			Commit:     run.Commit,
			DurationMS: run.Duration().Milliseconds(),
		})
		return
	}
	entry := FailedEntry{
		Type:        TypeFailed,
		RunID:       run.ID,
		FailedState: run.FailedState,
		ExitCode:    run.ExitCode,
		DurationMS:  run.Duration().Milliseconds(),
	}
	if run.Err != nil {
		entry.Error = run.Err.Error()
	}
	l.write(entry)
}

func (l *Log) write(entry any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.encoder.Encode(entry); err != nil {
		l.logger.Warn("failed to write result log entry", "error", err)
		return
	}
	// Each entry is synced so it survives a crash and is visible to a
	// reader tailing the file.
	if err := l.file.Sync(); err != nil {
		l.logger.Warn("failed to sync result log", "error", err)
	}
}

// StartEntry is written when a run begins.
type StartEntry struct {
	Type       string    `json:"type"`
	RunID      string    `json:"run_id"`
	Ref        string    `json:"ref"`
	SHA        string    `json:"sha"`
	Repository string    `json:"repository,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TransitionEntry is written on every state change.
type TransitionEntry struct {
	Type      string         `json:"type"`
	RunID     string         `json:"run_id"`
	From      pipeline.State `json:"from"`
	To        pipeline.State `json:"to"`
	Timestamp time.Time      `json:"timestamp"`
}

// CompleteEntry is the last entry of a run that succeeded. Commit is
// absent when the formatter changed nothing.
type CompleteEntry struct {
	Type       string                `json:"type"`
	RunID      string                `json:"run_id"`
	Changed    []string              `json:"changed,omitempty"`
	Digest     string                `json:"digest"`
	Commit     *publish.CommitRecord `json:"commit,omitempty"`
	DurationMS int64                 `json:"duration_ms"`
}

// FailedEntry is the last entry of a run that failed.
type FailedEntry struct {
	Type        string         `json:"type"`
	RunID       string         `json:"run_id"`
	FailedState pipeline.State `json:"failed_state"`
	Error       string         `json:"error"`
	ExitCode    int            `json:"exit_code"`
	DurationMS  int64          `json:"duration_ms"`
}

// Read returns every entry in the log at path as generic maps, in
// file order. The format follows the path's extension.
func Read(path string) ([]map[string]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening result log: %w", err)
	}
	defer file.Close()

	var decode func(v any) error
	if strings.HasSuffix(path, CBORExtension) {
		decode = codec.NewDecoder(file).Decode
	} else {
		decode = json.NewDecoder(file).Decode
	}

	var entries []map[string]any
	for {
		var entry map[string]any
		if err := decode(&entry); err != nil {
			if errors.Is(err, io.EOF) {
				return entries, nil
			}
			return entries, fmt.Errorf("reading result log entry %d: %w", len(entries), err)
		}
		entries = append(entries, entry)
	}
}
