// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/fmtbot/lib/changeset"
	"github.com/bureau-foundation/fmtbot/lib/pipeline"
	"github.com/bureau-foundation/fmtbot/lib/publish"
)

var (
	succeededStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failedStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(11)
	pathStyle      = lipgloss.NewStyle().PaddingLeft(2)
)

// runReport is the --json form of a finished run.
type runReport struct {
	RunID       string                `json:"run_id"`
	State       pipeline.State        `json:"state"`
	FailedState pipeline.State        `json:"failed_state,omitempty"`
	Error       string                `json:"error,omitempty"`
	Ref         string                `json:"ref"`
	SHA         string                `json:"sha"`
	Toolchain   string                `json:"toolchain,omitempty"`
	ExitCode    int                   `json:"exit_code"`
	Changes     []changeset.Change    `json:"changes"`
	Commit      *publish.CommitRecord `json:"commit,omitempty"`
	DurationMS  int64                 `json:"duration_ms"`
}

func newRunReport(run *pipeline.Run) runReport {
	report := runReport{
		RunID:       run.ID,
		State:       run.State,
		FailedState: run.FailedState,
		Ref:         run.Trigger.Ref,
		SHA:         run.Trigger.SHA,
		Toolchain:   run.Toolchain,
		ExitCode:    run.ExitCode,
		Changes:     []changeset.Change(run.ChangeSet),
		Commit:      run.Commit,
		DurationMS:  run.Duration().Milliseconds(),
	}
	if report.Changes == nil {
		report.Changes = []changeset.Change{}
	}
	if run.Err != nil {
		report.Error = run.Err.Error()
	}
	return report
}

// renderSummary formats a finished run for a terminal.
func renderSummary(run *pipeline.Run) string {
	var builder strings.Builder
	line := func(label, value string) {
		fmt.Fprintf(&builder, "%s %s\n", labelStyle.Render(label), value)
	}

	if run.Succeeded() {
		builder.WriteString(succeededStyle.Render("fmtbot: succeeded") + "\n")
	} else {
		builder.WriteString(failedStyle.Render(fmt.Sprintf("fmtbot: failed while %s", run.FailedState)) + "\n")
	}

	line("run", run.ID)
	line("ref", run.Trigger.Ref+" @ "+shortSHA(run.Trigger.SHA))
	if run.Toolchain != "" {
		line("toolchain", run.Toolchain)
	}
	line("duration", run.Duration().Round(time.Millisecond).String())

	switch {
	case run.Err != nil:
		line("error", run.Err.Error())
		if run.FailedState == pipeline.Executing && run.Output != "" {
			builder.WriteString("\n" + strings.TrimRight(run.Output, "\n") + "\n")
		}
	case run.Commit != nil:
		line("changes", run.ChangeSet.String())
		for _, path := range run.Commit.Paths {
			builder.WriteString(pathStyle.Render(path) + "\n")
		}
		line("commit", shortSHA(run.Commit.SHA)+" on "+run.Commit.Branch)
	default:
		line("changes", "none, tree already formatted")
	}
	return builder.String()
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
