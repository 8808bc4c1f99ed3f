// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"strings"
	"testing"
)

func TestInfo_Dirty(t *testing.T) {
	originalCommit, originalDirty := GitCommit, GitDirty
	t.Cleanup(func() { GitCommit, GitDirty = originalCommit, originalDirty })

	GitCommit = "abc1234"
	GitDirty = "true"
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("Info() = %q, want to contain %q", got, "abc1234-dirty")
	}

	GitDirty = "false"
	if got := Info(); strings.Contains(got, "-dirty") {
		t.Errorf("Info() = %q, want no -dirty suffix", got)
	}
}

func TestFprint(t *testing.T) {
	var buffer bytes.Buffer
	Fprint(&buffer, "fmtbot")
	output := buffer.String()
	if !strings.HasPrefix(output, "fmtbot "+Version) {
		t.Errorf("Fprint output = %q, want prefix %q", output, "fmtbot "+Version)
	}
	if !strings.Contains(output, "Platform:") {
		t.Errorf("Fprint output = %q, want platform line", output)
	}
}
