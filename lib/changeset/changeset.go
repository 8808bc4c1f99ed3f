// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeset

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"
)

// Kind classifies a file-level difference.
type Kind string

const (
	Added    Kind = "added"
	Modified Kind = "modified"
	Deleted  Kind = "deleted"
)

// Change is a single file-level difference between the working tree
// and HEAD. Path is relative to the repository root, slash-separated.
type Change struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
}

// ChangeSet is the sorted, duplicate-free set of changes produced by
// one formatting pass. The zero value is an empty ChangeSet.
type ChangeSet []Change

// New returns a ChangeSet containing changes sorted by path. If the
// same path appears more than once the last entry wins.
func New(changes ...Change) ChangeSet {
	byPath := make(map[string]Kind, len(changes))
	for _, change := range changes {
		byPath[change.Path] = change.Kind
	}
	result := make(ChangeSet, 0, len(byPath))
	for path, kind := range byPath {
		result = append(result, Change{Path: path, Kind: kind})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result
}

// Empty reports whether the ChangeSet has no entries.
func (set ChangeSet) Empty() bool {
	return len(set) == 0
}

// Paths returns the changed paths in sorted order.
func (set ChangeSet) Paths() []string {
	paths := make([]string, len(set))
	for i, change := range set {
		paths[i] = change.Path
	}
	return paths
}

// Count returns the number of entries of each kind.
func (set ChangeSet) Count() map[Kind]int {
	counts := make(map[Kind]int, 3)
	for _, change := range set {
		counts[change.Kind]++
	}
	return counts
}

// Equal reports whether two ChangeSets contain the same entries.
func (set ChangeSet) Equal(other ChangeSet) bool {
	if len(set) != len(other) {
		return false
	}
	for i := range set {
		if set[i] != other[i] {
			return false
		}
	}
	return true
}

// Digest returns a hex BLAKE3 hash over the sorted entries. Two runs
// that produce the same changes produce the same digest, which makes
// repeated identical formatting passes easy to spot in result logs.
// The digest of an empty ChangeSet is the hash of no input.
func (set ChangeSet) Digest() string {
	hasher := blake3.New()
	for _, change := range set {
		// NUL cannot appear in a git path, so it delimits unambiguously.
		fmt.Fprintf(hasher, "%s\x00%s\x00", change.Kind, change.Path)
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// String summarizes the ChangeSet for log lines, e.g. "3 files (2
// modified, 1 added)".
func (set ChangeSet) String() string {
	if set.Empty() {
		return "no changes"
	}
	counts := set.Count()
	noun := "files"
	if len(set) == 1 {
		noun = "file"
	}
	summary := fmt.Sprintf("%d %s (", len(set), noun)
	first := true
	for _, kind := range []Kind{Modified, Added, Deleted} {
		if counts[kind] == 0 {
			continue
		}
		if !first {
			summary += ", "
		}
		summary += fmt.Sprintf("%d %s", counts[kind], kind)
		first = false
	}
	return summary + ")"
}
