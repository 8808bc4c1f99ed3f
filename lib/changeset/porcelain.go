// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package changeset

import (
	"fmt"
	"strings"
)

// Parse parses `git status --porcelain=v1 -z --no-renames` output into
// a ChangeSet. Each record is "XY <path>" terminated by NUL, where X is
// the index status and Y the working-tree status. Renames and copies
// are rejected because the detector disables rename detection; seeing
// one means the output came from a differently configured command.
//
// A path removed from the index but still on disk appears twice, as
// "D " and "??". HEAD has the file and so does the tree, so the two
// records merge into one Modified change.
func Parse(output string) (ChangeSet, error) {
	var changes []Change
	index := make(map[string]int)
	records := strings.Split(output, "\x00")
	for _, record := range records {
		if record == "" {
			continue
		}
		if len(record) < 4 || record[2] != ' ' {
			return nil, fmt.Errorf("malformed status record %q", record)
		}
		status, path := record[:2], record[3:]

		kind, err := classify(status)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if kind == "" {
			continue
		}
		if previous, seen := index[path]; seen {
			changes[previous].Kind = merge(changes[previous].Kind, kind)
			continue
		}
		index[path] = len(changes)
		changes = append(changes, Change{Path: path, Kind: kind})
	}
	return New(changes...), nil
}

// merge combines two records for one path.
func merge(first, second Kind) Kind {
	if (first == Deleted && second == Added) || (first == Added && second == Deleted) {
		return Modified
	}
	return second
}

// classify maps a two-letter porcelain status to a Kind, relative to
// HEAD. An empty Kind with a nil error means the record is not a
// difference from HEAD and is skipped. The index and the working tree are both compared against HEAD,
// so a file that is deleted in either place counts as deleted, a file
// that HEAD does not know counts as added, and everything else that
// differs counts as modified.
func classify(status string) (Kind, error) {
	index, worktree := status[0], status[1]
	switch {
	case status == "??":
		return Added, nil
	case status == "!!":
		return "", fmt.Errorf("ignored file in status output")
	case index == 'R' || index == 'C' || worktree == 'R' || worktree == 'C':
		return "", fmt.Errorf("unexpected rename/copy status %q", status)
	case index == 'U' || worktree == 'U' || status == "AA" || status == "DD":
		return "", fmt.Errorf("unmerged path (status %q)", status)
	case index == 'A' && worktree == 'D':
		// Added to the index then removed from disk: neither HEAD nor
		// the tree has the file, so it is no difference from HEAD.
		return "", nil
	case index == 'A':
		return Added, nil
	case index == 'D' || worktree == 'D':
		return Deleted, nil
	case strings.ContainsAny(status, "MT"):
		return Modified, nil
	default:
		return "", fmt.Errorf("unrecognized status %q", status)
	}
}
