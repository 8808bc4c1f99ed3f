// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package changeset detects which files a formatting pass changed.
//
// A [ChangeSet] is the set of (path, kind) pairs by which the working
// tree differs from HEAD, the commit that was checked out when the run
// started. Detection is pure inspection: it runs
//
//	git status --porcelain=v1 -z --no-renames --untracked-files=all
//
// and parses the NUL-separated records. Renames are disabled so that a
// moved file shows up as one deletion and one addition, which is what
// the publisher stages. Entries are sorted by path, so detecting twice
// without an intervening mutation yields an identical ChangeSet (and an
// identical [ChangeSet.Digest]).
//
// An empty ChangeSet is a successful result, not an error.
package changeset
