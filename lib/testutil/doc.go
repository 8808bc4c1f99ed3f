// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for fmtbot packages.
//
// [NewGitFixture] builds a bare "remote" repository and a working clone
// with an initial commit on main, which is what the change detector,
// the publisher and the end-to-end CLI tests all need. Helpers skip the
// test when git is not installed.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no fmtbot-internal dependencies.
package testutil
