// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// fmtbot formats a repository on every push and commits the result
// back to the pushed branch.
//
// Subcommands:
//
//   - run: one pipeline run against an existing checkout, for CI jobs
//     triggered by a push (reads GITHUB_REF/GITHUB_SHA when --ref and
//     --sha are not given).
//   - serve: GitHub push webhook server. Each accepted push is cloned
//     into its own workspace, run and cleaned up; runs for different
//     pushes proceed concurrently.
//   - validate: parse and check job definition files.
//   - seal: age-encrypt a token from stdin for use as a token_file.
//   - version: print build information.
//
// Exit status is 0 when every requested run succeeded, 1 when a run
// failed or a definition is invalid, and 1 with an "error:" line for
// usage and setup errors.
package main
