// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package execute runs the formatting command of a pipeline run.
//
// A [Command] is executed synchronously in the run's working directory
// with the run's toolchain [toolchain.Environment] applied. Combined
// stdout and stderr are captured into the [Result] and optionally
// streamed to a writer as they are produced. The command runs in its
// own process group; cancelling the context kills the whole group so
// that children spawned by the formatter (rustfmt under cargo fmt) do
// not outlive the run.
//
// A non-zero exit status is reported as *[ExecutionError] together
// with the Result, so callers keep the captured output for reporting.
// A command that cannot be started is an ExecutionError with
// ExitCode -1.
package execute
