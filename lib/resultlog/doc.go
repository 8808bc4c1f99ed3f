// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package resultlog records pipeline runs for later inspection.
//
// [Log] is a pipeline.Observer that appends one entry per event to a
// file: "start" when a run begins, "transition" on every state change,
// and a final "complete" or "failed". Each entry is an independent
// record (a JSON line, or a CBOR data item when the path ends in
// ".cbor"), so a killed process leaves every finished entry readable
// and a reader can tail the file for progress.
//
// [Archive] is a pipeline.Observer that stores the formatter output of
// each finished run, zstd-compressed, at <dir>/<run-id>/output.log.zst.
package resultlog
