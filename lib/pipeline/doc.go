// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline drives one formatting run from trigger to terminal
// state.
//
// A run moves strictly forward through
//
//	Idle → Provisioning → Executing → Detecting → Publishing → Succeeded
//
// with two exits: Detecting goes straight to Succeeded when the
// formatter changed nothing, and any failure goes to Failed, recording
// the state it failed in and skipping every later step. No step runs
// twice and no two steps overlap. The only state that outlives a run is
// what Publishing pushed to the remote branch.
//
// [Runner] composes the components through small interfaces so each
// can be replaced: a toolchain.Provisioner, an [Executor], a
// [Detector] and a publish.Publisher. [Observer]s see every
// transition; the result log is one.
package pipeline
