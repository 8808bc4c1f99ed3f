// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint helpers for fmtbot.
// It centralizes the raw I/O that happens outside the structured
// logger: fatal error reporting from main() before a logger exists,
// and the process exit that follows.
package process
