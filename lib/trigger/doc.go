// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package trigger turns push notifications into [pipeline.Trigger]
// values.
//
// Two sources exist. [FromEnvironment] reads the variables a CI runner
// sets (GITHUB_REF, GITHUB_SHA, GITHUB_REPOSITORY, GITHUB_ACTOR) for
// "fmtbot run". [WebhookHandler] accepts GitHub push webhooks for
// "fmtbot serve": it verifies the HMAC-SHA256 signature, drops
// duplicate deliveries, ignores branch deletions and tag pushes, and
// hands every event that passes the [Filter] to a dispatch callback.
// [HTTPServer] runs the handler with graceful shutdown.
package trigger
