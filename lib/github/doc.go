// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package github provides the slice of the GitHub REST API that fmtbot
// needs to commit without a local push: reading a commit, uploading
// blobs, creating a tree and a commit on top of it, and moving a
// branch ref forward.
//
// The client authenticates with a token (installation or fine-grained
// personal access token), pins the API version, retries once on a rate
// limit response that carries a short Retry-After, and maps non-2xx
// responses to *APIError.
//
// All requests are made over HTTPS. The client refuses non-HTTPS base URLs.
package github
