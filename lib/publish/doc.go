// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package publish commits a formatting pass back to the branch that
// triggered it.
//
// Two publishers share the [Publisher] interface:
//
//   - [GitPublisher] stages exactly the paths of the ChangeSet in the
//     local checkout, commits them under the configured identity and
//     pushes HEAD to the branch without force.
//   - [APIPublisher] builds the same commit remotely through the GitHub
//     REST API (blobs, tree, commit, non-forced ref update) from the
//     working-tree files, for hosts where the checkout cannot push.
//
// Either way the branch only moves if it still points at the commit
// the run checked out. A remote that advanced in the meantime yields
// *PublishError with ReasonRejected; nothing is retried or forced.
package publish
