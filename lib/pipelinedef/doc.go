// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipelinedef parses and validates fmtbot job definitions.
//
// A job definition names the toolchain to provision, the formatting
// command to run, the commit to create and how to publish it. It is
// authored on disk as JSONC (JSON extended with comments and trailing
// commas):
//
//	{
//	  // Nightly rustfmt for unstable options in rustfmt.toml.
//	  "toolchain": {"provider": "rustup", "channel": "nightly", "components": ["rustfmt"]},
//	  "command": ["cargo", "fmt", "--all"],
//	  "commit": {
//	    "message": "style: cargo fmt on ${BRANCH}",
//	    "author": {"name": "fmtbot", "email": "fmtbot@example.com"},
//	  },
//	  "publish": {"mode": "git"},
//	}
//
// The typical flow:
//
//  1. ReadFile or Parse: JSONC bytes → Definition, defaults applied
//  2. Validate: structural checks, returned as a list of issues
//  3. Expand: substitute ${NAME} references in the commit message and
//     command arguments once the trigger is known
package pipelinedef
