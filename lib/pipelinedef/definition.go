// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipelinedef

import (
	"github.com/bureau-foundation/fmtbot/lib/git"
	"github.com/bureau-foundation/fmtbot/lib/toolchain"
)

// Publish modes.
const (
	PublishGit = "git"
	PublishAPI = "api"
)

// Definition is one fmtbot job.
type Definition struct {
	Description string `json:"description,omitempty"`

	Toolchain toolchain.Spec `json:"toolchain"`

	// Command is the formatter argv. The first element is resolved
	// against the provisioned toolchain's PATH.
	Command []string `json:"command"`

	// GracePeriod is how long a cancelled formatter gets between
	// SIGTERM and SIGKILL (Go duration syntax). Empty kills
	// immediately.
	GracePeriod string `json:"grace_period,omitempty"`

	Commit  CommitSpec  `json:"commit"`
	Publish PublishSpec `json:"publish"`
}

// CommitSpec is the commit created when formatting changed the tree.
type CommitSpec struct {
	// Message may reference ${BRANCH}, ${SHA}, ${SHORT_SHA},
	// ${RUN_ID} and ${REPOSITORY}.
	Message string       `json:"message"`
	Author  git.Identity `json:"author"`
}

// PublishSpec selects the publisher.
type PublishSpec struct {
	// Mode is "git" (commit and push from the checkout) or "api"
	// (create the commit through the GitHub REST API).
	Mode string `json:"mode"`
}

// Defaults used for fields a definition leaves empty.
var (
	DefaultCommand = []string{"cargo", "fmt", "--all"}
	DefaultMessage = "style: apply cargo fmt"
	DefaultAuthor  = git.Identity{Name: "fmtbot", Email: "fmtbot@users.noreply.github.com"}
)

// Default returns the definition used when no job file is given: the
// stable rustup toolchain with rustfmt, `cargo fmt --all`, git publish.
func Default() *Definition {
	definition := &Definition{
		Toolchain: toolchain.Spec{
			Provider:   toolchain.ProviderRustup,
			Channel:    "stable",
			Components: []string{"rustfmt"},
		},
	}
	definition.applyDefaults()
	return definition
}

// applyDefaults fills empty command, commit and publish fields. The
// toolchain has no default once a definition is written: a file that
// omits it is a validation error, not silently rustup stable.
func (definition *Definition) applyDefaults() {
	if len(definition.Command) == 0 {
		definition.Command = append([]string(nil), DefaultCommand...)
	}
	if definition.Commit.Message == "" {
		definition.Commit.Message = DefaultMessage
	}
	if definition.Commit.Author == (git.Identity{}) {
		definition.Commit.Author = DefaultAuthor
	}
	if definition.Publish.Mode == "" {
		definition.Publish.Mode = PublishGit
	}
}
