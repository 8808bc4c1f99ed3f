// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/fmtbot/lib/changeset"
	"github.com/bureau-foundation/fmtbot/lib/clock"
	"github.com/bureau-foundation/fmtbot/lib/execute"
	"github.com/bureau-foundation/fmtbot/lib/git"
	"github.com/bureau-foundation/fmtbot/lib/github"
	"github.com/bureau-foundation/fmtbot/lib/pipeline"
	"github.com/bureau-foundation/fmtbot/lib/pipelinedef"
	"github.com/bureau-foundation/fmtbot/lib/publish"
	"github.com/bureau-foundation/fmtbot/lib/toolchain"
)

// definitionFile is the job definition looked up in a checkout when no
// --pipeline is given.
const definitionFile = ".fmtbot.jsonc"

// runnerOptions is everything needed to assemble a Runner for one
// checkout.
type runnerOptions struct {
	Definition *pipelinedef.Definition

	// Repository is the checkout, carrying push credentials in its
	// environment when a token is configured.
	Repository *git.Repository

	// FullName, Token and APIBaseURL are used by the api publish
	// mode only.
	FullName   string
	Token      string
	APIBaseURL string

	// Provisioner defaults to toolchain.DefaultRegistry().
	Provisioner toolchain.Provisioner

	// Stream receives formatter output as it is produced. May be nil.
	Stream io.Writer

	Observers []pipeline.Observer
	Clock     clock.Clock
	Logger    *slog.Logger
	NewID     func() string
}

// newRunner wires the production components for options.
func newRunner(options runnerOptions) (*pipeline.Runner, error) {
	publisher, err := newPublisher(options)
	if err != nil {
		return nil, err
	}

	provisioner := options.Provisioner
	if provisioner == nil {
		provisioner = toolchain.DefaultRegistry()
	}

	executor := execute.New(options.Stream)
	executor.GracePeriod = options.Definition.GraceDuration()

	return &pipeline.Runner{
		Definition:  options.Definition,
		WorkDir:     options.Repository.Dir(),
		Provisioner: provisioner,
		Executor:    executor,
		Detector:    changeset.NewDetector(options.Repository),
		Publisher:   publisher,
		Observers:   options.Observers,
		Logger:      options.Logger,
		Clock:       options.Clock,
		NewID:       options.NewID,
	}, nil
}

func newPublisher(options runnerOptions) (publish.Publisher, error) {
	switch options.Definition.Publish.Mode {
	case pipelinedef.PublishGit:
		return publish.NewGitPublisher(options.Repository, options.Logger), nil
	case pipelinedef.PublishAPI:
		if options.FullName == "" {
			return nil, errors.New("api publish mode needs the repository name (GITHUB_REPOSITORY)")
		}
		client, err := github.NewClient(github.Config{
			BaseURL: options.APIBaseURL,
			Token:   options.Token,
			Logger:  options.Logger,
		})
		if err != nil {
			return nil, err
		}
		publisher, err := publish.NewAPIPublisher(client, options.FullName, options.Repository.Dir(), options.Logger)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	default:
		return nil, fmt.Errorf("unknown publish mode %q", options.Definition.Publish.Mode)
	}
}

// loadDefinition reads and validates the job definition at path. An
// empty path means the checkout's .fmtbot.jsonc if present, otherwise
// the built-in default.
func loadDefinition(path, checkout string) (*pipelinedef.Definition, error) {
	if path == "" {
		candidate := filepath.Join(checkout, definitionFile)
		if _, err := os.Stat(candidate); err != nil {
			return pipelinedef.Default(), nil
		}
		path = candidate
	}

	definition, err := pipelinedef.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if issues := pipelinedef.Validate(definition); len(issues) > 0 {
		return nil, &definitionError{path: path, issues: issues}
	}
	return definition, nil
}

type definitionError struct {
	path   string
	issues []string
}

func (e *definitionError) Error() string {
	message := fmt.Sprintf("invalid job definition %s:", e.path)
	for _, issue := range e.issues {
		message += "\n  " + issue
	}
	return message
}
