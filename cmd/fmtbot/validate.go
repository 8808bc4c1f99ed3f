// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/fmtbot/cmd/fmtbot/cli"
	"github.com/bureau-foundation/fmtbot/lib/pipelinedef"
)

func validateCommand(env environment) *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Summary: "Check job definition files",
		Usage:   "fmtbot validate FILE...",
		Examples: []cli.Example{
			{Description: "check the definition committed in the repository", Command: "fmtbot validate .fmtbot.jsonc"},
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return errors.New("at least one definition file is required")
			}
			failed := false
			for _, path := range args {
				issues := validateFile(path)
				if len(issues) == 0 {
					fmt.Fprintf(env.stdout, "%s: ok\n", path)
					continue
				}
				failed = true
				for _, issue := range issues {
					fmt.Fprintf(env.stdout, "%s: %s\n", path, issue)
				}
			}
			if failed {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func validateFile(path string) []string {
	definition, err := pipelinedef.ReadFile(path)
	if err != nil {
		return []string{err.Error()}
	}
	return pipelinedef.Validate(definition)
}
