// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipelinedef

import (
	"fmt"
	"regexp"
	"strings"
)

// variablePattern matches ${NAME} references in strings. Only the
// braced form is recognized. Variable names must start with a letter
// or underscore and contain only letters, digits, and underscores.
var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Variable names available to commit messages and command arguments.
const (
	VariableBranch     = "BRANCH"
	VariableSHA        = "SHA"
	VariableShortSHA   = "SHORT_SHA"
	VariableRunID      = "RUN_ID"
	VariableRepository = "REPOSITORY"
)

var knownVariables = map[string]bool{
	VariableBranch:     true,
	VariableSHA:        true,
	VariableShortSHA:   true,
	VariableRunID:      true,
	VariableRepository: true,
}

// Variables builds the variable map for one run. repository may be
// empty (a local `fmtbot run` has no forge name); ${REPOSITORY} then
// expands to the empty string.
func Variables(branch, sha, runID, repository string) map[string]string {
	short := sha
	if len(short) > 12 {
		short = short[:12]
	}
	return map[string]string{
		VariableBranch:     branch,
		VariableSHA:        sha,
		VariableShortSHA:   short,
		VariableRunID:      runID,
		VariableRepository: repository,
	}
}

// References returns the variable names referenced by input, in order
// of appearance (duplicates included).
func References(input string) []string {
	var names []string
	for _, match := range variablePattern.FindAllStringSubmatch(input, -1) {
		names = append(names, match[1])
	}
	return names
}

// Expand replaces ${NAME} references in input with values from the
// variables map.
//
// Returns an error listing all referenced variables that have no value
// in the map, so a definition fails fast on unresolvable references
// rather than committing a message with a literal ${NAME} in it.
func Expand(input string, variables map[string]string) (string, error) {
	var unresolved []string

	result := variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[2 : len(match)-1]
		if value, exists := variables[name]; exists {
			return value
		}
		unresolved = append(unresolved, name)
		return match
	})

	if len(unresolved) > 0 {
		return "", fmt.Errorf("unresolved variables: %s", strings.Join(unresolved, ", "))
	}

	return result, nil
}

// Expanded returns a copy of definition with the commit message and
// command arguments expanded. The original is not modified.
func (definition *Definition) Expanded(variables map[string]string) (*Definition, error) {
	expanded := *definition

	message, err := Expand(definition.Commit.Message, variables)
	if err != nil {
		return nil, fmt.Errorf("commit.message: %w", err)
	}
	expanded.Commit.Message = message

	expanded.Command = make([]string, len(definition.Command))
	for index, argument := range definition.Command {
		if expanded.Command[index], err = Expand(argument, variables); err != nil {
			return nil, fmt.Errorf("command[%d]: %w", index, err)
		}
	}
	return &expanded, nil
}
