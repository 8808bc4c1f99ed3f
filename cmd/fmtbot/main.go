// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"os"

	"github.com/bureau-foundation/fmtbot/cmd/fmtbot/cli"
	"github.com/bureau-foundation/fmtbot/lib/process"
)

// environment is the process surface commands read and write. Tests
// substitute buffers and a map-backed getenv.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

func main() {
	env := environment{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
	}
	process.Exit(rootCommand(env).Execute(os.Args[1:]))
}

func rootCommand(env environment) *cli.Command {
	return &cli.Command{
		Name:        "fmtbot",
		Description: "Format a repository on push and commit the result back to the branch.",
		HelpOutput:  env.stderr,
		Subcommands: []*cli.Command{
			runCommand(env),
			serveCommand(env),
			validateCommand(env),
			sealCommand(env),
			versionCommand(env),
		},
	}
}
