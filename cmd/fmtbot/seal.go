// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fmtbot/cmd/fmtbot/cli"
	"github.com/bureau-foundation/fmtbot/lib/sealed"
)

func sealCommand(env environment) *cli.Command {
	var recipients []string
	return &cli.Command{
		Name:    "seal",
		Summary: "Encrypt a token from stdin to age recipients",
		Description: "Encrypt a token read from stdin to one or more age recipients and write\n" +
			"ASCII-armored ciphertext to stdout. Store the output with a .age\n" +
			"extension and reference it as a repository token_file.",
		Examples: []cli.Example{
			{
				Description: "seal a push token for the server's identity",
				Command:     "fmtbot seal --recipient age1... < token > widgets.token.age",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("seal", pflag.ContinueOnError)
			flagSet.StringArrayVarP(&recipients, "recipient", "r", nil, "age public key (repeatable)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			plaintext, err := io.ReadAll(env.stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			if len(bytes.TrimSpace(plaintext)) == 0 {
				return errors.New("stdin is empty")
			}
			ciphertext, err := sealed.Seal(plaintext, recipients)
			if err != nil {
				return err
			}
			_, err = env.stdout.Write(ciphertext)
			return err
		},
	}
}
