// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the fmtbot binary.
//
// [Command] is a named subcommand with optional nested subcommands, a
// [pflag.FlagSet] factory and a Run function. [Command.Execute] parses
// flags, routes to subcommands and prints help with examples. An
// unknown subcommand or flag gets a "did you mean" suggestion when a
// known name is within edit distance 3.
//
// [NewCommandLogger] builds the slog logger every command uses, and
// [ExitError] lets a command fail with a code after it has already
// printed its own report.
package cli
