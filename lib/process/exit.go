// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that carry their own process exit
// code (cli.ExitError). Such errors have already reported themselves,
// so Exit prints nothing for them.
type exitCoder interface {
	ExitCode() int
}

// Exit terminates the process according to err: nil exits 0, an error
// with an ExitCode method exits with that code silently, and anything
// else is written to stderr as "error: err" and exits 1.
func Exit(err error) {
	os.Exit(report(os.Stderr, err))
}

// report writes err to w when it should be shown and returns the exit
// code for it.
func report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var coded exitCoder
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}
