// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// commandFunc runs binary with args and returns stdout. Errors should
// carry the command's stderr.
type commandFunc func(ctx context.Context, binary string, args ...string) (string, error)

// Rustup provisions Rust toolchains with rustup. The selected toolchain
// is scoped to the run through RUSTUP_TOOLCHAIN; rustup's default
// toolchain (a global setting in $RUSTUP_HOME) is never changed.
type Rustup struct {
	// Binary is the rustup executable. Empty means resolve it from
	// PATH, then $CARGO_HOME/bin, then ~/.cargo/bin.
	Binary string

	run commandFunc
}

// NewRustup returns a rustup provisioner. run may be nil to execute
// the real binary.
func NewRustup(run commandFunc) *Rustup {
	if run == nil {
		run = runCommand
	}
	return &Rustup{run: run}
}

// Provision installs spec.Channel with the minimal profile plus the
// requested components, then confirms the toolchain runs by asking its
// rustc for a version.
func (rustup *Rustup) Provision(ctx context.Context, spec Spec) (*Environment, error) {
	binary := rustup.Binary
	if binary == "" {
		resolved, err := findRustup()
		if err != nil {
			return nil, provisionError(spec, err)
		}
		binary = resolved
	}

	args := []string{"toolchain", "install", spec.Channel, "--profile", "minimal", "--no-self-update"}
	for _, component := range spec.Components {
		args = append(args, "--component", component)
	}
	if _, err := rustup.run(ctx, binary, args...); err != nil {
		return nil, provisionError(spec, err)
	}

	version, err := rustup.run(ctx, binary, "run", spec.Channel, "rustc", "--version")
	if err != nil {
		return nil, provisionError(spec, fmt.Errorf("verifying installed toolchain: %w", err))
	}

	return &Environment{
		Variables: map[string]string{"RUSTUP_TOOLCHAIN": spec.Channel},
		// The cargo/rustfmt proxies live next to rustup.
		PathPrefix:  []string{filepath.Dir(binary)},
		Description: strings.TrimSpace(version),
	}, nil
}

// findRustup locates the rustup binary using the same search order as
// rustup-init's installation layout.
func findRustup() (string, error) {
	if path, err := exec.LookPath("rustup"); err == nil {
		return path, nil
	}

	var candidates []string
	if cargoHome := os.Getenv("CARGO_HOME"); cargoHome != "" {
		candidates = append(candidates, filepath.Join(cargoHome, "bin", "rustup"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".cargo", "bin", "rustup"))
	}
	for _, candidate := range candidates {
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("rustup not found on PATH or in %s", strings.Join(candidates, ", "))
}

// runCommand executes binary and returns stdout. Stderr is captured
// and preferred in the error message because that is where rustup and
// nix print the actual failure.
func runCommand(ctx context.Context, binary string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, binary, args...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		commandString := filepath.Base(binary) + " " + strings.Join(args, " ")
		if stderrText := strings.TrimSpace(stderr.String()); stderrText != "" {
			return "", fmt.Errorf("%s: %s", commandString, stderrText)
		}
		return "", fmt.Errorf("%s: %w", commandString, err)
	}
	return stdout.String(), nil
}
