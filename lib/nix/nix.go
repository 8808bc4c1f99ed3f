// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package nix provides typed access to the nix CLI for toolchain
// provisioning. It centralizes binary resolution for the Determinate
// Nix installation pattern (PATH first, then
// /nix/var/nix/profiles/default/bin/) and provides uniform error
// formatting across all nix invocations.
//
// fmtbot uses nix to realize pinned toolchains: `nix build --no-link
// --print-out-paths` returns store paths whose bin directories are put
// on the PATH of a single run.
package nix

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// determinateProfileBin is where Determinate Nix installs its binaries.
// This location is outside PATH by default, so we check it explicitly
// after the PATH lookup fails.
const determinateProfileBin = "/nix/var/nix/profiles/default/bin"

// FindBinary resolves a Nix binary by name (e.g., "nix"), checking PATH
// first and then the standard Determinate Nix installation directory.
// Returns the absolute path to the binary.
func FindBinary(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	determinatePath := filepath.Join(determinateProfileBin, name)
	if _, err := os.Stat(determinatePath); err == nil {
		return determinatePath, nil
	}

	return "", fmt.Errorf("%s not found on PATH or at %s: install Nix or use the host toolchain provider",
		name, determinatePath)
}

// RunContext executes "nix <args>" and returns the stdout output. The
// nix binary is resolved via FindBinary on each call. Stderr is
// captured and included in error messages (nix writes diagnostic
// output to stderr).
func RunContext(ctx context.Context, args ...string) (string, error) {
	binaryPath, err := FindBinary("nix")
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, binaryPath, args...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", formatError("nix", args, &stderr, err)
	}
	return stdout.String(), nil
}

// Installable returns the flake installable for one package:
// "<flake>#<package>", with "/<ref>" appended to the flake reference
// when ref is non-empty (e.g. "github:NixOS/nixpkgs/nixos-24.05#rustfmt").
func Installable(flake, ref, pkg string) string {
	if ref != "" {
		flake = strings.TrimRight(flake, "/") + "/" + ref
	}
	if pkg == "" {
		return flake
	}
	return flake + "#" + pkg
}

// BuildOutPaths realizes the given installables without creating
// result symlinks and returns their output store directories, one per
// output, in the order nix prints them.
func BuildOutPaths(ctx context.Context, run func(ctx context.Context, args ...string) (string, error), installables []string) ([]string, error) {
	if len(installables) == 0 {
		return nil, fmt.Errorf("no installables to build")
	}
	if run == nil {
		run = RunContext
	}

	args := append([]string{"build", "--no-link", "--print-out-paths"}, installables...)
	output, err := run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		directory, err := StoreDirectory(line)
		if err != nil {
			return nil, fmt.Errorf("nix build printed %q: %w", line, err)
		}
		paths = append(paths, directory)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("nix build %s produced no output paths", strings.Join(installables, " "))
	}
	return paths, nil
}

// nixStorePrefix is the standard Nix store root directory.
const nixStorePrefix = "/nix/store/"

// StoreDirectory extracts the Nix store directory from a path within it.
// A Nix store directory is the first path component after /nix/store/:
//
//	"/nix/store/abc-rustfmt-1.8.0/bin/rustfmt" → "/nix/store/abc-rustfmt-1.8.0"
//	"/nix/store/abc-rustfmt-1.8.0"             → "/nix/store/abc-rustfmt-1.8.0"
//
// Returns an error for paths not under /nix/store/ or paths that are
// exactly /nix/store/ with no entry name.
func StoreDirectory(path string) (string, error) {
	if !strings.HasPrefix(path, nixStorePrefix) {
		return "", fmt.Errorf("path %q is not under /nix/store/", path)
	}

	remainder := path[len(nixStorePrefix):]
	if remainder == "" {
		return "", fmt.Errorf("path %q has no store entry name", path)
	}

	slashIndex := strings.IndexByte(remainder, '/')
	if slashIndex == -1 {
		return path, nil
	}

	return path[:len(nixStorePrefix)+slashIndex], nil
}

// formatError produces an error message for a failed nix command,
// preferring stderr output (which contains the actual nix error) over
// the generic exec error.
func formatError(binaryName string, args []string, stderr *bytes.Buffer, err error) error {
	commandString := binaryName + " " + strings.Join(args, " ")
	stderrText := strings.TrimSpace(stderr.String())
	if stderrText != "" {
		return fmt.Errorf("%s: %s", commandString, stderrText)
	}
	return fmt.Errorf("%s: %w", commandString, err)
}
