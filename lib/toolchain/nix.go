// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package toolchain

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/fmtbot/lib/nix"
)

// Nix provisions toolchains from a flake. Spec.Name is the flake
// reference, Spec.Channel an optional ref appended to it, and each
// component a package attribute (the flake's default package when no
// components are given, i.e. "default").
type Nix struct {
	run func(ctx context.Context, args ...string) (string, error)
}

// NewNix returns a nix provisioner. run may be nil to execute the real
// nix binary.
func NewNix(run func(ctx context.Context, args ...string) (string, error)) *Nix {
	if run == nil {
		run = nix.RunContext
	}
	return &Nix{run: run}
}

// Provision builds every requested package and prepends their bin
// directories to PATH for the run.
func (provisioner *Nix) Provision(ctx context.Context, spec Spec) (*Environment, error) {
	packages := spec.Components
	if len(packages) == 0 {
		packages = []string{"default"}
	}
	installables := make([]string, len(packages))
	for i, pkg := range packages {
		installables[i] = nix.Installable(spec.Name, spec.Channel, pkg)
	}

	storePaths, err := nix.BuildOutPaths(ctx, provisioner.run, installables)
	if err != nil {
		return nil, provisionError(spec, err)
	}

	prefix := make([]string, len(storePaths))
	for i, storePath := range storePaths {
		prefix[i] = filepath.Join(storePath, "bin")
	}
	return &Environment{
		PathPrefix:  prefix,
		Description: strings.Join(installables, " "),
	}, nil
}
