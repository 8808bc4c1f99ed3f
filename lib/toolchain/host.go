// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package toolchain

import (
	"context"
	"os"
	"strings"
)

// Host uses whatever toolchain the enclosing host already installed.
// Each component must name an executable reachable through PATH.
type Host struct {
	environ func() []string
}

// NewHost returns a host provisioner reading the process environment.
func NewHost() *Host {
	return &Host{environ: os.Environ}
}

// Provision checks that every component resolves on PATH. It installs
// nothing and selects nothing, so the returned Environment is empty.
func (host *Host) Provision(ctx context.Context, spec Spec) (*Environment, error) {
	env := host.environ()
	resolved := make([]string, 0, len(spec.Components))
	for _, component := range spec.Components {
		path, err := LookPath(component, env)
		if err != nil {
			return nil, provisionError(spec, err)
		}
		resolved = append(resolved, path)
	}
	return &Environment{Description: "host " + strings.Join(resolved, " ")}, nil
}
