// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Provider names accepted in Spec.Provider.
const (
	ProviderRustup = "rustup"
	ProviderNix    = "nix"
	ProviderHost   = "host"
)

// Spec describes the toolchain a run needs. It is consumed once by a
// Provisioner and not retained afterwards.
type Spec struct {
	// Provider selects the provisioning backend: "rustup", "nix" or
	// "host".
	Provider string `json:"provider"`

	// Name identifies the toolchain within the provider. For nix it is
	// the flake reference (e.g. "github:NixOS/nixpkgs"); rustup and
	// host ignore it.
	Name string `json:"name,omitempty"`

	// Channel is the version channel: a rustup toolchain name
	// ("stable", "nightly-2024-05-01", "1.80.0") or a flake ref
	// ("nixos-24.05").
	Channel string `json:"channel,omitempty"`

	// Components are additional parts to install: rustup components
	// ("rustfmt"), nix package attributes, or, for host, executables
	// that must be on PATH.
	Components []string `json:"components,omitempty"`
}

// String returns a short human-readable description, e.g.
// "rustup:nightly+rustfmt".
func (spec Spec) String() string {
	var builder strings.Builder
	builder.WriteString(spec.Provider)
	if spec.Name != "" {
		builder.WriteString(":" + spec.Name)
	}
	if spec.Channel != "" {
		builder.WriteString(":" + spec.Channel)
	}
	for _, component := range spec.Components {
		builder.WriteString("+" + component)
	}
	return builder.String()
}

// Validate checks the fields the named provider requires.
func (spec Spec) Validate() error {
	switch spec.Provider {
	case ProviderRustup:
		if spec.Channel == "" {
			return fmt.Errorf("toolchain: rustup provider requires a channel")
		}
	case ProviderNix:
		if spec.Name == "" {
			return fmt.Errorf("toolchain: nix provider requires a flake reference in name")
		}
	case ProviderHost:
	case "":
		return fmt.Errorf("toolchain: provider is required")
	default:
		return fmt.Errorf("toolchain: unknown provider %q", spec.Provider)
	}
	for _, component := range spec.Components {
		if strings.TrimSpace(component) == "" {
			return fmt.Errorf("toolchain: empty component name")
		}
	}
	return nil
}

// ProvisionError reports that the toolchain could not be made
// available: network failure, unknown channel, unsupported platform,
// missing provider binary.
type ProvisionError struct {
	Toolchain string
	Err       error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning toolchain %s: %v", e.Toolchain, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

func provisionError(spec Spec, err error) *ProvisionError {
	return &ProvisionError{Toolchain: spec.String(), Err: err}
}

// Provisioner ensures a toolchain is present and returns how to select
// it for the rest of a run.
type Provisioner interface {
	Provision(ctx context.Context, spec Spec) (*Environment, error)
}

// Environment is the per-run toolchain selection. It is applied to
// child processes by the executor; it never touches os.Environ.
type Environment struct {
	// Variables are set (overriding any inherited value) in every
	// child process of the run.
	Variables map[string]string

	// PathPrefix entries are prepended to PATH, in order.
	PathPrefix []string

	// Description records what was provisioned (for logs).
	Description string
}

// Apply returns base with the environment's variables and PATH prefix
// applied. base is not modified. A nil Environment returns a copy of
// base.
func (environment *Environment) Apply(base []string) []string {
	result := make([]string, 0, len(base)+4)
	if environment == nil {
		return append(result, base...)
	}

	overridden := make(map[string]bool, len(environment.Variables))
	for key := range environment.Variables {
		overridden[key] = true
	}

	inheritedPath := ""
	for _, entry := range base {
		key, value, _ := strings.Cut(entry, "=")
		if key == "PATH" {
			inheritedPath = value
			continue
		}
		if overridden[key] {
			continue
		}
		result = append(result, entry)
	}

	keys := make([]string, 0, len(environment.Variables))
	for key := range environment.Variables {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == "PATH" {
			inheritedPath = environment.Variables[key]
			continue
		}
		result = append(result, key+"="+environment.Variables[key])
	}

	path := strings.Join(environment.PathPrefix, string(os.PathListSeparator))
	if inheritedPath != "" {
		if path != "" {
			path += string(os.PathListSeparator)
		}
		path += inheritedPath
	}
	if path != "" {
		result = append(result, "PATH="+path)
	}
	return result
}

// LookPath resolves an executable name against the PATH of env (a
// KEY=VALUE list as produced by Apply). Names containing a path
// separator are returned unchanged if they point at an executable.
func LookPath(name string, env []string) (string, error) {
	if strings.ContainsRune(name, os.PathSeparator) {
		if isExecutable(name) {
			return name, nil
		}
		return "", fmt.Errorf("%s is not an executable file", name)
	}

	var path string
	for _, entry := range env {
		if value, ok := strings.CutPrefix(entry, "PATH="); ok {
			path = value
		}
	}
	for _, directory := range filepath.SplitList(path) {
		if directory == "" {
			directory = "."
		}
		candidate := filepath.Join(directory, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("executable %q not found in PATH", name)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}

// Registry dispatches Provision calls to the Provisioner registered for
// Spec.Provider.
type Registry map[string]Provisioner

// DefaultRegistry returns a Registry with the rustup, nix and host
// providers backed by the real binaries.
func DefaultRegistry() Registry {
	return Registry{
		ProviderRustup: NewRustup(nil),
		ProviderNix:    NewNix(nil),
		ProviderHost:   NewHost(),
	}
}

// Provision validates spec and delegates to the named provider. All
// failures, including an unknown provider, are *ProvisionError.
func (registry Registry) Provision(ctx context.Context, spec Spec) (*Environment, error) {
	if err := spec.Validate(); err != nil {
		return nil, provisionError(spec, err)
	}
	provisioner, ok := registry[spec.Provider]
	if !ok {
		return nil, provisionError(spec, fmt.Errorf("no provisioner registered for provider %q", spec.Provider))
	}
	return provisioner.Provision(ctx, spec)
}
