// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolchain provisions the versioned execution environment a
// formatting command needs.
//
// A [Provisioner] takes an immutable [Spec] and either guarantees the
// toolchain (plus requested components) is installed and selected, or
// fails with a [*ProvisionError]. Selection is never a mutation of the
// fmtbot process: Provision returns an [Environment] (extra variables
// and PATH entries) that the caller applies to the child processes of
// one run. Two runs with different toolchains can therefore coexist in
// the same process.
//
// Providers:
//
//   - "rustup": installs a channel with rustup and selects it through
//     RUSTUP_TOOLCHAIN.
//   - "nix": realizes flake packages with nix build and puts their bin
//     directories on PATH.
//   - "host": installs nothing; checks that the required executables
//     are already on PATH.
//
// [Registry] dispatches a Spec to the provider it names.
package toolchain
