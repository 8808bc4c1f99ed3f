// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed reads push credentials that may be age-encrypted.
//
// A token file whose name ends in ".age" is decrypted with the
// identities in the configured age identity file (the format written
// by age-keygen). Any other file is read as plaintext. Both binary and
// ASCII-armored age files are accepted.
//
// [Seal] produces armored ciphertext for one or more recipients and
// backs the "fmtbot seal" command. Decrypted tokens are returned as
// strings because their only consumer, [git.AuthEnvironment], hands
// them to git through the environment.
package sealed
